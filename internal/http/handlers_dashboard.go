package http

import (
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/shopspring/decimal"
)

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 100
)

type balanceResponse struct {
	TotalBalance decimal.Decimal `json:"total_balance"`
	Currency     string          `json:"currency"`
	Formatted    string          `json:"formatted"`
}

type budgetSpendResponse struct {
	Year    int                 `json:"year"`
	Month   int                 `json:"month"`
	Budgets []core.BudgetStatus `json:"budgets"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	dash, err := s.aggregation.Dashboard(r.Context(), user.ID, s.now())
	if err != nil {
		s.writeError(w, r, applog.OpAggregate, err)
		return
	}
	NewJSONResponse().Data(dash).Write(w)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	total, err := s.aggregation.TotalBalance(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, applog.OpAggregate, err)
		return
	}
	NewJSONResponse().Data(balanceResponse{
		TotalBalance: total,
		Currency:     user.PreferredCurrency,
		Formatted:    core.FormatAmount(total, user.PreferredCurrency),
	}).Write(w)
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	limit, err := ParseLimit(r.URL.Query(), defaultRecentLimit, maxRecentLimit)
	if err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	txs, err := s.aggregation.RecentTransactions(r.Context(), user.ID, limit)
	if err != nil {
		s.writeError(w, r, applog.OpAggregate, err)
		return
	}
	NewJSONResponse().Data(txs).Write(w)
}

func (s *Server) handleBudgetSpend(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	period, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	statuses, err := s.aggregation.BudgetSpend(r.Context(), user.ID, period.Month, period.Year)
	if err != nil {
		s.writeError(w, r, applog.OpAggregate, err)
		return
	}
	NewJSONResponse().Data(budgetSpendResponse{
		Year:    period.Year,
		Month:   period.Month,
		Budgets: statuses,
	}).Write(w)
}
