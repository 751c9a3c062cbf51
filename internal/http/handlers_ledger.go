package http

import (
	"encoding/json"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// transactionRequest accepts the date as YYYY-MM-DD as well as RFC 3339,
// and the amount as a number or a decimal string.
type transactionRequest struct {
	AccountID   string               `json:"account_id"`
	Amount      json.RawMessage      `json:"amount"`
	Description string               `json:"description"`
	Date        string               `json:"date"`
	Category    core.Category        `json:"category"`
	Type        core.TransactionType `json:"type"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	accounts, err := s.accounts.List(r.Context(), user.ID, ParseBool(r.URL.Query(), "include_inactive"))
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Data(accounts).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	var req services.AccountInput
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	req.Name = sanitizeInput(req.Name)

	account, err := s.accounts.Create(r.Context(), user.ID, req)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/accounts/"+account.ID).
		Data(account).
		Write(w)
}

func (s *Server) handleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	account, err := s.accounts.Deactivate(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Data(account).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	txs, err := s.transactions.List(r.Context(), user.ID, sanitizeInput(r.URL.Query().Get("account_id")))
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Data(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	var req transactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	date, err := ParseDate(req.Date)
	if err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}

	tx, err := s.transactions.Create(r.Context(), user.ID, services.TransactionInput{
		AccountID:   sanitizeInput(req.AccountID),
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Date:        date,
		Category:    req.Category,
		Type:        req.Type,
	})
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Data(tx).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	if err := s.transactions.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	var req services.BudgetInput
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	budget, err := s.budgets.Create(r.Context(), user.ID, req)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(budget).Write(w)
}

// handleReconcileBudgets rewrites stored spend for the period given by the
// month and year query parameters.
func (s *Server) handleReconcileBudgets(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w)
	if !ok {
		return
	}
	period, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	statuses, err := s.budgets.Reconcile(r.Context(), user.ID, period.Month, period.Year)
	if err != nil {
		s.writeError(w, r, applog.OpReconcile, err)
		return
	}
	NewJSONResponse().Data(budgetSpendResponse{
		Year:    period.Year,
		Month:   period.Month,
		Budgets: statuses,
	}).Write(w)
}
