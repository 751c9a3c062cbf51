package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// BudgetStatus is a budget together with the spend recomputed from posted
// transactions. Spent is the stored value; Computed is derived.
type BudgetStatus struct {
	Budget    Budget          `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Computed  decimal.Decimal `json:"computed"`
	Remaining decimal.Decimal `json:"remaining"`
	Progress  float64         `json:"progress"` // Spent / Limit, 0 when Limit is 0
	Over      bool            `json:"over_budget"`
}

// MonthSummary is a compact summary for a specific year+month.
type MonthSummary struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Income     decimal.Decimal  `json:"income"`
	Expenses   decimal.Decimal  `json:"expenses"` // positive magnitude
	Net        decimal.Decimal  `json:"net"`
	ByCategory []CategoryAmount `json:"by_category"`
}

// Dashboard bundles what the home screen shows.
type Dashboard struct {
	TotalBalance decimal.Decimal `json:"total_balance"`
	Currency     string          `json:"currency"`
	Recent       []Transaction   `json:"recent"`
	Budgets      []BudgetStatus  `json:"budgets"`
	Month        MonthSummary    `json:"month"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// NewBudgetStatus derives remaining and progress from the stored spend.
func NewBudgetStatus(b Budget, computed decimal.Decimal) BudgetStatus {
	status := BudgetStatus{
		Budget:    b,
		Spent:     b.Spent,
		Computed:  computed,
		Remaining: b.Limit.Sub(b.Spent),
	}
	if b.Limit.IsPositive() {
		status.Progress = b.Spent.Div(b.Limit).InexactFloat64()
	}
	status.Over = status.OverBudget()
	return status
}

// OverBudget reports whether the stored spend exceeds the limit.
func (s BudgetStatus) OverBudget() bool {
	return s.Spent.GreaterThan(s.Budget.Limit)
}
