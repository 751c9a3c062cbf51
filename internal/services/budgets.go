package services

import (
	"context"
	"log/slog"
	"strconv"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

type BudgetInput struct {
	Category core.Category   `json:"category" validate:"required"`
	Limit    decimal.Decimal `json:"limit"`
	Month    int             `json:"month" validate:"gte=1,lte=12"`
	Year     int             `json:"year" validate:"gte=1970,lte=9999"`
}

type BudgetService struct {
	writer *Writer
	events ports.EventSink
	logger *applog.Logger
}

func NewBudgetService(writer *Writer, events ports.EventSink, logger *applog.Logger) *BudgetService {
	if events == nil {
		events = ports.NopSink{}
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &BudgetService{
		writer: writer,
		events: events,
		logger: logger.WithComponent(applog.ComponentLedger),
	}
}

// Create adds a budget for one category and period. The stored spend
// starts at what the user already spent in that period.
func (s *BudgetService) Create(ctx context.Context, userID string, in BudgetInput) (*core.Budget, error) {
	if err := validateInput("create budget", in); err != nil {
		return nil, s.failed(ctx, applog.OpCreate, userID, err)
	}

	var budget *core.Budget
	err := s.writer.Do(ctx, func(ctx context.Context, store ports.EntityStore) error {
		q := core.Where("user_id", core.OpEq, userID).
			Where("category", core.OpEq, in.Category).
			Where("month", core.OpEq, in.Month).
			Where("year", core.OpEq, in.Year)
		existing, err := ports.Fetch[*core.Budget](ctx, store, q.Take(1))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return core.E(core.AlreadyExists, "create budget", "budget already exists for this category and month", nil)
		}

		spend, err := expenseByCategory(ctx, store, userID, in.Month, in.Year)
		if err != nil {
			return err
		}
		budget = core.NewBudget(userID, in.Category, in.Limit.Round(2), spend[in.Category], in.Month, in.Year)
		if err := budget.Validate(); err != nil {
			return err
		}
		store.Insert(budget)
		return nil
	})
	if err != nil {
		return nil, s.failed(ctx, applog.OpCreate, userID, err)
	}

	s.events.Emit(ctx, core.NewEvent(core.EventBudgetCreated, userID, map[string]string{"category": string(in.Category)}))
	return budget, nil
}

// Reconcile overwrites each budget's stored spend for the period with the
// spend recomputed from expense transactions.
func (s *BudgetService) Reconcile(ctx context.Context, userID string, month, year int) ([]core.BudgetStatus, error) {
	if err := checkPeriod(month, year); err != nil {
		return nil, s.failed(ctx, applog.OpReconcile, userID, err)
	}

	var out []core.BudgetStatus
	changed := 0
	err := s.writer.Do(ctx, func(ctx context.Context, store ports.EntityStore) error {
		statuses, err := budgetStatuses(ctx, store, userID, month, year)
		if err != nil {
			return err
		}
		out = make([]core.BudgetStatus, 0, len(statuses))
		for _, st := range statuses {
			b := st.Budget
			if !b.Spent.Equal(st.Computed) {
				b.Spent = st.Computed
				store.Update(&b)
				changed++
			}
			out = append(out, core.NewBudgetStatus(b, st.Computed))
		}
		return nil
	})
	if err != nil {
		return nil, s.failed(ctx, applog.OpReconcile, userID, err)
	}

	fields := applog.NewFields().WithUser(userID).WithPeriod(year, month).WithOperation(applog.OpReconcile)
	fields[applog.FieldCount] = changed
	s.logger.Fields(ctx, slog.LevelInfo, "Budgets reconciled", fields)
	s.events.Emit(ctx, core.NewEvent(core.EventBudgetsReconciled, userID, map[string]string{"changed": strconv.Itoa(changed)}))
	return out, nil
}

func (s *BudgetService) failed(ctx context.Context, op, userID string, err error) error {
	return reportFailure(ctx, s.logger, "Budget", op, userID, err)
}
