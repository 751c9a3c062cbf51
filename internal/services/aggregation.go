package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DashboardRecentLimit is how many transactions the dashboard lists.
const DashboardRecentLimit = 5

// AggregationEngine computes read models over committed store state.
// Results are cached per user and invalidated by any committed write.
type AggregationEngine struct {
	store  ports.EntityStore
	writer *Writer
	cache  *cache.LRUCache[any]
	logger *applog.Logger
}

// NewAggregationEngine builds the engine; c may be nil to disable caching.
func NewAggregationEngine(writer *Writer, c *cache.LRUCache[any], logger *applog.Logger) *AggregationEngine {
	if logger == nil {
		logger = applog.Discard()
	}
	return &AggregationEngine{
		store:  writer.Store(),
		writer: writer,
		cache:  c,
		logger: logger.WithComponent(applog.ComponentAggregation),
	}
}

func cached[T any](ctx context.Context, e *AggregationEngine, key string, compute func(context.Context) (T, error)) (T, error) {
	if e.cache == nil {
		return compute(ctx)
	}
	key = fmt.Sprintf("v%d:%s", e.writer.Version(), key)
	if v, ok := e.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := compute(ctx)
	if err != nil {
		return v, err
	}
	e.cache.Set(key, v)
	return v, nil
}

// TotalBalance sums the balances of every account the user owns, active
// or not. No accounts yields zero.
func (e *AggregationEngine) TotalBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	return cached(ctx, e, "balance:"+userID, func(ctx context.Context) (decimal.Decimal, error) {
		accounts, err := ports.Fetch[*core.Account](ctx, e.store, core.Where("user_id", core.OpEq, userID))
		if err != nil {
			return decimal.Zero, e.failed(ctx, "total balance", userID, err)
		}
		balances := make([]decimal.Decimal, len(accounts))
		for i, a := range accounts {
			balances[i] = a.Balance
		}
		return core.Sum(balances...), nil
	})
}

// RecentTransactions lists the user's transactions newest first, ties
// broken by id. limit <= 0 yields an empty list.
func (e *AggregationEngine) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		return []core.Transaction{}, nil
	}
	recent, err := cached(ctx, e, fmt.Sprintf("recent:%s:%d", userID, limit), func(ctx context.Context) ([]core.Transaction, error) {
		ids, err := accountIDs(ctx, e.store, userID)
		if err != nil || len(ids) == 0 {
			return []core.Transaction{}, e.failed(ctx, "recent transactions", userID, err)
		}
		q := core.Where("account_id", core.OpIn, ids).OrderBy("date", true).Take(limit)
		txs, err := ports.Fetch[*core.Transaction](ctx, e.store, q)
		if err != nil {
			return nil, e.failed(ctx, "recent transactions", userID, err)
		}
		return derefAll(txs), nil
	})
	return slices.Clone(recent), err
}

// BudgetSpend lists the user's budgets for the period, ordered by category,
// with the stored spend and the spend recomputed from expenses.
func (e *AggregationEngine) BudgetSpend(ctx context.Context, userID string, month, year int) ([]core.BudgetStatus, error) {
	if err := checkPeriod(month, year); err != nil {
		return nil, e.failed(ctx, "budget spend", userID, err)
	}
	statuses, err := cached(ctx, e, fmt.Sprintf("budgets:%s:%d-%02d", userID, year, month), func(ctx context.Context) ([]core.BudgetStatus, error) {
		return budgetStatuses(ctx, e.store, userID, month, year)
	})
	if err != nil {
		return nil, e.failed(ctx, "budget spend", userID, err)
	}
	return slices.Clone(statuses), nil
}

// MonthSummary totals income and expenses for the period, with expenses
// broken down by category, largest first.
func (e *AggregationEngine) MonthSummary(ctx context.Context, userID string, month, year int) (core.MonthSummary, error) {
	if err := checkPeriod(month, year); err != nil {
		return core.MonthSummary{}, e.failed(ctx, "month summary", userID, err)
	}
	summary, err := cached(ctx, e, fmt.Sprintf("summary:%s:%d-%02d", userID, year, month), func(ctx context.Context) (core.MonthSummary, error) {
		summary := core.MonthSummary{
			Year: year, Month: month,
			Income: decimal.Zero, Expenses: decimal.Zero, Net: decimal.Zero,
			ByCategory: []core.CategoryAmount{},
		}
		txs, err := periodTransactions(ctx, e.store, userID, month, year)
		if err != nil {
			return summary, err
		}

		byCategory := make(map[core.Category]decimal.Decimal)
		for _, tx := range txs {
			if tx.Type == core.Income {
				summary.Income = summary.Income.Add(tx.Amount.Abs())
				continue
			}
			magnitude := tx.Amount.Abs()
			summary.Expenses = summary.Expenses.Add(magnitude)
			byCategory[tx.Category] = byCategory[tx.Category].Add(magnitude)
		}
		summary.Net = summary.Income.Sub(summary.Expenses)

		for cat, amount := range byCategory {
			summary.ByCategory = append(summary.ByCategory, core.CategoryAmount{Category: cat, Amount: amount})
		}
		slices.SortFunc(summary.ByCategory, func(a, b core.CategoryAmount) int {
			if c := b.Amount.Cmp(a.Amount); c != 0 {
				return c
			}
			return strings.Compare(string(a.Category), string(b.Category))
		})
		return summary, nil
	})
	if err != nil {
		return core.MonthSummary{}, e.failed(ctx, "month summary", userID, err)
	}
	summary.ByCategory = slices.Clone(summary.ByCategory)
	return summary, nil
}

// Dashboard gathers the home screen read models concurrently for the
// month containing now.
func (e *AggregationEngine) Dashboard(ctx context.Context, userID string, now time.Time) (core.Dashboard, error) {
	now = now.UTC()
	month, year := int(now.Month()), now.Year()
	d := core.Dashboard{Currency: core.DefaultCurrency, GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := ports.ByID[*core.User](gctx, e.store, userID)
		if err == nil {
			d.Currency = user.PreferredCurrency
			return nil
		}
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	})
	g.Go(func() (err error) {
		d.TotalBalance, err = e.TotalBalance(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.Recent, err = e.RecentTransactions(gctx, userID, DashboardRecentLimit)
		return err
	})
	g.Go(func() (err error) {
		d.Budgets, err = e.BudgetSpend(gctx, userID, month, year)
		return err
	})
	g.Go(func() (err error) {
		d.Month, err = e.MonthSummary(gctx, userID, month, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}
	return d, nil
}

func (e *AggregationEngine) failed(ctx context.Context, what, userID string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, reportFailure(ctx, e.logger, "Aggregation", applog.OpAggregate, userID, err))
}

func checkPeriod(month, year int) error {
	if month < 1 || month > 12 {
		return core.ErrInvalidMonth
	}
	if year < core.MinYear || year > core.MaxYear {
		return core.ErrInvalidYear
	}
	return nil
}

// periodBounds returns the first instant of the month and of the next one.
func periodBounds(month, year int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func accountIDs(ctx context.Context, store ports.EntityStore, userID string) ([]string, error) {
	accounts, err := ports.Fetch[*core.Account](ctx, store, core.Where("user_id", core.OpEq, userID))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return ids, nil
}

func periodTransactions(ctx context.Context, store ports.EntityStore, userID string, month, year int) ([]*core.Transaction, error) {
	ids, err := accountIDs(ctx, store, userID)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	start, end := periodBounds(month, year)
	q := core.Where("account_id", core.OpIn, ids).
		Where("date", core.OpGte, start).
		Where("date", core.OpLt, end).
		OrderBy("date", false)
	return ports.Fetch[*core.Transaction](ctx, store, q)
}

// expenseByCategory sums expense magnitudes per category for the period.
func expenseByCategory(ctx context.Context, store ports.EntityStore, userID string, month, year int) (map[core.Category]decimal.Decimal, error) {
	txs, err := periodTransactions(ctx, store, userID, month, year)
	if err != nil {
		return nil, err
	}
	spend := make(map[core.Category]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type == core.Expense {
			spend[tx.Category] = spend[tx.Category].Add(tx.Amount.Abs())
		}
	}
	return spend, nil
}

func budgetStatuses(ctx context.Context, store ports.EntityStore, userID string, month, year int) ([]core.BudgetStatus, error) {
	q := core.Where("user_id", core.OpEq, userID).
		Where("month", core.OpEq, month).
		Where("year", core.OpEq, year).
		OrderBy("category", false)
	budgets, err := ports.Fetch[*core.Budget](ctx, store, q)
	if err != nil {
		return nil, err
	}
	statuses := make([]core.BudgetStatus, 0, len(budgets))
	if len(budgets) == 0 {
		return statuses, nil
	}

	spend, err := expenseByCategory(ctx, store, userID, month, year)
	if err != nil {
		return nil, err
	}
	for _, b := range budgets {
		statuses = append(statuses, core.NewBudgetStatus(*b, spend[b.Category]))
	}
	return statuses, nil
}

func derefAll[T any](items []*T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = *item
	}
	return out
}
