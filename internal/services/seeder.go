package services

import (
	"context"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

// DemoEmail is the address of the seeded demo user.
const DemoEmail = "demo@example.com"

// Seeder fills an empty store with a demo user and sample data.
type Seeder struct {
	writer *Writer
	events ports.EventSink
	logger *applog.Logger
	now    func() time.Time
}

func NewSeeder(writer *Writer, events ports.EventSink, logger *applog.Logger) *Seeder {
	if events == nil {
		events = ports.NopSink{}
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Seeder{
		writer: writer,
		events: events,
		logger: logger.WithComponent(applog.ComponentSeeder),
		now:    time.Now,
	}
}

// Seed inserts the demo data when the store holds no users and reports
// whether it did. Seeding a non-empty store is a no-op. Seeded
// transactions are not posted to account balances.
func (s *Seeder) Seed(ctx context.Context) (bool, error) {
	now := s.now().UTC()
	seeded := false
	var user *core.User

	err := s.writer.Do(ctx, func(ctx context.Context, store ports.EntityStore) error {
		n, err := store.Count(ctx, core.KindUser)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		user = core.NewUser("Demo User", DemoEmail, core.DefaultCurrency, now)
		store.Insert(user)

		checking := core.NewAccount(user.ID, "Checking", core.Checking, amount("2500.00"), now)
		savings := core.NewAccount(user.ID, "Savings", core.Savings, amount("15000.00"), now)
		credit := core.NewAccount(user.ID, "Credit Card", core.Credit, amount("-800.00"), now)
		investment := core.NewAccount(user.ID, "Investment", core.Investment, amount("25000.00"), now)
		for _, a := range []*core.Account{checking, savings, credit, investment} {
			store.Insert(a)
		}

		for _, tx := range []*core.Transaction{
			core.NewTransaction(checking.ID, amount("5000.00"), "Salary", now, core.CategorySalary, core.Income, now),
			core.NewTransaction(checking.ID, amount("-150.75"), "Groceries", now.AddDate(0, 0, -1), core.CategoryFood, core.Expense, now),
			core.NewTransaction(credit.ID, amount("-60.00"), "Gas", now.AddDate(0, 0, -2), core.CategoryTransportation, core.Expense, now),
			core.NewTransaction(credit.ID, amount("-15.99"), "Streaming", now.AddDate(0, 0, -3), core.CategoryEntertainment, core.Expense, now),
		} {
			store.Insert(tx)
		}

		month, year := int(now.Month()), now.Year()
		for _, b := range []struct {
			category     core.Category
			limit, spent string
		}{
			{core.CategoryFood, "600.00", "150.75"},
			{core.CategoryTransportation, "300.00", "60.00"},
			{core.CategoryEntertainment, "200.00", "15.99"},
			{core.CategoryShopping, "400.00", "0.00"},
		} {
			store.Insert(core.NewBudget(user.ID, b.category, amount(b.limit), amount(b.spent), month, year))
		}

		seeded = true
		return nil
	})
	if err != nil {
		applog.NewStructuredLogger(s.logger).LogError(ctx, "Demo data seeding failed", err, applog.ComponentSeeder, applog.OpSeed, nil)
		return false, err
	}

	if !seeded {
		s.logger.DebugContext(ctx, "Store already populated, skipping demo data")
		return false, nil
	}
	s.logger.InfoContext(ctx, "Demo data seeded", applog.FieldUserID, user.ID)
	s.events.Emit(ctx, core.NewEvent(core.EventDemoDataSeeded, user.ID, nil))
	return true, nil
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
