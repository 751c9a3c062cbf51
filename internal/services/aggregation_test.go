package services

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, amount(want).Equal(got), "want %s, got %s", want, got)
}

func descriptions(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.Description
	}
	return out
}

func TestTotalBalance(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)

		total, err := env.agg.TotalBalance(ctx, userID)
		require.NoError(t, err)
		assertAmount(t, "41700.00", total)

		// Inactive accounts still count.
		accounts, err := env.accounts.List(ctx, userID, false)
		require.NoError(t, err)
		_, err = env.accounts.Deactivate(ctx, userID, accounts[0].ID)
		require.NoError(t, err)
		total, err = env.agg.TotalBalance(ctx, userID)
		require.NoError(t, err)
		assertAmount(t, "41700.00", total)

		total, err = env.agg.TotalBalance(ctx, "no-such-user")
		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})
}

func TestRecentTransactions(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)

		recent, err := env.agg.RecentTransactions(ctx, userID, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"Salary", "Groceries", "Gas", "Streaming"}, descriptions(recent))

		recent, err = env.agg.RecentTransactions(ctx, userID, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"Salary", "Groceries"}, descriptions(recent))

		for _, limit := range []int{0, -3} {
			recent, err = env.agg.RecentTransactions(ctx, userID, limit)
			require.NoError(t, err)
			assert.Empty(t, recent)
		}

		recent, err = env.agg.RecentTransactions(ctx, "no-such-user", 5)
		require.NoError(t, err)
		assert.NotNil(t, recent)
		assert.Empty(t, recent)
	})
}

func TestRecentTransactionsExcludesOtherUsers(t *testing.T) {
	env := newMemoryEnv(t)
	ctx := context.Background()
	demoID := seedDemo(t, env)

	other, err := env.session.SignUp(ctx, SignUpInput{Name: "Other", Email: "other@example.com", Password: "secret1"})
	require.NoError(t, err)
	acct, err := env.accounts.Create(ctx, other.ID, AccountInput{Name: "Wallet", Type: core.Checking})
	require.NoError(t, err)
	_, err = env.txs.Create(ctx, other.ID, TransactionInput{
		AccountID: acct.ID, Amount: amount("9.99"), Description: "Coffee",
		Date: testNow.Add(time.Hour), Category: core.CategoryFood, Type: core.Expense,
	})
	require.NoError(t, err)

	recent, err := env.agg.RecentTransactions(ctx, demoID, 5)
	require.NoError(t, err)
	assert.NotContains(t, descriptions(recent), "Coffee")

	recent, err = env.agg.RecentTransactions(ctx, other.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Coffee"}, descriptions(recent))
}

func TestBudgetSpend(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)

		statuses, err := env.agg.BudgetSpend(ctx, userID, 7, 2025)
		require.NoError(t, err)
		require.Len(t, statuses, 4)

		want := []struct {
			category        core.Category
			limit, computed string
		}{
			{core.CategoryEntertainment, "200.00", "15.99"},
			{core.CategoryFood, "600.00", "150.75"},
			{core.CategoryShopping, "400.00", "0"},
			{core.CategoryTransportation, "300.00", "60.00"},
		}
		for i, w := range want {
			assert.Equal(t, w.category, statuses[i].Budget.Category)
			assertAmount(t, w.limit, statuses[i].Budget.Limit)
			assertAmount(t, w.computed, statuses[i].Computed)
			assertAmount(t, w.computed, statuses[i].Spent)
		}
		assert.InDelta(t, 0.25125, statuses[1].Progress, 1e-9)
		assertAmount(t, "449.25", statuses[1].Remaining)

		statuses, err = env.agg.BudgetSpend(ctx, userID, 6, 2025)
		require.NoError(t, err)
		assert.Empty(t, statuses)
	})
}

func TestAggregationRejectsBadPeriod(t *testing.T) {
	env := newMemoryEnv(t)
	ctx := context.Background()

	for _, p := range []struct{ month, year int }{{0, 2025}, {13, 2025}, {5, 1969}, {5, 10000}} {
		_, err := env.agg.BudgetSpend(ctx, "u", p.month, p.year)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
		_, err = env.agg.MonthSummary(ctx, "u", p.month, p.year)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	}
}

func TestMonthSummary(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)

		s, err := env.agg.MonthSummary(ctx, userID, 7, 2025)
		require.NoError(t, err)
		assert.Equal(t, 2025, s.Year)
		assert.Equal(t, 7, s.Month)
		assertAmount(t, "5000.00", s.Income)
		assertAmount(t, "226.74", s.Expenses)
		assertAmount(t, "4773.26", s.Net)

		require.Len(t, s.ByCategory, 3)
		assert.Equal(t, core.CategoryFood, s.ByCategory[0].Category)
		assertAmount(t, "150.75", s.ByCategory[0].Amount)
		assert.Equal(t, core.CategoryTransportation, s.ByCategory[1].Category)
		assert.Equal(t, core.CategoryEntertainment, s.ByCategory[2].Category)

		empty, err := env.agg.MonthSummary(ctx, userID, 1, 2024)
		require.NoError(t, err)
		assert.True(t, empty.Income.IsZero())
		assert.True(t, empty.Expenses.IsZero())
		assert.NotNil(t, empty.ByCategory)
		assert.Empty(t, empty.ByCategory)
	})
}

func TestDashboard(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)

		d, err := env.agg.Dashboard(ctx, userID, testNow)
		require.NoError(t, err)
		assert.Equal(t, "USD", d.Currency)
		assertAmount(t, "41700.00", d.TotalBalance)
		assert.Len(t, d.Recent, 4)
		assert.Len(t, d.Budgets, 4)
		assertAmount(t, "226.74", d.Month.Expenses)
		assert.Equal(t, testNow, d.GeneratedAt)
	})
}

func TestDashboardForEmptyUser(t *testing.T) {
	env := newMemoryEnv(t)
	ctx := context.Background()
	u, err := env.session.SignUp(ctx, SignUpInput{Name: "New", Email: "new@example.com", Password: "secret1", Currency: "EUR"})
	require.NoError(t, err)

	d, err := env.agg.Dashboard(ctx, u.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, "EUR", d.Currency)
	assert.True(t, d.TotalBalance.IsZero())
	assert.Empty(t, d.Recent)
	assert.Empty(t, d.Budgets)
	assert.Empty(t, d.Month.ByCategory)
}

func TestAggregationSeesCommittedWrites(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)

		// Warm the cache.
		_, err := env.agg.Dashboard(ctx, userID, testNow)
		require.NoError(t, err)

		accounts, err := env.accounts.List(ctx, userID, false)
		require.NoError(t, err)
		checking := accounts[0]
		require.Equal(t, "Checking", checking.Name)

		tx, err := env.txs.Create(ctx, userID, TransactionInput{
			AccountID: checking.ID, Amount: amount("100"), Description: "Dinner",
			Date: testNow.Add(time.Hour), Category: core.CategoryFood, Type: core.Expense,
		})
		require.NoError(t, err)

		d, err := env.agg.Dashboard(ctx, userID, testNow)
		require.NoError(t, err)
		assertAmount(t, "41600.00", d.TotalBalance)
		assert.Equal(t, "Dinner", d.Recent[0].Description)
		assertAmount(t, "326.74", d.Month.Expenses)

		require.NoError(t, env.txs.Delete(ctx, userID, tx.ID))
		d, err = env.agg.Dashboard(ctx, userID, testNow)
		require.NoError(t, err)
		assertAmount(t, "41700.00", d.TotalBalance)
		assert.NotContains(t, descriptions(d.Recent), "Dinner")
	})
}

func TestAggregationWithoutCache(t *testing.T) {
	env := newMemoryEnv(t)
	ctx := context.Background()
	userID := seedDemo(t, env)

	agg := NewAggregationEngine(env.writer, nil, nil)
	total, err := agg.TotalBalance(ctx, userID)
	require.NoError(t, err)
	assertAmount(t, "41700", total)
}
