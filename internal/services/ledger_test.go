package services

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountByName(t *testing.T, env *testEnv, userID, name string) core.Account {
	t.Helper()
	accounts, err := env.accounts.List(context.Background(), userID, true)
	require.NoError(t, err)
	for _, a := range accounts {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("account %q not found", name)
	return core.Account{}
}

func TestCreateTransactionPostsBalance(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)
		checking := accountByName(t, env, userID, "Checking")

		tx, err := env.txs.Create(ctx, userID, TransactionInput{
			AccountID: checking.ID, Amount: amount("12.345"), Description: " Lunch ",
			Category: core.CategoryFood, Type: core.Expense,
		})
		require.NoError(t, err)
		assertAmount(t, "-12.35", tx.Amount)
		assert.Equal(t, "Lunch", tx.Description)
		assert.Equal(t, testNow, tx.Date)

		assertAmount(t, "2487.65", accountByName(t, env, userID, "Checking").Balance)

		income, err := env.txs.Create(ctx, userID, TransactionInput{
			AccountID: checking.ID, Amount: amount("-20"), Description: "Refund",
			Date: testNow, Category: core.CategoryOther, Type: core.Income,
		})
		require.NoError(t, err)
		assertAmount(t, "20", income.Amount)
		assertAmount(t, "2507.65", accountByName(t, env, userID, "Checking").Balance)

		assert.Contains(t, env.events.Names(), core.EventTransactionCreated)
	})
}

func TestCreateTransactionRejects(t *testing.T) {
	env := newMemoryEnv(t)
	ctx := context.Background()
	userID := seedDemo(t, env)
	checking := accountByName(t, env, userID, "Checking")

	other, err := env.session.SignUp(ctx, SignUpInput{Name: "Other", Email: "other@example.com", Password: "secret1"})
	require.NoError(t, err)

	valid := TransactionInput{
		AccountID: checking.ID, Amount: amount("10"), Description: "Books",
		Date: testNow, Category: core.CategoryShopping, Type: core.Expense,
	}

	tests := []struct {
		name   string
		userID string
		modify func(in *TransactionInput)
		kind   core.ErrorKind
	}{
		{"zero amount", userID, func(in *TransactionInput) { in.Amount = decimal.Zero }, core.InvalidInput},
		{"blank description", userID, func(in *TransactionInput) { in.Description = "  " }, core.InvalidInput},
		{"unknown category", userID, func(in *TransactionInput) { in.Category = "gifts" }, core.InvalidInput},
		{"unknown type", userID, func(in *TransactionInput) { in.Type = "transfer" }, core.InvalidInput},
		{"date past year 9999", userID, func(in *TransactionInput) { in.Date = time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC) }, core.InvalidInput},
		{"date before 1970", userID, func(in *TransactionInput) { in.Date = time.Date(1969, time.June, 1, 0, 0, 0, 0, time.UTC) }, core.InvalidInput},
		{"missing account", userID, func(in *TransactionInput) { in.AccountID = "nope" }, core.NotFound},
		{"foreign account", other.ID, func(in *TransactionInput) {}, core.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.modify(&in)
			_, err := env.txs.Create(ctx, tt.userID, in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, core.KindOf(err))
		})
	}

	n, err := env.store.Count(ctx, core.KindTransaction)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assertAmount(t, "2500.00", accountByName(t, env, userID, "Checking").Balance)
}

func TestFarDatedTransactionRoundTrips(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)
		checking := accountByName(t, env, userID, "Checking")
		date := time.Date(2300, time.January, 15, 0, 0, 0, 0, time.UTC)

		created, err := env.txs.Create(ctx, userID, TransactionInput{
			AccountID: checking.ID, Amount: amount("8"), Description: "Far",
			Date: date, Category: core.CategoryOther, Type: core.Expense,
		})
		require.NoError(t, err)

		list, err := env.txs.List(ctx, userID, checking.ID)
		require.NoError(t, err)
		require.NotEmpty(t, list)
		assert.Equal(t, created.ID, list[0].ID, "newest date sorts first")
		assert.True(t, list[0].Date.Equal(date), "read back %v", list[0].Date)

		recent, err := env.agg.RecentTransactions(ctx, userID, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, created.ID, recent[0].ID)
	})
}

func TestCreateTransactionOnInactiveAccount(t *testing.T) {
	env := newMemoryEnv(t)
	ctx := context.Background()
	userID := seedDemo(t, env)
	savings := accountByName(t, env, userID, "Savings")

	_, err := env.accounts.Deactivate(ctx, userID, savings.ID)
	require.NoError(t, err)

	_, err = env.txs.Create(ctx, userID, TransactionInput{
		AccountID: savings.ID, Amount: amount("1"), Description: "Fee",
		Date: testNow, Category: core.CategoryBills, Type: core.Expense,
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestDeleteTransactionReversesBalance(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)
		credit := accountByName(t, env, userID, "Credit Card")

		tx, err := env.txs.Create(ctx, userID, TransactionInput{
			AccountID: credit.ID, Amount: amount("40"), Description: "Shoes",
			Date: testNow, Category: core.CategoryShopping, Type: core.Expense,
		})
		require.NoError(t, err)
		assertAmount(t, "-840.00", accountByName(t, env, userID, "Credit Card").Balance)

		require.NoError(t, env.txs.Delete(ctx, userID, tx.ID))
		assertAmount(t, "-800.00", accountByName(t, env, userID, "Credit Card").Balance)

		err = env.txs.Delete(ctx, userID, tx.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.Equal(t, "transaction not found", core.UserMessage(err))
	})
}

func TestDeleteForeignTransaction(t *testing.T) {
	env := newMemoryEnv(t)
	ctx := context.Background()
	userID := seedDemo(t, env)

	other, err := env.session.SignUp(ctx, SignUpInput{Name: "Other", Email: "other@example.com", Password: "secret1"})
	require.NoError(t, err)

	txs, err := env.txs.List(ctx, userID, "")
	require.NoError(t, err)
	require.NotEmpty(t, txs)

	err = env.txs.Delete(ctx, other.ID, txs[0].ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	n, err := env.store.Count(ctx, core.KindTransaction)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestListTransactions(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)

		all, err := env.txs.List(ctx, userID, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"Salary", "Groceries", "Gas", "Streaming"}, descriptions(all))

		credit := accountByName(t, env, userID, "Credit Card")
		onCredit, err := env.txs.List(ctx, userID, credit.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Gas", "Streaming"}, descriptions(onCredit))

		_, err = env.txs.List(ctx, "someone-else", credit.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)

		none, err := env.txs.List(ctx, "someone-else", "")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestAccounts(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)

		_, err := env.accounts.Create(ctx, "missing-user", AccountInput{Name: "Cash", Type: core.Checking})
		assert.ErrorIs(t, err, core.ErrNotFound)

		_, err = env.accounts.Create(ctx, userID, AccountInput{Name: "Cash", Type: "wallet"})
		assert.ErrorIs(t, err, core.ErrInvalidInput)

		cash, err := env.accounts.Create(ctx, userID, AccountInput{Name: " Cash ", Type: core.Checking, Balance: amount("50.005")})
		require.NoError(t, err)
		assert.Equal(t, "Cash", cash.Name)
		assert.True(t, cash.IsActive)
		assertAmount(t, "50.01", cash.Balance)

		active, err := env.accounts.List(ctx, userID, false)
		require.NoError(t, err)
		names := make([]string, len(active))
		for i, a := range active {
			names[i] = a.Name
		}
		assert.Equal(t, []string{"Cash", "Checking", "Credit Card", "Investment", "Savings"}, names)

		deactivated, err := env.accounts.Deactivate(ctx, userID, cash.ID)
		require.NoError(t, err)
		assert.False(t, deactivated.IsActive)
		_, err = env.accounts.Deactivate(ctx, userID, cash.ID)
		require.NoError(t, err)

		active, err = env.accounts.List(ctx, userID, false)
		require.NoError(t, err)
		assert.Len(t, active, 4)
		all, err := env.accounts.List(ctx, userID, true)
		require.NoError(t, err)
		assert.Len(t, all, 5)

		_, err = env.accounts.Deactivate(ctx, "someone-else", cash.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestBudgets(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)

		_, err := env.budgets.Create(ctx, userID, BudgetInput{Category: core.CategoryFood, Limit: amount("100"), Month: 7, Year: 2025})
		assert.ErrorIs(t, err, core.ErrAlreadyExists)

		_, err = env.budgets.Create(ctx, userID, BudgetInput{Category: core.CategoryBills, Limit: amount("100"), Month: 13, Year: 2025})
		assert.ErrorIs(t, err, core.ErrInvalidInput)

		_, err = env.budgets.Create(ctx, userID, BudgetInput{Category: core.CategoryBills, Limit: amount("-1"), Month: 7, Year: 2025})
		assert.ErrorIs(t, err, core.ErrInvalidInput)

		checking := accountByName(t, env, userID, "Checking")
		_, err = env.txs.Create(ctx, userID, TransactionInput{
			AccountID: checking.ID, Amount: amount("80"), Description: "Power",
			Date: testNow, Category: core.CategoryBills, Type: core.Expense,
		})
		require.NoError(t, err)

		bills, err := env.budgets.Create(ctx, userID, BudgetInput{Category: core.CategoryBills, Limit: amount("250"), Month: 7, Year: 2025})
		require.NoError(t, err)
		assertAmount(t, "80", bills.Spent)
		assertAmount(t, "250", bills.Limit)

		stored, err := ports.ByID[*core.Budget](ctx, env.store, bills.ID)
		require.NoError(t, err)
		assertAmount(t, "80", stored.Spent)
	})
}

func TestReconcileBudgets(t *testing.T) {
	backends(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		userID := seedDemo(t, env)
		checking := accountByName(t, env, userID, "Checking")

		_, err := env.txs.Create(ctx, userID, TransactionInput{
			AccountID: checking.ID, Amount: amount("20"), Description: "Bakery",
			Date: testNow, Category: core.CategoryFood, Type: core.Expense,
		})
		require.NoError(t, err)

		// Stored spend lags until reconciled.
		statuses, err := env.agg.BudgetSpend(ctx, userID, 7, 2025)
		require.NoError(t, err)
		assertAmount(t, "150.75", statuses[1].Spent)
		assertAmount(t, "170.75", statuses[1].Computed)

		env.events.Reset()
		reconciled, err := env.budgets.Reconcile(ctx, userID, 7, 2025)
		require.NoError(t, err)
		require.Len(t, reconciled, 4)
		assertAmount(t, "170.75", reconciled[1].Spent)

		events := env.events.Events()
		require.Len(t, events, 1)
		assert.Equal(t, core.EventBudgetsReconciled, events[0].Name)
		assert.Equal(t, "1", events[0].Properties["changed"])

		statuses, err = env.agg.BudgetSpend(ctx, userID, 7, 2025)
		require.NoError(t, err)
		assertAmount(t, "170.75", statuses[1].Spent)

		_, err = env.budgets.Reconcile(ctx, userID, 0, 2025)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})
}
