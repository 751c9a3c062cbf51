// Package storetest holds the behaviour every EntityStore must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.July, 12, 10, 0, 0, 0, time.UTC)

// Run exercises store against the unit-of-work and query contract.
func Run(t *testing.T, open func(t *testing.T) ports.EntityStore) {
	t.Run("save commits staged changes", func(t *testing.T) { testSaveCommits(t, open(t)) })
	t.Run("rollback discards staged changes", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("failed save writes nothing", func(t *testing.T) { testFailedSave(t, open(t)) })
	t.Run("duplicate email rejected", func(t *testing.T) { testUniqueEmail(t, open(t)) })
	t.Run("missing owner rejected", func(t *testing.T) { testForeignKey(t, open(t)) })
	t.Run("update and delete", func(t *testing.T) { testUpdateDelete(t, open(t)) })
	t.Run("query filters", func(t *testing.T) { testFilters(t, open(t)) })
	t.Run("query sort and limit", func(t *testing.T) { testSortLimit(t, open(t)) })
	t.Run("far dates round trip", func(t *testing.T) { testFarDates(t, open(t)) })
	t.Run("query errors", func(t *testing.T) { testQueryErrors(t, open(t)) })
	t.Run("fetch returns copies", func(t *testing.T) { testCopies(t, open(t)) })
}

func seedUser(t *testing.T, s ports.EntityStore, email string) *core.User {
	t.Helper()
	u := core.NewUser("Test", email, "USD", now)
	s.Insert(u)
	require.NoError(t, s.Save(context.Background()))
	return u
}

func testSaveCommits(t *testing.T, s ports.EntityStore) {
	ctx := context.Background()
	u := core.NewUser("Demo", "demo@example.com", "usd", now)
	a := core.NewAccount(u.ID, "Checking", core.Checking, decimal.RequireFromString("2500"), now)

	s.Insert(u)
	s.Insert(a)
	assert.Equal(t, 2, s.Pending())

	n, err := s.Count(ctx, core.KindUser)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "staged records must not be visible")

	require.NoError(t, s.Save(ctx))
	assert.Equal(t, 0, s.Pending())

	got, err := ports.ByID[*core.User](ctx, s, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", got.Email)
	assert.Equal(t, "USD", got.PreferredCurrency)
	assert.True(t, got.CreatedAt.Equal(now))

	acc, err := ports.ByID[*core.Account](ctx, s, a.ID)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("2500")))
	assert.True(t, acc.IsActive)
	assert.Equal(t, core.Checking, acc.Type)

	// Empty save is a no-op
	require.NoError(t, s.Save(ctx))
}

func testRollback(t *testing.T, s ports.EntityStore) {
	ctx := context.Background()
	s.Insert(core.NewUser("Demo", "demo@example.com", "USD", now))
	s.Rollback()
	assert.Equal(t, 0, s.Pending())
	require.NoError(t, s.Save(ctx))

	n, err := s.Count(ctx, core.KindUser)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func testFailedSave(t *testing.T, s ports.EntityStore) {
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")

	// The valid user is staged ahead of the orphan; neither may land.
	s.Insert(core.NewUser("Other", "b@example.com", "USD", now))
	s.Insert(core.NewAccount("missing-user", "Orphan", core.Savings, decimal.Zero, now))
	err := s.Save(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrPersistence), "got %v", err)
	assert.Equal(t, 0, s.Pending(), "failed save must discard staged changes")

	users, err := ports.Fetch[*core.User](ctx, s, core.Query{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, u.ID, users[0].ID)
}

func testUniqueEmail(t *testing.T, s ports.EntityStore) {
	ctx := context.Background()
	seedUser(t, s, "dup@example.com")

	s.Insert(core.NewUser("Again", "dup@example.com", "USD", now))
	err := s.Save(ctx)
	require.Error(t, err)
	assert.Equal(t, core.Persistence, core.KindOf(err))

	n, err := s.Count(ctx, core.KindUser)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testForeignKey(t *testing.T, s ports.EntityStore) {
	ctx := context.Background()
	s.Insert(core.NewTransaction("nope", decimal.NewFromInt(-5), "coffee", now, core.CategoryFood, core.Expense, now))
	require.Error(t, s.Save(ctx))

	s.Insert(core.NewBudget("nope", core.CategoryFood, decimal.NewFromInt(10), decimal.Zero, 7, 2025))
	require.Error(t, s.Save(ctx))

	// Deleting a user that still owns accounts is refused.
	u := seedUser(t, s, "owner@example.com")
	s.Insert(core.NewAccount(u.ID, "Checking", core.Checking, decimal.Zero, now))
	require.NoError(t, s.Save(ctx))
	s.Delete(u)
	require.Error(t, s.Save(ctx))

	_, err := ports.ByID[*core.User](ctx, s, u.ID)
	require.NoError(t, err)
}

func testUpdateDelete(t *testing.T, s ports.EntityStore) {
	ctx := context.Background()
	u := seedUser(t, s, "x@example.com")
	a := core.NewAccount(u.ID, "Checking", core.Checking, decimal.NewFromInt(100), now)
	s.Insert(a)
	require.NoError(t, s.Save(ctx))

	a.Balance = decimal.RequireFromString("42.10")
	a.IsActive = false
	s.Update(a)
	require.NoError(t, s.Save(ctx))

	got, err := ports.ByID[*core.Account](ctx, s, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("42.10")))
	assert.False(t, got.IsActive)

	u.ProfileImage = []byte{0x89, 0x50, 0x4e, 0x47}
	u.Name = "Renamed"
	s.Update(u)
	require.NoError(t, s.Save(ctx))
	gotUser, err := ports.ByID[*core.User](ctx, s, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", gotUser.Name)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, gotUser.ProfileImage)

	s.Delete(a)
	require.NoError(t, s.Save(ctx))
	_, err = ports.ByID[*core.Account](ctx, s, a.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	// Updating a record that does not exist fails.
	s.Update(core.NewAccount(u.ID, "Ghost", core.Savings, decimal.Zero, now))
	require.Error(t, s.Save(ctx))
}

func seedLedger(t *testing.T, s ports.EntityStore) (*core.User, *core.Account, []*core.Transaction) {
	t.Helper()
	u := seedUser(t, s, "ledger@example.com")
	a := core.NewAccount(u.ID, "Checking", core.Checking, decimal.Zero, now)
	txs := []*core.Transaction{
		core.NewTransaction(a.ID, decimal.RequireFromString("5000"), "Salary", now, core.CategorySalary, core.Income, now),
		core.NewTransaction(a.ID, decimal.RequireFromString("-150.75"), "Groceries", now.AddDate(0, 0, -1), core.CategoryFood, core.Expense, now),
		core.NewTransaction(a.ID, decimal.RequireFromString("-60.00"), "Gas", now.AddDate(0, 0, -2), core.CategoryTransportation, core.Expense, now),
		core.NewTransaction(a.ID, decimal.RequireFromString("-15.99"), "Streaming", now.AddDate(0, 0, -3), core.CategoryEntertainment, core.Expense, now),
		core.NewTransaction(a.ID, decimal.RequireFromString("-20"), "Old lunch", now.AddDate(0, -1, 0), core.CategoryFood, core.Expense, now),
	}
	s.Insert(a)
	for _, tx := range txs {
		s.Insert(tx)
	}
	require.NoError(t, s.Save(context.Background()))
	return u, a, txs
}

func descriptions(txs []*core.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.Description
	}
	return out
}

func testFilters(t *testing.T, s ports.EntityStore) {
	ctx := context.Background()
	_, a, _ := seedLedger(t, s)

	tests := []struct {
		name  string
		query core.Query
		want  []string
	}{
		{"eq category", core.Where("category", core.OpEq, core.CategoryFood).OrderBy("date", true), []string{"Groceries", "Old lunch"}},
		{"ne type", core.Where("type", core.OpNe, core.Expense), []string{"Salary"}},
		{"lt amount", core.Where("amount", core.OpLt, decimal.NewFromInt(-50)).OrderBy("amount", false), []string{"Groceries", "Gas"}},
		{"gte amount float", core.Where("amount", core.OpGte, -20.0).OrderBy("amount", false), []string{"Old lunch", "Streaming", "Salary"}},
		{"lt amount by a cent", core.Where("amount", core.OpLt, decimal.RequireFromString("-150.74")), []string{"Groceries"}},
		{"eq amount", core.Where("amount", core.OpEq, decimal.RequireFromString("-150.75")), []string{"Groceries"}},
		{"gt large amount by a cent", core.Where("amount", core.OpGt, decimal.RequireFromString("4999.99")), []string{"Salary"}},
		{"gt date", core.Where("date", core.OpGt, now.AddDate(0, 0, -2)).OrderBy("date", false), []string{"Groceries", "Salary"}},
		{"in categories", core.Where("category", core.OpIn, []core.Category{core.CategoryTransportation, core.CategoryEntertainment}).OrderBy("date", true), []string{"Gas", "Streaming"}},
		{"empty in", core.Where("category", core.OpIn, []string{}), []string{}},
		{"combined", core.Where("account_id", core.OpEq, a.ID).Where("date", core.OpGte, now.AddDate(0, 0, -3)).Where("type", core.OpEq, "expense").OrderBy("date", false), []string{"Streaming", "Gas", "Groceries"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ports.Fetch[*core.Transaction](ctx, s, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, descriptions(got))
		})
	}

	active, err := ports.Fetch[*core.Account](ctx, s, core.Where("is_active", core.OpEq, true))
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func testFarDates(t *testing.T, s ports.EntityStore) {
	ctx := context.Background()
	u := seedUser(t, s, "far@example.com")
	a := core.NewAccount(u.ID, "Checking", core.Checking, decimal.Zero, now)
	late := time.Date(2300, time.January, 15, 0, 0, 0, 0, time.UTC)
	latest := time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
	early := time.Date(1970, time.January, 1, 0, 0, 0, 1, time.UTC)
	s.Insert(a)
	for _, tx := range []*core.Transaction{
		core.NewTransaction(a.ID, decimal.NewFromInt(-1), "Late", late, core.CategoryOther, core.Expense, now),
		core.NewTransaction(a.ID, decimal.NewFromInt(-1), "Latest", latest, core.CategoryOther, core.Expense, now),
		core.NewTransaction(a.ID, decimal.NewFromInt(-1), "Early", early, core.CategoryOther, core.Expense, now),
		core.NewTransaction(a.ID, decimal.NewFromInt(-1), "Today", now, core.CategoryOther, core.Expense, now),
	} {
		s.Insert(tx)
	}
	require.NoError(t, s.Save(ctx))

	got, err := ports.Fetch[*core.Transaction](ctx, s, core.Query{}.OrderBy("date", true))
	require.NoError(t, err)
	require.Equal(t, []string{"Latest", "Late", "Today", "Early"}, descriptions(got))
	assert.True(t, got[0].Date.Equal(latest), "read back %v", got[0].Date)
	assert.True(t, got[1].Date.Equal(late), "read back %v", got[1].Date)
	assert.True(t, got[3].Date.Equal(early), "read back %v", got[3].Date)

	after, err := ports.Fetch[*core.Transaction](ctx, s, core.Where("date", core.OpGte, late).OrderBy("date", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"Late", "Latest"}, descriptions(after))
}

func testSortLimit(t *testing.T, s ports.EntityStore) {
	ctx := context.Background()
	seedLedger(t, s)

	recent, err := ports.Fetch[*core.Transaction](ctx, s, core.Query{}.OrderBy("date", true).Take(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"Salary", "Groceries", "Gas"}, descriptions(recent))

	all, err := ports.Fetch[*core.Transaction](ctx, s, core.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Salary", "Groceries", "Gas", "Streaming", "Old lunch"}, descriptions(all), "zero query keeps insertion order")

	// Equal sort keys fall back to ascending id.
	u := seedUser(t, s, "ties@example.com")
	var ids []string
	for i := 0; i < 3; i++ {
		b := core.NewBudget(u.ID, core.Categories()[i], decimal.NewFromInt(100), decimal.Zero, 7, 2025)
		ids = append(ids, b.ID)
		s.Insert(b)
	}
	require.NoError(t, s.Save(ctx))
	budgets, err := ports.Fetch[*core.Budget](ctx, s, core.Where("user_id", core.OpEq, u.ID).OrderBy("limit", true))
	require.NoError(t, err)
	got := make([]string, len(budgets))
	for i, b := range budgets {
		got[i] = b.ID
	}
	assert.ElementsMatch(t, ids, got)
	assert.IsIncreasing(t, got)
}

func testQueryErrors(t *testing.T, s ports.EntityStore) {
	ctx := context.Background()
	seedLedger(t, s)

	_, err := s.Fetch(ctx, core.KindTransaction, core.Where("nope", core.OpEq, "x"))
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "unknown field: %v", err)

	_, err = s.Fetch(ctx, core.KindTransaction, core.Where("amount", core.OpEq, "abc"))
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "type mismatch: %v", err)

	_, err = s.Fetch(ctx, core.KindTransaction, core.Where("amount", core.Operator("like"), 1))
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "bad operator: %v", err)

	_, err = s.Fetch(ctx, core.KindTransaction, core.Where("category", core.OpIn, "food"))
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "in needs slice: %v", err)

	_, err = s.Fetch(ctx, core.KindTransaction, core.Query{}.OrderBy("nope", false))
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "unknown sort field: %v", err)

	_, err = s.Fetch(ctx, core.Kind("widget"), core.Query{})
	assert.Error(t, err)
}

func testCopies(t *testing.T, s ports.EntityStore) {
	ctx := context.Background()
	u := seedUser(t, s, "copy@example.com")

	got, err := ports.ByID[*core.User](ctx, s, u.ID)
	require.NoError(t, err)
	got.Name = "Mutated"

	again, err := ports.ByID[*core.User](ctx, s, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test", again.Name)

	// Mutating an entity after staging does not change what is saved.
	a := core.NewAccount(u.ID, "Checking", core.Checking, decimal.NewFromInt(1), now)
	s.Insert(a)
	a.Name = "Changed"
	require.NoError(t, s.Save(ctx))
	acc, err := ports.ByID[*core.Account](ctx, s, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Checking", acc.Name)
}
