package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ports"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.July, 12, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type testEnv struct {
	store    ports.EntityStore
	prefs    ports.PreferenceStore
	writer   *Writer
	events   *analytics.Recorder
	session  *SessionManager
	agg      *AggregationEngine
	txs      *TransactionService
	accounts *AccountService
	budgets  *BudgetService
	seeder   *Seeder
}

func newEnv(t *testing.T, store ports.EntityStore) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  store,
		prefs:  memory.NewPreferences(),
		writer: NewWriter(store),
		events: &analytics.Recorder{},
	}
	env.session = NewSessionManager(env.writer, env.prefs, env.events, nil)
	env.session.now = fixedClock
	env.agg = NewAggregationEngine(env.writer, cache.NewLRUCache[any](64, time.Minute), nil)
	env.txs = NewTransactionService(env.writer, env.events, nil)
	env.txs.now = fixedClock
	env.accounts = NewAccountService(env.writer, env.events, nil)
	env.accounts.now = fixedClock
	env.budgets = NewBudgetService(env.writer, env.events, nil)
	env.seeder = NewSeeder(env.writer, env.events, nil)
	env.seeder.now = fixedClock
	return env
}

func newMemoryEnv(t *testing.T) *testEnv {
	return newEnv(t, memory.New())
}

func newSQLiteEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return newEnv(t, s)
}

// backends runs fn against each entity store backend.
func backends(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	t.Run("memory", func(t *testing.T) { fn(t, newMemoryEnv(t)) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteEnv(t)) })
}

func seedDemo(t *testing.T, env *testEnv) string {
	t.Helper()
	ok, err := env.seeder.Seed(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	u, err := ports.FetchOne[*core.User](context.Background(), env.store, core.Where("email", core.OpEq, DemoEmail))
	require.NoError(t, err)
	return u.ID
}
