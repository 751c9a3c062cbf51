package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openAtVersion creates a database migrated only up to version.
func openAtVersion(t *testing.T, path string, version uint) (*sql.DB, *migrate.Migrate) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	require.NoError(t, err)
	src, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	require.NoError(t, err)
	require.NoError(t, m.Migrate(version))
	return db, m
}

func TestTimestampMigrationKeepsNanosecondRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fintrack.db")
	db, m := openAtVersion(t, path, 1)

	created := time.Date(2025, time.July, 12, 10, 0, 0, 123456789, time.UTC)
	beforeEpoch := time.Date(1969, time.December, 31, 23, 59, 59, 500000000, time.UTC)
	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO users (id, email, name, preferred_currency, created_at) VALUES ('u1', 'a@example.com', 'A', 'USD', ?)`, []any{created.UnixNano()}},
		{`INSERT INTO accounts (id, user_id, name, balance, account_type, is_active, created_at) VALUES ('a1', 'u1', 'Checking', '10', 'checking', 1, ?)`, []any{created.UnixNano()}},
		{`INSERT INTO transactions (id, account_id, amount, description, date, category, type, created_at) VALUES ('t1', 'a1', '-5', 'Old', ?, 'food', 'expense', ?)`, []any{beforeEpoch.UnixNano(), created.UnixNano()}},
		{`INSERT INTO transactions (id, account_id, amount, description, date, category, type, created_at) VALUES ('t2', 'a1', '-5', 'New', ?, 'food', 'expense', ?)`, []any{created.UnixNano(), created.UnixNano()}},
	}
	for _, st := range stmts {
		_, err := db.ExecContext(ctx, st.query, st.args...)
		require.NoError(t, err)
	}
	m.Close()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	u, err := ports.ByID[*core.User](ctx, s, "u1")
	require.NoError(t, err)
	assert.True(t, u.CreatedAt.Equal(created), "user created_at %v", u.CreatedAt)

	a, err := ports.ByID[*core.Account](ctx, s, "a1")
	require.NoError(t, err)
	assert.True(t, a.CreatedAt.Equal(created), "account created_at %v", a.CreatedAt)

	txs, err := ports.Fetch[*core.Transaction](ctx, s, core.Query{}.OrderBy("date", false))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "Old", txs[0].Description)
	assert.True(t, txs[0].Date.Equal(beforeEpoch), "old date %v", txs[0].Date)
	assert.True(t, txs[1].Date.Equal(created), "new date %v", txs[1].Date)
}
