// Package storage implements the entity store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type op int

const (
	opInsert op = iota
	opUpdate
	opDelete
)

type change struct {
	op     op
	entity core.Entity
}

// SQLiteStore is an EntityStore backed by a single SQLite file. Staged
// changes are written in one database transaction on Save.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	pending []change
}

var _ ports.EntityStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath and applies
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := filepath.Clean(dbPath) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(filepath.Clean(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the handle for the preference store sharing this file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	s.Rollback()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) stage(o op, e core.Entity) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, change{op: o, entity: e.Clone()})
}

func (s *SQLiteStore) Insert(e core.Entity) { s.stage(opInsert, e) }
func (s *SQLiteStore) Update(e core.Entity) { s.stage(opUpdate, e) }
func (s *SQLiteStore) Delete(e core.Entity) { s.stage(opDelete, e) }

func (s *SQLiteStore) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

func (s *SQLiteStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Save writes every staged change in one transaction. The staged changes
// are cleared whether or not the commit succeeds.
func (s *SQLiteStore) Save(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.PersistenceError("save", fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	for _, c := range pending {
		if err := s.apply(ctx, tx, c); err != nil {
			return persistenceError("save", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return persistenceError("save", fmt.Errorf("commit: %w", err))
	}

	slog.DebugContext(ctx, "Entity store saved", "changes", len(pending))
	return nil
}

func (s *SQLiteStore) apply(ctx context.Context, tx *sql.Tx, c change) error {
	kind := c.entity.Kind()
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	id := c.entity.EntityID()

	switch c.op {
	case opInsert:
		if id == "" {
			return fmt.Errorf("%s without id", kind)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, t.columnList(), placeholders)
		if _, err := tx.ExecContext(ctx, query, t.values(c.entity)...); err != nil {
			return fmt.Errorf("insert %s %s: %w", kind, id, err)
		}

	case opUpdate:
		values := t.values(c.entity)
		sets := make([]string, 0, len(t.columns)-1)
		args := make([]any, 0, len(t.columns))
		for i, col := range t.columns {
			if col.name == "id" {
				continue
			}
			sets = append(sets, quote(col.name)+" = ?")
			args = append(args, values[i])
		}
		args = append(args, id)
		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.name, strings.Join(sets, ", "))
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update %s %s: %w", kind, id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update of missing %s %s", kind, id)
		}

	case opDelete:
		query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name)
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("delete %s %s: %w", kind, id, err)
		}
	}
	return nil
}

// Fetch translates q into SQL over the kind's columns.
func (s *SQLiteStore) Fetch(ctx context.Context, kind core.Kind, q core.Query) ([]core.Entity, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query, args, err := buildSelect(kind, t, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.PersistenceError("fetch", err)
	}
	defer rows.Close()

	var out []core.Entity
	for rows.Next() {
		e, err := t.scan(rows)
		if err != nil {
			return nil, core.PersistenceError("fetch", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.PersistenceError("fetch", err)
	}
	return out, nil
}

func buildSelect(kind core.Kind, t *table, q core.Query) (string, []any, error) {
	var (
		b    strings.Builder
		args []any
	)
	fmt.Fprintf(&b, "SELECT %s FROM %s", t.columnList(), t.name)

	where := make([]string, 0, len(q.Filters))
	for _, f := range q.Filters {
		clause, fargs, err := filterClause(kind, t, f)
		if err != nil {
			return "", nil, err
		}
		where = append(where, clause)
		args = append(args, fargs...)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	if q.Sort != nil {
		col, err := t.column(kind, q.Sort.Field)
		if err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if q.Sort.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s, id ASC", col.expr(), dir)
	} else {
		b.WriteString(" ORDER BY rowid")
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return b.String(), args, nil
}

var sqlOperators = map[core.Operator]string{
	core.OpEq:  "=",
	core.OpNe:  "<>",
	core.OpLt:  "<",
	core.OpLte: "<=",
	core.OpGt:  ">",
	core.OpGte: ">=",
}

func filterClause(kind core.Kind, t *table, f core.Filter) (string, []any, error) {
	if !f.Op.Valid() {
		return "", nil, core.E(core.InvalidInput, "query", fmt.Sprintf("unknown operator %q", f.Op), nil)
	}
	col, err := t.column(kind, f.Field)
	if err != nil {
		return "", nil, err
	}

	if f.Op == core.OpIn {
		values, err := core.FilterValues(f.Value)
		if err != nil {
			return "", nil, err
		}
		if len(values) == 0 {
			return "0", nil, nil
		}
		args := make([]any, len(values))
		for i, v := range values {
			if args[i], err = col.arg(v); err != nil {
				return "", nil, err
			}
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return fmt.Sprintf("%s IN (%s)", col.expr(), placeholders), args, nil
	}

	arg, err := col.arg(f.Value)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s %s ?", col.expr(), sqlOperators[f.Op]), []any{arg}, nil
}

func (s *SQLiteStore) Count(ctx context.Context, kind core.Kind) (int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name).Scan(&n); err != nil {
		return 0, core.PersistenceError("count", err)
	}
	return n, nil
}

// persistenceError labels constraint violations so logs read clearly.
func persistenceError(op string, err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return core.E(core.Persistence, op, "unique constraint violated", err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return core.E(core.Persistence, op, "foreign key constraint violated", err)
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return core.E(core.Persistence, op, "constraint violated", err)
		}
	}
	return core.PersistenceError(op, err)
}
