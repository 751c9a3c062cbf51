package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/ports"
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

// table keeps records of one kind in insertion order.
type table struct {
	rows  map[string]core.Entity
	order []string
}

func newTable() *table {
	return &table{rows: make(map[string]core.Entity)}
}

func (t *table) clone() *table {
	c := &table{
		rows:  make(map[string]core.Entity, len(t.rows)),
		order: append([]string(nil), t.order...),
	}
	for id, e := range t.rows {
		c.rows[id] = e
	}
	return c
}

func (t *table) remove(id string) {
	delete(t.rows, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

// Store is an in-memory EntityStore. Its constraint checks mirror the
// SQLite schema: unique user email and restrictive owner references.
type Store struct {
	mu      sync.Mutex
	tables  map[core.Kind]*table
	pending []change
	closed  bool
}

var _ ports.EntityStore = (*Store)(nil)

func New() *Store {
	return &Store{tables: emptyTables()}
}

func emptyTables() map[core.Kind]*table {
	return map[core.Kind]*table{
		core.KindUser:        newTable(),
		core.KindAccount:     newTable(),
		core.KindTransaction: newTable(),
		core.KindBudget:      newTable(),
	}
}

func (s *Store) stage(o op, e core.Entity) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, change{op: o, entity: e.Clone()})
}

func (s *Store) Insert(e core.Entity) { s.stage(opInsert, e) }
func (s *Store) Update(e core.Entity) { s.stage(opUpdate, e) }
func (s *Store) Delete(e core.Entity) { s.stage(opDelete, e) }

// Rollback discards staged mutations.
func (s *Store) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Save applies staged mutations to a copy of the tables, checks
// constraints, and swaps the copy in only when everything holds.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pending
	s.pending = nil
	if err := ctx.Err(); err != nil {
		return core.PersistenceError("save", err)
	}
	if s.closed {
		return core.PersistenceError("save", fmt.Errorf("store is closed"))
	}
	if len(pending) == 0 {
		return nil
	}

	next := make(map[core.Kind]*table, len(s.tables))
	for kind, t := range s.tables {
		next[kind] = t.clone()
	}

	for _, c := range pending {
		t, ok := next[c.entity.Kind()]
		if !ok {
			return core.PersistenceError("save", fmt.Errorf("unknown kind %s", c.entity.Kind()))
		}
		id := c.entity.EntityID()
		switch c.op {
		case opInsert:
			if id == "" {
				return core.PersistenceError("save", fmt.Errorf("%s without id", c.entity.Kind()))
			}
			if _, exists := t.rows[id]; exists {
				return core.PersistenceError("save", fmt.Errorf("duplicate %s id %s", c.entity.Kind(), id))
			}
			t.rows[id] = c.entity
			t.order = append(t.order, id)
		case opUpdate:
			if _, exists := t.rows[id]; !exists {
				return core.PersistenceError("save", fmt.Errorf("update of missing %s %s", c.entity.Kind(), id))
			}
			t.rows[id] = c.entity
		case opDelete:
			t.remove(id)
		}
	}

	if err := checkConstraints(next); err != nil {
		return core.PersistenceError("save", err)
	}

	s.tables = next
	return nil
}

func checkConstraints(tables map[core.Kind]*table) error {
	users := tables[core.KindUser]
	emails := make(map[string]string, len(users.rows))
	for id, e := range users.rows {
		u := e.(*core.User)
		if other, dup := emails[u.Email]; dup {
			return fmt.Errorf("unique constraint failed: users.email (%s, %s)", other, id)
		}
		emails[u.Email] = id
	}

	accounts := tables[core.KindAccount]
	for _, e := range accounts.rows {
		a := e.(*core.Account)
		if _, ok := users.rows[a.UserID]; !ok {
			return fmt.Errorf("foreign key constraint failed: account %s references missing user %s", a.ID, a.UserID)
		}
	}

	for _, e := range tables[core.KindTransaction].rows {
		tx := e.(*core.Transaction)
		if _, ok := accounts.rows[tx.AccountID]; !ok {
			return fmt.Errorf("foreign key constraint failed: transaction %s references missing account %s", tx.ID, tx.AccountID)
		}
	}

	for _, e := range tables[core.KindBudget].rows {
		b := e.(*core.Budget)
		if _, ok := users.rows[b.UserID]; !ok {
			return fmt.Errorf("foreign key constraint failed: budget %s references missing user %s", b.ID, b.UserID)
		}
	}
	return nil
}

// Fetch evaluates q over committed records and returns copies.
func (s *Store) Fetch(ctx context.Context, kind core.Kind, q core.Query) ([]core.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.PersistenceError("fetch", err)
	}

	s.mu.Lock()
	t, ok := s.tables[kind]
	if !ok {
		s.mu.Unlock()
		return nil, core.E(core.InvalidInput, "fetch", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	rows := make([]core.Entity, 0, len(t.order))
	for _, id := range t.order {
		rows = append(rows, t.rows[id])
	}
	s.mu.Unlock()

	matched, err := q.Apply(rows)
	if err != nil {
		return nil, err
	}
	out := make([]core.Entity, len(matched))
	for i, e := range matched {
		out[i] = e.Clone()
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, kind core.Kind) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, core.PersistenceError("count", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[kind]
	if !ok {
		return 0, core.E(core.InvalidInput, "count", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	return len(t.rows), nil
}

// Close makes later saves fail; committed data stays readable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = nil
	return nil
}
