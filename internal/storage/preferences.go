package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// Preferences keeps key/value preferences in the preferences table.
type Preferences struct {
	db *sql.DB
}

var _ ports.PreferenceStore = (*Preferences)(nil)

func NewPreferences(db *sql.DB) *Preferences {
	return &Preferences{db: db}
}

func (p *Preferences) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.PersistenceError("get preference", err)
	}
	return value, true, nil
}

func (p *Preferences) Set(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().UnixNano())
	if err != nil {
		return core.PersistenceError("set preference", err)
	}
	return nil
}

func (p *Preferences) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM preferences WHERE key = ?", key); err != nil {
		return core.PersistenceError("delete preference", err)
	}
	return nil
}
