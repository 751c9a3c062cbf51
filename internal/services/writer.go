package services

import (
	"context"
	"sync"
	"sync/atomic"

	"fintrack/internal/ports"
)

// Writer serializes read-modify-write flows against one store. Each flow
// stages its changes and commits them with a single Save.
type Writer struct {
	store   ports.EntityStore
	mu      sync.Mutex
	version atomic.Uint64
}

func NewWriter(store ports.EntityStore) *Writer {
	return &Writer{store: store}
}

// Store returns the underlying store for reads.
func (w *Writer) Store() ports.EntityStore {
	return w.store
}

// Do runs fn while holding the write lock. Changes staged by fn are saved
// when it returns nil and discarded otherwise.
func (w *Writer) Do(ctx context.Context, fn func(ctx context.Context, store ports.EntityStore) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.store.Rollback()
	if err := fn(ctx, w.store); err != nil {
		w.store.Rollback()
		return err
	}
	if w.store.Pending() == 0 {
		return nil
	}
	if err := w.store.Save(ctx); err != nil {
		return err
	}
	w.version.Add(1)
	return nil
}

// Version increases after every committed write. Cached read models are
// keyed by it.
func (w *Writer) Version() uint64 {
	return w.version.Load()
}
