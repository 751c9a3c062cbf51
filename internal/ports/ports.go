package ports

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// EntityStore holds users, accounts, transactions and budgets.
	// Mutations are staged by Insert, Update and Delete and become visible
	// only when Save commits them as one atomic unit. A failed Save writes
	// nothing and discards the staged mutations.
	EntityStore interface {
		Insert(e core.Entity)
		Update(e core.Entity)
		Delete(e core.Entity)
		Save(ctx context.Context) error
		Rollback()
		Pending() int

		// Fetch returns copies of the committed records of kind matching q.
		Fetch(ctx context.Context, kind core.Kind, q core.Query) ([]core.Entity, error)
		Count(ctx context.Context, kind core.Kind) (int, error)
		Close() error
	}

	// PreferenceStore is a small key/value store for app preferences such
	// as the remembered session.
	PreferenceStore interface {
		// Get returns the stored value and whether the key exists.
		Get(ctx context.Context, key string) (string, bool, error)
		Set(ctx context.Context, key, value string) error
		Delete(ctx context.Context, key string) error
	}

	// EventSink receives analytics events. Implementations must not block
	// the caller and must not report failures back.
	EventSink interface {
		Emit(ctx context.Context, e core.Event)
	}
)

// Fetch is the typed form of EntityStore.Fetch.
func Fetch[T core.Entity](ctx context.Context, s EntityStore, q core.Query) ([]T, error) {
	var zero T
	items, err := s.Fetch(ctx, zero.Kind(), q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		typed, ok := item.(T)
		if !ok {
			return nil, core.PersistenceError("fetch", fmt.Errorf("unexpected %T for %s", item, zero.Kind()))
		}
		out = append(out, typed)
	}
	return out, nil
}

// FetchOne returns the single record matching q, or a NotFound error.
func FetchOne[T core.Entity](ctx context.Context, s EntityStore, q core.Query) (T, error) {
	var zero T
	items, err := Fetch[T](ctx, s, q.Take(1))
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, core.E(core.NotFound, "fetch", fmt.Sprintf("%s not found", zero.Kind()), nil)
	}
	return items[0], nil
}

// ByID fetches one record by id.
func ByID[T core.Entity](ctx context.Context, s EntityStore, id string) (T, error) {
	return FetchOne[T](ctx, s, core.Where("id", core.OpEq, id))
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(context.Context, core.Event) {}
