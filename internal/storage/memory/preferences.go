package memory

import (
	"context"
	"sync"

	"fintrack/internal/ports"
)

// Preferences is a map-backed PreferenceStore.
type Preferences struct {
	mu     sync.Mutex
	values map[string]string
}

var _ ports.PreferenceStore = (*Preferences)(nil)

func NewPreferences() *Preferences {
	return &Preferences{values: make(map[string]string)}
}

func (p *Preferences) Get(_ context.Context, key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok, nil
}

func (p *Preferences) Set(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

func (p *Preferences) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, key)
	return nil
}
