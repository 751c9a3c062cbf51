package backend

import (
	"context"
	"slices"

	"fintrack/internal/ports"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the opened stores and the function releasing them.
type BackendResult struct {
	Store       ports.EntityStore
	Preferences ports.PreferenceStore
	Cleanup     CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Preferences: "store" keeps them next to the entities, "redis" uses
	// the Redis* settings.
	Preferences   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	return slices.Contains(GetBackendTypes(), bt)
}
