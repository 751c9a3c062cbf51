// Package redisprefs keeps app preferences in Redis so several processes
// can share the remembered session.
package redisprefs

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fintrack:pref:"

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store is a PreferenceStore with one Redis string per key.
type Store struct {
	client *redis.Client
}

var _ ports.PreferenceStore = (*Store)(nil)

// New connects and verifies the server with PING.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    2 * time.Second,
		MaxRetries:      3,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, core.PersistenceError("redis ping", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.PersistenceError("get preference", err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return core.PersistenceError("set preference", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return core.PersistenceError("delete preference", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
