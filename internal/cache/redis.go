// Package cache is the keyed get/put collaborator the engine's boundary
// depends on. Curriculum and transcript payloads are cached here so the
// scheduling logic itself stays free of ambient state.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed JSON cache with a uniform TTL.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Config holds Redis cache configuration
type Config struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewStore connects to Redis and verifies connectivity.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "degree-planner"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Store{client: client, prefix: prefix, ttl: ttl}, nil
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// HistoryKey builds the cache key for a student's transcript records.
func (s *Store) HistoryKey(studentID, programCode string) string {
	return s.key("history", programCode, studentID)
}

// ProgramKey builds the cache key for a program catalog payload.
func (s *Store) ProgramKey(programCode, catalog string) string {
	return s.key("program", programCode, catalog)
}

// GetJSON loads and unmarshals a cached value. The boolean reports
// whether the key existed.
func (s *Store) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get failed: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("cache payload corrupt for %s: %w", key, err)
	}
	return true, nil
}

// PutJSON marshals and stores a value under the store's TTL.
func (s *Store) PutJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache put failed: %w", err)
	}
	slog.Debug("cache put", "key", key, "bytes", len(data))
	return nil
}

// Delete removes keys from the cache
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}
