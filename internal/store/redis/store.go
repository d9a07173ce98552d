// Package redis publishes analysis snapshots and tracks per-market signal
// cooldowns in Redis. Redis is an optional collaborator: every operation is
// advisory and the analyzer keeps working when it is down, guarded by a
// circuit breaker so a dead server does not add latency to every scan.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const (
	latestTTL   = 30 * time.Minute
	opTimeout   = 3 * time.Second
	breakerMax  = 5
	breakerWait = 15 * time.Second
)

// Config configures the Redis store.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Store writes analysis snapshots and cooldown markers to Redis.
type Store struct {
	client  *goredis.Client
	breaker *CircuitBreaker
}

// Client returns the underlying Redis client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// New creates a Store and pings the server.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	breaker := NewCircuitBreaker(breakerMax, breakerWait)
	breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Store{client: client, breaker: breaker}, nil
}

// PublishAnalysis stores the latest analysis snapshot for a symbol and
// publishes it for live subscribers. SET and PUBLISH run in one pipeline.
// Failures are absorbed: the snapshot is a last-value cache, so a missed
// write is simply superseded by the next scan.
func (s *Store) PublishAnalysis(ctx context.Context, symbol string, snapshot []byte) {
	err := s.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()

		pipe := s.client.Pipeline()
		pipe.Set(opCtx, "analysis:latest:"+symbol, snapshot, latestTTL)
		pipe.Publish(opCtx, "pub:analysis:"+symbol, snapshot)
		_, err := pipe.Exec(opCtx)
		return err
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[redis] publish analysis %s: %v", symbol, err)
	}
}

// LatestAnalysis returns the stored snapshot for a symbol, or nil when none
// exists or Redis is unavailable.
func (s *Store) LatestAnalysis(ctx context.Context, symbol string) []byte {
	var data []byte
	err := s.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()

		b, err := s.client.Get(opCtx, "analysis:latest:"+symbol).Bytes()
		if err == goredis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[redis] latest analysis %s: %v", symbol, err)
	}
	return data
}

// MarkCooldown records that a signal was just emitted for symbol, suppressing
// repeats for the given duration. The key expires on its own.
func (s *Store) MarkCooldown(ctx context.Context, symbol string, d time.Duration) error {
	return s.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()
		return s.client.Set(opCtx, "cooldown:"+symbol, time.Now().UTC().Format(time.RFC3339), d).Err()
	})
}

// InCooldown reports whether symbol is still inside its suppression window.
// When Redis is unreachable it reports false, preferring a duplicate alert
// over a silently dropped signal.
func (s *Store) InCooldown(ctx context.Context, symbol string) bool {
	var exists bool
	err := s.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()

		n, err := s.client.Exists(opCtx, "cooldown:"+symbol).Result()
		if err != nil {
			return err
		}
		exists = n > 0
		return nil
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[redis] cooldown check %s: %v", symbol, err)
	}
	return exists
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
