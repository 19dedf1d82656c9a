// Package ingestlock serializes ingestion of the same URL across processes
// with a Redis lease.
package ingestlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL    = 60 * time.Second
	DefaultPrefix = "curator:ingest:"
)

// ErrLocked is returned when another holder owns the lease.
var ErrLocked = errors.New("lease held by another ingestion")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out leases keyed by URL hash.
type Locker struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// New creates a Locker. Zero ttl uses DefaultTTL.
func New(rdb redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{rdb: rdb, ttl: ttl, prefix: DefaultPrefix}
}

// Lock acquires the lease for key. The returned function releases it and is
// safe to call after the lease expired.
func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()
	redisKey := l.prefix + key

	ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to release lease: %w", err)
		}
		return nil
	}, nil
}
