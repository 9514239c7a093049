package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doc-reconciliation/internal/domain"

	"github.com/bsm/redislock"
)

const runLockPrefix = "lock:"

// RedisRunGuard serializes reconciliation runs across processes with a
// Redis lock per key. The lock expires after ttl if the holder dies.
type RedisRunGuard struct {
	locker *redislock.Client
	ttl    time.Duration
}

// NewRedisRunGuard creates a guard on top of an existing lock client.
func NewRedisRunGuard(locker *redislock.Client, ttl time.Duration) *RedisRunGuard {
	return &RedisRunGuard{locker: locker, ttl: ttl}
}

// Acquire takes the lock for key without waiting. A held lock is reported as
// domain.ErrRunInProgress.
func (g *RedisRunGuard) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := g.locker.Obtain(ctx, runLockPrefix+key, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunInProgress, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}
