package shared

import (
	"context"
	"time"
)

// InFlightGuard enforces at most one outstanding mutating call per entity.
// Acquire returns false when another call for the same key is still running.
type InFlightGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Close() error
}

// DefaultInFlightTTL bounds how long a crashed caller can keep an entity locked
const DefaultInFlightTTL = 30 * time.Second

// InFlightKey builds the guard key of an entity
func InFlightKey(aggregateType, id string) string {
	return "inflight:" + aggregateType + ":" + id
}

// WithInFlight runs fn while holding the guard for key. A nil guard runs fn
// unguarded. The key is released whether fn succeeds or fails.
func WithInFlight(ctx context.Context, guard InFlightGuard, key string, fn func() error) error {
	if guard == nil {
		return fn()
	}
	acquired, err := guard.Acquire(ctx, key, DefaultInFlightTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrOperationInFlight
	}
	defer func() {
		_ = guard.Release(context.WithoutCancel(ctx), key)
	}()
	return fn()
}
