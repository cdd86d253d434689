package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so a
// caller whose TTL expired cannot release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisInFlightGuard implements InFlightGuard with Redis SETNX, so the
// one-mutation-per-entity rule holds across every instance of the service
type RedisInFlightGuard struct {
	client    redis.UniversalClient
	keyPrefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisInFlightGuard creates a guard over an existing client
func NewRedisInFlightGuard(client redis.UniversalClient, keyPrefix string) *RedisInFlightGuard {
	if keyPrefix == "" {
		keyPrefix = "liq:"
	}
	return &RedisInFlightGuard{
		client:    client,
		keyPrefix: keyPrefix,
		tokens:    make(map[string]string),
	}
}

// Acquire takes key for ttl. Returns false when it is already held.
func (g *RedisInFlightGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire in-flight key: %w", err)
	}
	if ok {
		g.mu.Lock()
		g.tokens[key] = token
		g.mu.Unlock()
	}
	return ok, nil
}

// Release frees key if this guard still owns it
func (g *RedisInFlightGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	token, ok := g.tokens[key]
	delete(g.tokens, key)
	g.mu.Unlock()
	if !ok {
		return nil
	}
	if err := releaseScript.Run(ctx, g.client, []string{g.keyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release in-flight key: %w", err)
	}
	return nil
}

// Close is a no-op; the client belongs to whoever created it
func (g *RedisInFlightGuard) Close() error {
	return nil
}

var _ shared.InFlightGuard = (*RedisInFlightGuard)(nil)
