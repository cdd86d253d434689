package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// HolidayCache stores the holiday days (YYYY-MM-DD) of a calendar year
type HolidayCache interface {
	Get(ctx context.Context, year int) (dias []string, found bool, err error)
	Set(ctx context.Context, year int, dias []string, ttl time.Duration) error
	Invalidate(ctx context.Context, year int) error
}

// RedisHolidayCache keeps each year as a JSON array under its own key
type RedisHolidayCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisHolidayCache creates a holiday cache over an existing client
func NewRedisHolidayCache(client redis.UniversalClient, keyPrefix string) *RedisHolidayCache {
	if keyPrefix == "" {
		keyPrefix = "liq:"
	}
	return &RedisHolidayCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisHolidayCache) key(year int) string {
	return c.keyPrefix + "feriados:" + strconv.Itoa(year)
}

// Get returns the cached days of year
func (c *RedisHolidayCache) Get(ctx context.Context, year int) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, c.key(year)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read holidays: %w", err)
	}
	var dias []string
	if err := json.Unmarshal(raw, &dias); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached holidays: %w", err)
	}
	return dias, true, nil
}

// Set caches the days of year for ttl. An empty year is cached too.
func (c *RedisHolidayCache) Set(ctx context.Context, year int, dias []string, ttl time.Duration) error {
	if dias == nil {
		dias = []string{}
	}
	raw, err := json.Marshal(dias)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(year), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache holidays: %w", err)
	}
	return nil
}

// Invalidate drops the cached year
func (c *RedisHolidayCache) Invalidate(ctx context.Context, year int) error {
	return c.client.Del(ctx, c.key(year)).Err()
}

type holidayEntry struct {
	dias      []string
	expiresAt time.Time
}

// InMemoryHolidayCache is the process-local HolidayCache
type InMemoryHolidayCache struct {
	mu    sync.RWMutex
	years map[int]holidayEntry
}

// NewInMemoryHolidayCache creates an empty in-memory holiday cache
func NewInMemoryHolidayCache() *InMemoryHolidayCache {
	return &InMemoryHolidayCache{years: make(map[int]holidayEntry)}
}

// Get returns the cached days of year unless they expired
func (c *InMemoryHolidayCache) Get(_ context.Context, year int) ([]string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.years[year]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return append([]string(nil), e.dias...), true, nil
}

// Set caches the days of year for ttl
func (c *InMemoryHolidayCache) Set(_ context.Context, year int, dias []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.years[year] = holidayEntry{dias: append([]string(nil), dias...), expiresAt: time.Now().Add(ttl)}
	return nil
}

// Invalidate drops the cached year
func (c *InMemoryHolidayCache) Invalidate(_ context.Context, year int) error {
	c.mu.Lock()
	delete(c.years, year)
	c.mu.Unlock()
	return nil
}

var (
	_ HolidayCache = (*RedisHolidayCache)(nil)
	_ HolidayCache = (*InMemoryHolidayCache)(nil)
)
