// Package cache provides the Redis-backed and in-memory stores shared by the
// service instances: the per-entity in-flight guard and the holiday cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores bundles the guard and holiday cache built from one configuration
type Stores struct {
	Guard    shared.InFlightGuard
	Holidays HolidayCache
	client   redis.UniversalClient
}

// Close releases the guard and the Redis connection
func (s *Stores) Close() error {
	err := s.Guard.Close()
	if s.client != nil {
		if cerr := s.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// UsesRedis reports whether the stores are shared through Redis
func (s *Stores) UsesRedis() bool {
	return s.client != nil
}

// NewStores connects to Redis when a host is configured. If Redis is not
// configured, or unreachable and cfg.AllowFallback is set, the in-memory
// stores are returned instead.
func NewStores(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		logger.Info("Redis not configured, using in-memory in-flight guard and holiday cache")
		return inMemoryStores(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !cfg.AllowFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Concurrent mutations are only guarded within this instance.",
			zap.String("addr", cfg.Addr()),
			zap.Error(err))
		return inMemoryStores(), nil
	}

	logger.Info("Using Redis in-flight guard and holiday cache", zap.String("addr", cfg.Addr()))
	return &Stores{
		Guard:    NewRedisInFlightGuard(client, ""),
		Holidays: NewRedisHolidayCache(client, ""),
		client:   client,
	}, nil
}

func inMemoryStores() *Stores {
	return &Stores{
		Guard:    NewInMemoryInFlightGuard(),
		Holidays: NewInMemoryHolidayCache(),
	}
}

// Ping checks the Redis connection. In-memory stores are always reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}
