package cache

import (
	"context"
	"sync"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
)

// InMemoryInFlightGuard implements InFlightGuard with a map of expiring keys.
// Suitable for single-instance deployments and tests.
type InMemoryInFlightGuard struct {
	mu        sync.Mutex
	held      map[string]time.Time // key -> expiry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryInFlightGuard creates a guard and starts its expiry sweeper
func NewInMemoryInFlightGuard() *InMemoryInFlightGuard {
	g := &InMemoryInFlightGuard{
		held:     make(map[string]time.Time),
		stopChan: make(chan struct{}),
	}
	g.wg.Add(1)
	go g.sweepLoop(time.Minute)
	return g
}

// Acquire takes key for ttl. An expired holder is treated as gone.
func (g *InMemoryInFlightGuard) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if expiresAt, ok := g.held[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	g.held[key] = now.Add(ttl)
	return true, nil
}

// Release frees key
func (g *InMemoryInFlightGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.held, key)
	g.mu.Unlock()
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (g *InMemoryInFlightGuard) Close() error {
	g.closeOnce.Do(func() {
		close(g.stopChan)
		g.wg.Wait()
	})
	return nil
}

// Len returns the number of keys currently held, expired ones included
func (g *InMemoryInFlightGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}

func (g *InMemoryInFlightGuard) sweepLoop(interval time.Duration) {
	defer g.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

func (g *InMemoryInFlightGuard) sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	for key, expiresAt := range g.held {
		if now.After(expiresAt) {
			delete(g.held, key)
		}
	}
}

var _ shared.InFlightGuard = (*InMemoryInFlightGuard)(nil)
