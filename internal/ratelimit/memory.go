package ratelimit

import (
	"context"
	"sync"
	"time"
)

// windowCounter tracks one client's requests within the current fixed window.
type windowCounter struct {
	count       int
	windowStart time.Time
}

// MemoryLimiter is an in-memory fixed-window rate limiter with a periodic
// sweep of expired entries. State is local to one process instance; under
// multi-instance deployment each instance enforces its own independent limit.
// Use RedisLimiter when a shared limit is required.
type MemoryLimiter struct {
	mu      sync.Mutex
	clients map[string]*windowCounter

	limit  int
	window time.Duration

	sweepInterval time.Duration
	stopSweep     chan struct{}
	stopOnce      sync.Once

	now func() time.Time
}

// NewMemoryLimiter creates an in-memory limiter allowing limit requests per
// client per window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		clients:       make(map[string]*windowCounter),
		limit:         limit,
		window:        window,
		sweepInterval: 5 * time.Minute,
		stopSweep:     make(chan struct{}),
		now:           time.Now,
	}

	go l.sweep()

	return l
}

// Allow records a request and reports whether it is within the limit.
// The window fully resets once it elapses, even mid-burst.
func (l *MemoryLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	entry, exists := l.clients[clientID]
	if !exists || now.Sub(entry.windowStart) >= l.window {
		l.clients[clientID] = &windowCounter{count: 1, windowStart: now}
		return true, nil
	}

	if entry.count >= l.limit {
		return false, nil
	}

	entry.count++
	return true, nil
}

// Close stops the background sweep goroutine.
func (l *MemoryLimiter) Close() error {
	l.stopOnce.Do(func() {
		close(l.stopSweep)
	})
	return nil
}

// sweep periodically evicts expired per-client entries to bound memory.
func (l *MemoryLimiter) sweep() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.removeExpired()
		case <-l.stopSweep:
			return
		}
	}
}

// removeExpired removes all entries whose window has elapsed.
func (l *MemoryLimiter) removeExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for clientID, entry := range l.clients {
		if now.Sub(entry.windowStart) >= l.window {
			delete(l.clients, clientID)
		}
	}
}

// Ensure MemoryLimiter implements Limiter
var _ Limiter = (*MemoryLimiter)(nil)
