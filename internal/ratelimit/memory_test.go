package ratelimit

import (
	"context"
	"testing"
	"time"
)

func newTestLimiter(limit int, window time.Duration) (*MemoryLimiter, *time.Time) {
	l := NewMemoryLimiter(limit, window)
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	return l, &current
}

func TestMemoryLimiterRejectsOverLimit(t *testing.T) {
	l, _ := newTestLimiter(30, time.Minute)
	defer l.Close()

	ctx := context.Background()
	for i := 0; i < 30; i++ {
		allowed, err := l.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, err := l.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if allowed {
		t.Error("31st request within the window should be rejected")
	}
}

func TestMemoryLimiterWindowResets(t *testing.T) {
	l, current := newTestLimiter(30, time.Minute)
	defer l.Close()

	ctx := context.Background()
	for i := 0; i < 31; i++ {
		l.Allow(ctx, "10.0.0.1")
	}

	*current = current.Add(61 * time.Second)

	allowed, err := l.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !allowed {
		t.Error("request after the window elapsed should be accepted")
	}

	// The window fully resets: counter should be back at 1.
	l.mu.Lock()
	count := l.clients["10.0.0.1"].count
	l.mu.Unlock()
	if count != 1 {
		t.Errorf("expected counter reset to 1, got %d", count)
	}
}

func TestMemoryLimiterPerClientCounters(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	defer l.Close()

	ctx := context.Background()
	if allowed, _ := l.Allow(ctx, "client-a"); !allowed {
		t.Fatal("first request from client-a should be allowed")
	}
	if allowed, _ := l.Allow(ctx, "client-a"); allowed {
		t.Error("second request from client-a should be rejected")
	}
	if allowed, _ := l.Allow(ctx, "client-b"); !allowed {
		t.Error("client-b has its own counter and should be allowed")
	}
}

func TestMemoryLimiterSweepEvictsExpired(t *testing.T) {
	l, current := newTestLimiter(30, time.Minute)
	defer l.Close()

	ctx := context.Background()
	l.Allow(ctx, "10.0.0.1")
	l.Allow(ctx, "10.0.0.2")

	*current = current.Add(2 * time.Minute)
	l.Allow(ctx, "10.0.0.3")

	l.removeExpired()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.clients) != 1 {
		t.Errorf("expected only the fresh entry to survive the sweep, got %d", len(l.clients))
	}
	if _, ok := l.clients["10.0.0.3"]; !ok {
		t.Error("fresh entry should survive the sweep")
	}
}
