package ratelimit

import "context"

// Limiter defines fixed-window rate limiting operations.
// This abstraction allows swapping the single-process memory limiter for the
// Redis-backed one under multi-instance deployment without changing handlers.
type Limiter interface {
	// Allow records a request for clientID and reports whether it is within
	// the window's limit. The counting is check-and-increment: a denied
	// request does not extend the window.
	Allow(ctx context.Context, clientID string) (bool, error)

	// Close releases background resources.
	Close() error
}
