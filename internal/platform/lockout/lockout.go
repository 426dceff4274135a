// Package lockout throttles repeated failed logins. After too many failures
// inside the window, further attempts for that username are refused until the
// lock expires.
package lockout

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultMaxFailures is the failure count that trips the lock.
	DefaultMaxFailures = 5
	// DefaultWindow bounds both the failure-counting window and the lock
	// duration.
	DefaultWindow = 15 * time.Minute
)

// Store counts failures per identifier. Counters expire on their own after
// the window passes.
type Store interface {
	// RecordFailure increments the counter and returns the new count.
	RecordFailure(ctx context.Context, identifier string, window time.Duration) (int, error)
	// Failures returns the current counter, zero when none is tracked.
	Failures(ctx context.Context, identifier string) (int, error)
	// Clear drops the counter, typically after a successful login.
	Clear(ctx context.Context, identifier string) error
}

// Guard applies the lockout policy on top of a Store. Store errors never
// block a login attempt: the guard fails open and logs.
type Guard struct {
	store       Store
	maxFailures int
	window      time.Duration
	logger      *slog.Logger
}

func NewGuard(store Store, maxFailures int, window time.Duration, logger *slog.Logger) *Guard {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{store: store, maxFailures: maxFailures, window: window, logger: logger}
}

// Locked reports whether the identifier has exhausted its attempts.
func (g *Guard) Locked(ctx context.Context, identifier string) bool {
	if g == nil || identifier == "" {
		return false
	}
	count, err := g.store.Failures(ctx, identifier)
	if err != nil {
		g.logger.WarnContext(ctx, "lockout check failed, allowing attempt", "error", err)
		return false
	}
	return count >= g.maxFailures
}

// OnFailure records a failed attempt and reports whether this failure tripped
// the lock.
func (g *Guard) OnFailure(ctx context.Context, identifier string) bool {
	if g == nil || identifier == "" {
		return false
	}
	count, err := g.store.RecordFailure(ctx, identifier, g.window)
	if err != nil {
		g.logger.WarnContext(ctx, "lockout failure tracking failed", "error", err)
		return false
	}
	return count == g.maxFailures
}

// OnSuccess resets the counter after a successful login.
func (g *Guard) OnSuccess(ctx context.Context, identifier string) {
	if g == nil || identifier == "" {
		return
	}
	if err := g.store.Clear(ctx, identifier); err != nil {
		g.logger.WarnContext(ctx, "lockout reset failed", "error", err)
	}
}
