// Package resilience provides the failover primitives the pipeline is built
// on: a three-state circuit breaker and a generic provider [Chain] that tries
// entries in preference order, skipping entries whose breaker is open and
// recording every attempt for degradation reporting.
//
// All types are safe for concurrent use.
package resilience

import (
	"log/slog"
	"sync"
	"time"
)

// BreakerState represents the current operating mode of a [Breaker].
type BreakerState int

const (
	// BreakerClosed is the normal operating state; all calls are allowed.
	BreakerClosed BreakerState = iota

	// BreakerOpen indicates the breaker has tripped on consecutive failures.
	// Calls are rejected until the cooldown elapses.
	BreakerOpen

	// BreakerHalfOpen is the probe state entered after the cooldown. A limited
	// number of calls are allowed through; enough successes close the breaker,
	// any failure re-opens it.
	BreakerHalfOpen
)

// String returns the human-readable name of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds tuning knobs for a [Breaker]. Zero-value fields are
// replaced with defaults on construction.
type BreakerConfig struct {
	// Name labels the breaker in log messages, usually the provider ID.
	Name string

	// Trip is the number of consecutive failures in the closed state before
	// the breaker opens. Default: 3.
	Trip int

	// Cooldown is how long the breaker stays open before allowing probe
	// calls. Default: 30s.
	Cooldown time.Duration

	// Probes is the number of consecutive half-open successes required to
	// close the breaker. Default: 2.
	Probes int
}

// Breaker implements the three-state circuit breaker pattern. Callers ask
// [Breaker.Allow] before an operation and report the outcome via
// [Breaker.RecordSuccess] or [Breaker.RecordFailure].
type Breaker struct {
	name     string
	trip     int
	cooldown time.Duration
	probes   int

	mu          sync.Mutex
	state       BreakerState
	failures    int
	probeWins   int
	lastFailure time.Time
}

// NewBreaker creates a [Breaker] with the supplied configuration.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Trip <= 0 {
		cfg.Trip = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 2
	}
	return &Breaker{
		name:     cfg.Name,
		trip:     cfg.Trip,
		cooldown: cfg.Cooldown,
		probes:   cfg.Probes,
		state:    BreakerClosed,
	}
}

// Allow reports whether a call may proceed. In the open state it returns
// false until the cooldown elapses, at which point the breaker moves to
// half-open and the call is admitted as a probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if time.Since(b.lastFailure) < b.cooldown {
			return false
		}
		b.state = BreakerHalfOpen
		b.probeWins = 0
		slog.Debug("circuit breaker half-open", "name", b.name)
	}
	return true
}

// RecordSuccess reports a successful call. Enough consecutive half-open
// successes close the breaker; in the closed state the failure streak resets.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		b.probeWins++
		if b.probeWins >= b.probes {
			b.state = BreakerClosed
			b.failures = 0
			b.probeWins = 0
			slog.Info("circuit breaker closed", "name", b.name)
		}
	case BreakerClosed:
		b.failures = 0
	}
}

// RecordFailure reports a failed call. A half-open failure re-opens the
// breaker immediately; in the closed state the breaker opens once the streak
// reaches the trip threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()

	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		slog.Warn("circuit breaker re-opened from half-open", "name", b.name)
		return
	}

	b.failures++
	if b.state == BreakerClosed && b.failures >= b.trip {
		b.state = BreakerOpen
		slog.Warn("circuit breaker opened",
			"name", b.name, "consecutive_failures", b.failures)
	}
}

// State returns the current [BreakerState]. An open breaker whose cooldown
// has elapsed reports half-open; the actual transition happens on the next
// [Breaker.Allow].
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && time.Since(b.lastFailure) >= b.cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed, clearing all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = BreakerClosed
	b.failures = 0
	b.probeWins = 0
}
