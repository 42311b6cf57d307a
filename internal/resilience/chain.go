package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxlate/voxlate/pkg/provider"
)

// ErrExhausted is the sentinel wrapped by [ExhaustedError] when every entry
// in a [Chain] fails or is skipped.
var ErrExhausted = errors.New("all providers exhausted")

// ErrBreakerOpen marks an attempt that was skipped because the entry's
// circuit breaker was open.
var ErrBreakerOpen = errors.New("circuit breaker open")

// ExhaustedError reports that a whole chain failed, carrying the per-entry
// attempt trail so callers can log or surface what was tried.
type ExhaustedError struct {
	Capability provider.Capability
	Attempts   []provider.Attempt
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %v after %d attempts", e.Capability, ErrExhausted, len(e.Attempts))
}

// Unwrap exposes [ErrExhausted] plus the last real attempt error, so both
// errors.Is(err, ErrExhausted) and errors.Is against the underlying provider
// error work.
func (e *ExhaustedError) Unwrap() []error {
	errs := []error{ErrExhausted}
	for i := len(e.Attempts) - 1; i >= 0; i-- {
		if err := e.Attempts[i].Err; err != nil && !errors.Is(err, ErrBreakerOpen) {
			errs = append(errs, err)
			break
		}
	}
	return errs
}

// ChainConfig configures a [Chain] and the breaker created for each entry.
type ChainConfig struct {
	// Capability labels the chain in errors, attempts, and logs.
	Capability provider.Capability

	// Breaker is the per-entry breaker configuration. The Name field is
	// overwritten with each entry's ID.
	Breaker BreakerConfig
}

// chainEntry pairs a provider value with its dedicated circuit breaker.
type chainEntry[T any] struct {
	id      string
	value   T
	breaker *Breaker
}

// Chain wraps an ordered list of providers of the same capability. Entries
// are tried in registration order; an entry whose breaker is open is skipped.
// Breaker state persists across calls, so a Chain must be long-lived and
// shared by everything that exercises the same providers.
//
// Chain is safe for concurrent use once registration is complete. Add is not
// safe to call concurrently with Run.
type Chain[T any] struct {
	capability provider.Capability
	breakerCfg BreakerConfig
	entries    []chainEntry[T]
}

// NewChain creates an empty [Chain]. Entries are registered with
// [Chain.Add] in preference order.
func NewChain[T any](cfg ChainConfig) *Chain[T] {
	return &Chain[T]{
		capability: cfg.Capability,
		breakerCfg: cfg.Breaker,
	}
}

// Add registers a provider at the end of the chain.
func (c *Chain[T]) Add(id string, value T) {
	cfg := c.breakerCfg
	cfg.Name = id
	c.entries = append(c.entries, chainEntry[T]{
		id:      id,
		value:   value,
		breaker: NewBreaker(cfg),
	})
}

// Len returns the number of registered entries.
func (c *Chain[T]) Len() int { return len(c.entries) }

// Capability returns the capability label the chain was created with.
func (c *Chain[T]) Capability() provider.Capability { return c.capability }

// Run tries fn against each entry in order until one succeeds. It returns
// the successful result together with the attempt trail (including the
// success itself), or an [ExhaustedError] when every entry fails. This is a
// package-level function because Go does not support method-level type
// parameters.
func Run[T, R any](c *Chain[T], fn func(T) (R, error)) (R, []provider.Attempt, error) {
	var zero R
	attempts := make([]provider.Attempt, 0, len(c.entries))

	for i := range c.entries {
		entry := &c.entries[i]

		if !entry.breaker.Allow() {
			slog.Debug("skipping provider (circuit open)",
				"capability", c.capability, "provider", entry.id)
			attempts = append(attempts, provider.Attempt{
				Provider:   entry.id,
				Capability: c.capability,
				Err:        ErrBreakerOpen,
			})
			continue
		}

		start := time.Now()
		result, err := fn(entry.value)
		latency := time.Since(start)

		if err == nil {
			entry.breaker.RecordSuccess()
			attempts = append(attempts, provider.Attempt{
				Provider:   entry.id,
				Capability: c.capability,
				OK:         true,
				Latency:    latency,
			})
			return result, attempts, nil
		}

		entry.breaker.RecordFailure()
		attempts = append(attempts, provider.Attempt{
			Provider:   entry.id,
			Capability: c.capability,
			Latency:    latency,
			Err:        err,
		})
		slog.Warn("provider failed, trying next",
			"capability", c.capability, "provider", entry.id,
			"latency", latency, "error", err)
	}

	return zero, attempts, &ExhaustedError{Capability: c.capability, Attempts: attempts}
}
