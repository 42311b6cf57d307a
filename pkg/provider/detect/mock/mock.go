// Package mock provides a recording detect.Provider test double.
package mock

import (
	"context"
	"sync"

	"github.com/voxlate/voxlate/pkg/provider/detect"
)

// Compile-time interface assertion.
var _ detect.Provider = (*Provider)(nil)

// Provider is a configurable mock implementing detect.Provider. Safe for
// concurrent use.
type Provider struct {
	// Lang is returned on success.
	Lang string

	// Err, when non-nil, is returned from every call.
	Err error

	mu    sync.Mutex
	calls []string
}

// Detect records text and returns the configured result.
func (p *Provider) Detect(_ context.Context, text string) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, text)
	p.mu.Unlock()

	if p.Err != nil {
		return "", p.Err
	}
	return p.Lang, nil
}

// Calls returns a copy of all recorded inputs.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns the number of Detect invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
