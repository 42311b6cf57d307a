// Package mock provides a recording mt.Provider test double.
package mock

import (
	"context"
	"sync"

	"github.com/voxlate/voxlate/pkg/provider/mt"
)

// Compile-time interface assertion.
var _ mt.Provider = (*Provider)(nil)

// Call records one Translate invocation.
type Call struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Provider is a configurable mock implementing mt.Provider. Safe for
// concurrent use.
type Provider struct {
	// Translation is returned on success. When Fn is set it takes precedence.
	Translation string

	// Fn, when non-nil, computes the result per call.
	Fn func(text, sourceLang, targetLang string) (string, error)

	// Err, when non-nil, is returned from every call (unless Fn is set).
	Err error

	mu    sync.Mutex
	calls []Call
}

// Translate records the call and returns the configured result.
func (p *Provider) Translate(_ context.Context, text, sourceLang, targetLang string) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
	p.mu.Unlock()

	if p.Fn != nil {
		return p.Fn(text, sourceLang, targetLang)
	}
	if p.Err != nil {
		return "", p.Err
	}
	return p.Translation, nil
}

// Calls returns a copy of all recorded invocations.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns the number of Translate invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
