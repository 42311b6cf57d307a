// Package mock provides a recording tts.Provider test double.
package mock

import (
	"context"
	"sync"

	"github.com/voxlate/voxlate/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Call records one Synthesize invocation.
type Call struct {
	Text string
	Lang string
}

// Provider is a configurable mock implementing tts.Provider. Safe for
// concurrent use.
type Provider struct {
	// Audio is returned on success.
	Audio []byte

	// Err, when non-nil, is returned from every call.
	Err error

	mu    sync.Mutex
	calls []Call
}

// Synthesize records the call and returns the configured result.
func (p *Provider) Synthesize(_ context.Context, text, lang string) ([]byte, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Text: text, Lang: lang})
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	return p.Audio, nil
}

// Calls returns a copy of all recorded invocations.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns the number of Synthesize invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
