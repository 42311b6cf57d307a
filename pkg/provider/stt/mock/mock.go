// Package mock provides a recording stt.Provider test double.
package mock

import (
	"context"
	"sync"

	"github.com/voxlate/voxlate/pkg/provider/stt"
)

// Compile-time interface assertion.
var _ stt.Provider = (*Provider)(nil)

// Provider is a configurable mock implementing stt.Provider. It records every
// call for later inspection. Safe for concurrent use.
type Provider struct {
	// Text is returned on success.
	Text string

	// Err, when non-nil, is returned from every call.
	Err error

	mu    sync.Mutex
	calls [][]byte
}

// Transcribe records the payload and returns the configured result.
func (p *Provider) Transcribe(_ context.Context, audio []byte) (string, error) {
	p.mu.Lock()
	cp := make([]byte, len(audio))
	copy(cp, audio)
	p.calls = append(p.calls, cp)
	p.mu.Unlock()

	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}

// Calls returns a copy of all recorded audio payloads.
func (p *Provider) Calls() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns the number of Transcribe invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
