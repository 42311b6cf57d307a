// Package gtranslate provides a speech-synthesis provider backed by the
// unauthenticated Google Translate TTS endpoint. It is tried first in the
// synthesis chain: free and fast, but undocumented, capped at short inputs,
// and prone to silent breakage. Everything after it in the chain exists
// because of that.
package gtranslate

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/tts"
)

const (
	defaultEndpoint = "https://translate.google.com/translate_tts"
	defaultTimeout  = 10 * time.Second

	// maxInputLen is the longest query the endpoint accepts before returning
	// an error page; longer text falls through to the next provider.
	maxInputLen = 200

	// minAudioBytes guards against short error bodies served with a 200
	// status. Real MP3 output for even one word is comfortably larger.
	minAudioBytes = 512
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for the Provider.
type Option func(*Provider)

// WithEndpoint overrides the TTS endpoint URL. Used by tests.
func WithEndpoint(url string) Option {
	return func(p *Provider) { p.endpoint = url }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// Provider implements tts.Provider against the public translate_tts endpoint.
type Provider struct {
	endpoint string
	client   *http.Client
}

// New creates a Provider. No credentials are required.
func New(opts ...Option) *Provider {
	p := &Provider{
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ID returns the provider identifier used in chain registration and logs.
func (p *Provider) ID() string { return "gtranslate-tts" }

// Synthesize fetches MP3 speech for text in lang.
func (p *Provider) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	if len(text) > maxInputLen {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(),
			"input too long (%d bytes, limit %d)", len(text), maxInputLen)
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(), "build request: %v", err)
	}
	// The endpoint rejects requests without a browser-looking user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(), "request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(), "unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "audio/") {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(), "unexpected content type %q", ct)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(), "read body: %v", err)
	}
	if len(audio) < minAudioBytes {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(),
			"response too short (%d bytes), treating as disguised failure", len(audio))
	}
	return audio, nil
}
