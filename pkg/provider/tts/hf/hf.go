// Package hf provides a speech-synthesis provider backed by a hosted TTS
// model on the Hugging Face Inference API. The model is fixed per Provider
// instance (MMS voice models speak exactly one language); the synthesizer
// constructs one instance per model in its voice table.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/tts"
)

const (
	defaultBaseURL = "https://api-inference.huggingface.co"

	// defaultTimeout is the longest in the pipeline: synthesis is the
	// heaviest capability and cold model loads are common.
	defaultTimeout = 45 * time.Second

	// defaultMinAudioBytes guards against short error bodies returned with a
	// 200 status, which the free tier produces under load.
	defaultMinAudioBytes = 1024
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for the Provider.
type Option func(*Provider)

// WithBaseURL overrides the Inference API base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// WithMinAudioBytes overrides the disguised-failure floor.
func WithMinAudioBytes(n int) Option {
	return func(p *Provider) { p.minAudioBytes = n }
}

// Provider implements tts.Provider against one hosted TTS model.
type Provider struct {
	token         string
	model         string
	baseURL       string
	minAudioBytes int
	client        *http.Client
}

// New creates a Provider for the given TTS model (e.g.,
// "facebook/mms-tts-fra"). An empty token makes calls fail fast.
func New(token, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, errors.New("hf: model must not be empty")
	}
	p := &Provider{
		token:         token,
		model:         model,
		baseURL:       defaultBaseURL,
		minAudioBytes: defaultMinAudioBytes,
		client:        &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ID returns the provider identifier used in chain registration and logs.
func (p *Provider) ID() string { return "hf/" + p.model }

// Synthesize submits text to the model endpoint and returns the raw audio
// payload from the response body. The lang argument is ignored (the model
// itself encodes the voice) but kept for the uniform tts.Provider contract.
func (p *Provider) Synthesize(ctx context.Context, text, _ string) ([]byte, error) {
	if p.token == "" {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(), "api token not configured")
	}

	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(), "encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/models/"+p.model, bytes.NewReader(payload))
	if err != nil {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(), "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Wait-For-Model", "true")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(), "request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(),
			"unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(), "read body: %v", err)
	}
	if len(audio) < p.minAudioBytes {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(),
			"response too short (%d bytes), treating as disguised failure", len(audio))
	}
	return audio, nil
}
