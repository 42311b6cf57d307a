// Package openai provides a speech-to-text provider backed by the OpenAI
// audio transcription API. It sits behind the Hugging Face adapters in the
// default chain: paid, but far more reliable than the free inference tier.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/stt"
)

// defaultTimeout bounds one transcription request.
const defaultTimeout = 30 * time.Second

// Compile-time interface assertion.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for the Provider.
type Option func(*config)

// config holds optional construction parameters.
type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// WithBaseURL overrides the OpenAI API base URL (useful for proxies and tests).
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel overrides the transcription model. Defaults to whisper-1.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Provider implements stt.Provider using the OpenAI transcription endpoint.
type Provider struct {
	client oai.Client
	model  string
}

// New constructs a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: string(oai.AudioModelWhisper1), timeout: defaultTimeout}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// ID returns the provider identifier used in chain registration and logs.
func (p *Provider) ID() string { return "openai/" + p.model }

// Transcribe submits the audio payload as a multipart upload and returns the
// transcript text.
func (p *Provider) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := p.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(audio), "audio.webm", "audio/webm"),
		Model: oai.AudioModel(p.model),
	})
	if err != nil {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "transcription: %v", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "response missing text field")
	}
	return strings.TrimSpace(resp.Text), nil
}
