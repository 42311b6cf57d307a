// Package openai provides a speech-synthesis provider backed by the OpenAI
// speech endpoint. Configured as the tail of the synthesis chain: reliable
// and multilingual, but paid, so the free providers get first refusal.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/tts"
)

const (
	defaultTimeout = 30 * time.Second

	// minAudioBytes guards against empty or truncated synthesis output.
	minAudioBytes = 1024
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for the Provider.
type Option func(*config)

// config holds optional construction parameters.
type config struct {
	baseURL string
	model   string
	voice   oai.AudioSpeechNewParamsVoice
	timeout time.Duration
}

// WithBaseURL overrides the OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel overrides the speech model. Defaults to tts-1.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithVoice overrides the voice (e.g., "nova"). Defaults to alloy.
func WithVoice(voice string) Option {
	return func(c *config) { c.voice = oai.AudioSpeechNewParamsVoice(voice) }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Provider implements tts.Provider using the OpenAI speech endpoint.
type Provider struct {
	client oai.Client
	model  string
	voice  oai.AudioSpeechNewParamsVoice
}

// New constructs a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{
		model:   string(oai.SpeechModelTTS1),
		voice:   oai.AudioSpeechNewParamsVoiceAlloy,
		timeout: defaultTimeout,
	}
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

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  cfg.model,
		voice:  cfg.voice,
	}, nil
}

// ID returns the provider identifier used in chain registration and logs.
func (p *Provider) ID() string { return "openai/" + p.model }

// Synthesize returns MP3 speech for text. The voice is fixed per Provider;
// the model handles the target language from the text itself, so lang is
// unused.
func (p *Provider) Synthesize(ctx context.Context, text, _ string) ([]byte, error) {
	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model: oai.SpeechModel(p.model),
		Voice: p.voice,
		Input: text,
	})
	if err != nil {
		return nil, provider.Errf(provider.CapabilityTTS, p.ID(), "speech: %v", err)
	}
	defer resp.Body.Close()

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
