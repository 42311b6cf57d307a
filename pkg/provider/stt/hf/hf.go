// Package hf provides a speech-to-text provider backed by the Hugging Face
// Inference API. Each Provider instance is bound to one hosted model (e.g.,
// "openai/whisper-base" for fast interactive use, "openai/whisper-large-v3"
// for accuracy); the fallback chain orders several instances by preference.
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
	"github.com/voxlate/voxlate/pkg/provider/stt"
)

// Compile-time interface assertion.
var _ stt.Provider = (*Provider)(nil)

const (
	defaultBaseURL = "https://api-inference.huggingface.co"

	// defaultTimeout covers cold-start model loading on the free inference
	// tier, which routinely takes several seconds for whisper-large.
	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithBaseURL overrides the Inference API base URL. Used by tests to point
// the adapter at an httptest server.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// Provider implements stt.Provider against one Hugging Face hosted model.
type Provider struct {
	token   string
	model   string
	baseURL string
	client  *http.Client
}

// New creates a Provider for the given hosted model. An empty token is
// allowed; calls then fail fast with a provider error instead of being
// attempted, so an unconfigured credential simply falls through the chain.
func New(token, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, errors.New("hf: model must not be empty")
	}
	p := &Provider{
		token:   token,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ID returns the provider identifier used in chain registration and logs.
func (p *Provider) ID() string { return "hf/" + p.model }

// sttResponse is the JSON body returned by hosted ASR models.
type sttResponse struct {
	Text string `json:"text"`
}

// Transcribe submits the raw audio payload to the model endpoint and returns
// the transcript text.
func (p *Provider) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if p.token == "" {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "api token not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/models/"+p.model, bytes.NewReader(audio))
	if err != nil {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Wait-For-Model", "true")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", provider.Errf(provider.CapabilitySTT, p.ID(),
			"unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "decode response: %v", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		// A 200 without a usable text field is a disguised failure.
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "response missing text field")
	}
	return strings.TrimSpace(out.Text), nil
}
