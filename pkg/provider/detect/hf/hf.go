// Package hf provides a language-detection provider backed by a text
// classification model on the Hugging Face Inference API.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/detect"
)

const (
	defaultBaseURL = "https://api-inference.huggingface.co"

	// defaultModel is a multilingual language-identification classifier
	// covering the 20 languages the pipeline routes most often.
	defaultModel = "papluca/xlm-roberta-base-language-detection"

	// defaultTimeout is short: detection gates the rest of the pipeline, so
	// it must stay interactive.
	defaultTimeout = 5 * time.Second
)

// Compile-time interface assertion.
var _ detect.Provider = (*Provider)(nil)

// Option is a functional option for the Provider.
type Option func(*Provider)

// WithBaseURL overrides the Inference API base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithModel overrides the classifier model.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// Provider implements detect.Provider against a hosted classifier.
type Provider struct {
	token   string
	model   string
	baseURL string
	client  *http.Client
}

// New creates a Provider. An empty token makes calls fail fast instead of
// being attempted.
func New(token string, opts ...Option) *Provider {
	p := &Provider{
		token:   token,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ID returns the provider identifier used in chain registration and logs.
func (p *Provider) ID() string { return "hf/" + p.model }

// classification is a single label/score pair from the classifier output.
type classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Detect classifies text and returns the top label as a language code.
func (p *Provider) Detect(ctx context.Context, text string) (string, error) {
	if p.token == "" {
		return "", provider.Errf(provider.CapabilityDetect, p.ID(), "api token not configured")
	}

	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return "", provider.Errf(provider.CapabilityDetect, p.ID(), "encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/models/"+p.model, bytes.NewReader(payload))
	if err != nil {
		return "", provider.Errf(provider.CapabilityDetect, p.ID(), "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", provider.Errf(provider.CapabilityDetect, p.ID(), "request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", provider.Errf(provider.CapabilityDetect, p.ID(),
			"unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// The classifier returns one ranked label list per input.
	var out [][]classification
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", provider.Errf(provider.CapabilityDetect, p.ID(), "decode response: %v", err)
	}
	if len(out) == 0 || len(out[0]) == 0 || out[0][0].Label == "" {
		return "", provider.Errf(provider.CapabilityDetect, p.ID(), "response missing classification labels")
	}
	return strings.ToLower(out[0][0].Label), nil
}
