// Package hf provides a translation provider backed by a single hosted
// translation model on the Hugging Face Inference API. The model is fixed per
// Provider instance (Helsinki-NLP opus-mt models translate exactly one
// language pair); the router constructs one instance per pair it needs.
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
	"github.com/voxlate/voxlate/pkg/provider/mt"
)

const (
	defaultBaseURL = "https://api-inference.huggingface.co"
	defaultTimeout = 15 * time.Second
)

// Compile-time interface assertion.
var _ mt.Provider = (*Provider)(nil)

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

// Provider implements mt.Provider against one hosted translation model.
type Provider struct {
	token   string
	model   string
	baseURL string
	client  *http.Client
}

// New creates a Provider for the given translation model (e.g.,
// "Helsinki-NLP/opus-mt-fr-en"). An empty token makes calls fail fast.
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

// translation is one entry of the model's response array.
type translation struct {
	TranslationText string `json:"translation_text"`
}

// Translate submits text to the pair model. The source and target arguments
// are ignored (the model itself encodes the pair) but kept so the adapter
// satisfies the uniform mt.Provider contract.
func (p *Provider) Translate(ctx context.Context, text, _, _ string) (string, error) {
	if p.token == "" {
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(), "api token not configured")
	}

	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(), "encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/models/"+p.model, bytes.NewReader(payload))
	if err != nil {
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(), "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Wait-For-Model", "true")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(), "request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(),
			"unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out []translation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(), "decode response: %v", err)
	}
	if len(out) == 0 || strings.TrimSpace(out[0].TranslationText) == "" {
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(), "response missing translation_text field")
	}
	return strings.TrimSpace(out[0].TranslationText), nil
}
