// Package whisperserver provides a speech-to-text provider backed by a
// self-hosted whisper-server binary (the whisper.cpp REST frontend, which
// accepts a multipart upload at POST /inference). Configured as the last
// entry of the STT chain for deployments that run local inference and want
// transcription to survive a total outage of the hosted providers.
package whisperserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/stt"
)

const defaultTimeout = 60 * time.Second

// Compile-time interface assertion.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for the Provider.
type Option func(*Provider)

// WithTimeout overrides the per-request timeout. Local CPU inference can be
// slow; the default is generous.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// WithLanguage sets a fixed transcription language hint. Defaults to "auto".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// Provider implements stt.Provider against a running whisper-server.
type Provider struct {
	serverURL string
	language  string
	client    *http.Client
}

// New creates a Provider for the whisper-server at serverURL
// (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisperserver: serverURL must not be empty")
	}
	p := &Provider{
		serverURL: strings.TrimRight(serverURL, "/"),
		language:  "auto",
		client:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ID returns the provider identifier used in chain registration and logs.
func (p *Provider) ID() string { return "whisper-server" }

// inferenceResponse is the JSON body returned by whisper-server.
type inferenceResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio payload and returns the transcript text.
func (p *Provider) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.webm")
	if err != nil {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "build form: %v", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "write form: %v", err)
	}
	_ = mw.WriteField("language", p.language)
	_ = mw.WriteField("response_format", "json")
	if err := mw.Close(); err != nil {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "close form: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "build request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", provider.Errf(provider.CapabilitySTT, p.ID(),
			"unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "decode response: %v", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", provider.Errf(provider.CapabilitySTT, p.ID(), "response missing text field")
	}
	return strings.TrimSpace(out.Text), nil
}
