// Package llm provides a translation provider that prompts a chat-completion
// model through github.com/mozilla-ai/any-llm-go. It is an optional last
// candidate in the direct translation chain: slower and costlier than a
// dedicated pair model, but it covers pairs no opus-mt model exists for.
package llm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/mt"
)

// systemPrompt constrains the model to emit only the translation.
const systemPrompt = "You are a translation engine. Translate the user's text from %s to %s. Reply with the translated text only, no explanations or quotes."

// Compile-time interface assertion.
var _ mt.Provider = (*Provider)(nil)

// Provider implements mt.Provider by prompting a chat-completion model.
type Provider struct {
	backend anyllmlib.Provider
	name    string
	model   string
}

// New creates a Provider backed by the given LLM provider name ("openai",
// "anthropic", "ollama", "groq", "mistral") and model. opts are forwarded to
// the backend (e.g., anyllmlib.WithAPIKey, anyllmlib.WithBaseURL).
func New(providerName, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("llm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("llm: model must not be empty")
	}

	var (
		backend anyllmlib.Provider
		err     error
	)
	switch strings.ToLower(providerName) {
	case "openai":
		backend, err = anyllmoai.New(opts...)
	case "anthropic":
		backend, err = anthropic.New(opts...)
	case "ollama":
		backend, err = ollama.New(opts...)
	case "groq":
		backend, err = groq.New(opts...)
	case "mistral":
		backend, err = mistral.New(opts...)
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q; supported: openai, anthropic, ollama, groq, mistral", providerName)
	}
	if err != nil {
		return nil, fmt.Errorf("llm: create %q backend: %w", providerName, err)
	}

	return &Provider{backend: backend, name: providerName, model: model}, nil
}

// ID returns the provider identifier used in chain registration and logs.
func (p *Provider) ID() string { return "llm/" + p.name + "/" + p.model }

// Translate prompts the model and returns its reply as the translation.
func (p *Provider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	params := anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: fmt.Sprintf(systemPrompt, languageName(sourceLang), languageName(targetLang))},
			{Role: anyllmlib.RoleUser, Content: text},
		},
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(), "completion: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(), "empty choices in response")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if out == "" {
		return "", provider.Errf(provider.CapabilityTranslate, p.ID(), "empty completion")
	}
	return out, nil
}

// languageName expands common ISO 639-1 codes so the prompt reads naturally;
// unknown codes are passed through unchanged.
func languageName(code string) string {
	names := map[string]string{
		"en": "English", "fr": "French", "es": "Spanish", "de": "German",
		"it": "Italian", "pt": "Portuguese", "ru": "Russian", "zh": "Chinese",
		"ja": "Japanese", "ko": "Korean", "ar": "Arabic", "hi": "Hindi",
		"nl": "Dutch", "pl": "Polish", "tr": "Turkish",
	}
	if n, ok := names[code]; ok {
		return n
	}
	return code
}
