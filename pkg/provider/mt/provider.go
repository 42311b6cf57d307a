// Package mt defines the machine-translation provider contract.
//
// Implementations live in sub-packages: hf (per-pair Helsinki-NLP models on
// the Hugging Face Inference API), gcloud (Cloud Translation), llm (prompted
// chat-completion translation), and a recording mock for tests.
package mt

import "context"

// Provider translates text between two languages.
//
// sourceLang and targetLang are lowercase ISO 639-1 codes. Implementations
// must respect ctx cancellation and normalize every failure, including a
// response body without a translated-text field, into a [provider.Error].
// Upstream text-length limits are not validated here; a provider rejection
// surfaces as a normal provider error.
type Provider interface {
	// Translate returns text rendered in targetLang.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
