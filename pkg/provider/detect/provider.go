// Package detect defines the language-detection provider contract.
package detect

import "context"

// Provider identifies the language of a text fragment.
//
// Implementations return a lowercase ISO 639-1 code (e.g., "en", "ko") and
// normalize every failure into a [provider.Error].
type Provider interface {
	// Detect returns the detected language code for text.
	Detect(ctx context.Context, text string) (string, error)
}
