// Package tts defines the speech-synthesis provider contract.
package tts

import "context"

// Provider synthesizes speech for a text fragment.
//
// lang is a lowercase ISO 639-1 code used to pick a voice. Implementations
// must treat a success response with an implausibly short body as a failure
// (some free-tier services return short error bodies with a 200 status) and
// normalize it into a [provider.Error] like any other fault.
type Provider interface {
	// Synthesize returns an encoded audio payload speaking text in lang.
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}
