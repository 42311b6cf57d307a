// Package stt defines the speech-to-text provider contract.
//
// A Provider transcribes one complete utterance. The pipeline is not
// streaming; each recording is submitted as a single opaque payload after the
// user stops speaking. Implementations live in sub-packages (hf, openai,
// whisperserver) plus a recording mock for tests.
package stt

import "context"

// Provider transcribes an encoded audio payload into text.
//
// Implementations must respect ctx cancellation, carry their own request
// timeout, and normalize every failure into a [provider.Error], including a
// success status whose body lacks the expected text field.
type Provider interface {
	// Transcribe returns the transcript of audio. The payload is opaque to
	// the adapter; it is forwarded to the service as recorded by the client
	// (typically webm/ogg-opus from a browser).
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
