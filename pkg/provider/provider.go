// Package provider defines the types shared by every capability adapter:
// capability identifiers, the normalized adapter error, and the per-call
// attempt record used by the fallback machinery.
//
// Concrete adapters live in the capability sub-packages (stt, detect, mt,
// tts), one implementation package per external service, following the
// layout pkg/provider/<capability>/<service>.
package provider

import (
	"fmt"
	"time"
)

// Capability names one stage of the translation pipeline that a provider
// adapter can serve.
type Capability string

const (
	// CapabilitySTT is speech-to-text transcription.
	CapabilitySTT Capability = "stt"

	// CapabilityDetect is text language detection.
	CapabilityDetect Capability = "detect"

	// CapabilityTranslate is text-to-text translation.
	CapabilityTranslate Capability = "translate"

	// CapabilityTTS is speech synthesis.
	CapabilityTTS Capability = "tts"
)

// Error is the normalized failure raised by a single adapter call. Adapters
// wrap every failure mode (non-success HTTP status, timeout, or a response
// body missing the expected shape) into an Error so the fallback machinery
// can treat them uniformly.
type Error struct {
	// Capability is the pipeline stage the adapter serves.
	Capability Capability

	// Provider identifies the adapter (e.g., "hf/openai-whisper-base").
	Provider string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s provider %q: %v", e.Capability, e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Errf constructs an [*Error] with a formatted cause.
func Errf(capability Capability, providerID, format string, args ...any) *Error {
	return &Error{
		Capability: capability,
		Provider:   providerID,
		Err:        fmt.Errorf(format, args...),
	}
}

// Attempt is the ephemeral record of one adapter call. Attempts are captured
// by the fallback chain for logging and are carried in the all-failed error
// so callers can see the full failure history of an exhausted capability.
// They are never persisted.
type Attempt struct {
	// Provider identifies the adapter that was called.
	Provider string

	// Capability is the pipeline stage.
	Capability Capability

	// OK reports whether the call succeeded.
	OK bool

	// Latency is the wall-clock duration of the call.
	Latency time.Duration

	// Err holds the failure cause when OK is false.
	Err error
}

// String renders the attempt in a compact single-line form for logs.
func (a Attempt) String() string {
	if a.OK {
		return fmt.Sprintf("%s[%s] ok in %s", a.Provider, a.Capability, a.Latency.Round(time.Millisecond))
	}
	return fmt.Sprintf("%s[%s] failed in %s: %v", a.Provider, a.Capability, a.Latency.Round(time.Millisecond), a.Err)
}
