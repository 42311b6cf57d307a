// Package pipeline implements the audio translation pipeline: transcribe,
// detect the source language when asked to, translate, synthesize. Every
// stage past validation degrades instead of failing, so a structurally valid
// job always yields a result; the provenance of degraded fields is carried
// in [Degradation] so callers can tell fallback output from the real thing.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/voxlate/voxlate/internal/observe"
	"github.com/voxlate/voxlate/internal/resilience"
	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/stt"
)

// SourceAuto is the sentinel source language requesting detection from the
// transcript.
const SourceAuto = "auto"

// DefaultMinAudioBytes is the payload floor below which audio is treated as
// empty or silence and rejected outright.
const DefaultMinAudioBytes = 1000

// fallbackTranscript substitutes the transcript when every STT provider
// fails. Flagged via Degradation.Transcript.
const fallbackTranscript = "[transcription unavailable]"

// degradedTranslationPrefix marks a translation that could not be produced;
// the original text follows the marker. Flagged via Degradation.Translation.
const degradedTranslationPrefix = "[translation unavailable] "

// State identifies a pipeline stage.
type State int

const (
	StateValidating State = iota
	StateTranscribing
	StateDetecting
	StateTranslating
	StateSynthesizing
	StateCompleted
	StateFailed
)

// String returns the human-readable stage name.
func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateTranscribing:
		return "transcribing"
	case StateDetecting:
		return "detecting"
	case StateTranslating:
		return "translating"
	case StateSynthesizing:
		return "synthesizing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is one audio translation request. It lives for a single Run call and
// is never persisted.
type Job struct {
	// Audio is the encoded speech payload from the client.
	Audio []byte

	// SourceLang is a language code, or [SourceAuto] to detect from the
	// transcript.
	SourceLang string

	// TargetLang is the language to translate and synthesize into.
	TargetLang string
}

// Degradation records which result fields were substituted by fallbacks.
type Degradation struct {
	// Transcript is true when every STT provider failed and OriginalText is
	// the fixed fallback string.
	Transcript bool

	// Detection is true when language detection failed and the configured
	// fallback language was assumed.
	Detection bool

	// Translation is true when the router was exhausted and TranslatedText
	// is the marker prefix plus the original.
	Translation bool

	// Audio is true when synthesis was exhausted and Result.Audio is nil;
	// the caller should fall back to local TTS on TranslatedText.
	Audio bool
}

// Any reports whether any field was degraded.
func (d Degradation) Any() bool {
	return d.Transcript || d.Detection || d.Translation || d.Audio
}

// Result is the outcome of one Job.
type Result struct {
	// OriginalText is the best-effort transcript.
	OriginalText string

	// TranslatedText is the best-effort translation. Equals OriginalText
	// when the (detected) source language matches the target.
	TranslatedText string

	// Audio is the synthesized speech for TranslatedText, or nil when
	// synthesis degraded.
	Audio []byte

	// SourceLang is the declared or detected source language.
	SourceLang string

	// Degraded flags which fields came from fallbacks.
	Degraded Degradation
}

// InvalidJobError rejects a job whose audio payload is missing or below the
// minimum size floor. The one hard failure before any provider is invoked.
type InvalidJobError struct {
	Size int
	Min  int
}

// Error implements the error interface.
func (e *InvalidJobError) Error() string {
	return fmt.Sprintf("invalid job: audio payload %d bytes, minimum %d", e.Size, e.Min)
}

// Error is an orchestration-level failure: detection with no fallback
// configured, or a cancelled connection. Surfaced to the caller; the job
// terminates without a Result.
type Error struct {
	Stage State
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("pipeline failed while %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Translator routes text between languages and detects the source language.
// Implemented by [github.com/voxlate/voxlate/internal/translate.Router].
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, []provider.Attempt, error)
	Detect(ctx context.Context, text string) (string, []provider.Attempt, error)
}

// AudioSynthesizer produces speech for text in a target language.
// Implemented by [Synthesizer].
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, []provider.Attempt, error)
}

// Progress carries the per-job observer hooks. Both fields are optional.
type Progress struct {
	// OnTranscript fires once after transcription, strictly before Run
	// returns, so the caller can render the transcript early.
	OnTranscript func(text string)

	// OnState fires on every stage transition.
	OnState func(state State)
}

func (p Progress) state(s State) {
	if p.OnState != nil {
		p.OnState(s)
	}
}

// Config holds the orchestrator's dependencies.
type Config struct {
	// STT is the transcription provider chain.
	STT *resilience.Chain[stt.Provider]

	// Router is the translation router.
	Router Translator

	// Synth is the speech synthesizer.
	Synth AudioSynthesizer

	// Metrics records stage latencies and outcomes. Optional.
	Metrics *observe.Metrics

	// MinAudioBytes is the validation floor. Default: [DefaultMinAudioBytes].
	MinAudioBytes int

	// DetectFallbackLang, when set, is assumed as the source language if
	// detection fails instead of failing the job.
	DetectFallbackLang string
}

// Orchestrator drives jobs through the pipeline stages. Safe for concurrent
// use; jobs share no state beyond the provider chains, which synchronize
// themselves.
type Orchestrator struct {
	stt            *resilience.Chain[stt.Provider]
	router         Translator
	synth          AudioSynthesizer
	metrics        *observe.Metrics
	minAudioBytes  int
	detectFallback string
}

// New creates an [Orchestrator] from cfg.
func New(cfg Config) *Orchestrator {
	if cfg.MinAudioBytes <= 0 {
		cfg.MinAudioBytes = DefaultMinAudioBytes
	}
	return &Orchestrator{
		stt:            cfg.STT,
		router:         cfg.Router,
		synth:          cfg.Synth,
		metrics:        cfg.Metrics,
		minAudioBytes:  cfg.MinAudioBytes,
		detectFallback: cfg.DetectFallbackLang,
	}
}

// Run executes one job. It returns a Result for every structurally valid
// job unless detection fails with no fallback configured or ctx is
// cancelled; those return a [*Error]. Invalid payloads return
// [*InvalidJobError] before any provider is invoked.
func (o *Orchestrator) Run(ctx context.Context, job Job, progress Progress) (*Result, error) {
	start := time.Now()
	log := observe.Logger(ctx)

	// Validating.
	progress.state(StateValidating)
	if len(job.Audio) < o.minAudioBytes {
		progress.state(StateFailed)
		o.metrics.RecordJob(ctx, time.Since(start).Seconds(), "failed")
		return nil, &InvalidJobError{Size: len(job.Audio), Min: o.minAudioBytes}
	}

	var degraded Degradation

	// Transcribing.
	progress.state(StateTranscribing)
	text, err := o.transcribe(ctx, job.Audio)
	if err != nil {
		if ctx.Err() != nil {
			return o.cancelled(ctx, progress, start, StateTranscribing)
		}
		log.Warn("transcription exhausted, substituting fallback transcript", "error", err)
		text = fallbackTranscript
		degraded.Transcript = true
		o.metrics.RecordDegradedStage(ctx, "transcript")
	}
	if progress.OnTranscript != nil {
		progress.OnTranscript(text)
	}

	// Detecting, only when requested.
	sourceLang := job.SourceLang
	if sourceLang == "" || sourceLang == SourceAuto {
		progress.state(StateDetecting)
		lang, err := o.detect(ctx, text)
		switch {
		case err == nil:
			sourceLang = lang
			log.Info("source language detected", "lang", lang)
		case ctx.Err() != nil:
			return o.cancelled(ctx, progress, start, StateDetecting)
		case o.detectFallback != "":
			log.Warn("language detection failed, assuming fallback language",
				"fallback", o.detectFallback, "error", err)
			sourceLang = o.detectFallback
			degraded.Detection = true
			o.metrics.RecordDegradedStage(ctx, "detection")
		default:
			// An undetected source makes translation meaningless, so this
			// stage fails the job rather than guessing.
			progress.state(StateFailed)
			o.metrics.RecordJob(ctx, time.Since(start).Seconds(), "failed")
			return nil, &Error{Stage: StateDetecting, Err: err}
		}
	}

	// Translating, skipped when source and target already match.
	translated := text
	if sourceLang != job.TargetLang {
		progress.state(StateTranslating)
		out, err := o.translate(ctx, text, sourceLang, job.TargetLang)
		if err != nil {
			if ctx.Err() != nil {
				return o.cancelled(ctx, progress, start, StateTranslating)
			}
			log.Warn("translation exhausted, substituting marker text", "error", err)
			translated = degradedTranslationPrefix + text
			degraded.Translation = true
			o.metrics.RecordDegradedStage(ctx, "translation")
		} else {
			translated = out
		}
	} else {
		log.Debug("translation skipped, source equals target", "lang", sourceLang)
	}

	// Synthesizing.
	progress.state(StateSynthesizing)
	audio, err := o.synthesize(ctx, translated, job.TargetLang)
	if err != nil {
		if ctx.Err() != nil {
			return o.cancelled(ctx, progress, start, StateSynthesizing)
		}
		log.Warn("synthesis exhausted, returning result without audio", "error", err)
		audio = nil
		degraded.Audio = true
		o.metrics.RecordDegradedStage(ctx, "audio")
	}

	progress.state(StateCompleted)
	status := "completed"
	if degraded.Any() {
		status = "degraded"
	}
	o.metrics.RecordJob(ctx, time.Since(start).Seconds(), status)
	log.Info("pipeline completed",
		"source", sourceLang,
		"target", job.TargetLang,
		"degraded", degraded.Any(),
		"duration", time.Since(start))

	return &Result{
		OriginalText:   text,
		TranslatedText: translated,
		Audio:          audio,
		SourceLang:     sourceLang,
		Degraded:       degraded,
	}, nil
}

// cancelled finalizes a job aborted by context cancellation mid-stage.
func (o *Orchestrator) cancelled(ctx context.Context, progress Progress, start time.Time, stage State) (*Result, error) {
	progress.state(StateFailed)
	o.metrics.RecordJob(ctx, time.Since(start).Seconds(), "failed")
	return nil, &Error{Stage: stage, Err: ctx.Err()}
}

func (o *Orchestrator) transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.transcribe")
	defer span.End()

	text, attempts, err := resilience.Run(o.stt, func(p stt.Provider) (string, error) {
		return p.Transcribe(ctx, audio)
	})
	o.metrics.RecordAttempts(ctx, attempts)
	return text, err
}

func (o *Orchestrator) detect(ctx context.Context, text string) (string, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.detect")
	defer span.End()

	lang, attempts, err := o.router.Detect(ctx, text)
	o.metrics.RecordAttempts(ctx, attempts)
	return lang, err
}

func (o *Orchestrator) translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.translate")
	defer span.End()

	out, attempts, err := o.router.Translate(ctx, text, sourceLang, targetLang)
	o.metrics.RecordAttempts(ctx, attempts)
	return out, err
}

func (o *Orchestrator) synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.synthesize")
	defer span.End()

	audio, attempts, err := o.synth.Synthesize(ctx, text, lang)
	o.metrics.RecordAttempts(ctx, attempts)
	return audio, err
}
