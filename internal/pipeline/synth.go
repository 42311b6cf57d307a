package pipeline

import (
	"context"
	"sync"

	"github.com/voxlate/voxlate/internal/resilience"
	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/tts"
)

// Voice routing is a table, not a branch: new languages are added by listing
// their MMS checkpoint here.

// voiceModels maps a language code to its dedicated single-language TTS
// model on the hosted inference API.
var voiceModels = map[string]string{
	"en": "facebook/mms-tts-eng",
	"fr": "facebook/mms-tts-fra",
	"de": "facebook/mms-tts-deu",
	"es": "facebook/mms-tts-spa",
	"pt": "facebook/mms-tts-por",
	"ru": "facebook/mms-tts-rus",
	"ko": "facebook/mms-tts-kor",
	"hi": "facebook/mms-tts-hin",
	"ar": "facebook/mms-tts-ara",
	"tr": "facebook/mms-tts-tur",
	"vi": "facebook/mms-tts-vie",
	"nl": "facebook/mms-tts-nld",
}

// multilingualModels are tried after the per-language model; they accept any
// input but with weaker voices.
var multilingualModels = []string{
	"suno/bark-small",
}

// englishModels close the hosted chain. English output is wrong for most
// targets but still beats silence, and the caller sees Degraded.Audio stay
// false only when something actually spoke.
var englishModels = []string{
	"espnet/kan-bayashi_ljspeech_vits",
	"facebook/mms-tts-eng",
}

// TTSFactory builds a synthesis provider for a hosted model. Tests inject
// mock factories.
type TTSFactory func(model string) tts.Provider

// TTSEntry names a fixed provider appended to every language chain.
type TTSEntry struct {
	ID       string
	Provider tts.Provider
}

// SynthConfig holds the synthesizer's construction parameters.
type SynthConfig struct {
	// Free is the unauthenticated provider tried first (no quota pressure).
	// Optional.
	Free tts.Provider

	// Factory builds hosted per-model providers for the voice tables.
	Factory TTSFactory

	// Tail providers close every chain, after the hosted models. Used for
	// the paid synthesis fallback. Optional.
	Tail []TTSEntry

	// Breaker configures the per-provider circuit breakers.
	Breaker resilience.BreakerConfig
}

// Synthesizer turns text into speech through a per-language provider chain:
// free endpoint, dedicated voice model, multilingual fallbacks, English-only
// fallbacks, then the configured tail. Chains are cached per language so
// breaker state carries across jobs.
//
// Synthesizer is safe for concurrent use.
type Synthesizer struct {
	free       tts.Provider
	factory    TTSFactory
	tail       []TTSEntry
	breakerCfg resilience.BreakerConfig

	mu     sync.Mutex
	chains map[string]*resilience.Chain[tts.Provider]
}

// Compile-time interface assertion.
var _ AudioSynthesizer = (*Synthesizer)(nil)

// NewSynthesizer creates a [Synthesizer] from cfg.
func NewSynthesizer(cfg SynthConfig) *Synthesizer {
	return &Synthesizer{
		free:       cfg.Free,
		factory:    cfg.Factory,
		tail:       cfg.Tail,
		breakerCfg: cfg.Breaker,
		chains:     make(map[string]*resilience.Chain[tts.Provider]),
	}
}

// Synthesize produces speech for text in lang, returning the audio plus the
// attempt trail, or the chain's exhaustion error.
func (s *Synthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, []provider.Attempt, error) {
	return resilience.Run(s.langChain(lang), func(p tts.Provider) ([]byte, error) {
		return p.Synthesize(ctx, text, lang)
	})
}

// langChain returns the cached provider chain for a language, building it on
// first use.
func (s *Synthesizer) langChain(lang string) *resilience.Chain[tts.Provider] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chain, ok := s.chains[lang]; ok {
		return chain
	}

	chain := resilience.NewChain[tts.Provider](resilience.ChainConfig{
		Capability: provider.CapabilityTTS,
		Breaker:    s.breakerCfg,
	})
	if s.free != nil {
		chain.Add("gtranslate-tts", s.free)
	}
	if s.factory != nil {
		seen := map[string]bool{}
		add := func(model string) {
			if seen[model] {
				return
			}
			seen[model] = true
			chain.Add("hf/"+model, s.factory(model))
		}
		if model, ok := voiceModels[lang]; ok {
			add(model)
		}
		for _, model := range multilingualModels {
			add(model)
		}
		for _, model := range englishModels {
			add(model)
		}
	}
	for _, entry := range s.tail {
		chain.Add(entry.ID, entry.Provider)
	}

	s.chains[lang] = chain
	return chain
}
