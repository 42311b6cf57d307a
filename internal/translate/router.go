// Package translate implements the translation routing policy: language-pair
// overrides to a dedicated cloud provider, direct pair models, and a
// two-leg pivot through English when the direct chain is exhausted.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/voxlate/voxlate/internal/resilience"
	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/detect"
	"github.com/voxlate/voxlate/pkg/provider/mt"
	mthf "github.com/voxlate/voxlate/pkg/provider/mt/hf"
)

// pivotLang is the intermediate language for two-leg pivot translation.
const pivotLang = "en"

// ErrExhausted is the sentinel wrapped by [ExhaustedError].
var ErrExhausted = errors.New("all translation strategies exhausted")

// ErrNoDetector is returned by [Router.Detect] when no detection provider is
// configured.
var ErrNoDetector = errors.New("no language detection provider configured")

// ExhaustedError reports that the override, direct, and pivot strategies all
// failed for a language pair.
type ExhaustedError struct {
	SourceLang string
	TargetLang string
	Attempts   []provider.Attempt
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("translate %s->%s: %v after %d attempts",
		e.SourceLang, e.TargetLang, ErrExhausted, len(e.Attempts))
}

// Unwrap exposes [ErrExhausted] for errors.Is checks.
func (e *ExhaustedError) Unwrap() error { return ErrExhausted }

// PairFactory builds a translation provider for a hosted pair model. The
// default factory constructs Hugging Face adapters; tests inject mocks.
type PairFactory func(model string) mt.Provider

// Config holds the router's construction parameters.
type Config struct {
	// HFToken authenticates the default Hugging Face pair factory. Ignored
	// when PairFactory is set.
	HFToken string

	// PairFactory overrides how per-pair providers are built.
	PairFactory PairFactory

	// Cloud is the dedicated cloud translation provider used by the
	// language-pair override table. Optional.
	Cloud mt.Provider

	// LLM is an optional prompted-translation provider appended to every
	// chain as the last candidate.
	LLM mt.Provider

	// Overrides maps a language code to a provider name ("gcloud"); any pair
	// touching a listed language tries that provider before the generic
	// chain. Nil means [DefaultOverrideLanguages].
	Overrides map[string]string

	// Detectors is the language detection chain. Optional; Detect fails
	// with ErrNoDetector when empty.
	Detectors *resilience.Chain[detect.Provider]

	// Breaker configures the per-provider circuit breakers.
	Breaker resilience.BreakerConfig
}

// Router picks a translation strategy per language pair. Chains are built
// lazily and cached per pair so circuit breaker state carries across jobs.
//
// Router is safe for concurrent use.
type Router struct {
	factory    PairFactory
	cloud      mt.Provider
	llm        mt.Provider
	overrides  map[string]string
	detectors  *resilience.Chain[detect.Provider]
	breakerCfg resilience.BreakerConfig

	mu     sync.Mutex
	chains map[string]*resilience.Chain[mt.Provider]
}

// NewRouter creates a [Router] from cfg.
func NewRouter(cfg Config) *Router {
	factory := cfg.PairFactory
	if factory == nil {
		token := cfg.HFToken
		factory = func(model string) mt.Provider {
			p, err := mthf.New(token, model)
			if err != nil {
				// Only reachable with an empty model name, which the
				// tables never produce.
				panic(fmt.Sprintf("translate: build pair provider: %v", err))
			}
			return p
		}
	}
	overrides := cfg.Overrides
	if overrides == nil {
		overrides = DefaultOverrideLanguages
	}
	return &Router{
		factory:    factory,
		cloud:      cfg.Cloud,
		llm:        cfg.LLM,
		overrides:  overrides,
		detectors:  cfg.Detectors,
		breakerCfg: cfg.Breaker,
		chains:     make(map[string]*resilience.Chain[mt.Provider]),
	}
}

// Translate routes text through the strategy ladder and returns the
// translated text plus the full attempt trail. It returns an
// [*ExhaustedError] only after the direct chain and (when applicable) the
// English pivot both fail. Same-language pairs are the caller's concern; the
// router always translates.
func (r *Router) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, []provider.Attempt, error) {
	result, attempts, err := resilience.Run(r.pairChain(sourceLang, targetLang), func(p mt.Provider) (string, error) {
		return p.Translate(ctx, text, sourceLang, targetLang)
	})
	if err == nil {
		return result, attempts, nil
	}

	if sourceLang != pivotLang && targetLang != pivotLang {
		pivoted, pivotAttempts, pivotErr := r.pivot(ctx, text, sourceLang, targetLang)
		attempts = append(attempts, pivotAttempts...)
		if pivotErr == nil {
			slog.Info("translation pivoted through english",
				"source", sourceLang, "target", targetLang)
			return pivoted, attempts, nil
		}
	}

	return "", attempts, &ExhaustedError{
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Attempts:   attempts,
	}
}

// pivot translates sourceLang -> en -> targetLang. Both legs must succeed.
func (r *Router) pivot(ctx context.Context, text, sourceLang, targetLang string) (string, []provider.Attempt, error) {
	intermediate, attempts, err := resilience.Run(r.pairChain(sourceLang, pivotLang), func(p mt.Provider) (string, error) {
		return p.Translate(ctx, text, sourceLang, pivotLang)
	})
	if err != nil {
		return "", attempts, fmt.Errorf("pivot leg %s->%s: %w", sourceLang, pivotLang, err)
	}

	result, legAttempts, err := resilience.Run(r.pairChain(pivotLang, targetLang), func(p mt.Provider) (string, error) {
		return p.Translate(ctx, intermediate, pivotLang, targetLang)
	})
	attempts = append(attempts, legAttempts...)
	if err != nil {
		return "", attempts, fmt.Errorf("pivot leg %s->%s: %w", pivotLang, targetLang, err)
	}
	return result, attempts, nil
}

// Detect runs the language detection chain on text.
func (r *Router) Detect(ctx context.Context, text string) (string, []provider.Attempt, error) {
	if r.detectors == nil || r.detectors.Len() == 0 {
		return "", nil, ErrNoDetector
	}
	return resilience.Run(r.detectors, func(p detect.Provider) (string, error) {
		return p.Detect(ctx, text)
	})
}

// pairChain returns the cached provider chain for a language pair, building
// it on first use. Candidate order encodes the routing policy: cloud
// override first (when the pair touches an override language), then the
// direct hosted pair model, then the LLM tail.
func (r *Router) pairChain(sourceLang, targetLang string) *resilience.Chain[mt.Provider] {
	key := sourceLang + ">" + targetLang

	r.mu.Lock()
	defer r.mu.Unlock()

	if chain, ok := r.chains[key]; ok {
		return chain
	}

	chain := resilience.NewChain[mt.Provider](resilience.ChainConfig{
		Capability: provider.CapabilityTranslate,
		Breaker:    r.breakerCfg,
	})
	if r.cloud != nil && (r.overrides[sourceLang] != "" || r.overrides[targetLang] != "") {
		chain.Add("gcloud/translate", r.cloud)
	}
	model := pairModel(sourceLang, targetLang)
	chain.Add("hf/"+model, r.factory(model))
	if r.llm != nil {
		chain.Add("llm", r.llm)
	}

	r.chains[key] = chain
	return chain
}
