// Package app wires all Voxlate subsystems into a running server.
//
// The App struct owns the full lifecycle: New builds the provider chains,
// the translation router, the synthesizer, and the HTTP surface from the
// config; Run serves until the context is cancelled; Shutdown drains the
// HTTP server.
//
// For testing, inject a fake job runner via [WithRunner]; New then skips
// building the real provider stack behind it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/voxlate/voxlate/internal/config"
	"github.com/voxlate/voxlate/internal/gateway"
	"github.com/voxlate/voxlate/internal/health"
	"github.com/voxlate/voxlate/internal/observe"
	"github.com/voxlate/voxlate/internal/pipeline"
	"github.com/voxlate/voxlate/internal/resilience"
	"github.com/voxlate/voxlate/internal/translate"
	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/detect"
	detectgcloud "github.com/voxlate/voxlate/pkg/provider/detect/gcloud"
	detecthf "github.com/voxlate/voxlate/pkg/provider/detect/hf"
	"github.com/voxlate/voxlate/pkg/provider/mt"
	mtgcloud "github.com/voxlate/voxlate/pkg/provider/mt/gcloud"
	mthf "github.com/voxlate/voxlate/pkg/provider/mt/hf"
	mtllm "github.com/voxlate/voxlate/pkg/provider/mt/llm"
	"github.com/voxlate/voxlate/pkg/provider/stt"
	stthf "github.com/voxlate/voxlate/pkg/provider/stt/hf"
	sttopenai "github.com/voxlate/voxlate/pkg/provider/stt/openai"
	"github.com/voxlate/voxlate/pkg/provider/stt/whisperserver"
	"github.com/voxlate/voxlate/pkg/provider/tts"
	"github.com/voxlate/voxlate/pkg/provider/tts/gtranslate"
	ttshf "github.com/voxlate/voxlate/pkg/provider/tts/hf"
	ttsopenai "github.com/voxlate/voxlate/pkg/provider/tts/openai"
)

// shutdownTimeout bounds the HTTP drain when Run's context is cancelled.
const shutdownTimeout = 10 * time.Second

// App owns the server lifecycle and the wired pipeline behind it.
type App struct {
	cfg     *config.Config
	metrics *observe.Metrics

	sttChain *resilience.Chain[stt.Provider]
	runner   gateway.JobRunner
	server   *http.Server

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithRunner injects a job runner instead of building the provider stack
// from config.
func WithRunner(r gateway.JobRunner) Option {
	return func(a *App) { a.runner = r }
}

// WithMetrics injects a metrics recorder instead of using the process-wide
// default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. Construction is
// synchronous and makes no network calls; providers authenticate lazily on
// first use, so a missing credential degrades the relevant stage instead of
// failing startup. The one exception is the Google Cloud client, which reads
// its credentials file eagerly and fails New when the file is unreadable.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	breaker := resilience.BreakerConfig{
		Trip:     cfg.Resilience.BreakerTrip,
		Cooldown: cfg.Resilience.BreakerCooldown,
		Probes:   cfg.Resilience.BreakerProbes,
	}

	a.sttChain = buildSTTChain(cfg, breaker)

	if a.runner == nil {
		detectors, err := buildDetectChain(ctx, cfg, breaker)
		if err != nil {
			return nil, fmt.Errorf("app: init detection: %w", err)
		}
		router, err := buildRouter(ctx, cfg, detectors, breaker)
		if err != nil {
			return nil, fmt.Errorf("app: init translation: %w", err)
		}
		a.runner = pipeline.New(pipeline.Config{
			STT:                a.sttChain,
			Router:             router,
			Synth:              buildSynthesizer(cfg, breaker),
			Metrics:            a.metrics,
			MinAudioBytes:      cfg.Pipeline.MinAudioBytes,
			DetectFallbackLang: cfg.Pipeline.DetectFallbackLang,
		})
	}

	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.buildHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// buildHandler assembles the HTTP surface: the WebSocket endpoint, the
// health endpoints, and the Prometheus scrape endpoint, all behind the
// request metrics middleware.
func (a *App) buildHandler() http.Handler {
	gw := gateway.New(gateway.Config{
		Runner:         a.runner,
		Metrics:        a.metrics,
		OriginPatterns: a.cfg.Server.AllowedOrigins,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", gw)
	mux.Handle("GET /metrics", promhttp.Handler())

	checker := health.Checker{Name: "providers", Check: a.checkProviders}
	health.New(health.Config{
		HFToken: a.cfg.Providers.HuggingFace.Token,
	}, checker).Register(mux)

	return observe.Middleware(a.metrics)(mux)
}

// checkProviders is the readiness gate: the server is not ready when no
// transcription provider is configured at all.
func (a *App) checkProviders(context.Context) error {
	if a.sttChain.Len() == 0 {
		return errors.New("no transcription providers configured")
	}
	return nil
}

// Handler exposes the full HTTP surface for tests.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
// A clean drain returns nil.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Shutdown(drainCtx)
	})

	return g.Wait()
}

// Shutdown drains the HTTP server. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		slog.Info("shutting down")
		err = a.server.Shutdown(ctx)
	})
	return err
}

// buildSTTChain assembles the transcription fallback chain: the hosted
// whisper models in configured order, then the self-hosted whisper server,
// then the paid OpenAI endpoint.
func buildSTTChain(cfg *config.Config, breaker resilience.BreakerConfig) *resilience.Chain[stt.Provider] {
	chain := resilience.NewChain[stt.Provider](resilience.ChainConfig{
		Capability: provider.CapabilitySTT,
		Breaker:    breaker,
	})

	hf := cfg.Providers.HuggingFace
	for _, model := range cfg.Pipeline.STTModels {
		var hfOpts []stthf.Option
		if hf.BaseURL != "" {
			hfOpts = append(hfOpts, stthf.WithBaseURL(hf.BaseURL))
		}
		p, err := stthf.New(hf.Token, model, hfOpts...)
		if err != nil {
			slog.Warn("skipping transcription model", "model", model, "error", err)
			continue
		}
		chain.Add(p.ID(), p)
	}

	if url := cfg.Providers.WhisperServer.URL; url != "" {
		p, err := whisperserver.New(url)
		if err != nil {
			slog.Warn("skipping whisper server", "url", url, "error", err)
		} else {
			chain.Add(p.ID(), p)
		}
	}

	if key := cfg.Providers.OpenAI.APIKey; key != "" {
		p, err := sttopenai.New(key)
		if err != nil {
			slog.Warn("skipping openai transcription", "error", err)
		} else {
			chain.Add(p.ID(), p)
		}
	}

	return chain
}

// buildDetectChain assembles the language detection chain: the cloud API
// when credentials exist, then the hosted classifier.
func buildDetectChain(ctx context.Context, cfg *config.Config, breaker resilience.BreakerConfig) (*resilience.Chain[detect.Provider], error) {
	chain := resilience.NewChain[detect.Provider](resilience.ChainConfig{
		Capability: provider.CapabilityDetect,
		Breaker:    breaker,
	})

	if creds := cfg.Providers.GoogleCloud.CredentialsFile; creds != "" {
		p, err := detectgcloud.New(ctx, creds)
		if err != nil {
			return nil, fmt.Errorf("create gcloud detector: %w", err)
		}
		chain.Add(p.ID(), p)
	}

	hf := cfg.Providers.HuggingFace
	var hfOpts []detecthf.Option
	if hf.BaseURL != "" {
		hfOpts = append(hfOpts, detecthf.WithBaseURL(hf.BaseURL))
	}
	p := detecthf.New(hf.Token, hfOpts...)
	chain.Add(p.ID(), p)

	return chain, nil
}

// buildRouter assembles the translation router with the optional cloud
// override engine and the optional LLM tail.
func buildRouter(ctx context.Context, cfg *config.Config, detectors *resilience.Chain[detect.Provider], breaker resilience.BreakerConfig) (*translate.Router, error) {
	routerCfg := translate.Config{
		HFToken:   cfg.Providers.HuggingFace.Token,
		Overrides: cfg.Translation.OverrideLanguages,
		Detectors: detectors,
		Breaker:   breaker,
	}

	if base := cfg.Providers.HuggingFace.BaseURL; base != "" {
		token := cfg.Providers.HuggingFace.Token
		routerCfg.PairFactory = func(model string) mt.Provider {
			p, err := mthf.New(token, model, mthf.WithBaseURL(base))
			if err != nil {
				// Only reachable with an empty model name, which the
				// router's tables never produce.
				panic(fmt.Sprintf("app: build pair provider: %v", err))
			}
			return p
		}
	}

	if creds := cfg.Providers.GoogleCloud.CredentialsFile; creds != "" {
		cloud, err := mtgcloud.New(ctx, creds)
		if err != nil {
			return nil, fmt.Errorf("create gcloud translator: %w", err)
		}
		routerCfg.Cloud = cloud
	}

	if llm := cfg.Providers.LLM; llm.Provider != "" {
		var llmOpts []anyllmlib.Option
		if llm.APIKey != "" {
			llmOpts = append(llmOpts, anyllmlib.WithAPIKey(llm.APIKey))
		}
		p, err := mtllm.New(llm.Provider, llm.Model, llmOpts...)
		if err != nil {
			return nil, fmt.Errorf("create llm translator: %w", err)
		}
		routerCfg.LLM = p
	}

	return translate.NewRouter(routerCfg), nil
}

// buildSynthesizer assembles the speech synthesizer: the free endpoint
// first, hosted voice models from the factory, and the paid OpenAI voice as
// the tail when a key is configured.
func buildSynthesizer(cfg *config.Config, breaker resilience.BreakerConfig) *pipeline.Synthesizer {
	hf := cfg.Providers.HuggingFace
	factory := func(model string) tts.Provider {
		var hfOpts []ttshf.Option
		if hf.BaseURL != "" {
			hfOpts = append(hfOpts, ttshf.WithBaseURL(hf.BaseURL))
		}
		p, err := ttshf.New(hf.Token, model, hfOpts...)
		if err != nil {
			// Only reachable with an empty model name, which the voice
			// tables never produce.
			panic(fmt.Sprintf("app: build tts provider: %v", err))
		}
		return p
	}

	var tail []pipeline.TTSEntry
	if oai := cfg.Providers.OpenAI; oai.APIKey != "" {
		var oaiOpts []ttsopenai.Option
		if oai.TTSModel != "" {
			oaiOpts = append(oaiOpts, ttsopenai.WithModel(oai.TTSModel))
		}
		if oai.TTSVoice != "" {
			oaiOpts = append(oaiOpts, ttsopenai.WithVoice(oai.TTSVoice))
		}
		p, err := ttsopenai.New(oai.APIKey, oaiOpts...)
		if err != nil {
			slog.Warn("skipping openai speech", "error", err)
		} else {
			tail = append(tail, pipeline.TTSEntry{ID: p.ID(), Provider: p})
		}
	}

	return pipeline.NewSynthesizer(pipeline.SynthConfig{
		Free:    gtranslate.New(),
		Factory: factory,
		Tail:    tail,
		Breaker: breaker,
	})
}
