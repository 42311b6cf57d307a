package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidLLMProviders lists the LLM backend names the translation fallback
// knows how to construct. Used by [Validate] to warn about likely typos.
var ValidLLMProviders = []string{"openai", "anthropic", "ollama", "gemini", "mistral", "groq"}

// ValidOverrideEngines lists the engines accepted as override_languages
// values.
var ValidOverrideEngines = []string{"gcloud"}

// Load reads the YAML configuration file at path, applies environment
// overrides, and returns a validated [Config]. File values overlay the
// [Default] config, so a partial file is fine.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Environment overrides are not applied. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays the YAML document from r on top of the defaults.
func decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays well-known environment variables on cfg. Environment
// values win over file values, matching the usual twelve-factor deployment
// where credentials live in the environment and tuning lives in the file.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("HF_TOKEN"); v != "" {
		cfg.Providers.HuggingFace.Token = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		cfg.Providers.GoogleCloud.CredentialsFile = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.ListenAddr = ":" + v
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Pipeline
	if cfg.Pipeline.MinAudioBytes < 0 {
		errs = append(errs, fmt.Errorf("pipeline.min_audio_bytes %d is negative", cfg.Pipeline.MinAudioBytes))
	}
	if len(cfg.Pipeline.STTModels) == 0 {
		errs = append(errs, errors.New("pipeline.stt_models must list at least one model"))
	}

	// Resilience
	if cfg.Resilience.BreakerTrip < 0 {
		errs = append(errs, fmt.Errorf("resilience.breaker_trip %d is negative", cfg.Resilience.BreakerTrip))
	}
	if cfg.Resilience.BreakerCooldown < 0 {
		errs = append(errs, fmt.Errorf("resilience.breaker_cooldown %s is negative", cfg.Resilience.BreakerCooldown))
	}

	// LLM fallback needs both halves of its identity.
	if cfg.Providers.LLM.Provider != "" && cfg.Providers.LLM.Model == "" {
		errs = append(errs, errors.New("providers.llm.model is required when providers.llm.provider is set"))
	}
	if cfg.Providers.LLM.Provider != "" && !slices.Contains(ValidLLMProviders, cfg.Providers.LLM.Provider) {
		slog.Warn("unknown LLM provider name, may be a typo",
			"name", cfg.Providers.LLM.Provider,
			"known", ValidLLMProviders,
		)
	}

	// Override engine names
	for lang, engine := range cfg.Translation.OverrideLanguages {
		if !slices.Contains(ValidOverrideEngines, engine) {
			errs = append(errs, fmt.Errorf("translation.override_languages[%q] engine %q is invalid; valid values: gcloud", lang, engine))
		}
	}

	// Availability warnings. None of these are fatal: the pipeline degrades
	// per stage, but an operator should know what they are running without.
	if cfg.Providers.HuggingFace.Token == "" {
		slog.Warn("providers.huggingface.token is empty; hosted models will be unavailable and most pipeline stages will degrade")
	}
	if cfg.Providers.GoogleCloud.CredentialsFile == "" {
		slog.Warn("google cloud is not configured; language detection will rely on hosted models only")
	}

	return errors.Join(errs...)
}
