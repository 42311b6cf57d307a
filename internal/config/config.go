// Package config provides the configuration schema and loader for the
// Voxlate translation server.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity for the Voxlate server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to the corresponding [slog.Level]. Unrecognised or empty
// values map to [slog.LevelInfo].
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure for Voxlate.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Translation TranslationConfig `yaml:"translation"`
	Resilience  ResilienceConfig  `yaml:"resilience"`
}

// ServerConfig holds network and logging settings for the Voxlate server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// AllowedOrigins lists origin patterns permitted to open WebSocket
	// sessions. Empty means same-origin only; "*" allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ProvidersConfig holds credentials and endpoints for the external speech
// and translation services. Every provider is optional; the pipeline builds
// its fallback chains from whichever ones are configured.
type ProvidersConfig struct {
	HuggingFace   HuggingFaceConfig   `yaml:"huggingface"`
	GoogleCloud   GoogleCloudConfig   `yaml:"google_cloud"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	WhisperServer WhisperServerConfig `yaml:"whisper_server"`
	LLM           LLMConfig           `yaml:"llm"`
}

// HuggingFaceConfig configures access to the Hugging Face inference API,
// which backs the hosted transcription, detection, translation, and speech
// models.
type HuggingFaceConfig struct {
	// Token is the inference API token. Usually supplied via the HF_TOKEN
	// environment variable rather than the config file.
	Token string `yaml:"token"`

	// BaseURL overrides the inference API endpoint. Used by tests.
	BaseURL string `yaml:"base_url"`
}

// GoogleCloudConfig configures the Google Cloud Translation API, used for
// language detection and for translating languages the open models handle
// poorly.
type GoogleCloudConfig struct {
	// CredentialsFile is the path to a service account JSON key. Usually
	// supplied via GOOGLE_APPLICATION_CREDENTIALS.
	CredentialsFile string `yaml:"credentials_file"`
}

// OpenAIConfig configures the OpenAI API, used as a paid transcription and
// speech fallback behind the free and hosted providers.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Usually supplied via OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`

	// TTSModel selects the speech model (default "tts-1").
	TTSModel string `yaml:"tts_model"`

	// TTSVoice selects the speech voice (default "alloy").
	TTSVoice string `yaml:"tts_voice"`
}

// WhisperServerConfig configures a self-hosted whisper.cpp-compatible
// transcription server.
type WhisperServerConfig struct {
	// URL is the server's inference endpoint (e.g., "http://localhost:9000").
	// Empty disables the provider.
	URL string `yaml:"url"`
}

// LLMConfig configures an LLM used as a last-resort translation fallback
// when both the hosted models and the cloud API are unavailable.
type LLMConfig struct {
	// Provider selects the LLM backend (e.g., "openai", "ollama").
	// Empty disables the fallback.
	Provider string `yaml:"provider"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`
}

// PipelineConfig tunes the translation pipeline itself.
type PipelineConfig struct {
	// MinAudioBytes is the smallest audio payload accepted for
	// transcription. Smaller payloads are rejected before any provider
	// call. Default: 1000.
	MinAudioBytes int `yaml:"min_audio_bytes"`

	// DetectFallbackLang, when set, is assumed as the source language if
	// every detection provider fails. When empty a detection failure fails
	// the job.
	DetectFallbackLang string `yaml:"detect_fallback_lang"`

	// STTModels lists the hosted transcription models tried in order.
	STTModels []string `yaml:"stt_models"`
}

// TranslationConfig tunes translation routing.
type TranslationConfig struct {
	// OverrideLanguages maps language codes to the engine preferred for
	// pairs involving that language (currently only "gcloud"). Used for
	// languages the open translation models handle poorly.
	OverrideLanguages map[string]string `yaml:"override_languages"`
}

// ResilienceConfig tunes the circuit breakers wrapped around every provider.
type ResilienceConfig struct {
	// BreakerTrip is the consecutive failure count that opens a breaker.
	// Default: 3.
	BreakerTrip int `yaml:"breaker_trip"`

	// BreakerCooldown is how long an open breaker waits before letting
	// probe requests through. Default: 30s.
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`

	// BreakerProbes is the consecutive success count that closes a
	// half-open breaker. Default: 2.
	BreakerProbes int `yaml:"breaker_probes"`
}

// Default returns a [Config] populated with the built-in defaults. Loading a
// config file overlays the file's values on top of these.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Pipeline: PipelineConfig{
			MinAudioBytes: 1000,
			STTModels: []string{
				"openai/whisper-base",
				"openai/whisper-large-v3",
			},
		},
		Translation: TranslationConfig{
			OverrideLanguages: map[string]string{"ko": "gcloud"},
		},
		Resilience: ResilienceConfig{
			BreakerTrip:     3,
			BreakerCooldown: 30 * time.Second,
			BreakerProbes:   2,
		},
	}
}
