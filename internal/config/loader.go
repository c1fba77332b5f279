package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"replay"},
}

// Default values applied by [ApplyDefaults].
const (
	DefaultListenAddr        = ":8080"
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultMaxBodyBytes      = 8 << 20
	DefaultLanguage          = "en-US"
	DefaultPhoneticThreshold = 0.70
	DefaultConcurrency       = 4
	DefaultMaxTokens         = 256
	DefaultScorerTimeout     = 30 * time.Second
	DefaultServiceName       = "lectio"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. Unknown keys are rejected. An empty document yields
// the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields of cfg with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Assessment.Language == "" {
		cfg.Assessment.Language = DefaultLanguage
	}
	if cfg.Assessment.Differ == "" {
		cfg.Assessment.Differ = DifferMyers
	}
	if cfg.Assessment.PhoneticThreshold == 0 {
		cfg.Assessment.PhoneticThreshold = DefaultPhoneticThreshold
	}
	if cfg.Assessment.Concurrency == 0 {
		cfg.Assessment.Concurrency = DefaultConcurrency
	}
	if cfg.Content.MaxTokens == 0 {
		cfg.Content.MaxTokens = DefaultMaxTokens
	}
	if cfg.Content.Timeout == 0 {
		cfg.Content.Timeout = DefaultScorerTimeout
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
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
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout %v must not be negative", cfg.Server.ShutdownTimeout))
	}
	if cfg.Server.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes %d must not be negative", cfg.Server.MaxBodyBytes))
	}

	// Providers
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	for i, fb := range cfg.Providers.LLMFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("llm", fb.Name)
	}
	if len(cfg.Providers.LLMFallbacks) > 0 && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm_fallbacks requires providers.llm"))
	}

	// Assessment
	if cfg.Assessment.Differ != "" && !cfg.Assessment.Differ.IsValid() {
		errs = append(errs, fmt.Errorf("assessment.differ %q is invalid; valid values: myers, lcs", cfg.Assessment.Differ))
	}
	if t := cfg.Assessment.PhoneticThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("assessment.phonetic_threshold %.2f is out of range [0, 1]", t))
	}
	if cfg.Assessment.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("assessment.concurrency %d must not be negative", cfg.Assessment.Concurrency))
	}

	// Content
	if t := cfg.Content.Temperature; t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("content.temperature %.2f is out of range [0, 2]", t))
	}
	if cfg.Content.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("content.max_tokens %d must not be negative", cfg.Content.MaxTokens))
	}
	if cfg.Content.Enabled && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("content.enabled requires an LLM provider but providers.llm is not configured"))
	}

	// Store
	if cfg.Store.PostgresDSN == "" {
		slog.Debug("store.postgres_dsn is empty; reports are kept in memory only")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("config: unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
