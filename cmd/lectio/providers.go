package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/lectio/internal/align"
	"github.com/MrWong99/lectio/internal/assess"
	"github.com/MrWong99/lectio/internal/config"
	"github.com/MrWong99/lectio/internal/content"
	"github.com/MrWong99/lectio/internal/observe"
	"github.com/MrWong99/lectio/internal/phonetic"
	"github.com/MrWong99/lectio/internal/resilience"
	"github.com/MrWong99/lectio/pkg/provider/llm"
	"github.com/MrWong99/lectio/pkg/provider/llm/anyllm"
	"github.com/MrWong99/lectio/pkg/provider/llm/openai"
	"github.com/MrWong99/lectio/pkg/provider/stt"
	"github.com/MrWong99/lectio/pkg/provider/stt/replay"
)

// registerBuiltinProviders wires the provider factories that ship with
// Lectio into reg. API keys may reference environment variables
// (e.g. "${OPENAI_API_KEY}").
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai uses the native SDK so JSON mode is available.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := config.OptString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if t := config.OptString(entry.Options, "timeout"); t != "" {
			d, err := time.ParseDuration(t)
			if err != nil {
				return nil, fmt.Errorf("openai: options.timeout: %w", err)
			}
			opts = append(opts, openai.WithTimeout(d))
		}
		p, err := openai.New(os.ExpandEnv(entry.APIKey), entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// Every other vendor goes through any-llm-go: optional API key, optional
	// base URL (ollama, llamacpp and llamafile are local servers).
	for _, vendor := range anyllm.Backends {
		if vendor == "openai" {
			continue
		}
		reg.RegisterLLM(vendor, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if key := os.ExpandEnv(entry.APIKey); key != "" {
				opts = append(opts, anyllmlib.WithAPIKey(key))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			p, err := anyllm.New(vendor, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("replay", func(entry config.ProviderEntry) (stt.Provider, error) {
		path := config.OptString(entry.Options, "path")
		if path == "" {
			return nil, errors.New("replay: options.path is required")
		}
		var opts []replay.Option
		if n := config.OptInt(entry.Options, "buffer"); n > 0 {
			opts = append(opts, replay.WithBuffer(n))
		}
		p, err := replay.New(replay.FromFile(path), opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	for _, kind := range []string{"llm", "stt"} {
		slog.Debug("registered providers", "kind", kind, "names", reg.Names(kind))
	}
}

// deps holds the long-lived collaborators built from config.
type deps struct {
	reg      *config.Registry
	metrics  *observe.Metrics
	llm      llm.Provider // nil when no LLM is configured
	llmNames []string
	scorer   assess.ContentScorer // nil when content scoring is off
	assessor *assess.Assessor
}

// buildDeps instantiates the LLM chain and the assessor described by cfg.
func buildDeps(cfg *config.Config, reg *config.Registry, m *observe.Metrics) (*deps, error) {
	d := &deps{reg: reg, metrics: m}

	if cfg.Providers.LLM.Name != "" {
		chain, names, err := buildLLMChain(cfg, reg)
		if err != nil {
			return nil, err
		}
		d.llm, d.llmNames = chain, names
		slog.Info("provider created", "kind", "llm", "chain", names)
	}

	d.scorer = buildScorer(cfg, d)
	d.assessor = buildAssessor(cfg, d.scorer, m)
	return d, nil
}

// buildLLMChain creates the primary LLM and its fallbacks behind per-backend
// circuit breakers.
func buildLLMChain(cfg *config.Config, reg *config.Registry) (llm.Provider, []string, error) {
	primary, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	if len(cfg.Providers.LLMFallbacks) == 0 {
		return primary, []string{cfg.Providers.LLM.Name}, nil
	}

	cb := cfg.Content.CircuitBreaker
	fb := resilience.NewLLMFallback(primary, cfg.Providers.LLM.Name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  cb.MaxFailures,
			ResetTimeout: cb.ResetTimeout,
			HalfOpenMax:  cb.HalfOpenMax,
		},
	})
	for _, entry := range cfg.Providers.LLMFallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
		}
		fb.AddFallback(entry.Name, p)
	}
	return fb, fb.Names(), nil
}

func buildScorer(cfg *config.Config, d *deps) assess.ContentScorer {
	if !cfg.Content.Enabled || d.llm == nil {
		return nil
	}
	s := content.New(d.llm,
		content.WithTemperature(cfg.Content.Temperature),
		content.WithMaxTokens(cfg.Content.MaxTokens),
		content.WithProviderName(cfg.Providers.LLM.Name),
		content.WithMetrics(d.metrics),
	)
	return timeoutScorer{scorer: s, timeout: cfg.Content.Timeout}
}

func buildAssessor(cfg *config.Config, scorer assess.ContentScorer, m *observe.Metrics) *assess.Assessor {
	var differ align.Differ = align.MyersDiffer{}
	if cfg.Assessment.Differ == config.DifferLCS {
		differ = align.LCSDiffer{}
	}
	var hinter *phonetic.Hinter
	if cfg.Assessment.HintsEnabled() {
		hinter = phonetic.New(phonetic.WithThreshold(cfg.Assessment.PhoneticThreshold))
	}
	opts := []assess.Option{
		assess.WithMiscue(cfg.Assessment.MiscueEnabled()),
		assess.WithClassifier(align.NewClassifier(align.WithDiffer(differ))),
		assess.WithPhonetic(hinter),
		assess.WithLanguage(cfg.Assessment.Language),
		assess.WithMetrics(m),
	}
	if scorer != nil {
		opts = append(opts, assess.WithContentScorer(scorer))
	}
	return assess.New(opts...)
}

// timeoutScorer bounds every scoring call.
type timeoutScorer struct {
	scorer  assess.ContentScorer
	timeout time.Duration
}

func (t timeoutScorer) Score(ctx context.Context, transcript, title string) (*content.Scores, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.scorer.Score(ctx, transcript, title)
}
