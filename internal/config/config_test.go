package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/lectio/internal/config"
	"github.com/MrWong99/lectio/pkg/provider/llm"
	llmmock "github.com/MrWong99/lectio/pkg/provider/llm/mock"
	"github.com/MrWong99/lectio/pkg/provider/stt"
	sttmock "github.com/MrWong99/lectio/pkg/provider/stt/mock"
)

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
  shutdown_timeout: 5s

providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  llm_fallbacks:
    - name: ollama
      base_url: http://localhost:11434
      model: llama3.2
  stt:
    name: replay
    options:
      path: testdata/recording.json

assessment:
  language: zh-CN
  miscue: false
  differ: lcs
  phonetic_threshold: 0.8
  concurrency: 2

content:
  enabled: true
  temperature: 0.2
  max_tokens: 128
  circuit_breaker:
    max_failures: 3
    reset_timeout: 1m

store:
  postgres_dsn: "postgres://localhost/lectio"

telemetry:
  service_name: lectio-test
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr=%q, want %q", cfg.Server.ListenAddr, ":9090")
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("LogLevel=%q, want %q", cfg.Server.LogLevel, config.LogDebug)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout=%v, want 5s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model=%q, want gpt-4o-mini", cfg.Providers.LLM.Model)
	}
	if len(cfg.Providers.LLMFallbacks) != 1 || cfg.Providers.LLMFallbacks[0].Name != "ollama" {
		t.Errorf("LLMFallbacks=%+v, want one ollama entry", cfg.Providers.LLMFallbacks)
	}
	if got := config.OptString(cfg.Providers.STT.Options, "path"); got != "testdata/recording.json" {
		t.Errorf("stt path=%q, want testdata/recording.json", got)
	}
	if cfg.Assessment.MiscueEnabled() {
		t.Error("MiscueEnabled=true, want false")
	}
	if !cfg.Assessment.HintsEnabled() {
		t.Error("HintsEnabled=false, want true when omitted")
	}
	if cfg.Assessment.Differ != config.DifferLCS {
		t.Errorf("Differ=%q, want lcs", cfg.Assessment.Differ)
	}
	if cfg.Content.CircuitBreaker.ResetTimeout != time.Minute {
		t.Errorf("ResetTimeout=%v, want 1m", cfg.Content.CircuitBreaker.ResetTimeout)
	}
	// Omitted values receive defaults.
	if cfg.Content.Timeout != config.DefaultScorerTimeout {
		t.Errorf("Content.Timeout=%v, want %v", cfg.Content.Timeout, config.DefaultScorerTimeout)
	}
	if cfg.Server.MaxBodyBytes != config.DefaultMaxBodyBytes {
		t.Errorf("MaxBodyBytes=%d, want %d", cfg.Server.MaxBodyBytes, config.DefaultMaxBodyBytes)
	}
}

func TestLoadFromReader_EmptyUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("ListenAddr=%q, want %q", cfg.Server.ListenAddr, config.DefaultListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("LogLevel=%q, want info", cfg.Server.LogLevel)
	}
	if cfg.Assessment.Language != "en-US" {
		t.Errorf("Language=%q, want en-US", cfg.Assessment.Language)
	}
	if cfg.Assessment.Differ != config.DifferMyers {
		t.Errorf("Differ=%q, want myers", cfg.Assessment.Differ)
	}
	if !cfg.Assessment.MiscueEnabled() {
		t.Error("MiscueEnabled=false, want true by default")
	}
	if cfg.Assessment.PhoneticThreshold != config.DefaultPhoneticThreshold {
		t.Errorf("PhoneticThreshold=%v, want %v", cfg.Assessment.PhoneticThreshold, config.DefaultPhoneticThreshold)
	}
	if cfg.Telemetry.ServiceName != "lectio" {
		t.Errorf("ServiceName=%q, want lectio", cfg.Telemetry.ServiceName)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adr: \":1\"\n"))
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := config.Load("/nonexistent/lectio.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

// ── registry ─────────────────────────────────────────────────────────────────

func TestRegistry_Unknown(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateLLM err=%v, want ErrProviderNotRegistered", err)
	}
	if _, err := reg.CreateSTT(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSTT err=%v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_Registered(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	want := &llmmock.Provider{}
	var gotEntry config.ProviderEntry
	reg.RegisterLLM("fake", func(e config.ProviderEntry) (llm.Provider, error) {
		gotEntry = e
		return want, nil
	})
	reg.RegisterSTT("fake-stt", func(config.ProviderEntry) (stt.Provider, error) {
		return &sttmock.Provider{}, nil
	})

	p, err := reg.CreateLLM(config.ProviderEntry{Name: "fake", Model: "m1"})
	if err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if p != want {
		t.Error("CreateLLM returned a different provider")
	}
	if gotEntry.Model != "m1" {
		t.Errorf("factory entry Model=%q, want m1", gotEntry.Model)
	}
	if _, err := reg.CreateSTT(config.ProviderEntry{Name: "fake-stt"}); err != nil {
		t.Fatalf("CreateSTT: %v", err)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("no key")
	reg := config.NewRegistry()
	reg.RegisterLLM("bad", func(config.ProviderEntry) (llm.Provider, error) {
		return nil, sentinel
	})
	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "bad"}); !errors.Is(err, sentinel) {
		t.Errorf("err=%v, want %v", err, sentinel)
	}
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	for _, n := range []string{"openai", "anthropic", "ollama"} {
		reg.RegisterLLM(n, func(config.ProviderEntry) (llm.Provider, error) { return nil, nil })
	}
	got := reg.Names("llm")
	want := []string{"anthropic", "ollama", "openai"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names(llm)=%v, want %v", got, want)
	}
	if n := reg.Names("tts"); len(n) != 0 {
		t.Errorf("Names(tts)=%v, want empty", n)
	}
}

func TestOptHelpers(t *testing.T) {
	t.Parallel()

	opts := map[string]any{"path": "a.json", "buffer": 32, "bad": 1.5}
	if got := config.OptString(opts, "path"); got != "a.json" {
		t.Errorf("OptString=%q, want a.json", got)
	}
	if got := config.OptString(opts, "buffer"); got != "" {
		t.Errorf("OptString(non-string)=%q, want empty", got)
	}
	if got := config.OptInt(opts, "buffer"); got != 32 {
		t.Errorf("OptInt=%d, want 32", got)
	}
	if got := config.OptInt(opts, "bad"); got != 0 {
		t.Errorf("OptInt(float)=%d, want 0", got)
	}
	if got := config.OptString(nil, "path"); got != "" {
		t.Errorf("OptString(nil)=%q, want empty", got)
	}
}
