package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/lectio/internal/config"
)

func boolPtr(b bool) *bool { return &b }

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Server:     config.ServerConfig{LogLevel: config.LogInfo},
		Assessment: config.AssessmentConfig{Language: "en-US"},
	}
	if d := config.Diff(cfg, cfg); !d.Empty() {
		t.Errorf("Diff=%+v, want empty", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()

	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("LogLevelChanged=false, want true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel=%q, want debug", d.NewLogLevel)
	}
}

func TestDiff_Assessment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		old  config.AssessmentConfig
		new  config.AssessmentConfig
		want bool
	}{
		{
			name: "nil miscue equals explicit true",
			old:  config.AssessmentConfig{},
			new:  config.AssessmentConfig{Miscue: boolPtr(true)},
			want: false,
		},
		{
			name: "miscue disabled",
			old:  config.AssessmentConfig{},
			new:  config.AssessmentConfig{Miscue: boolPtr(false)},
			want: true,
		},
		{
			name: "language",
			old:  config.AssessmentConfig{Language: "en-US"},
			new:  config.AssessmentConfig{Language: "en-GB"},
			want: true,
		},
		{
			name: "differ",
			old:  config.AssessmentConfig{Differ: config.DifferMyers},
			new:  config.AssessmentConfig{Differ: config.DifferLCS},
			want: true,
		},
		{
			name: "hints",
			old:  config.AssessmentConfig{SubstitutionHints: boolPtr(true)},
			new:  config.AssessmentConfig{SubstitutionHints: boolPtr(false)},
			want: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := config.Diff(&config.Config{Assessment: tc.old}, &config.Config{Assessment: tc.new})
			if d.AssessmentChanged != tc.want {
				t.Errorf("AssessmentChanged=%v, want %v", d.AssessmentChanged, tc.want)
			}
		})
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()

	old := &config.Config{
		Server:    config.ServerConfig{ListenAddr: ":8080"},
		Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "openai"}},
	}
	new := &config.Config{
		Server:    config.ServerConfig{ListenAddr: ":9090"},
		Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "anthropic"}},
		Store:     config.StoreConfig{PostgresDSN: "postgres://db"},
		Content:   config.ContentConfig{Temperature: 0.5},
	}

	d := config.Diff(old, new)
	for _, want := range []string{"server.listen_addr", "providers", "store"} {
		if !slices.Contains(d.RestartRequired, want) {
			t.Errorf("RestartRequired=%v, missing %q", d.RestartRequired, want)
		}
	}
	if slices.Contains(d.RestartRequired, "telemetry") {
		t.Errorf("RestartRequired=%v, telemetry did not change", d.RestartRequired)
	}
	if !d.ContentChanged {
		t.Error("ContentChanged=false, want true")
	}
	if d.Empty() {
		t.Error("Empty=true, want false")
	}
}
