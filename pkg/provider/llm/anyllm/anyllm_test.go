package anyllm

import (
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/lectio/pkg/provider/llm"
	"github.com/MrWong99/lectio/pkg/types"
)

func TestConvertMessage(t *testing.T) {
	got := convertMessage(types.Message{Role: "user", Content: "Hello!"})
	if got.Role != "user" {
		t.Errorf("Role=%q, want user", got.Role)
	}
	if got.ContentString() != "Hello!" {
		t.Errorf("ContentString()=%q, want %q", got.ContentString(), "Hello!")
	}
}

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "llama3", vendor: "ollama"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "grade strictly",
		Messages:     []types.Message{{Role: "user", Content: "essay"}},
		MaxTokens:    128,
	})

	if params.Model != "llama3" {
		t.Errorf("Model=%q, want llama3", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("len(Messages)=%d, want 2", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("Messages[0].Role=%q, want system", params.Messages[0].Role)
	}
	// A zero temperature is still forwarded so scoring stays greedy.
	if params.Temperature == nil || *params.Temperature != 0 {
		t.Errorf("Temperature=%v, want pointer to 0", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 128 {
		t.Errorf("MaxTokens=%v, want 128", params.MaxTokens)
	}
}

func TestBuildParams_NoMaxTokens(t *testing.T) {
	p := &Provider{model: "m"}
	params := p.buildParams(llm.CompletionRequest{Messages: []types.Message{{Role: "user", Content: "x"}}})
	if params.MaxTokens != nil {
		t.Errorf("MaxTokens=%v, want nil", *params.MaxTokens)
	}
	if len(params.Messages) != 1 {
		t.Errorf("len(Messages)=%d, want 1", len(params.Messages))
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("expected error for empty vendor")
	}
	if _, err := New("openai", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("fakecloud", "some-model", anyllmlib.WithAPIKey("dummy")); err == nil {
		t.Error("expected error for unsupported vendor")
	}
}

func TestNew_Constructors(t *testing.T) {
	tests := []struct {
		name   string
		fn     func() (*Provider, error)
		vendor string
	}{
		{"openai", func() (*Provider, error) { return New("OpenAI", "gpt-4o", anyllmlib.WithAPIKey("sk-test")) }, "openai"},
		{"anthropic", func() (*Provider, error) {
			return NewAnthropic("claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-test"))
		}, "anthropic"},
		{"ollama", func() (*Provider, error) { return NewOllama("llama3") }, "ollama"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.fn()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Vendor() != tt.vendor {
				t.Errorf("Vendor()=%q, want %q", p.Vendor(), tt.vendor)
			}
		})
	}
}

func TestSupports(t *testing.T) {
	for _, name := range []string{"openai", "Anthropic", "ollama"} {
		if !Supports(name) {
			t.Errorf("Supports(%q)=false, want true", name)
		}
	}
	if Supports("fakecloud") {
		t.Error("Supports(fakecloud)=true, want false")
	}
}
