package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/lectio/pkg/provider/llm"
	"github.com/MrWong99/lectio/pkg/types"
)

func TestConvertMessage_Roles(t *testing.T) {
	t.Parallel()

	sys, err := convertMessage(types.Message{Role: "system", Content: "You are a teacher."})
	if err != nil || sys.OfSystem == nil {
		t.Fatalf("system: param=%+v err=%v", sys, err)
	}
	usr, err := convertMessage(types.Message{Role: "user", Content: "Grade this."})
	if err != nil || usr.OfUser == nil {
		t.Fatalf("user: param=%+v err=%v", usr, err)
	}
	asst, err := convertMessage(types.Message{Role: "assistant", Content: "{}"})
	if err != nil || asst.OfAssistant == nil {
		t.Fatalf("assistant: param=%+v err=%v", asst, err)
	}
	if _, err := convertMessage(types.Message{Role: "tool", Content: "x"}); err == nil {
		t.Error("expected error for unsupported role")
	}
}

func TestBuildParams(t *testing.T) {
	t.Parallel()

	p := &Provider{model: "gpt-4o"}
	params, err := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "be strict",
		Messages:     []types.Message{{Role: "user", Content: "essay"}},
		Temperature:  0,
		MaxTokens:    256,
		JSONResponse: true,
	})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("len(Messages)=%d, want 2", len(params.Messages))
	}
	if !params.Temperature.Valid() || params.Temperature.Value != 0 {
		t.Errorf("Temperature=%+v, want explicit 0", params.Temperature)
	}
	if params.MaxCompletionTokens.Value != 256 {
		t.Errorf("MaxCompletionTokens=%d, want 256", params.MaxCompletionTokens.Value)
	}
	if params.ResponseFormat.OfJSONObject == nil {
		t.Error("expected JSON object response format")
	}

	if _, err := p.buildParams(llm.CompletionRequest{}); err == nil {
		t.Error("expected error for empty messages")
	}
}

func TestComplete_RoundTrip(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"vocabulary\": 80, \"grammar\": 70, \"topic\": 90}"}
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 9, "total_tokens": 21}
		}`)
	}))
	defer srv.Close()

	p, err := New("sk-test", "gpt-4o", WithBaseURL(srv.URL+"/v1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(resp.Content, `"grammar": 70`) {
		t.Errorf("Content=%q", resp.Content)
	}
	if resp.Usage.TotalTokens != 21 {
		t.Errorf("TotalTokens=%d, want 21", resp.Usage.TotalTokens)
	}
	if gotBody["model"] != "gpt-4o" {
		t.Errorf("request model=%v, want gpt-4o", gotBody["model"])
	}
	if temp, ok := gotBody["temperature"]; !ok || temp != float64(0) {
		t.Errorf("request temperature=%v (present=%v), want 0", temp, ok)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("expected error for empty API key")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Error("expected error for empty model")
	}
	p, err := New("sk-test", "gpt-4o-mini", WithOrganization("org-1"), WithTimeout(0))
	if err != nil {
		t.Fatalf("New with options: %v", err)
	}
	if p.Model() != "gpt-4o-mini" {
		t.Errorf("Model()=%q, want gpt-4o-mini", p.Model())
	}
}
