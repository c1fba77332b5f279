// Package content grades the content of a spoken essay with a chat model.
//
// The [Scorer] sends the recognized transcript and the essay title to an
// [llm.Provider] with a rubric that asks for vocabulary, grammar and topic
// relevance scores in the range 0-100. The transcript comes from speech
// recognition, so the prompt tells the model to restore punctuation and
// ignore fillers before grading.
//
// Scoring is optional and non-fatal: every failure wraps
// [ErrScorerUnavailable] so callers can record it next to an otherwise
// complete pronunciation report.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/lectio/internal/observe"
	"github.com/MrWong99/lectio/pkg/provider/llm"
	"github.com/MrWong99/lectio/pkg/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrScorerUnavailable is wrapped by every error returned from
// [Scorer.Score].
var ErrScorerUnavailable = errors.New("content: scorer unavailable")

// ErrEmptyTranscript is returned when there is nothing to grade.
var ErrEmptyTranscript = fmt.Errorf("%w: empty transcript", ErrScorerUnavailable)

const systemPrompt = `You are an English teacher. Grade a student's essay on vocabulary, grammar and topic relevance, where topic relevance is how well the essay aligns with its title.

The essay is a speech recognition transcript. Before grading:
- add punctuation where it is needed,
- remove duplicated words and fillers such as "uh" and "um",
- then find misused words and grammar errors as well as advanced words and grammar usages.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{"vocabulary": <0-100>, "grammar": <0-100>, "topic": <0-100>}`

// Scores holds the three content scores, each in [0, 100].
type Scores struct {
	Vocabulary float64 `json:"vocabulary"`
	Grammar    float64 `json:"grammar"`
	Topic      float64 `json:"topic"`
}

// llmResponse is the expected JSON structure returned by the model. Pointers
// distinguish missing keys from zero scores.
type llmResponse struct {
	Vocabulary *float64 `json:"vocabulary"`
	Grammar    *float64 `json:"grammar"`
	Topic      *float64 `json:"topic"`
}

// Option is a functional option for configuring a [Scorer].
type Option func(*Scorer)

// WithTemperature sets the sampling temperature. Default: 0.
func WithTemperature(temp float64) Option {
	return func(s *Scorer) {
		s.temperature = temp
	}
}

// WithMaxTokens caps the completion length. Default: 256.
func WithMaxTokens(n int) Option {
	return func(s *Scorer) {
		s.maxTokens = n
	}
}

// WithProviderName sets the provider label used on scorer metrics.
func WithProviderName(name string) Option {
	return func(s *Scorer) {
		s.providerName = name
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scorer) {
		s.metrics = m
	}
}

// Scorer grades essay content through an [llm.Provider]. It is safe for
// concurrent use.
type Scorer struct {
	llm          llm.Provider
	temperature  float64
	maxTokens    int
	providerName string
	metrics      *observe.Metrics
}

// New returns a [Scorer] backed by provider.
func New(provider llm.Provider, opts ...Option) *Scorer {
	s := &Scorer{
		llm:          provider,
		maxTokens:    256,
		providerName: "llm",
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Score grades transcript against title. The returned error, if any, wraps
// [ErrScorerUnavailable].
func (s *Scorer) Score(ctx context.Context, transcript, title string) (*Scores, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}

	ctx, span := observe.StartSpan(ctx, "content.Score")
	defer span.End()
	span.SetAttributes(
		attribute.String("scorer.provider", s.providerName),
		attribute.Int("transcript.length", len(transcript)),
	)

	start := time.Now()
	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []types.Message{
			{Role: "user", Content: userMessage(transcript, title)},
		},
		Temperature:  s.temperature,
		MaxTokens:    s.maxTokens,
		JSONResponse: true,
	})
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		s.metrics.RecordScorerRequest(ctx, s.providerName, "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return nil, fmt.Errorf("%w: complete: %w", ErrScorerUnavailable, err)
	}

	scores, err := parseResponse(resp.Content)
	if err != nil {
		s.metrics.RecordScorerRequest(ctx, s.providerName, "malformed", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed response")
		observe.Logger(ctx).Warn("content: unparseable scorer response",
			"provider", s.providerName,
			"content", resp.Content,
		)
		return nil, err
	}

	s.metrics.RecordScorerRequest(ctx, s.providerName, "ok", time.Since(start))
	observe.Logger(ctx).Debug("content: scored essay",
		"vocabulary", scores.Vocabulary,
		"grammar", scores.Grammar,
		"topic", scores.Topic,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return scores, nil
}

func userMessage(transcript, title string) string {
	if title == "" {
		return fmt.Sprintf("The essay for you to score is %q. It has no title; grade topic relevance against the essay's own apparent topic.", transcript)
	}
	return fmt.Sprintf("The essay for you to score is %q, and the title is %q.", transcript, title)
}

// parseResponse decodes the model output. All three keys are required and
// values are clamped to [0, 100].
func parseResponse(content string) (*Scores, error) {
	var r llmResponse
	if err := json.Unmarshal([]byte(stripMarkdown(content)), &r); err != nil {
		return nil, fmt.Errorf("%w: parse response: %w", ErrScorerUnavailable, err)
	}

	var missing []string
	if r.Vocabulary == nil {
		missing = append(missing, "vocabulary")
	}
	if r.Grammar == nil {
		missing = append(missing, "grammar")
	}
	if r.Topic == nil {
		missing = append(missing, "topic")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: response missing %s", ErrScorerUnavailable, strings.Join(missing, ", "))
	}

	return &Scores{
		Vocabulary: clamp(*r.Vocabulary),
		Grammar:    clamp(*r.Grammar),
		Topic:      clamp(*r.Topic),
	}, nil
}

func clamp(v float64) float64 {
	return max(0, min(v, 100))
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models wrap around JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
