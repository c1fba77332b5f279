// Package assess runs read-aloud pronunciation assessments.
//
// An [Assessor] holds the assessment configuration shared by all sessions:
// the miscue switch, the alignment classifier, the optional phonetic hinter
// and content scorer, and the metrics sink. [Assessor.Start] opens a
// recognition stream and returns a [Session] that folds every recognized
// utterance into its own accumulator. Once the stream ends, [Session.Finalize]
// segments the reference, aligns the recognized words against it and
// aggregates the final [Report].
//
// Sessions never share state; any number may run concurrently on one
// Assessor.
package assess

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/lectio/internal/align"
	"github.com/MrWong99/lectio/internal/content"
	"github.com/MrWong99/lectio/internal/observe"
	"github.com/MrWong99/lectio/internal/phonetic"
	"github.com/MrWong99/lectio/internal/score"
	"github.com/MrWong99/lectio/internal/segment"
	"github.com/MrWong99/lectio/pkg/provider/stt"
	"github.com/google/uuid"
)

// ErrNoProvider is returned by Start when no recognizer is given.
var ErrNoProvider = errors.New("assess: recognizer provider is nil")

// ContentScorer grades the content of a transcript. It is satisfied by
// [*content.Scorer].
type ContentScorer interface {
	Score(ctx context.Context, transcript, title string) (*content.Scores, error)
}

// Option is a functional option for configuring an [Assessor].
type Option func(*Assessor)

// WithMiscue enables or disables omission/insertion classification. When
// disabled, the recognized words are scored verbatim. Default: true.
func WithMiscue(enabled bool) Option {
	return func(a *Assessor) {
		a.miscue = enabled
	}
}

// WithClassifier sets the alignment classifier. Default: a classifier using
// [align.MyersDiffer].
func WithClassifier(c *align.Classifier) Option {
	return func(a *Assessor) {
		if c != nil {
			a.classifier = c
		}
	}
}

// WithPhonetic sets the hinter that annotates substitutions. Nil disables
// substitution hints.
func WithPhonetic(h *phonetic.Hinter) Option {
	return func(a *Assessor) {
		a.hinter = h
	}
}

// WithContentScorer enables content scoring of the session transcript.
func WithContentScorer(s ContentScorer) Option {
	return func(a *Assessor) {
		a.scorer = s
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Assessor) {
		a.metrics = m
	}
}

// WithLanguage sets the default language for requests that leave it empty.
// Default: "en-US".
func WithLanguage(lang string) Option {
	return func(a *Assessor) {
		if lang != "" {
			a.language = lang
		}
	}
}

// Assessor starts assessment sessions. It is safe for concurrent use.
type Assessor struct {
	miscue     bool
	classifier *align.Classifier
	hinter     *phonetic.Hinter
	scorer     ContentScorer
	metrics    *observe.Metrics
	language   string
}

// New creates an [Assessor].
func New(opts ...Option) *Assessor {
	a := &Assessor{
		miscue:     true,
		classifier: align.NewClassifier(),
		hinter:     phonetic.New(),
		language:   "en-US",
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

// Request describes one assessment.
type Request struct {
	// ReferenceText is the text the learner reads aloud.
	ReferenceText string

	// Language is the BCP-47 language tag. Empty uses the Assessor default.
	Language string

	// Title is the essay title handed to the content scorer.
	Title string

	// Miscue overrides the Assessor's miscue setting for this request.
	Miscue *bool

	// Segmenter, when set, splits ReferenceText into dictionary words
	// instead of splitting on whitespace. Use it for languages written
	// without spaces.
	Segmenter *segment.Segmenter
}

// Start opens a recognition stream on provider and begins consuming its
// events. The session ends on the backend's terminal event, when the event
// channel closes, when ctx is cancelled, or on [Session.Close].
func (a *Assessor) Start(ctx context.Context, provider stt.Provider, req Request) (*Session, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	if req.Language == "" {
		req.Language = a.language
	}
	miscue := a.miscue
	if req.Miscue != nil {
		miscue = *req.Miscue
	}

	handle, err := provider.StartStream(ctx, stt.StreamConfig{
		ReferenceText: req.ReferenceText,
		Language:      req.Language,
		EnableMiscue:  miscue,
		EnableProsody: true,
	})
	if err != nil {
		return nil, fmt.Errorf("assess: start stream: %w", err)
	}

	s := newSession(uuid.NewString(), a, req, handle)
	s.miscue = miscue
	go s.run(ctx)
	return s, nil
}

// SegmenterFromCalibration builds a segmenter whose dictionary is taken from
// a calibration recognition of the reference text. Inserted words are left
// out.
func SegmenterFromCalibration(u stt.Utterance) (*segment.Segmenter, error) {
	acc := score.NewAccumulator()
	acc.Add(u)
	dict := segment.DictionaryFromWords(acc.Snapshot().Words)
	seg, err := segment.New(dict)
	if err != nil {
		return nil, fmt.Errorf("assess: calibration: %w", err)
	}
	return seg, nil
}
