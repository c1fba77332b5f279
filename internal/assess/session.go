package assess

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/lectio/internal/align"
	"github.com/MrWong99/lectio/internal/content"
	"github.com/MrWong99/lectio/internal/observe"
	"github.com/MrWong99/lectio/internal/score"
	"github.com/MrWong99/lectio/pkg/provider/stt"
	"github.com/MrWong99/lectio/pkg/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Session outcomes reported on the lectio.sessions metric.
const (
	OutcomeStopped  = "stopped"
	OutcomeCanceled = "canceled"
	OutcomeClosed   = "closed"
	OutcomeAborted  = "aborted"
)

// Report is the result of one assessment session.
type Report struct {
	// ID is the Lectio session identifier.
	ID string `json:"id"`

	// BackendSessionID is the recognizer's session identifier, if reported.
	BackendSessionID string `json:"backend_session_id,omitempty"`

	// Outcome is how the recognition stream ended, empty while running.
	Outcome string `json:"outcome,omitempty"`

	Language  string   `json:"language"`
	Title     string   `json:"title,omitempty"`
	Reference []string `json:"reference"`

	score.Report

	// Substitutions are hints about words read as something else.
	Substitutions []align.Substitution `json:"substitutions,omitempty"`

	// Transcript is the recognized text handed to the content scorer.
	Transcript string `json:"transcript"`

	// Utterances is the number of utterances that carried assessed words.
	Utterances int `json:"utterances"`

	// Content holds the content scores when a scorer is configured and
	// succeeded. ContentErr describes a scorer failure.
	Content    *content.Scores `json:"content,omitempty"`
	ContentErr string          `json:"content_error,omitempty"`

	// Canceled is set when the recognizer ended the session abnormally. The
	// scores then cover the data received before cancellation.
	Canceled *stt.Cancellation `json:"canceled,omitempty"`
}

// Session is one running assessment. All methods are safe for concurrent use.
type Session struct {
	id       string
	assessor *Assessor
	req      Request
	handle   stt.SessionHandle
	acc      *score.Accumulator
	miscue   bool

	done     chan struct{}
	doneOnce sync.Once
	stop     chan struct{}
	stopOnce sync.Once

	mu           sync.Mutex
	outcome      string
	backendID    string
	cancellation *stt.Cancellation

	// Content scoring runs at most once per session.
	contentOnce sync.Once
	content     *content.Scores
	contentErr  error
}

func newSession(id string, a *Assessor, req Request, handle stt.SessionHandle) *Session {
	return &Session{
		id:       id,
		assessor: a,
		req:      req,
		handle:   handle,
		acc:      score.NewAccumulator(),
		done:     make(chan struct{}),
		stop:     make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SendAudio forwards a chunk of PCM audio to the recognizer.
func (s *Session) SendAudio(chunk []byte) error {
	return s.handle.SendAudio(chunk)
}

// Done returns a channel that is closed once the session has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session has ended or ctx is done. It returns
// ctx.Err() in the latter case.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcome reports how the session ended, or "" while it is running.
func (s *Session) Outcome() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Close stops consuming events and closes the recognizer session. Data
// received so far is kept; Finalize may still be called. Safe to call more
// than once.
func (s *Session) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.handle.Close()
}

// run drains the recognizer's event channel until the session ends.
func (s *Session) run(ctx context.Context) {
	m := s.assessor.metrics
	m.ActiveSessions.Add(ctx, 1)
	log := observe.SessionLogger(ctx, s.id)

	outcome := OutcomeClosed
	defer func() {
		m.ActiveSessions.Add(context.WithoutCancel(ctx), -1)
		m.RecordSessionEnd(context.WithoutCancel(ctx), outcome)
		s.finish(outcome)
		log.Debug("assess: session ended", "outcome", outcome)
	}()

	events := s.handle.Events()
	for {
		select {
		case <-ctx.Done():
			outcome = OutcomeAborted
			return
		case <-s.stop:
			outcome = OutcomeAborted
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.SessionID != "" {
				s.setBackendID(ev.SessionID)
			}
			switch ev.Kind {
			case stt.EventStarted:
				log.Debug("assess: recognizer session started", "backend_session_id", ev.SessionID)
			case stt.EventRecognized:
				if ev.Utterance == nil {
					continue
				}
				s.acc.Add(*ev.Utterance)
				m.Utterances.Add(ctx, 1)
				log.Debug("assess: utterance recognized",
					"text", ev.Utterance.Text,
					"words", len(ev.Utterance.Pronunciation.Words),
				)
			case stt.EventStopped:
				outcome = OutcomeStopped
				return
			case stt.EventCanceled:
				outcome = OutcomeCanceled
				s.setCancellation(ev.Cancellation)
				log.Warn("assess: recognizer canceled session", "cancellation", ev.Cancellation)
				return
			}
		}
	}
}

func (s *Session) finish(outcome string) {
	s.mu.Lock()
	s.outcome = outcome
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) setBackendID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backendID = id
}

func (s *Session) setCancellation(c *stt.Cancellation) {
	if c == nil {
		c = &stt.Cancellation{Reason: "Unknown"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancellation = c
}

// Finalize computes the report over everything accumulated so far. It is
// normally called after Wait. The pronunciation part is a pure function of
// the accumulated data; the content scorer is consulted at most once per
// session and its result reused, so repeated calls return equal reports.
func (s *Session) Finalize(ctx context.Context) (*Report, error) {
	a := s.assessor
	ctx, span := observe.StartSpan(ctx, "assess.Finalize")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.id))

	start := time.Now()
	snap := s.acc.Snapshot()

	reference, err := s.referenceTokens()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reference")
		return nil, err
	}

	words := snap.Words
	var subs []align.Substitution
	if s.miscue {
		deltas := a.classifier.Deltas(reference, words)
		words = align.Apply(deltas, words)
		subs = align.Substitutions(deltas)
		if a.hinter != nil {
			subs = a.hinter.Annotate(subs)
		}
	}

	scores, err := score.Aggregate(words, snap.Prosody, snap.Span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate")
		return nil, fmt.Errorf("assess: session %s: %w", s.id, err)
	}

	s.mu.Lock()
	rep := &Report{
		ID:               s.id,
		BackendSessionID: s.backendID,
		Outcome:          s.outcome,
		Language:         s.req.Language,
		Title:            s.req.Title,
		Reference:        reference,
		Report:           scores,
		Substitutions:    subs,
		Transcript:       snap.Transcript(),
		Utterances:       snap.Utterances,
		Canceled:         s.cancellation,
	}
	s.mu.Unlock()

	if a.scorer != nil {
		rep.Content, err = s.scoreContent(ctx, rep.Transcript)
		if err != nil {
			rep.ContentErr = err.Error()
			observe.SessionLogger(ctx, s.id).Warn("assess: content scoring failed", "error", err)
		}
	}

	a.metrics.AssessmentDuration.Record(ctx, time.Since(start).Seconds())
	a.metrics.RecordScores(ctx, map[string]float64{
		"accuracy":      rep.Accuracy,
		"prosody":       rep.Prosody,
		"completeness":  rep.Completeness,
		"fluency":       rep.Fluency,
		"pronunciation": rep.Pronunciation,
	})
	omissions, insertions := countMiscues(rep.Words)
	a.metrics.RecordMiscues(ctx, string(types.ErrorOmission), omissions)
	a.metrics.RecordMiscues(ctx, string(types.ErrorInsertion), insertions)

	span.SetAttributes(
		attribute.Float64("score.pronunciation", rep.Pronunciation),
		attribute.Int("words", len(rep.Words)),
	)
	return rep, nil
}

func (s *Session) referenceTokens() ([]string, error) {
	if s.req.Segmenter != nil {
		tokens, err := s.req.Segmenter.Segment(s.req.ReferenceText)
		if err != nil {
			return nil, fmt.Errorf("assess: segment reference: %w", err)
		}
		return tokens, nil
	}
	return align.ReferenceWords(s.req.ReferenceText), nil
}

func (s *Session) scoreContent(ctx context.Context, transcript string) (*content.Scores, error) {
	s.contentOnce.Do(func() {
		s.content, s.contentErr = s.assessor.scorer.Score(ctx, transcript, s.req.Title)
	})
	return s.content, s.contentErr
}

func countMiscues(words []types.Word) (omissions, insertions int) {
	for _, w := range words {
		switch w.ErrorType {
		case types.ErrorOmission:
			omissions++
		case types.ErrorInsertion:
			insertions++
		}
	}
	return omissions, insertions
}
