// Package replay provides an stt.Provider that replays recorded detailed
// recognition results instead of streaming live audio.
//
// Each recorded result is the recognizer's detailed JSON payload for one
// utterance (RecognitionStatus, DisplayText, NBest with per-word timing and
// pronunciation assessment). Input may be a JSON array of results or one
// result per line. Replaying a recording through the normal session
// machinery gives deterministic assessments for batch grading and tests.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/MrWong99/lectio/pkg/provider/stt"
	"github.com/MrWong99/lectio/pkg/types"
)

const defaultBuffer = 64

// Recognition statuses that carry no speech and are skipped during replay.
var silentStatuses = map[string]struct{}{
	"NoMatch":               {},
	"InitialSilenceTimeout": {},
	"BabbleTimeout":         {},
	"EndOfDictation":        {},
}

// Opener returns a fresh reader over a recording. It is called once per
// StartStream.
type Opener func() (io.ReadCloser, error)

// FromFile returns an Opener that reads the recording at path.
func FromFile(path string) Opener {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// FromBytes returns an Opener over an in-memory recording.
func FromBytes(b []byte) Opener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}

// Option is a functional option for configuring the replay Provider.
type Option func(*Provider)

// WithBuffer sets the capacity of the session event channel. Default: 64.
func WithBuffer(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// WithSessionID sets the session identifier reported on every event.
func WithSessionID(id string) Option {
	return func(p *Provider) {
		p.sessionID = id
	}
}

// Provider implements stt.Provider by replaying a recording.
type Provider struct {
	open      Opener
	buffer    int
	sessionID string
}

// New creates a replay Provider reading its recording from open.
func New(open Opener, opts ...Option) (*Provider, error) {
	if open == nil {
		return nil, errors.New("replay: opener must not be nil")
	}
	p := &Provider{open: open, buffer: defaultBuffer}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// StartStream parses the recording and starts emitting its events. The
// stream config is accepted for interface compatibility; the recording
// already reflects the assessment that was run.
func (p *Provider) StartStream(ctx context.Context, _ stt.StreamConfig) (stt.SessionHandle, error) {
	rc, err := p.open()
	if err != nil {
		return nil, fmt.Errorf("replay: open recording: %w", err)
	}
	defer rc.Close()

	results, err := ParseResults(rc)
	if err != nil {
		return nil, err
	}

	s := &session{
		events: make(chan stt.Event, p.buffer),
		done:   make(chan struct{}),
	}
	go s.run(ctx, p.sessionID, results)
	return s, nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)

// ---- session ----

type session struct {
	events chan stt.Event
	done   chan struct{}
	once   sync.Once
}

// SendAudio discards audio; the recording is the source of truth.
func (s *session) SendAudio(_ []byte) error {
	select {
	case <-s.done:
		return stt.ErrSessionClosed
	default:
		return nil
	}
}

func (s *session) Events() <-chan stt.Event { return s.events }

func (s *session) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *session) run(ctx context.Context, sessionID string, results []Result) {
	defer close(s.events)

	if !s.emit(ctx, stt.Event{Kind: stt.EventStarted, SessionID: sessionID}) {
		return
	}
	for _, r := range results {
		ev, ok := r.Event()
		if !ok {
			continue
		}
		ev.SessionID = sessionID
		if !s.emit(ctx, ev) {
			return
		}
		if ev.Kind.Terminal() {
			return
		}
	}
	s.emit(ctx, stt.Event{Kind: stt.EventStopped, SessionID: sessionID})
}

// emit delivers ev unless the session was closed or ctx is done.
func (s *session) emit(ctx context.Context, ev stt.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// ---- recorded result format ----

// Result is one recorded detailed recognition result.
type Result struct {
	ID                string  `json:"Id"`
	RecognitionStatus string  `json:"RecognitionStatus"`
	Offset            int64   `json:"Offset"`
	Duration          int64   `json:"Duration"`
	DisplayText       string  `json:"DisplayText"`
	NBest             []NBest `json:"NBest"`
}

// NBest is one recognition hypothesis.
type NBest struct {
	Confidence              float64         `json:"Confidence"`
	Lexical                 string          `json:"Lexical"`
	Display                 string          `json:"Display"`
	PronunciationAssessment utteranceScores `json:"PronunciationAssessment"`
	Words                   []RecordedWord  `json:"Words"`
}

type utteranceScores struct {
	AccuracyScore     float64 `json:"AccuracyScore"`
	FluencyScore      float64 `json:"FluencyScore"`
	ProsodyScore      float64 `json:"ProsodyScore"`
	CompletenessScore float64 `json:"CompletenessScore"`
	PronScore         float64 `json:"PronScore"`
}

// RecordedWord is one word of a hypothesis with timing and assessment.
type RecordedWord struct {
	Word                    string `json:"Word"`
	Offset                  int64  `json:"Offset"`
	Duration                int64  `json:"Duration"`
	PronunciationAssessment struct {
		AccuracyScore float64         `json:"AccuracyScore"`
		ErrorType     types.ErrorType `json:"ErrorType"`
	} `json:"PronunciationAssessment"`
}

// Event converts r into the event a live session would have delivered.
// Silent results report ok == false.
func (r Result) Event() (ev stt.Event, ok bool) {
	switch {
	case r.RecognitionStatus == "Success" || r.RecognitionStatus == "":
		u := r.Utterance()
		return stt.Event{Kind: stt.EventRecognized, Utterance: &u}, true
	default:
		if _, silent := silentStatuses[r.RecognitionStatus]; silent {
			return stt.Event{}, false
		}
		return stt.Event{
			Kind: stt.EventCanceled,
			Cancellation: &stt.Cancellation{
				Reason:       "Error",
				ErrorCode:    r.RecognitionStatus,
				ErrorDetails: fmt.Sprintf("recognition status %q", r.RecognitionStatus),
			},
		}, true
	}
}

// Utterance converts the best hypothesis of r into an [stt.Utterance].
func (r Result) Utterance() stt.Utterance {
	u := stt.Utterance{Text: r.DisplayText}
	if len(r.NBest) == 0 {
		return u
	}
	best := r.NBest[0]
	if u.Text == "" {
		u.Text = best.Display
	}
	pa := best.PronunciationAssessment
	u.Pronunciation = stt.PronunciationResult{
		AccuracyScore:      pa.AccuracyScore,
		ProsodyScore:       pa.ProsodyScore,
		PronunciationScore: pa.PronScore,
		CompletenessScore:  pa.CompletenessScore,
		FluencyScore:       pa.FluencyScore,
		Words:              make([]stt.AssessedWord, 0, len(best.Words)),
	}
	u.Words = make([]stt.WordTiming, 0, len(best.Words))
	for _, w := range best.Words {
		et := w.PronunciationAssessment.ErrorType
		if et == "" {
			et = types.ErrorNone
		}
		u.Words = append(u.Words, stt.WordTiming{Word: w.Word, Offset: w.Offset, Duration: w.Duration})
		u.Pronunciation.Words = append(u.Pronunciation.Words, stt.AssessedWord{
			Word:          w.Word,
			ErrorType:     et,
			AccuracyScore: w.PronunciationAssessment.AccuracyScore,
		})
	}
	return u
}

// ParseResults decodes a recording given either as a JSON array of results
// or as one JSON result per line.
func ParseResults(r io.Reader) ([]Result, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("replay: read recording: %w", err)
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var results []Result
		if err := dec.Decode(&results); err != nil {
			return nil, fmt.Errorf("replay: decode result array: %w", err)
		}
		return results, nil
	}

	var results []Result
	for {
		var res Result
		err := dec.Decode(&res)
		if errors.Is(err, io.EOF) {
			return results, nil
		}
		if err != nil {
			return nil, fmt.Errorf("replay: decode result %d: %w", len(results), err)
		}
		results = append(results, res)
	}
}

// ParseUtterance decodes a single recorded result into an utterance. It is
// used for calibration recordings.
func ParseUtterance(data []byte) (stt.Utterance, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return stt.Utterance{}, fmt.Errorf("replay: decode result: %w", err)
	}
	return r.Utterance(), nil
}

// peekNonSpace returns the first non-whitespace byte without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := br.ReadByte(); err != nil {
				return 0, err
			}
		default:
			return b[0], nil
		}
	}
}
