package score

import (
	"strings"
	"sync"

	"github.com/MrWong99/lectio/pkg/provider/stt"
	"github.com/MrWong99/lectio/pkg/types"
)

// Span is the speech time span of a session in ticks.
type Span struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Duration returns End - Start.
func (s Span) Duration() int64 { return s.End - s.Start }

// Accumulator collects per-utterance results of one assessment session. It
// is safe for concurrent use, but is intended to be fed by a single event
// loop and read once the session has completed.
type Accumulator struct {
	mu sync.Mutex

	words       []types.Word
	prosody     []float64
	transcripts []string
	span        Span
	started     bool
	utterances  int
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add folds one recognized utterance into the session. Utterances without any
// assessed word are ignored entirely.
//
// Each assessed word is paired positionally with the timing word at the same
// index. Its duration is the timing duration plus
// [types.DurationPaddingTicks]; a word with no timing counterpart gets zero
// duration. The session start offset is taken from the first timing word ever
// seen and the end offset is moved to the end of the last timing word of the
// latest utterance.
func (a *Accumulator) Add(u stt.Utterance) {
	assessed := u.Pronunciation.Words
	if len(assessed) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.utterances++
	a.prosody = append(a.prosody, u.Pronunciation.ProsodyScore)

	for k, aw := range assessed {
		w := types.Word{
			Text:          aw.Word,
			ErrorType:     aw.ErrorType,
			AccuracyScore: aw.AccuracyScore,
		}
		if w.ErrorType == "" {
			w.ErrorType = types.ErrorNone
		}
		if k < len(u.Words) {
			w.Duration = u.Words[k].Duration + types.DurationPaddingTicks
			w.Offset = u.Words[k].Offset
		}
		a.words = append(a.words, w)
	}

	if len(u.Words) > 0 {
		if !a.started {
			a.span.Start = u.Words[0].Offset
			a.started = true
		}
		last := u.Words[len(u.Words)-1]
		a.span.End = last.Offset + last.Duration + types.DurationPaddingTicks
	}

	if text := strings.TrimRight(u.Text, "."); text != "" {
		a.transcripts = append(a.transcripts, u.Text)
	}
}

// Snapshot is an immutable copy of the accumulated session data.
type Snapshot struct {
	Words       []types.Word
	Prosody     []float64
	Transcripts []string
	Span        Span
	Utterances  int
}

// Snapshot returns a deep copy of the accumulated data.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Words:       append([]types.Word(nil), a.words...),
		Prosody:     append([]float64(nil), a.prosody...),
		Transcripts: append([]string(nil), a.transcripts...),
		Span:        a.span,
		Utterances:  a.utterances,
	}
}

// Transcript joins the utterance texts with single spaces. It is the text
// handed to the content scorer.
func (s Snapshot) Transcript() string {
	return strings.Join(s.Transcripts, " ")
}
