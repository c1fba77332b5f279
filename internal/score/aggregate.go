// Package score turns the per-utterance results of an assessment session
// into whole-session scores.
//
// An Accumulator collects recognized words, prosody scores and the speech
// span as utterances arrive. Once the session is complete and the words have
// been aligned against the reference, Aggregate computes accuracy, prosody,
// completeness, fluency and the overall pronunciation score. Aggregate is a
// pure function: the same inputs always produce the same Report.
package score

import (
	"errors"
	"fmt"

	"github.com/MrWong99/lectio/pkg/types"
)

var (
	// ErrEmptyInput is the parent of every aggregation input error.
	ErrEmptyInput = errors.New("score: empty input")

	// ErrNoWords is returned when no word remains after dropping insertions.
	ErrNoWords = fmt.Errorf("%w: no scorable words", ErrEmptyInput)

	// ErrNoProsody is returned when no utterance contributed a prosody score.
	ErrNoProsody = fmt.Errorf("%w: no prosody scores", ErrEmptyInput)

	// ErrEmptySpan is returned when the speech span is not positive.
	ErrEmptySpan = fmt.Errorf("%w: speech span is empty", ErrEmptyInput)
)

// Weight of each metric, and of the weakest metric again, in the overall
// pronunciation score.
const (
	metricWeight  = 0.2
	minimumWeight = 0.2
)

// Report holds the final scores of a session. All scores are in [0, 100].
type Report struct {
	Accuracy      float64      `json:"accuracy"`
	Prosody       float64      `json:"prosody"`
	Completeness  float64      `json:"completeness"`
	Fluency       float64      `json:"fluency"`
	Pronunciation float64      `json:"pronunciation"`
	Words         []types.Word `json:"words"`
}

// Aggregate computes the session scores from the final word sequence, the
// per-utterance prosody scores and the speech span.
func Aggregate(words []types.Word, prosody []float64, span Span) (Report, error) {
	var (
		scored      int
		accuracySum float64
		correct     int
		spokenTicks int64
	)
	for _, w := range words {
		if w.ErrorType == types.ErrorInsertion {
			continue
		}
		scored++
		accuracySum += w.AccuracyScore
		if w.ErrorType == types.ErrorNone {
			correct++
			spokenTicks += w.Duration
		}
	}
	if scored == 0 {
		return Report{}, ErrNoWords
	}
	if len(prosody) == 0 {
		return Report{}, ErrNoProsody
	}
	if span.Duration() <= 0 {
		return Report{}, fmt.Errorf("%w: start=%d end=%d", ErrEmptySpan, span.Start, span.End)
	}

	r := Report{
		Accuracy:     accuracySum / float64(scored),
		Prosody:      mean(prosody),
		Completeness: min(float64(correct)/float64(scored)*100, 100),
		Fluency:      float64(spokenTicks) / float64(span.Duration()) * 100,
		Words:        append([]types.Word(nil), words...),
	}
	r.Pronunciation = Pronunciation(r.Accuracy, r.Prosody, r.Completeness, r.Fluency)
	return r, nil
}

// Pronunciation combines the four metrics: each contributes 0.2 and the
// weakest contributes another 0.2.
func Pronunciation(accuracy, prosody, completeness, fluency float64) float64 {
	sum := accuracy + prosody + completeness + fluency
	return metricWeight*sum + minimumWeight*min(accuracy, prosody, completeness, fluency)
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
