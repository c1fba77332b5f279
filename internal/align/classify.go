// Package align classifies recognized words against a reference text.
//
// A Differ computes the edit script between the normalized reference words
// and the normalized recognized words. The Classifier then walks that script
// and produces the final word list: matched words as recognized, omitted
// reference words synthesized as Omission entries, and extra spoken words
// marked as Insertion. Order is the only alignment signal; timing is never
// consulted.
package align

import (
	"strings"

	"github.com/MrWong99/lectio/pkg/types"
)

// Option is a functional option for configuring a Classifier.
type Option func(*Classifier)

// WithDiffer sets the edit-script algorithm. Default: MyersDiffer.
func WithDiffer(d Differ) Option {
	return func(c *Classifier) {
		if d != nil {
			c.differ = d
		}
	}
}

// Classifier aligns recognized words against reference words. It holds no
// per-call state and is safe for concurrent use.
type Classifier struct {
	differ Differ
}

// NewClassifier creates a Classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{differ: MyersDiffer{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Deltas returns the edit script between reference and the texts of
// recognized, compared by their normalized form.
func (c *Classifier) Deltas(reference []string, recognized []types.Word) []Delta {
	ref := make([]string, len(reference))
	for i, w := range reference {
		ref[i] = Normalize(w)
	}
	rec := make([]string, len(recognized))
	for i, w := range recognized {
		rec[i] = Normalize(w.Text)
	}
	return c.differ.Diff(ref, rec)
}

// Classify returns the final word list for recognized aligned against
// reference.
func (c *Classifier) Classify(reference []string, recognized []types.Word) []types.Word {
	return Apply(c.Deltas(reference, recognized), recognized)
}

// Apply walks deltas with a cursor into recognized:
//
//   - Unchanged appends the current recognized word unchanged.
//   - Deleted appends a synthesized Omission word for the reference word.
//   - Inserted and Modified append the current recognized word, rewriting an
//     ErrorType of None to Insertion.
//
// deltas must have been computed against recognized.
func Apply(deltas []Delta, recognized []types.Word) []types.Word {
	out := make([]types.Word, 0, len(deltas))
	i := 0
	for _, d := range deltas {
		switch d.Op {
		case Unchanged:
			if i >= len(recognized) {
				continue
			}
			out = append(out, recognized[i])
			i++
		case Deleted:
			out = append(out, types.Word{
				Text:      d.Reference,
				ErrorType: types.ErrorOmission,
			})
		case Inserted, Modified:
			if i >= len(recognized) {
				continue
			}
			w := recognized[i]
			if w.ErrorType == types.ErrorNone {
				w.ErrorType = types.ErrorInsertion
			}
			out = append(out, w)
			i++
		}
	}
	return out
}

// Substitution is a run of omitted reference words immediately followed by a
// run of inserted words, which usually means the reader said something else
// in their place. Substitutions are hints only; they never change the
// classification.
type Substitution struct {
	// Reference is the omitted reference text, space-joined.
	Reference string `json:"reference"`

	// Spoken is the inserted recognized text, space-joined.
	Spoken string `json:"spoken"`

	// Position is the index of the first omitted word in the reference.
	Position int `json:"position"`

	// Similarity is the string similarity of Reference and Spoken in [0, 1].
	Similarity float64 `json:"similarity"`

	// SoundsAlike reports whether the two share a phonetic encoding.
	SoundsAlike bool `json:"sounds_alike"`
}

// Substitutions extracts substitution candidates from deltas.
func Substitutions(deltas []Delta) []Substitution {
	var out []Substitution
	refPos := 0
	for k := 0; k < len(deltas); {
		d := deltas[k]
		switch d.Op {
		case Unchanged:
			refPos++
			k++
			continue
		case Inserted:
			k++
			continue
		case Modified:
			out = append(out, Substitution{Reference: d.Reference, Spoken: d.Recognized, Position: refPos})
			refPos++
			k++
			continue
		}

		start := refPos
		var ref, spoken []string
		for k < len(deltas) && deltas[k].Op == Deleted {
			ref = append(ref, deltas[k].Reference)
			refPos++
			k++
		}
		for k < len(deltas) && deltas[k].Op == Inserted {
			spoken = append(spoken, deltas[k].Recognized)
			k++
		}
		if len(spoken) > 0 {
			out = append(out, Substitution{
				Reference: strings.Join(ref, " "),
				Spoken:    strings.Join(spoken, " "),
				Position:  start,
			})
		}
	}
	return out
}
