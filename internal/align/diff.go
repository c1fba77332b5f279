package align

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op is the kind of an alignment delta.
type Op int

const (
	// Unchanged pairs a reference word with the recognized word it matched.
	Unchanged Op = iota

	// Deleted is a reference word with no recognized counterpart.
	Deleted

	// Inserted is a recognized word with no reference counterpart.
	Inserted

	// Modified is a recognized word that replaced a reference word. Differs
	// that cannot pair replacements never emit it.
	Modified
)

// String returns the lowercase name of the op.
func (o Op) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Deleted:
		return "deleted"
	case Inserted:
		return "inserted"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Delta is one step of the edit script that turns the reference sequence
// into the recognized sequence.
type Delta struct {
	Op Op

	// Reference is the reference word. Empty for Inserted.
	Reference string

	// Recognized is the recognized word. Empty for Deleted.
	Recognized string
}

// Differ computes a minimal edit script between two word sequences.
//
// Implementations must consume both sequences fully and in order: the
// Unchanged, Inserted and Modified deltas together enumerate recognized
// exactly once, and the Unchanged, Deleted and Modified deltas enumerate
// reference exactly once. Within a changed region Deleted deltas come before
// Inserted ones. Implementations must be deterministic.
type Differ interface {
	Diff(reference, recognized []string) []Delta
}

// MyersDiffer computes the edit script with Myers' O(ND) algorithm as
// implemented by diffmatchpatch. Each distinct word is mapped to a private
// rune so the character differ operates on whole words.
type MyersDiffer struct{}

// Diff implements Differ.
func (MyersDiffer) Diff(reference, recognized []string) []Delta {
	codes := make(map[string]rune)
	encode := func(words []string) []rune {
		out := make([]rune, len(words))
		for i, w := range words {
			c, ok := codes[w]
			if !ok {
				// Supplementary planes avoid the surrogate range.
				c = rune(0x10000 + len(codes))
				codes[w] = c
			}
			out[i] = c
		}
		return out
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(encode(reference), encode(recognized), false)

	out := make([]Delta, 0, max(len(reference), len(recognized)))
	ri, si := 0, 0
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		for range n {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				out = append(out, Delta{Op: Unchanged, Reference: reference[ri], Recognized: recognized[si]})
				ri++
				si++
			case diffmatchpatch.DiffDelete:
				out = append(out, Delta{Op: Deleted, Reference: reference[ri]})
				ri++
			case diffmatchpatch.DiffInsert:
				out = append(out, Delta{Op: Inserted, Recognized: recognized[si]})
				si++
			}
		}
	}
	return out
}

var _ Differ = MyersDiffer{}
