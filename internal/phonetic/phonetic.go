// Package phonetic annotates substitution candidates with how close the
// spoken words were to the reference words they replaced.
//
// Two signals are combined:
//
//  1. Double Metaphone codes are computed for every token on both sides. A
//     shared code means the two sides plausibly sound alike.
//  2. Jaro-Winkler similarity on the lowercased strings (full and with spaces
//     removed) gives a graded score in [0, 1].
//
// A substitution is flagged as sounding alike when the codes overlap and the
// similarity reaches the configured threshold. Scripts without a Metaphone
// encoding (e.g. CJK) never sound alike but still get a similarity score.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/lectio/internal/align"
)

const defaultThreshold = 0.70

// Option is a functional option for configuring a [Hinter].
type Option func(*Hinter)

// WithThreshold sets the minimum Jaro-Winkler score for a phonetic overlap to
// count as sounding alike. Default: 0.70.
func WithThreshold(threshold float64) Option {
	return func(h *Hinter) {
		h.threshold = threshold
	}
}

// Hinter scores substitutions. It is read-only after construction and safe
// for concurrent use.
type Hinter struct {
	threshold float64
}

// New returns a Hinter configured with the supplied options.
func New(opts ...Option) *Hinter {
	h := &Hinter{threshold: defaultThreshold}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Compare returns the similarity of spoken to reference and whether they
// sound alike.
func (h *Hinter) Compare(reference, spoken string) (similarity float64, soundsAlike bool) {
	refLower := strings.ToLower(strings.TrimSpace(reference))
	spkLower := strings.ToLower(strings.TrimSpace(spoken))
	if refLower == "" || spkLower == "" {
		return 0, false
	}
	refTokens := strings.Fields(refLower)
	spkTokens := strings.Fields(spkLower)

	similarity = matchr.JaroWinkler(refLower, spkLower, false)
	if len(refTokens) > 1 || len(spkTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(refTokens, ""), strings.Join(spkTokens, ""), false); s > similarity {
			similarity = s
		}
	}

	overlap := codesOverlap(codesForTokens(refTokens), codesForTokens(spkTokens))
	return similarity, overlap && similarity >= h.threshold
}

// Annotate returns a copy of subs with Similarity and SoundsAlike filled in.
func (h *Hinter) Annotate(subs []align.Substitution) []align.Substitution {
	if len(subs) == 0 {
		return nil
	}
	out := make([]align.Substitution, len(subs))
	for i, s := range subs {
		s.Similarity, s.SoundsAlike = h.Compare(s.Reference, s.Spoken)
		out[i] = s
	}
	return out
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
