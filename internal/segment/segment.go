// Package segment splits unspaced reference text (Chinese, Japanese, ...)
// into dictionary words so it can be aligned against recognized words.
//
// The segmenter runs a greedy longest-match pass in each direction over the
// text with punctuation and whitespace stripped, and keeps whichever pass
// produced the more plausible segmentation. Matching works on runes, so
// multi-byte scripts are handled correctly.
package segment

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/lectio/pkg/types"
)

var (
	// ErrEmptyDictionary is returned by New when no usable dictionary word is
	// supplied.
	ErrEmptyDictionary = errors.New("segment: dictionary is empty")

	// ErrEmptyReference is returned by Segment when the reference text has no
	// letters or digits.
	ErrEmptyReference = errors.New("segment: reference text is empty")
)

// Segmenter performs bidirectional longest-match segmentation against a
// fixed dictionary. It is immutable after construction and safe for
// concurrent use.
type Segmenter struct {
	dict      map[string]struct{}
	maxLength int
}

// New builds a Segmenter from dictionary. Empty entries are ignored; at
// least one non-empty entry is required.
func New(dictionary []string) (*Segmenter, error) {
	s := &Segmenter{dict: make(map[string]struct{}, len(dictionary))}
	for _, w := range dictionary {
		if w == "" {
			continue
		}
		s.dict[w] = struct{}{}
		if n := utf8.RuneCountInString(w); n > s.maxLength {
			s.maxLength = n
		}
	}
	if len(s.dict) == 0 {
		return nil, ErrEmptyDictionary
	}
	return s, nil
}

// Len returns the number of distinct dictionary words.
func (s *Segmenter) Len() int { return len(s.dict) }

// Contains reports whether word is in the dictionary.
func (s *Segmenter) Contains(word string) bool {
	_, ok := s.dict[word]
	return ok
}

// Strip removes every rune that is neither a letter nor a digit, including
// whitespace.
func Strip(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, text)
}

// LeftToRight segments text by repeatedly taking the longest dictionary word
// that starts at the current position. When nothing matches, a single rune
// is emitted. The caller is expected to pass stripped text.
func (s *Segmenter) LeftToRight(text string) []string {
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); {
		n := min(s.maxLength, len(runes)-i)
		for ; n > 1; n-- {
			if s.Contains(string(runes[i : i+n])) {
				break
			}
		}
		out = append(out, string(runes[i:i+n]))
		i += n
	}
	return out
}

// RightToLeft is the mirror of LeftToRight: it takes the longest dictionary
// word ending at the current position and walks backwards. The result is in
// reading order.
func (s *Segmenter) RightToLeft(text string) []string {
	runes := []rune(text)
	var rev []string
	for j := len(runes); j > 0; {
		n := min(s.maxLength, j)
		for ; n > 1; n-- {
			if s.Contains(string(runes[j-n : j])) {
				break
			}
		}
		rev = append(rev, string(runes[j-n:j]))
		j -= n
	}
	out := make([]string, len(rev))
	for i, w := range rev {
		out[len(rev)-1-i] = w
	}
	return out
}

// Segment strips text and returns its word segmentation. Both passes are
// computed; the one with fewer tokens wins, then the one with fewer
// single-rune tokens. A full tie resolves to the right-to-left result.
func (s *Segmenter) Segment(text string) ([]string, error) {
	stripped := Strip(text)
	if stripped == "" {
		return nil, ErrEmptyReference
	}

	ltr := s.LeftToRight(stripped)
	rtl := s.RightToLeft(stripped)

	if unknown := s.unknownTokens(ltr); unknown > 0 {
		slog.Debug("segment: left-to-right used single-rune fallback", "unknown", unknown)
	}
	if unknown := s.unknownTokens(rtl); unknown > 0 {
		slog.Debug("segment: right-to-left used single-rune fallback", "unknown", unknown)
	}

	switch {
	case len(ltr) < len(rtl):
		return ltr, nil
	case len(rtl) < len(ltr):
		return rtl, nil
	}
	if singleRuneCount(ltr) < singleRuneCount(rtl) {
		return ltr, nil
	}
	if !slices.Equal(ltr, rtl) {
		slog.Debug("segment: ambiguous segmentation, using right-to-left",
			"left_to_right", ltr, "right_to_left", rtl)
	}
	return rtl, nil
}

func (s *Segmenter) unknownTokens(tokens []string) int {
	n := 0
	for _, t := range tokens {
		if !s.Contains(t) {
			n++
		}
	}
	return n
}

func singleRuneCount(tokens []string) int {
	n := 0
	for _, t := range tokens {
		if utf8.RuneCountInString(t) == 1 {
			n++
		}
	}
	return n
}

// DictionaryFromWords builds a dictionary from a calibration recognition:
// every recognized word except insertions, in order, without duplicates.
func DictionaryFromWords(words []types.Word) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w.ErrorType == types.ErrorInsertion || w.Text == "" {
			continue
		}
		if _, ok := seen[w.Text]; ok {
			continue
		}
		seen[w.Text] = struct{}{}
		out = append(out, w.Text)
	}
	return out
}
