package align

import (
	"strings"
	"unicode"
)

// ReferenceWords tokenizes reference text of a whitespace-delimited language:
// lowercase, split on whitespace, trim leading and trailing punctuation from
// each token, and drop tokens that end up empty.
func ReferenceWords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := trimPunct(f); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Normalize returns the comparison key of a single word: lowercased, with
// leading and trailing punctuation and whitespace removed.
func Normalize(word string) string {
	return trimPunct(strings.ToLower(word))
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}
