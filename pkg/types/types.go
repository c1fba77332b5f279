// Package types defines the shared types used across all Lectio packages.
//
// These types form the lingua franca between the recognizer providers, the
// alignment and scoring stages, persistence, and the HTTP surface. Each
// package keeps its own domain types; data that crosses package boundaries
// lives here to avoid circular imports.
package types

// TicksPerSecond is the number of recognizer ticks in one second. One tick is
// 100 nanoseconds.
const TicksPerSecond = 10_000_000

// DurationPaddingTicks is added to every word duration reported by the
// recognizer, and to the end offset of the last word of an utterance, to
// compensate for truncated word durations.
const DurationPaddingTicks int64 = 100_000

// ErrorType classifies a word relative to the reference text. The string
// values match the recognizer's JSON spelling.
type ErrorType string

const (
	// ErrorNone marks a word that was read as expected.
	ErrorNone ErrorType = "None"

	// ErrorOmission marks a reference word the speaker skipped.
	ErrorOmission ErrorType = "Omission"

	// ErrorInsertion marks a spoken word with no reference counterpart.
	ErrorInsertion ErrorType = "Insertion"
)

// IsValid reports whether e is a recognised error type.
func (e ErrorType) IsValid() bool {
	switch e {
	case ErrorNone, ErrorOmission, ErrorInsertion:
		return true
	}
	return false
}

// Word is a single recognized (or synthesized) word of an assessment session.
type Word struct {
	// Text is the word as recognized, or the reference word for omissions.
	Text string `json:"text"`

	// ErrorType is the miscue classification of the word.
	ErrorType ErrorType `json:"error_type"`

	// AccuracyScore is the backend's pronunciation accuracy (0–100). Only
	// meaningful when ErrorType is [ErrorNone].
	AccuracyScore float64 `json:"accuracy_score"`

	// Duration is the padded word duration in ticks. Zero for omissions.
	Duration int64 `json:"duration"`

	// Offset is the word start relative to the audio stream, in ticks.
	Offset int64 `json:"offset"`
}

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role is one of "system", "user" or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}
