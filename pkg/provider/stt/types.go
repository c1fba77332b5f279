package stt

import "github.com/MrWong99/lectio/pkg/types"

// EventKind enumerates the events a recognition session emits.
type EventKind int

const (
	// EventStarted is emitted once when the backend session opens.
	EventStarted EventKind = iota

	// EventRecognized carries one final utterance result.
	EventRecognized

	// EventStopped is the normal terminal event.
	EventStopped

	// EventCanceled is the abnormal terminal event. Cancellation is set.
	EventCanceled
)

// String returns the human-readable name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventRecognized:
		return "recognized"
	case EventStopped:
		return "stopped"
	case EventCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether k ends a session.
func (k EventKind) Terminal() bool {
	return k == EventStopped || k == EventCanceled
}

// Event is a single lifecycle or result notification from a recognition
// session. Events are delivered in order on [SessionHandle.Events].
type Event struct {
	Kind EventKind

	// SessionID is the backend-assigned session identifier, when known.
	SessionID string

	// Utterance is set for [EventRecognized].
	Utterance *Utterance

	// Cancellation is set for [EventCanceled].
	Cancellation *Cancellation
}

// Cancellation describes why a session was canceled by the backend.
type Cancellation struct {
	// Reason is a short machine-readable reason (e.g. "Error", "EndOfStream").
	Reason string `json:"reason"`

	// ErrorCode is the backend error code, if the reason is an error.
	ErrorCode string `json:"error_code,omitempty"`

	// ErrorDetails is a free-text error description.
	ErrorDetails string `json:"error_details,omitempty"`
}

// Utterance is one final recognition result covering a contiguous speech
// segment bounded by silence.
type Utterance struct {
	// Text is the display text of the utterance.
	Text string

	// Words holds per-word timing of the best hypothesis, in ticks.
	Words []WordTiming

	// Pronunciation is the pronunciation assessment of the utterance.
	Pronunciation PronunciationResult
}

// WordTiming is the timing of a single recognized word. Offset and Duration
// are in 100-nanosecond ticks.
type WordTiming struct {
	Word     string
	Offset   int64
	Duration int64
}

// PronunciationResult is the backend's assessment of one utterance.
type PronunciationResult struct {
	AccuracyScore      float64
	ProsodyScore       float64
	PronunciationScore float64
	CompletenessScore  float64
	FluencyScore       float64

	// Words is the per-word assessment, in spoken order.
	Words []AssessedWord
}

// AssessedWord is the backend's per-word pronunciation assessment. In
// continuous mode the backend only ever reports [types.ErrorNone].
type AssessedWord struct {
	Word          string
	ErrorType     types.ErrorType
	AccuracyScore float64
}
