// Package stt defines the Provider interface for speech recognition backends
// that perform pronunciation assessment against a reference text.
//
// A provider wraps a recognition service and exposes a uniform streaming
// interface. The central abstraction is SessionHandle: once opened, a session
// accepts raw PCM audio and emits an ordered stream of Event values: a
// started notification, one recognized event per utterance, then exactly one
// terminal event (stopped or canceled).
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned by SendAudio after Close.
var ErrSessionClosed = errors.New("stt: session closed")

// StreamConfig describes the assessment to run for a new session.
type StreamConfig struct {
	// ReferenceText is the text the learner reads aloud.
	ReferenceText string

	// Language is the BCP-47 language tag (e.g. "en-US", "zh-CN").
	Language string

	// EnableMiscue asks the backend to report omissions and insertions. In
	// continuous mode most backends ignore it.
	EnableMiscue bool

	// EnableProsody asks the backend to report a prosody score.
	EnableProsody bool
}

// SessionHandle represents an open recognition session.
//
// Callers must call Close when the session is no longer needed.
// All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio to the backend. Calling
	// SendAudio after Close returns ErrSessionClosed.
	SendAudio(chunk []byte) error

	// Events returns the ordered event stream. The channel is buffered and
	// bounded; it is closed after the terminal event has been delivered or
	// when the session is closed.
	Events() <-chan Event

	// Close terminates the session and releases its resources. Calling Close
	// more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any pronunciation assessment backend.
type Provider interface {
	// StartStream opens a new assessment session. The caller owns the
	// returned SessionHandle and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
