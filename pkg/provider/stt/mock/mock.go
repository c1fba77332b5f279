// Package mock provides test doubles for the stt package interfaces.
//
// Use Provider to verify that the caller starts sessions with the expected
// StreamConfig. Use Session to feed a controlled event sequence and inspect
// which audio chunks were delivered.
//
// Example:
//
//	sess := mock.NewSession(16)
//	sess.Emit(stt.Event{Kind: stt.EventRecognized, Utterance: &u})
//	sess.Emit(stt.Event{Kind: stt.EventStopped})
//	p := &mock.Provider{Session: sess}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lectio/pkg/provider/stt"
)

// StartStreamCall records a single invocation of Provider.StartStream.
type StartStreamCall struct {
	// Ctx is the context passed to StartStream.
	Ctx context.Context
	// Cfg is the StreamConfig passed to StartStream.
	Cfg stt.StreamConfig
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by StartStream. If nil,
	// StartStream returns a new Session with a buffered event channel.
	Session stt.SessionHandle

	// StartStreamErr, if non-nil, is returned as the error from StartStream.
	StartStreamErr error

	// StartStreamCalls records every call to StartStream.
	StartStreamCalls []StartStreamCall
}

// StartStream records the call and returns Session, StartStreamErr.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartStreamCalls = append(p.StartStreamCalls, StartStreamCall{Ctx: ctx, Cfg: cfg})
	if p.StartStreamErr != nil {
		return nil, p.StartStreamErr
	}
	if p.Session != nil {
		return p.Session, nil
	}
	return NewSession(16), nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)

// Session is a mock implementation of stt.SessionHandle. Tests push events
// with Emit and end the stream with Finish (or by emitting a terminal event
// followed by Finish).
type Session struct {
	mu sync.Mutex

	events   chan stt.Event
	finished bool

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// SendAudioCalls records a copy of every chunk passed to SendAudio.
	SendAudioCalls [][]byte

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// NewSession returns a Session whose event channel holds up to buffer events.
func NewSession(buffer int) *Session {
	return &Session{events: make(chan stt.Event, buffer)}
}

// Emit queues ev on the event channel. It blocks when the buffer is full and
// is a no-op after Finish.
func (s *Session) Emit(ev stt.Event) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	ch := s.events
	s.mu.Unlock()
	ch <- ev
}

// Finish closes the event channel. Safe to call more than once.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.finished = true
		close(s.events)
	}
}

// SendAudio records the call and returns SendAudioErr.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.SendAudioCalls = append(s.SendAudioCalls, cp)
	return s.SendAudioErr
}

// Events returns the event channel.
func (s *Session) Events() <-chan stt.Event {
	return s.events
}

// Close records the call and returns CloseErr. It does not close the event
// channel; use Finish for that.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// Closes returns the number of Close calls. Thread-safe.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCallCount
}

// Ensure Session implements stt.SessionHandle at compile time.
var _ stt.SessionHandle = (*Session)(nil)
