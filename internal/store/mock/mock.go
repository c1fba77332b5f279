// Package mock provides a configurable test double for [store.Store].
//
// Unless an *Err field is set, the mock behaves like [store.Memory] and
// records every call for assertion.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lectio/internal/assess"
	"github.com/MrWong99/lectio/internal/store"
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	Method string
	Args   []any
}

// Store is a test double for [store.Store].
type Store struct {
	mu    sync.Mutex
	calls []Call
	mem   *store.Memory

	// SaveErr is returned by Save when non-nil.
	SaveErr error

	// GetErr is returned by Get when non-nil.
	GetErr error

	// ListErr is returned by ListRecent when non-nil.
	ListErr error
}

// New returns an empty Store.
func New() *Store {
	return &Store{mem: store.NewMemory()}
}

func (s *Store) record(method string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: method, Args: args})
}

// Save implements [store.Store].
func (s *Store) Save(ctx context.Context, rep *assess.Report) error {
	s.record("Save", rep)
	if s.SaveErr != nil {
		return s.SaveErr
	}
	return s.mem.Save(ctx, rep)
}

// Get implements [store.Store].
func (s *Store) Get(ctx context.Context, id string) (*assess.Report, error) {
	s.record("Get", id)
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	return s.mem.Get(ctx, id)
}

// ListRecent implements [store.Store].
func (s *Store) ListRecent(ctx context.Context, limit int) ([]store.Summary, error) {
	s.record("ListRecent", limit)
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return s.mem.ListRecent(ctx, limit)
}

// Calls returns a copy of all recorded calls.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how many times method was called.
func (s *Store) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

var _ store.Store = (*Store)(nil)
