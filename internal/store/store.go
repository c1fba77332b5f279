// Package store persists finished assessment reports.
//
// [Memory] keeps reports in process and backs the server when no database is
// configured. The postgres subpackage provides the durable implementation.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/MrWong99/lectio/internal/assess"
)

// ErrNotFound is returned by Get when no report exists for the id.
var ErrNotFound = errors.New("store: report not found")

// Summary is the listing view of a stored report.
type Summary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title,omitempty"`
	Language      string    `json:"language"`
	Outcome       string    `json:"outcome,omitempty"`
	Pronunciation float64   `json:"pronunciation"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store saves and retrieves assessment reports. Implementations must be
// safe for concurrent use.
type Store interface {
	// Save stores rep, replacing any report with the same ID.
	Save(ctx context.Context, rep *assess.Report) error

	// Get returns the report with the given id or [ErrNotFound].
	Get(ctx context.Context, id string) (*assess.Report, error)

	// ListRecent returns up to limit summaries, newest first.
	ListRecent(ctx context.Context, limit int) ([]Summary, error)
}

// Memory is an in-process [Store].
type Memory struct {
	mu      sync.RWMutex
	reports map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	report  *assess.Report
	created time.Time
}

// NewMemory returns an empty [Memory] store.
func NewMemory() *Memory {
	return &Memory{reports: make(map[string]memoryEntry), now: time.Now}
}

// Save implements [Store]. The report is stored by reference; callers must
// not mutate it afterwards.
func (m *Memory) Save(_ context.Context, rep *assess.Report) error {
	if rep == nil || rep.ID == "" {
		return errors.New("store: report without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	created := m.now()
	if prev, ok := m.reports[rep.ID]; ok {
		created = prev.created
	}
	m.reports[rep.ID] = memoryEntry{report: rep, created: created}
	return nil
}

// Get implements [Store].
func (m *Memory) Get(_ context.Context, id string) (*assess.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.report, nil
}

// ListRecent implements [Store].
func (m *Memory) ListRecent(_ context.Context, limit int) ([]Summary, error) {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.reports))
	for _, e := range m.reports {
		out = append(out, Summarize(e.report, e.created))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Summarize builds the listing view of rep.
func Summarize(rep *assess.Report, created time.Time) Summary {
	return Summary{
		ID:            rep.ID,
		Title:         rep.Title,
		Language:      rep.Language,
		Outcome:       rep.Outcome,
		Pronunciation: rep.Pronunciation,
		CreatedAt:     created,
	}
}

var _ Store = (*Memory)(nil)
