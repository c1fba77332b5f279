// Package postgres provides a PostgreSQL-backed [store.Store].
//
// Each report is kept as a JSONB document alongside its headline scores,
// and its final word sequence is copied into assessment_words so miscue
// statistics can be queried with plain SQL.
//
// Usage:
//
//	s, err := postgres.New(ctx, dsn)
//	if err != nil { … }
//	defer s.Close()
//	_ = s.Save(ctx, report)
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/lectio/internal/assess"
	"github.com/MrWong99/lectio/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is a [store.Store] backed by a [pgxpool.Pool]. All methods are safe
// for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database at dsn, verifies the connection and runs
// [Migrate].
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Ping checks database connectivity. It backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Save implements [store.Store]. The report row and its words are written in
// one transaction; saving an existing id replaces both.
func (s *Store) Save(ctx context.Context, rep *assess.Report) error {
	if rep == nil || rep.ID == "" {
		return errors.New("postgres store: report without id")
	}
	doc, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("postgres store: encode report: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	const upsert = `
		INSERT INTO assessments
		    (id, backend_session_id, outcome, language, title, transcript,
		     accuracy, prosody, completeness, fluency, pronunciation, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
		    backend_session_id = EXCLUDED.backend_session_id,
		    outcome            = EXCLUDED.outcome,
		    language           = EXCLUDED.language,
		    title              = EXCLUDED.title,
		    transcript         = EXCLUDED.transcript,
		    accuracy           = EXCLUDED.accuracy,
		    prosody            = EXCLUDED.prosody,
		    completeness       = EXCLUDED.completeness,
		    fluency            = EXCLUDED.fluency,
		    pronunciation      = EXCLUDED.pronunciation,
		    report             = EXCLUDED.report`

	if _, err := tx.Exec(ctx, upsert,
		rep.ID,
		rep.BackendSessionID,
		rep.Outcome,
		rep.Language,
		rep.Title,
		rep.Transcript,
		rep.Accuracy,
		rep.Prosody,
		rep.Completeness,
		rep.Fluency,
		rep.Pronunciation,
		doc,
	); err != nil {
		return fmt.Errorf("postgres store: upsert report: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM assessment_words WHERE assessment_id = $1`, rep.ID); err != nil {
		return fmt.Errorf("postgres store: clear words: %w", err)
	}
	if len(rep.Words) > 0 {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"assessment_words"},
			[]string{"assessment_id", "position", "word", "error_type", "accuracy"},
			pgx.CopyFromSlice(len(rep.Words), func(i int) ([]any, error) {
				w := rep.Words[i]
				return []any{rep.ID, i, w.Text, string(w.ErrorType), w.AccuracyScore}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("postgres store: copy words: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit: %w", err)
	}
	return nil
}

// Get implements [store.Store].
func (s *Store) Get(ctx context.Context, id string) (*assess.Report, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT report FROM assessments WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get %q: %w", id, err)
	}
	var rep assess.Report
	if err := json.Unmarshal(doc, &rep); err != nil {
		return nil, fmt.Errorf("postgres store: decode report %q: %w", id, err)
	}
	return &rep, nil
}

// ListRecent implements [store.Store].
func (s *Store) ListRecent(ctx context.Context, limit int) ([]store.Summary, error) {
	q := `
		SELECT id, title, language, outcome, pronunciation, created_at
		FROM   assessments
		ORDER  BY created_at DESC, id`
	var args []any
	if limit > 0 {
		q += "\nLIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list recent: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Summary, error) {
		var sum store.Summary
		err := row.Scan(&sum.ID, &sum.Title, &sum.Language, &sum.Outcome, &sum.Pronunciation, &sum.CreatedAt)
		return sum, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}
	if out == nil {
		out = []store.Summary{}
	}
	return out, nil
}

// MiscueCounts returns how many stored words carry each error type.
func (s *Store) MiscueCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT error_type, count(*)
		FROM   assessment_words
		GROUP  BY error_type`)
	if err != nil {
		return nil, fmt.Errorf("postgres store: miscue counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("postgres store: scan miscue count: %w", err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: miscue counts: %w", err)
	}
	return counts, nil
}
