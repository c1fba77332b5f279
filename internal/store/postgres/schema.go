package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id                  TEXT              PRIMARY KEY,
    backend_session_id  TEXT              NOT NULL DEFAULT '',
    outcome             TEXT              NOT NULL DEFAULT '',
    language            TEXT              NOT NULL DEFAULT '',
    title               TEXT              NOT NULL DEFAULT '',
    transcript          TEXT              NOT NULL DEFAULT '',
    accuracy            DOUBLE PRECISION  NOT NULL DEFAULT 0,
    prosody             DOUBLE PRECISION  NOT NULL DEFAULT 0,
    completeness        DOUBLE PRECISION  NOT NULL DEFAULT 0,
    fluency             DOUBLE PRECISION  NOT NULL DEFAULT 0,
    pronunciation       DOUBLE PRECISION  NOT NULL DEFAULT 0,
    report              JSONB             NOT NULL,
    created_at          TIMESTAMPTZ       NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_assessments_created_at
    ON assessments (created_at DESC);
`

const ddlAssessmentWords = `
CREATE TABLE IF NOT EXISTS assessment_words (
    assessment_id  TEXT              NOT NULL REFERENCES assessments (id) ON DELETE CASCADE,
    position       INTEGER           NOT NULL,
    word           TEXT              NOT NULL,
    error_type     TEXT              NOT NULL,
    accuracy       DOUBLE PRECISION  NOT NULL DEFAULT 0,
    PRIMARY KEY (assessment_id, position)
);

CREATE INDEX IF NOT EXISTS idx_assessment_words_error_type
    ON assessment_words (error_type);
`

// Migrate creates the report tables if they do not exist. It is idempotent
// and safe to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlAssessments, ddlAssessmentWords} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
