// Package postgres provides the PostgreSQL-backed [wordstore.Store]
// implementation. All operations share a single [pgxpool.Pool]; [Migrate]
// creates the schema idempotently via CREATE TABLE IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlWordRecords = `
CREATE TABLE IF NOT EXISTS word_records (
    username                TEXT         NOT NULL,
    language                TEXT         NOT NULL,
    word                    TEXT         NOT NULL,
    state                   TEXT         NOT NULL,
    review_origin           TEXT         NOT NULL DEFAULT '',
    last_seen_at            TIMESTAMPTZ  NOT NULL,
    next_due_at             TIMESTAMPTZ  NOT NULL,
    window                  JSONB        NOT NULL DEFAULT '[]',
    days_covered            INT          NOT NULL DEFAULT 0,
    distinct_sentence_count INT          NOT NULL DEFAULT 0,
    last_template_id        TEXT         NOT NULL DEFAULT '',
    streak_correct          INT          NOT NULL DEFAULT 0,
    streak_wrong            INT          NOT NULL DEFAULT 0,
    stability_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
    half_life_days          DOUBLE PRECISION NOT NULL DEFAULT 0,
    asr_conf_last           DOUBLE PRECISION NOT NULL DEFAULT 0,
    snr_last                DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_transition_reason  TEXT         NOT NULL DEFAULT '',
    attempt_seq             BIGINT       NOT NULL DEFAULT 0,
    practice_start_at       TIMESTAMPTZ,
    checkpoints_visited     INT          NOT NULL DEFAULT 0,
    error_days              JSONB        NOT NULL DEFAULT '[]',
    error_count             INT          NOT NULL DEFAULT 0,
    ever_mastered           BOOLEAN      NOT NULL DEFAULT FALSE,
    maintenance_idx         INT          NOT NULL DEFAULT 0,
    lesson_completed        BOOLEAN      NOT NULL DEFAULT FALSE,
    lesson_greens           INT          NOT NULL DEFAULT 0,
    created_at              TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at              TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (username, language, word)
);

CREATE INDEX IF NOT EXISTS idx_word_records_due
    ON word_records (username, language, next_due_at);

CREATE INDEX IF NOT EXISTS idx_word_records_state
    ON word_records (username, language, state);
`

// Migrate ensures the word_records table and its indexes exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlWordRecords); err != nil {
		return fmt.Errorf("migrate word_records: %w", err)
	}
	return nil
}
