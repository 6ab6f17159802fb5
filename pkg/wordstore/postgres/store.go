package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kalini-labs/lexio/internal/mastery"
	"github.com/kalini-labs/lexio/pkg/wordstore"
)

var _ wordstore.Store = (*Store)(nil)

// Store is the PostgreSQL-backed word record store. Obtain one via
// [NewStore]. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies connectivity, and runs
// [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres wordstore: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres wordstore: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres wordstore: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres wordstore: %w", err)
	}

	return &Store{pool: pool}, nil
}

const recordColumns = `username, language, word, state, review_origin,
	last_seen_at, next_due_at, window, days_covered, distinct_sentence_count,
	last_template_id, streak_correct, streak_wrong, stability_score,
	half_life_days, asr_conf_last, snr_last, last_transition_reason,
	attempt_seq, practice_start_at, checkpoints_visited, error_days,
	error_count, ever_mastered, maintenance_idx, lesson_completed,
	lesson_greens, created_at, updated_at`

// Get implements [wordstore.Store]. It returns (nil, nil) when no record
// exists for the key.
func (s *Store) Get(ctx context.Context, user, language, word string) (*mastery.WordRecord, error) {
	q := `SELECT ` + recordColumns + `
		FROM word_records
		WHERE username = $1 AND language = $2 AND word = $3`

	rows, err := s.pool.Query(ctx, q, user, language, word)
	if err != nil {
		return nil, unavailable("get", err)
	}
	rec, err := pgx.CollectOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres wordstore: get: scan: %w", err)
	}
	return &rec, nil
}

// Put implements [wordstore.Store]. The upsert only applies when the
// incoming attempt sequence is ahead of the persisted one; a rejected write
// fails with [wordstore.ErrStaleWrite].
func (s *Store) Put(ctx context.Context, rec mastery.WordRecord) error {
	window, err := json.Marshal(rec.Window)
	if err != nil {
		return fmt.Errorf("postgres wordstore: put: marshal window: %w", err)
	}
	errorDays, err := json.Marshal(rec.ErrorDays)
	if err != nil {
		return fmt.Errorf("postgres wordstore: put: marshal error days: %w", err)
	}

	var practiceStart *time.Time
	if !rec.PracticeStartAt.IsZero() {
		practiceStart = &rec.PracticeStartAt
	}

	const q = `
		INSERT INTO word_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
		        $27, $28, $29)
		ON CONFLICT (username, language, word) DO UPDATE SET
		    state = EXCLUDED.state,
		    review_origin = EXCLUDED.review_origin,
		    last_seen_at = EXCLUDED.last_seen_at,
		    next_due_at = EXCLUDED.next_due_at,
		    window = EXCLUDED.window,
		    days_covered = EXCLUDED.days_covered,
		    distinct_sentence_count = EXCLUDED.distinct_sentence_count,
		    last_template_id = EXCLUDED.last_template_id,
		    streak_correct = EXCLUDED.streak_correct,
		    streak_wrong = EXCLUDED.streak_wrong,
		    stability_score = EXCLUDED.stability_score,
		    half_life_days = EXCLUDED.half_life_days,
		    asr_conf_last = EXCLUDED.asr_conf_last,
		    snr_last = EXCLUDED.snr_last,
		    last_transition_reason = EXCLUDED.last_transition_reason,
		    attempt_seq = EXCLUDED.attempt_seq,
		    practice_start_at = EXCLUDED.practice_start_at,
		    checkpoints_visited = EXCLUDED.checkpoints_visited,
		    error_days = EXCLUDED.error_days,
		    error_count = EXCLUDED.error_count,
		    ever_mastered = EXCLUDED.ever_mastered,
		    maintenance_idx = EXCLUDED.maintenance_idx,
		    lesson_completed = EXCLUDED.lesson_completed,
		    lesson_greens = EXCLUDED.lesson_greens,
		    updated_at = EXCLUDED.updated_at
		WHERE word_records.attempt_seq < EXCLUDED.attempt_seq`

	tag, err := s.pool.Exec(ctx, q,
		rec.User, rec.Language, rec.Word, string(rec.State), string(rec.ReviewOrigin),
		rec.LastSeenAt, rec.NextDueAt, window, rec.DaysCovered, rec.DistinctSentenceCount,
		rec.LastTemplateID, rec.StreakCorrect, rec.StreakWrong, rec.StabilityScore,
		rec.HalfLifeDays, rec.AsrConfLast, rec.SnrLast, rec.LastTransitionReason,
		rec.AttemptSeq, practiceStart, rec.CheckpointsVisited, errorDays,
		rec.ErrorCount, rec.EverMastered, rec.MaintenanceIdx, rec.LessonCompleted,
		rec.LessonGreens, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return unavailable("put", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres wordstore: put %s/%s/%s at seq %d: %w",
			rec.User, rec.Language, rec.Word, rec.AttemptSeq, wordstore.ErrStaleWrite)
	}
	return nil
}

// QueryDue implements [wordstore.Store].
func (s *Store) QueryDue(ctx context.Context, q wordstore.DueQuery) ([]mastery.WordRecord, error) {
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var conditions []string
	if q.User != "" {
		conditions = append(conditions, "username = "+next(q.User))
	}
	if q.Language != "" {
		conditions = append(conditions, "language = "+next(q.Language))
	}
	if len(q.States) > 0 {
		states := make([]string, len(q.States))
		for i, st := range q.States {
			states[i] = string(st)
		}
		conditions = append(conditions, "state = ANY("+next(states)+")")
	}
	if !q.DueBy.IsZero() {
		conditions = append(conditions, "next_due_at <= "+next(q.DueBy))
	}

	sql := "SELECT " + recordColumns + "\nFROM word_records"
	if len(conditions) > 0 {
		sql += "\nWHERE " + strings.Join(conditions, "\n  AND ")
	}
	sql += "\nORDER BY next_due_at, word"
	if q.Limit > 0 {
		sql += "\nLIMIT " + next(q.Limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, unavailable("query due", err)
	}
	recs, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("postgres wordstore: query due: scan: %w", err)
	}
	if recs == nil {
		recs = []mastery.WordRecord{}
	}
	return recs, nil
}

// Ping implements [wordstore.Store].
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close implements [wordstore.Store].
func (s *Store) Close() {
	s.pool.Close()
}

func scanRecord(row pgx.CollectableRow) (mastery.WordRecord, error) {
	var (
		rec           mastery.WordRecord
		state, origin string
		window        []byte
		errorDays     []byte
		practiceStart *time.Time
	)
	if err := row.Scan(
		&rec.User, &rec.Language, &rec.Word, &state, &origin,
		&rec.LastSeenAt, &rec.NextDueAt, &window, &rec.DaysCovered, &rec.DistinctSentenceCount,
		&rec.LastTemplateID, &rec.StreakCorrect, &rec.StreakWrong, &rec.StabilityScore,
		&rec.HalfLifeDays, &rec.AsrConfLast, &rec.SnrLast, &rec.LastTransitionReason,
		&rec.AttemptSeq, &practiceStart, &rec.CheckpointsVisited, &errorDays,
		&rec.ErrorCount, &rec.EverMastered, &rec.MaintenanceIdx, &rec.LessonCompleted,
		&rec.LessonGreens, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return mastery.WordRecord{}, err
	}
	rec.State = mastery.State(state)
	rec.ReviewOrigin = mastery.State(origin)
	if practiceStart != nil {
		rec.PracticeStartAt = *practiceStart
	}
	if err := json.Unmarshal(window, &rec.Window); err != nil {
		return mastery.WordRecord{}, fmt.Errorf("unmarshal window: %w", err)
	}
	if len(errorDays) > 0 {
		if err := json.Unmarshal(errorDays, &rec.ErrorDays); err != nil {
			return mastery.WordRecord{}, fmt.Errorf("unmarshal error days: %w", err)
		}
	}
	return rec, nil
}

// unavailable wraps transport-level failures so callers can detect them with
// errors.Is against [wordstore.ErrUnavailable] and buffer writes.
func unavailable(op string, err error) error {
	return fmt.Errorf("postgres wordstore: %s: %w", op, errors.Join(wordstore.ErrUnavailable, err))
}
