// Package wordstore defines persistence for per-word practice records and an
// in-memory implementation suitable for tests and single-node deployments.
// The PostgreSQL-backed implementation lives in the postgres subpackage and a
// recording test double in mock.
package wordstore

import (
	"context"
	"errors"
	"time"

	"github.com/kalini-labs/lexio/internal/mastery"
)

// ErrUnavailable reports that the backing store cannot currently serve the
// request. Callers are expected to buffer writes and retry rather than lose
// scored attempts.
var ErrUnavailable = errors.New("wordstore: store unavailable")

// ErrStaleWrite reports that a conditional write was rejected because the
// persisted record already carries an equal or higher attempt sequence. A
// replayed write observing this error has already been applied and can be
// dropped.
var ErrStaleWrite = errors.New("wordstore: stale write rejected")

// DueQuery selects records for session planning and maintenance sweeps.
type DueQuery struct {
	// User and Language scope the query. Session planning sets both; a
	// maintenance sweep leaves them empty to scan across users.
	User     string
	Language string

	// States filters by practice state. Empty means all states.
	States []mastery.State

	// DueBy selects records whose NextDueAt is at or before this time.
	// Zero means no due filter.
	DueBy time.Time

	// Limit caps the result size. Zero means no cap. Results are ordered by
	// NextDueAt ascending so the longest-waiting words come first.
	Limit int
}

// Store persists word records keyed by (user, language, word).
//
// Get returns (nil, nil) when no record exists. Put upserts, but only when
// the record's AttemptSeq is ahead of the persisted one; otherwise it fails
// with [ErrStaleWrite]. That conditional write is what makes replaying a
// scored attempt idempotent.
type Store interface {
	Get(ctx context.Context, user, language, word string) (*mastery.WordRecord, error)
	Put(ctx context.Context, rec mastery.WordRecord) error
	QueryDue(ctx context.Context, q DueQuery) ([]mastery.WordRecord, error)
	Ping(ctx context.Context) error
	Close()
}
