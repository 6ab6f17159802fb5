// Package mock provides a configurable test double for [wordstore.Store].
//
// The mock records every method call for assertion in tests and exposes
// exported fields that control what it returns. It delegates actual record
// keeping to an embedded [wordstore.MemStore], so state round-trips work
// unless an error field forces a failure. Safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/kalini-labs/lexio/internal/mastery"
	"github.com/kalini-labs/lexio/pkg/wordstore"
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	Method string
	Args   []any
}

var _ wordstore.Store = (*Store)(nil)

// Store is a configurable test double for [wordstore.Store].
type Store struct {
	mu    sync.Mutex
	calls []Call
	mem   *wordstore.MemStore

	// GetErr is returned by Get when non-nil.
	GetErr error

	// PutErr is returned by Put when non-nil; the write is not applied.
	PutErr error

	// QueryDueErr is returned by QueryDue when non-nil.
	QueryDueErr error

	// PingErr is returned by Ping when non-nil.
	PingErr error
}

// NewStore returns an empty mock store.
func NewStore() *Store {
	return &Store{mem: wordstore.NewMemStore()}
}

// Seed inserts a record directly, bypassing call recording and error
// injection. Intended for test setup.
func (s *Store) Seed(rec mastery.WordRecord) {
	_ = s.mem.Put(context.Background(), rec)
}

// Calls returns a copy of all recorded method invocations.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
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

// Reset clears all recorded calls without altering stored records or
// response configuration.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Get implements [wordstore.Store].
func (s *Store) Get(ctx context.Context, user, language, word string) (*mastery.WordRecord, error) {
	s.record("Get", user, language, word)
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	return s.mem.Get(ctx, user, language, word)
}

// Put implements [wordstore.Store].
func (s *Store) Put(ctx context.Context, rec mastery.WordRecord) error {
	s.record("Put", rec.User, rec.Language, rec.Word, rec.AttemptSeq)
	if s.PutErr != nil {
		return s.PutErr
	}
	return s.mem.Put(ctx, rec)
}

// QueryDue implements [wordstore.Store].
func (s *Store) QueryDue(ctx context.Context, q wordstore.DueQuery) ([]mastery.WordRecord, error) {
	s.record("QueryDue", q)
	if s.QueryDueErr != nil {
		return nil, s.QueryDueErr
	}
	return s.mem.QueryDue(ctx, q)
}

// Ping implements [wordstore.Store].
func (s *Store) Ping(context.Context) error {
	s.record("Ping")
	return s.PingErr
}

// Close implements [wordstore.Store].
func (s *Store) Close() {
	s.record("Close")
}

func (s *Store) record(method string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: method, Args: args})
}
