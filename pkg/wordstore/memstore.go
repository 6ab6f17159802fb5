package wordstore

import (
	"context"
	"sort"
	"sync"

	"github.com/kalini-labs/lexio/internal/mastery"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory [Store]. It applies the same conditional-write
// rule as the PostgreSQL implementation, so session code behaves identically
// against either. Safe for concurrent use.
type MemStore struct {
	mu      sync.RWMutex
	records map[memKey]mastery.WordRecord
}

type memKey struct {
	user, language, word string
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[memKey]mastery.WordRecord)}
}

// Get implements [Store].
func (s *MemStore) Get(_ context.Context, user, language, word string) (*mastery.WordRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[memKey{user, language, word}]
	if !ok {
		return nil, nil
	}
	out := cloneRecord(rec)
	return &out, nil
}

// Put implements [Store].
func (s *MemStore) Put(_ context.Context, rec mastery.WordRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{rec.User, rec.Language, rec.Word}
	if existing, ok := s.records[key]; ok && existing.AttemptSeq >= rec.AttemptSeq {
		return ErrStaleWrite
	}
	s.records[key] = cloneRecord(rec)
	return nil
}

// QueryDue implements [Store].
func (s *MemStore) QueryDue(_ context.Context, q DueQuery) ([]mastery.WordRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []mastery.WordRecord
	for key, rec := range s.records {
		if q.User != "" && key.user != q.User {
			continue
		}
		if q.Language != "" && key.language != q.Language {
			continue
		}
		if len(q.States) > 0 && !containsState(q.States, rec.State) {
			continue
		}
		if !q.DueBy.IsZero() && rec.NextDueAt.After(q.DueBy) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDueAt.Equal(out[j].NextDueAt) {
			return out[i].NextDueAt.Before(out[j].NextDueAt)
		}
		return out[i].Word < out[j].Word
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if out == nil {
		out = []mastery.WordRecord{}
	}
	return out, nil
}

// Ping implements [Store].
func (s *MemStore) Ping(context.Context) error { return nil }

// Close implements [Store].
func (s *MemStore) Close() {}

func containsState(states []mastery.State, st mastery.State) bool {
	for _, s := range states {
		if s == st {
			return true
		}
	}
	return false
}

func cloneRecord(rec mastery.WordRecord) mastery.WordRecord {
	out := rec
	out.Window = append([]mastery.AttemptRef(nil), rec.Window...)
	out.ErrorDays = append([]string(nil), rec.ErrorDays...)
	return out
}
