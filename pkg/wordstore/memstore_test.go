package wordstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kalini-labs/lexio/internal/mastery"
	"github.com/kalini-labs/lexio/pkg/wordstore"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func record(word string, state mastery.State, seq int64, due time.Time) mastery.WordRecord {
	return mastery.WordRecord{
		User:       "u1",
		Language:   "en",
		Word:       word,
		State:      state,
		AttemptSeq: seq,
		LastSeenAt: base,
		NextDueAt:  due,
	}
}

func TestMemStore_GetMissing(t *testing.T) {
	s := wordstore.NewMemStore()
	rec, err := s.Get(context.Background(), "u1", "en", "ship")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record for missing key, got %+v", rec)
	}
}

func TestMemStore_PutConditionalOnSequence(t *testing.T) {
	ctx := context.Background()
	s := wordstore.NewMemStore()

	if err := s.Put(ctx, record("ship", mastery.StateSeen, 1, base)); err != nil {
		t.Fatalf("initial put: %v", err)
	}
	if err := s.Put(ctx, record("ship", mastery.StateUnderReview, 2, base)); err != nil {
		t.Fatalf("advancing put: %v", err)
	}

	// Replaying the same sequence must be rejected.
	err := s.Put(ctx, record("ship", mastery.StateSeen, 2, base))
	if !errors.Is(err, wordstore.ErrStaleWrite) {
		t.Fatalf("expected ErrStaleWrite, got %v", err)
	}

	rec, err := s.Get(ctx, "u1", "en", "ship")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.State != mastery.StateUnderReview {
		t.Errorf("stale write must not overwrite; state is %s", rec.State)
	}
}

func TestMemStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := wordstore.NewMemStore()

	in := record("ship", mastery.StateSeen, 1, base)
	in.Window = []mastery.AttemptRef{{TemplateID: "t1", At: base}}
	if err := s.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, _ := s.Get(ctx, "u1", "en", "ship")
	got.Window[0].TemplateID = "mutated"

	again, _ := s.Get(ctx, "u1", "en", "ship")
	if again.Window[0].TemplateID != "t1" {
		t.Error("stored record shares memory with returned copy")
	}
}

func TestMemStore_QueryDue(t *testing.T) {
	ctx := context.Background()
	s := wordstore.NewMemStore()

	seed := []mastery.WordRecord{
		record("late", mastery.StatePracticingFlagged, 1, base.Add(-2*time.Hour)),
		record("soon", mastery.StatePracticingUnflagged, 1, base.Add(-time.Hour)),
		record("future", mastery.StatePracticingUnflagged, 1, base.Add(48*time.Hour)),
		record("review", mastery.StateUnderReview, 1, base),
		record("done", mastery.StateMastered, 1, base.Add(-time.Hour)),
	}
	for _, r := range seed {
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("put %s: %v", r.Word, err)
		}
	}
	other := record("autre", mastery.StatePracticingUnflagged, 1, base.Add(-time.Hour))
	other.Language = "fr"
	_ = s.Put(ctx, other)

	t.Run("filters by state and due time, oldest first", func(t *testing.T) {
		got, err := s.QueryDue(ctx, wordstore.DueQuery{
			User:     "u1",
			Language: "en",
			States: []mastery.State{
				mastery.StatePracticingFlagged,
				mastery.StatePracticingUnflagged,
				mastery.StateUnderReview,
			},
			DueBy: base,
		})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		want := []string{"late", "soon", "review"}
		if len(got) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(got))
		}
		for i, w := range want {
			if got[i].Word != w {
				t.Errorf("position %d: expected %q, got %q", i, w, got[i].Word)
			}
		}
	})

	t.Run("limit keeps the longest-waiting words", func(t *testing.T) {
		got, err := s.QueryDue(ctx, wordstore.DueQuery{
			User:     "u1",
			Language: "en",
			DueBy:    base,
			Limit:    2,
		})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 records, got %d", len(got))
		}
		if got[0].NextDueAt.After(got[1].NextDueAt) {
			t.Error("results not ordered by due time")
		}
	})

	t.Run("other languages excluded", func(t *testing.T) {
		got, err := s.QueryDue(ctx, wordstore.DueQuery{User: "u1", Language: "fr"})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(got) != 1 || got[0].Word != "autre" {
			t.Errorf("expected only the fr record, got %v", got)
		}
	})
}
