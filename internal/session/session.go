// Package session exposes the practice session API: planning a session's
// passage placements, scoring attempts in utterance order, serving
// micro-lesson plans, and flushing buffered state at close.
//
// All methods on a [Session] serialize through one mutex, which gives the
// strict in-utterance ordering per user; different users' sessions share
// nothing and run fully concurrently.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalini-labs/lexio/internal/classify"
	"github.com/kalini-labs/lexio/internal/config"
	"github.com/kalini-labs/lexio/internal/mastery"
	"github.com/kalini-labs/lexio/internal/observe"
	"github.com/kalini-labs/lexio/internal/planner"
	"github.com/kalini-labs/lexio/pkg/provider/passage"
	"github.com/kalini-labs/lexio/pkg/provider/signal"
	"github.com/kalini-labs/lexio/pkg/wordstore"
)

// ErrClosed reports an operation on a session that has already been closed.
var ErrClosed = errors.New("session: session closed")

// flushConcurrency bounds parallel store writes during a close flush.
const flushConcurrency = 4

// Plan is the result of one planning round.
type Plan struct {
	// Placements are the generator placement requests in practice priority
	// order.
	Placements []passage.PlacementRequest

	// Lessons are micro-lesson plans for due NeedsInstruction words; they are
	// surfaced to the caller instead of being embedded in the passage.
	Lessons []LessonPlan

	// DeferredCount is how many due words rolled over to the next day under
	// the daily cap.
	DeferredCount int
}

// LessonPlan is the fixed micro-lesson sequence for one word.
type LessonPlan struct {
	Word       string   `json:"word"`
	Steps      []string `json:"steps"`
	MinSeconds int      `json:"min_seconds"`
	MaxSeconds int      `json:"max_seconds"`
}

// Summary collects the explainable outcomes of a session for end-of-session
// reporting.
type Summary struct {
	Attempts   int
	Promotions []string
	Demotions  []string
}

// Session is one user's active practice session. Obtain one from
// [Manager.Open]; all methods are safe for concurrent use.
type Session struct {
	ID       string
	User     string
	Language string
	Grade    int

	lang       config.Language
	cfg        config.PracticeConfig
	store      wordstore.Store
	machine    *mastery.Machine
	plannerv   *planner.Planner
	gen        passage.Generator
	genName    string
	classifier *classify.Classifier
	metrics    *observe.Metrics
	log        *slog.Logger
	bridge     *config.BridgeConfig
	now        func() time.Time

	mu sync.Mutex

	// cache holds the session-local authoritative copy of every touched
	// record. Store reads consult it first so buffered state is never
	// clobbered by a stale row.
	cache map[string]mastery.WordRecord

	// pending holds records whose write failed with ErrUnavailable, keyed by
	// word. Only the latest version per word is kept; flushed at close.
	pending map[string]mastery.WordRecord

	// retry lists words whose last attempt was UNCERTAIN, awaiting a
	// same-session re-read. No store write happens for these.
	retry []string

	// unresolved maps each UnderReview word to the sentence count at which its
	// in-session micro-retest falls due.
	unresolved map[string]int

	sentences int
	summary   Summary
	closed    bool
}

// PlanSession queries the due set and builds placements and lesson plans. A
// store outage degrades to an empty plan rather than blocking the passage.
func (s *Session) PlanSession(ctx context.Context) (Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Plan{}, ErrClosed
	}

	ctx, span := observe.StartSpan(ctx, "session.plan")
	defer span.End()
	start := s.now()

	due, err := s.store.QueryDue(ctx, wordstore.DueQuery{
		User:     s.User,
		Language: s.Language,
		States: []mastery.State{
			mastery.StatePracticingFlagged,
			mastery.StatePracticingUnflagged,
			mastery.StateUnderReview,
			mastery.StateMastered,
			mastery.StateNeedsInstruction,
		},
		DueBy: start,
	})
	if err != nil {
		if !errors.Is(err, wordstore.ErrUnavailable) {
			return Plan{}, fmt.Errorf("session: plan: %w", err)
		}
		s.metrics.RecordStoreError(ctx, "query_due")
		s.log.Warn("session: store unavailable during planning, degrading to empty due set",
			"user", s.User, "error", err)
		due = nil
	}
	s.metrics.DueSetSize.Record(ctx, int64(len(due)))

	var plan Plan
	for _, rec := range due {
		s.cache[rec.Word] = rec
		if rec.State == mastery.StateUnderReview {
			if _, ok := s.unresolved[rec.Word]; !ok {
				s.unresolved[rec.Word] = s.retestDueAt()
			}
		}
		if rec.State == mastery.StateNeedsInstruction {
			plan.Lessons = append(plan.Lessons, s.lessonPlan(rec.Word))
			s.metrics.LessonsServed.Add(ctx, 1)
		}
	}

	built := s.plannerv.Build(planner.Request{
		User:     s.User,
		Language: s.Language,
		Grade:    s.Grade,
		Bridge:   s.bridge,
		Due:      due,
		Now:      start,
	})
	plan.Placements = built.Placements
	plan.DeferredCount = len(built.Deferred)

	s.metrics.PlanDuration.Record(ctx, s.now().Sub(start).Seconds())
	return plan, nil
}

// GeneratePassage produces a passage for the given placements, relaxing
// constraints instead of failing: first sentence diversity is dropped, then
// insertion density is walked down to one word per sentence.
func (s *Session) GeneratePassage(ctx context.Context, placements []passage.PlacementRequest, topicHint string) (*passage.Passage, error) {
	ctx, span := observe.StartSpan(ctx, "session.generate")
	defer span.End()
	start := s.now()
	defer func() {
		s.metrics.GenerateDuration.Record(ctx, s.now().Sub(start).Seconds())
	}()

	req := passage.GenerateRequest{
		Language:  s.Language,
		Script:    s.lang.Script,
		Grade:     s.gradeProfile(),
		TopicHint: topicHint,
		Rules: passage.PlacementRules{
			MinCharsBetween: s.cfg.Insertion.MinCharsBetween,
			MaxCluster:      s.cfg.Insertion.MaxCluster,
		},
	}

	attempts := [][]passage.PlacementRequest{
		placements,
		s.plannerv.RelaxDiversity(placements),
		s.plannerv.RelaxDensity(placements),
	}
	var lastErr error
	for i, pl := range attempts {
		req.Placements = pl
		out, err := s.gen.Generate(ctx, req)
		if err == nil {
			s.metrics.RecordGeneratorRequest(ctx, s.genName, "ok")
			return out, nil
		}
		lastErr = err
		s.metrics.RecordGeneratorRequest(ctx, s.genName, "error")
		if i < len(attempts)-1 {
			s.log.Warn("session: generation failed, relaxing placement constraints",
				"user", s.User, "relax_step", i+1, "error", err)
		}
	}
	return nil, fmt.Errorf("session: generate passage: %w", lastErr)
}

// gradeProfile builds the generator's reading-level targets from the grade
// curriculum. During a bridge the bridge's word-count override applies;
// sentence types stay at the current grade's allowance (the bridge carries
// them over rather than introducing the next grade's).
func (s *Session) gradeProfile() passage.GradeProfile {
	level := config.GradeLevelFor(s.Grade)
	profile := passage.GradeProfile{
		Grade:         s.Grade,
		WordCountMin:  level.WordRangeMin,
		WordCountMax:  level.WordRangeMax,
		SentenceTypes: level.SentenceTypes,
	}
	if s.bridge != nil && s.bridge.WordRangeMax > 0 {
		profile.WordCountMin = s.bridge.WordRangeMin
		profile.WordCountMax = s.bridge.WordRangeMax
	}
	return profile
}

// ScoreAttempt classifies one utterance of word and folds the outcome into
// the word's record. UNCERTAIN outcomes join the same-session retry queue and
// write nothing. Attempts are processed strictly in call order.
func (s *Session) ScoreAttempt(ctx context.Context, word string, sig signal.AttemptSignal, sentence signal.SentenceContext) (classify.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return classify.Uncertain, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		// Cancellation discards the unscored attempt; nothing was written.
		return classify.Uncertain, err
	}

	outcome := s.classifier.Classify(word, sig)
	s.metrics.RecordAttempt(ctx, s.Language, string(outcome))
	s.summary.Attempts++

	if outcome == classify.Uncertain {
		s.queueRetry(word)
		return outcome, nil
	}
	s.dropRetry(word)

	rec, err := s.loadRecord(ctx, word)
	if err != nil {
		return outcome, err
	}
	now := s.now()

	ev := mastery.Event{
		Outcome:          outcome,
		At:               now,
		TemplateID:       sentence.TemplateID,
		ASRConfidence:    sig.ASRConfidence,
		SNRDb:            sig.SNRDb,
		MaintenanceCheck: rec.State == mastery.StateMastered && !rec.NextDueAt.After(now),
	}
	updated, tr := s.machine.Apply(rec, ev)
	s.cache[word] = updated

	if tr.Changed() {
		s.log.Info("session: word transition",
			"user", s.User, "word", word,
			"from", string(tr.From), "to", string(tr.To), "reason", tr.Reason)
	}
	if tr.Promoted {
		s.metrics.RecordPromotion(ctx, s.Language)
		s.summary.Promotions = append(s.summary.Promotions, word)
	}
	if tr.Demoted {
		s.metrics.RecordDemotion(ctx, s.Language)
		s.summary.Demotions = append(s.summary.Demotions, word)
	}

	if updated.State == mastery.StateUnderReview {
		if _, ok := s.unresolved[word]; !ok {
			s.unresolved[word] = s.retestDueAt()
		}
	} else {
		delete(s.unresolved, word)
	}

	if err := s.writeRecord(ctx, updated); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// retestDueAt schedules a micro-retest within the configured sentence band.
// Concurrent reviews are staggered across the band so they do not all fall
// due on the same sentence.
func (s *Session) retestDueAt() int {
	lo := s.cfg.Session.RetestAfterSentencesMin
	hi := s.cfg.Session.RetestAfterSentencesMax
	if hi < lo {
		hi = lo
	}
	return s.sentences + lo + len(s.unresolved)%(hi-lo+1)
}

// AdvanceSentence marks one sentence as completed and returns the words now
// due for an in-session micro-retest: UnderReview words whose retest point
// has been reached.
func (s *Session) AdvanceSentence() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sentences++
	var due []string
	for word, at := range s.unresolved {
		if s.sentences >= at {
			due = append(due, word)
		}
	}
	return due
}

// PendingRetries returns the words whose last attempt was UNCERTAIN and that
// still await a same-session re-read.
func (s *Session) PendingRetries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.retry))
	copy(out, s.retry)
	return out
}

// CompleteLesson records that the micro-lesson for word was delivered. The
// word stays in NeedsInstruction until its GREEN exit checks pass.
func (s *Session) CompleteLesson(ctx context.Context, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rec, err := s.loadRecord(ctx, word)
	if err != nil {
		return err
	}
	updated := s.machine.CompleteLesson(rec, s.now())
	s.cache[word] = updated
	return s.writeRecord(ctx, updated)
}

// Summary returns the session's outcome tallies so far.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.summary
	out.Promotions = append([]string(nil), s.summary.Promotions...)
	out.Demotions = append([]string(nil), s.summary.Demotions...)
	return out
}

// close flushes buffered writes and seals the session. Each word's record is
// an independent transaction: a partial flush leaves the committed ones
// intact. Returns the number flushed.
func (s *Session) close(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.closed = true

	if len(s.summary.Promotions) > 0 || len(s.summary.Demotions) > 0 {
		s.log.Info("session: closing with mastery changes",
			"user", s.User,
			"promoted", s.summary.Promotions,
			"demoted", s.summary.Demotions)
	}

	if len(s.pending) == 0 {
		return 0, nil
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		flushed int
		kept    = make(map[string]mastery.WordRecord)
	)
	g.SetLimit(flushConcurrency)
	for word, rec := range s.pending {
		word, rec := word, rec
		g.Go(func() error {
			err := s.store.Put(ctx, rec)
			switch {
			case err == nil, errors.Is(err, wordstore.ErrStaleWrite):
				// Stale means an earlier replay already landed it.
				mu.Lock()
				flushed++
				mu.Unlock()
				return nil
			default:
				s.metrics.RecordStoreError(ctx, "flush")
				mu.Lock()
				kept[word] = rec
				mu.Unlock()
				return fmt.Errorf("session: flush %q: %w", word, err)
			}
		})
	}
	err := g.Wait()
	s.metrics.BufferedWrites.Add(ctx, -int64(flushed))
	s.pending = kept
	if err != nil {
		return flushed, err
	}
	return flushed, nil
}

// loadRecord returns the session's working copy of a word record, falling
// back to the store and finally to a fresh record. Store outages degrade to
// whatever the session already knows.
func (s *Session) loadRecord(ctx context.Context, word string) (mastery.WordRecord, error) {
	if rec, ok := s.cache[word]; ok {
		return rec, nil
	}
	rec, err := s.store.Get(ctx, s.User, s.Language, word)
	if err != nil {
		if !errors.Is(err, wordstore.ErrUnavailable) {
			return mastery.WordRecord{}, fmt.Errorf("session: load %q: %w", word, err)
		}
		s.metrics.RecordStoreError(ctx, "get")
		s.log.Warn("session: store unavailable on read, starting from a fresh record",
			"user", s.User, "word", word)
		return s.machine.NewRecord(s.User, s.Language, word, s.now()), nil
	}
	if rec == nil {
		return s.machine.NewRecord(s.User, s.Language, word, s.now()), nil
	}
	return *rec, nil
}

// writeRecord persists a record, buffering it for the close flush when the
// store is unavailable. A stale-write rejection means a replay already
// applied this attempt and is not an error.
func (s *Session) writeRecord(ctx context.Context, rec mastery.WordRecord) error {
	err := s.store.Put(ctx, rec)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, wordstore.ErrStaleWrite):
		s.log.Debug("session: duplicate attempt write dropped",
			"user", s.User, "word", rec.Word, "seq", rec.AttemptSeq)
		return nil
	case errors.Is(err, wordstore.ErrUnavailable):
		s.metrics.RecordStoreError(ctx, "put")
		if _, buffered := s.pending[rec.Word]; !buffered {
			s.metrics.BufferedWrites.Add(ctx, 1)
		}
		s.pending[rec.Word] = rec
		s.log.Warn("session: store unavailable, attempt buffered for close flush",
			"user", s.User, "word", rec.Word)
		return nil
	default:
		return fmt.Errorf("session: write %q: %w", rec.Word, err)
	}
}

func (s *Session) lessonPlan(word string) LessonPlan {
	ins := s.cfg.Instruction
	steps := make([]string, len(ins.LessonSteps))
	copy(steps, ins.LessonSteps)
	return LessonPlan{
		Word:       word,
		Steps:      steps,
		MinSeconds: ins.LessonMinSeconds,
		MaxSeconds: ins.LessonMaxSeconds,
	}
}

func (s *Session) queueRetry(word string) {
	for _, w := range s.retry {
		if w == word {
			return
		}
	}
	s.retry = append(s.retry, word)
}

func (s *Session) dropRetry(word string) {
	for i, w := range s.retry {
		if w == word {
			s.retry = append(s.retry[:i], s.retry[i+1:]...)
			return
		}
	}
}
