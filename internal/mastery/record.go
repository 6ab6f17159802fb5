// Package mastery implements the per-word practice automaton: the word
// record, its state machine, the mastery evaluator, and the spacing policy.
//
// A [WordRecord] exists per (user, language, word) and is created on the
// word's first scored encounter in a sentence. All transitions go through
// [Machine.Apply]; callers never mutate State directly. Unscorable
// (UNCERTAIN) attempts are filtered out before they reach this package.
package mastery

import (
	"time"

	"github.com/kalini-labs/lexio/internal/classify"
)

// State is the practice state of one word for one user.
type State string

const (
	// StateSeen marks a word read correctly on first encounter and not
	// currently in trouble.
	StateSeen State = "Seen"

	// StateUnderReview marks a word with a fresh clear error, pending a
	// confirming or recovering re-read.
	StateUnderReview State = "UnderReview"

	// StatePracticingUnflagged marks a word in the regular practice track
	// after repeated errors before ever being mastered.
	StatePracticingUnflagged State = "PracticingUnflagged"

	// StatePracticingFlagged marks a previously mastered word back in
	// practice under stricter, faster spacing.
	StatePracticingFlagged State = "PracticingFlagged"

	// StateMastered marks a word promoted by the mastery evaluator and only
	// checked at maintenance intervals.
	StateMastered State = "Mastered"

	// StateNeedsInstruction marks a word that accumulated enough errors to
	// need an explicit micro-lesson before returning to normal flow.
	StateNeedsInstruction State = "NeedsInstruction"
)

// IsValid reports whether s is a recognised state.
func (s State) IsValid() bool {
	switch s {
	case StateSeen, StateUnderReview, StatePracticingUnflagged,
		StatePracticingFlagged, StateMastered, StateNeedsInstruction:
		return true
	}
	return false
}

// Practicing reports whether s is one of the two practice tracks.
func (s State) Practicing() bool {
	return s == StatePracticingUnflagged || s == StatePracticingFlagged
}

// windowCap bounds the rolling attempt window. The mastery evaluator reads
// the last 8 attempts for unflagged promotion and the last 4 for flagged
// promotion, so 8 covers both.
const windowCap = 8

// dayKeyFormat renders a timestamp as its calendar day, for distinct-day
// counting.
const dayKeyFormat = "2006-01-02"

// AttemptRef is one scored attempt as retained in a record's rolling window.
type AttemptRef struct {
	// Outcome is GREEN or RED; UNCERTAIN attempts are never recorded.
	Outcome classify.Outcome `json:"outcome"`

	// At is when the attempt was scored.
	At time.Time `json:"at"`

	// TemplateID identifies the sentence template the word appeared in.
	TemplateID string `json:"template_id"`

	// ASRConfidence is the recogniser confidence of this attempt, kept so the
	// demotion rule can require high-confidence errors.
	ASRConfidence float64 `json:"asr_confidence"`
}

// WordRecord is the persisted practice state of one word for one user.
type WordRecord struct {
	// User, Language, and Word form the record key. Language must equal the
	// active session language for the word to be selectable.
	User     string `json:"user"`
	Language string `json:"language"`
	Word     string `json:"word"`

	// State is the current automaton state. Mutated only by [Machine.Apply].
	State State `json:"state"`

	// ReviewOrigin records which state an UnderReview episode started from
	// (Seen or Mastered); it decides where a second error or a recovery
	// lands. Meaningless outside UnderReview.
	ReviewOrigin State `json:"review_origin,omitempty"`

	// LastSeenAt is the time of the most recent scored attempt.
	LastSeenAt time.Time `json:"last_seen_at"`

	// NextDueAt is when the word should next be surfaced for practice.
	// Invariant: never before LastSeenAt.
	NextDueAt time.Time `json:"next_due_at"`

	// Window is the rolling sequence of the last scored attempts, oldest
	// first, bounded at the window cap (ring semantics).
	Window []AttemptRef `json:"window"`

	// DaysCovered counts the distinct calendar days spanned by Window.
	DaysCovered int `json:"days_covered"`

	// DistinctSentenceCount counts the distinct sentence templates in Window.
	DistinctSentenceCount int `json:"distinct_sentence_count"`

	// LastTemplateID is the sentence template of the most recent attempt,
	// feeding the planner's sentence-diversity requirement.
	LastTemplateID string `json:"last_template_id,omitempty"`

	// StreakCorrect and StreakWrong count consecutive outcomes; each resets
	// when the opposite outcome arrives.
	StreakCorrect int `json:"streak_correct"`
	StreakWrong   int `json:"streak_wrong"`

	// StabilityScore is a derived confidence measure in [0, 1] feeding
	// maintenance-interval scheduling.
	StabilityScore float64 `json:"stability_score"`

	// HalfLifeDays drives spacing; multiplied up on success, down on
	// failure, always clamped into the configured bounds.
	HalfLifeDays float64 `json:"half_life_days"`

	// AsrConfLast and SnrLast retain the most recent attempt's quality
	// signals for diagnostics.
	AsrConfLast float64 `json:"asr_conf_last"`
	SnrLast     float64 `json:"snr_last"`

	// LastTransitionReason is a human-readable audit string explaining the
	// most recent state change.
	LastTransitionReason string `json:"last_transition_reason,omitempty"`

	// AttemptSeq is a monotonic counter incremented once per applied scored
	// attempt. The store rejects writes whose sequence is not ahead of the
	// persisted one, which makes transaction replay idempotent.
	AttemptSeq int64 `json:"attempt_seq"`

	// PracticeStartAt anchors the fixed checkpoint schedule; set when the
	// word enters a practicing track.
	PracticeStartAt time.Time `json:"practice_start_at,omitempty"`

	// CheckpointsVisited is how many fixed checkpoints have already been
	// consumed since PracticeStartAt.
	CheckpointsVisited int `json:"checkpoints_visited"`

	// ErrorDays lists the distinct calendar days (YYYY-MM-DD) on which clear
	// errors occurred since the last instruction reset; drives the
	// NeedsInstruction entry rule together with ErrorCount.
	ErrorDays []string `json:"error_days,omitempty"`

	// ErrorCount counts clear errors since the last instruction reset.
	ErrorCount int `json:"error_count"`

	// EverMastered reports whether the word has ever reached Mastered; it
	// selects the flagged practice track and blocks NeedsInstruction.
	EverMastered bool `json:"ever_mastered"`

	// MaintenanceIdx indexes the maintenance interval ladder for Mastered
	// words; a passed check climbs it.
	MaintenanceIdx int `json:"maintenance_idx"`

	// LessonCompleted and LessonGreens track the NeedsInstruction exit
	// condition: a finished micro-lesson plus two subsequent GREEN checks.
	LessonCompleted bool `json:"lesson_completed"`
	LessonGreens    int  `json:"lesson_greens"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// recordAttempt appends one scored attempt to the rolling window and updates
// the derived rolling statistics.
func (r *WordRecord) recordAttempt(ref AttemptRef) {
	r.Window = append(r.Window, ref)
	if len(r.Window) > windowCap {
		r.Window = r.Window[len(r.Window)-windowCap:]
	}

	days := make(map[string]struct{}, len(r.Window))
	templates := make(map[string]struct{}, len(r.Window))
	for _, a := range r.Window {
		days[a.At.Format(dayKeyFormat)] = struct{}{}
		if a.TemplateID != "" {
			templates[a.TemplateID] = struct{}{}
		}
	}
	r.DaysCovered = len(days)
	r.DistinctSentenceCount = len(templates)

	switch ref.Outcome {
	case classify.Green:
		r.StreakCorrect++
		r.StreakWrong = 0
	case classify.Red:
		r.StreakWrong++
		r.StreakCorrect = 0
	}

	r.LastSeenAt = ref.At
	r.LastTemplateID = ref.TemplateID
	r.AttemptSeq++
	r.UpdatedAt = ref.At
}

// lastWindow returns the newest k attempts from the window, oldest first.
func (r *WordRecord) lastWindow(k int) []AttemptRef {
	if k >= len(r.Window) {
		return r.Window
	}
	return r.Window[len(r.Window)-k:]
}

// recordError tracks a clear error for the NeedsInstruction entry rule.
func (r *WordRecord) recordError(at time.Time) {
	day := at.Format(dayKeyFormat)
	for _, d := range r.ErrorDays {
		if d == day {
			r.ErrorCount++
			return
		}
	}
	r.ErrorDays = append(r.ErrorDays, day)
	r.ErrorCount++
}

// resetInstruction clears the error accumulator and lesson progress after a
// word leaves NeedsInstruction.
func (r *WordRecord) resetInstruction() {
	r.ErrorDays = nil
	r.ErrorCount = 0
	r.LessonCompleted = false
	r.LessonGreens = 0
}
