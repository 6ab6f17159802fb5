package mastery

import (
	"fmt"
	"time"

	"github.com/kalini-labs/lexio/internal/classify"
	"github.com/kalini-labs/lexio/internal/config"
)

// Event is one scored attempt to apply to a word record. Outcome must be
// GREEN or RED; the classifier drops UNCERTAIN attempts before this point.
type Event struct {
	Outcome       classify.Outcome
	At            time.Time
	TemplateID    string
	ASRConfidence float64
	SNRDb         float64

	// MaintenanceCheck marks an attempt scheduled as a periodic check of a
	// Mastered word. A failed check skips the single-error tolerance.
	MaintenanceCheck bool
}

// Transition describes the effect of applying one event.
type Transition struct {
	From   State
	To     State
	Reason string

	// Promoted and Demoted flag crossings of the Mastered boundary, for
	// metrics and session summaries.
	Promoted bool
	Demoted  bool
}

// Changed reports whether the event moved the word to a different state.
func (t Transition) Changed() bool { return t.From != t.To }

// Machine is the pure transition function over word records. It composes the
// evaluator and the spacing policy; it holds no per-word state itself.
type Machine struct {
	eval    *Evaluator
	spacing *Spacing
	spcfg   config.SpacingConfig
}

// NewMachine builds a machine from the practice configuration.
func NewMachine(mastery config.MasteryConfig, spacing config.SpacingConfig, instruction config.InstructionConfig) *Machine {
	return &Machine{
		eval:    NewEvaluator(mastery, instruction),
		spacing: NewSpacing(spacing),
		spcfg:   spacing,
	}
}

// NewRecord creates a fresh record for a word's first scored encounter. The
// caller applies the encounter's event afterwards.
func (m *Machine) NewRecord(user, language, word string, at time.Time) WordRecord {
	return WordRecord{
		User:         user,
		Language:     language,
		Word:         word,
		State:        StateSeen,
		HalfLifeDays: m.spcfg.HalfLifeStartUnflaggedDays,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

// Apply folds one scored attempt into a copy of the record and returns it
// with the resulting transition. The input record is not modified.
func (m *Machine) Apply(rec WordRecord, ev Event) (WordRecord, Transition) {
	r := rec
	r.Window = append([]AttemptRef(nil), rec.Window...)
	r.ErrorDays = append([]string(nil), rec.ErrorDays...)

	r.recordAttempt(AttemptRef{
		Outcome:       ev.Outcome,
		At:            ev.At,
		TemplateID:    ev.TemplateID,
		ASRConfidence: ev.ASRConfidence,
	})
	r.AsrConfLast = ev.ASRConfidence
	r.SnrLast = ev.SNRDb

	var tr Transition
	switch ev.Outcome {
	case classify.Green:
		tr = m.applyGreen(&r, ev)
	case classify.Red:
		tr = m.applyRed(&r, ev)
	default:
		tr = Transition{From: rec.State, To: rec.State, Reason: "unscored attempt ignored"}
	}

	r.StabilityScore = m.eval.Stability(&r, m.spcfg)
	if tr.Changed() || tr.Reason != "" {
		r.LastTransitionReason = tr.Reason
	}
	if r.NextDueAt.Before(r.LastSeenAt) {
		r.NextDueAt = r.LastSeenAt
	}
	return r, tr
}

// CompleteLesson marks the micro-lesson of a NeedsInstruction word as done.
// The word still needs its GREEN exit checks before re-entering flow. The
// attempt sequence advances so the change survives the store's conditional
// write.
func (m *Machine) CompleteLesson(rec WordRecord, at time.Time) WordRecord {
	r := rec
	r.LessonCompleted = true
	r.AttemptSeq++
	r.UpdatedAt = at
	return r
}

func (m *Machine) applyGreen(r *WordRecord, ev Event) Transition {
	from := r.State

	switch r.State {
	case StateSeen:
		m.spacing.Update(r, true, ev.At)
		if m.eval.PromotionEligible(r) {
			return m.promote(r, from, ev.At)
		}
		return Transition{From: from, To: r.State}

	case StateUnderReview:
		origin := r.ReviewOrigin
		r.ReviewOrigin = ""
		switch origin {
		case StateMastered:
			r.State = StateMastered
			r.NextDueAt = m.eval.MaintenanceDue(r, ev.At)
			return Transition{From: from, To: r.State, Reason: "recovered to mastered on confirming read"}
		default:
			r.State = StateSeen
			m.spacing.Update(r, true, ev.At)
			return Transition{From: from, To: r.State, Reason: "recovered on confirming read"}
		}

	case StatePracticingUnflagged, StatePracticingFlagged:
		m.spacing.Update(r, true, ev.At)
		if m.eval.PromotionEligible(r) {
			return m.promote(r, from, ev.At)
		}
		return Transition{From: from, To: r.State}

	case StateMastered:
		if ev.MaintenanceCheck {
			r.NextDueAt = m.eval.MaintenanceDue(r, ev.At)
			r.MaintenanceIdx++
			return Transition{From: from, To: r.State, Reason: "maintenance check passed"}
		}
		r.NextDueAt = m.eval.MaintenanceDue(r, ev.At)
		return Transition{From: from, To: r.State}

	case StateNeedsInstruction:
		if r.LessonCompleted {
			r.LessonGreens++
		}
		if m.eval.InstructionExitReady(r) {
			r.resetInstruction()
			r.State = StateUnderReview
			r.ReviewOrigin = StateSeen
			r.NextDueAt = ev.At
			return Transition{From: from, To: r.State, Reason: "lesson complete with green exit checks"}
		}
		r.NextDueAt = ev.At
		return Transition{From: from, To: r.State}
	}
	return Transition{From: from, To: r.State}
}

func (m *Machine) applyRed(r *WordRecord, ev Event) Transition {
	from := r.State
	r.recordError(ev.At)

	// Error accumulation on a never-mastered word can force an explicit
	// lesson from any of its states.
	if r.State != StateNeedsInstruction && m.eval.InstructionDue(r) {
		r.State = StateNeedsInstruction
		r.LessonCompleted = false
		r.LessonGreens = 0
		r.NextDueAt = ev.At
		return Transition{
			From:   from,
			To:     r.State,
			Reason: fmt.Sprintf("needs instruction after %d errors across %d days", r.ErrorCount, len(r.ErrorDays)),
		}
	}

	switch r.State {
	case StateSeen:
		r.State = StateUnderReview
		r.ReviewOrigin = StateSeen
		r.NextDueAt = ev.At
		return Transition{From: from, To: r.State, Reason: "first clear error"}

	case StateUnderReview:
		origin := r.ReviewOrigin
		r.ReviewOrigin = ""
		track := StatePracticingUnflagged
		reason := "second clear error, entering practice"
		if origin == StateMastered {
			track = StatePracticingFlagged
			reason = "error confirmed on previously mastered word"
		}
		r.State = track
		m.spacing.Seed(r, track, ev.At)
		m.spacing.Update(r, false, ev.At)
		return Transition{From: from, To: r.State, Reason: reason}

	case StatePracticingUnflagged, StatePracticingFlagged:
		m.spacing.Update(r, false, ev.At)
		return Transition{From: from, To: r.State}

	case StateMastered:
		if ev.MaintenanceCheck || m.eval.DemotionDue(r, ev.At) {
			r.State = StateUnderReview
			r.ReviewOrigin = StateMastered
			r.NextDueAt = ev.At
			reason := "repeated errors within demotion window"
			if ev.MaintenanceCheck {
				reason = "maintenance check failed"
			}
			return Transition{From: from, To: r.State, Reason: reason, Demoted: true}
		}
		// A single incidental error is tolerated; the word stays mastered.
		r.NextDueAt = m.eval.MaintenanceDue(r, ev.At)
		return Transition{From: from, To: r.State, Reason: "single error tolerated while mastered"}

	case StateNeedsInstruction:
		r.LessonGreens = 0
		r.NextDueAt = ev.At
		return Transition{From: from, To: r.State}
	}
	return Transition{From: from, To: r.State}
}

func (m *Machine) promote(r *WordRecord, from State, at time.Time) Transition {
	r.State = StateMastered
	r.EverMastered = true
	r.MaintenanceIdx = 0
	r.ReviewOrigin = ""
	r.resetInstruction()
	r.NextDueAt = m.eval.MaintenanceDue(r, at)
	return Transition{
		From:     from,
		To:       StateMastered,
		Reason:   "promotion window satisfied",
		Promoted: true,
	}
}
