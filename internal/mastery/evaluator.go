package mastery

import (
	"time"

	"github.com/kalini-labs/lexio/internal/classify"
	"github.com/kalini-labs/lexio/internal/config"
)

// demotionMinASRConfidence keeps borderline recognitions from demoting a
// mastered word. Attempts below it still pass the scoring gates but do not
// count toward the demotion error tally.
const demotionMinASRConfidence = 0.9

// Evaluator applies the promotion, demotion, and instruction-entry rules to
// a word record's rolling window.
type Evaluator struct {
	mastery     config.MasteryConfig
	instruction config.InstructionConfig
}

// NewEvaluator returns an evaluator using the given rule configuration.
func NewEvaluator(mastery config.MasteryConfig, instruction config.InstructionConfig) *Evaluator {
	return &Evaluator{mastery: mastery, instruction: instruction}
}

// PromotionEligible reports whether r's rolling window satisfies the
// promotion rule for its current practice track. The final attempt must be
// GREEN regardless of the aggregate counts.
func (e *Evaluator) PromotionEligible(r *WordRecord) bool {
	var win config.PromotionWindow
	switch r.State {
	case StatePracticingFlagged:
		win = e.mastery.Flagged
	case StatePracticingUnflagged, StateSeen, StateUnderReview:
		win = e.mastery.Unflagged
	default:
		return false
	}

	attempts := r.lastWindow(win.LastK)
	if len(attempts) < win.LastK {
		return false
	}
	if attempts[len(attempts)-1].Outcome != classify.Green {
		return false
	}

	var correct int
	days := make(map[string]struct{}, len(attempts))
	templates := make(map[string]struct{}, len(attempts))
	for _, a := range attempts {
		if a.Outcome == classify.Green {
			correct++
		}
		days[a.At.Format(dayKeyFormat)] = struct{}{}
		if a.TemplateID != "" {
			templates[a.TemplateID] = struct{}{}
		}
	}
	return correct >= win.MinCorrect &&
		len(days) >= win.MinDistinctDays &&
		len(templates) >= win.MinDistinctSentences
}

// DemotionDue reports whether a Mastered word has accumulated enough
// high-confidence errors within the trailing demotion window to re-enter
// review. A single error is tolerated.
func (e *Evaluator) DemotionDue(r *WordRecord, now time.Time) bool {
	cutoff := now.Add(-time.Duration(e.mastery.DemotionWindowDays) * day)
	var errs int
	for _, a := range r.Window {
		if a.Outcome != classify.Red || a.At.Before(cutoff) {
			continue
		}
		if a.ASRConfidence < demotionMinASRConfidence {
			continue
		}
		errs++
	}
	return errs >= e.mastery.DemotionMinErrors
}

// InstructionDue reports whether a never-mastered word has accumulated enough
// errors across enough distinct days to need an explicit micro-lesson.
func (e *Evaluator) InstructionDue(r *WordRecord) bool {
	if r.EverMastered {
		return false
	}
	return r.ErrorCount >= e.instruction.EnterMinErrors &&
		len(r.ErrorDays) >= e.instruction.EnterMinDistinctDays
}

// InstructionExitReady reports whether a NeedsInstruction word has finished
// its lesson and banked enough subsequent GREEN checks to re-enter flow.
func (e *Evaluator) InstructionExitReady(r *WordRecord) bool {
	return r.LessonCompleted && r.LessonGreens >= e.instruction.ExitGreenChecks
}

// MaintenanceDue returns the next maintenance check time for a Mastered word.
// A passed check climbs the interval ladder; the ladder's last rung repeats.
func (e *Evaluator) MaintenanceDue(r *WordRecord, at time.Time) time.Time {
	ivs := e.mastery.MaintenanceIntervalsDays
	if len(ivs) == 0 {
		return at.Add(14 * day)
	}
	idx := r.MaintenanceIdx
	if idx >= len(ivs) {
		idx = len(ivs) - 1
	}
	return at.Add(time.Duration(ivs[idx]) * day)
}

// Stability derives a confidence score in [0, 1] from the half-life progress
// and the current correct streak.
func (e *Evaluator) Stability(r *WordRecord, spacing config.SpacingConfig) float64 {
	var hl float64
	if spacing.HalfLifeMaxDays > 0 {
		hl = r.HalfLifeDays / spacing.HalfLifeMaxDays
	}
	streak := float64(r.StreakCorrect)
	if streak > 5 {
		streak = 5
	}
	score := 0.7*hl + 0.3*streak/5
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
