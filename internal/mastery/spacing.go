package mastery

import (
	"time"

	"github.com/kalini-labs/lexio/internal/config"
)

const day = 24 * time.Hour

// Spacing computes when a word should next surface. It combines an
// exponential half-life model with a fixed checkpoint schedule: the word is
// due at the earlier of the two, and a consumed checkpoint never fires again.
type Spacing struct {
	cfg config.SpacingConfig
}

// NewSpacing returns a spacing policy using the given configuration.
func NewSpacing(cfg config.SpacingConfig) *Spacing {
	return &Spacing{cfg: cfg}
}

// Seed initialises the half-life and checkpoint anchor when a word enters the
// given practicing track.
func (s *Spacing) Seed(r *WordRecord, track State, at time.Time) {
	switch track {
	case StatePracticingFlagged:
		r.HalfLifeDays = s.cfg.HalfLifeStartFlaggedDays
	default:
		r.HalfLifeDays = s.cfg.HalfLifeStartUnflaggedDays
	}
	r.HalfLifeDays = s.clamp(r.HalfLifeDays)
	r.PracticeStartAt = at
	r.CheckpointsVisited = 0
}

// Update adjusts the half-life after a scored attempt and recomputes
// NextDueAt. It marks every checkpoint at or before now as visited first, so
// an attempt that satisfies a checkpoint consumes it.
func (s *Spacing) Update(r *WordRecord, correct bool, at time.Time) {
	if correct {
		r.HalfLifeDays *= s.cfg.OnSuccessMultiply
	} else {
		r.HalfLifeDays *= s.cfg.OnFailureMultiply
	}
	r.HalfLifeDays = s.clamp(r.HalfLifeDays)

	if r.State.Practicing() {
		s.consumeCheckpoints(r, at)
	}
	r.NextDueAt = s.nextDue(r, at)
}

// nextDue is the earlier of the half-life-derived time and the next unvisited
// checkpoint, never before the attempt itself.
func (s *Spacing) nextDue(r *WordRecord, at time.Time) time.Time {
	due := at.Add(durationDays(r.HalfLifeDays))
	if cp, ok := s.nextCheckpoint(r); ok && cp.Before(due) {
		due = cp
	}
	if due.Before(at) {
		due = at
	}
	return due
}

// nextCheckpoint returns the first unvisited checkpoint time for a practicing
// word, if any remain.
func (s *Spacing) nextCheckpoint(r *WordRecord) (time.Time, bool) {
	cps := s.checkpoints(r.State)
	if cps == nil || r.CheckpointsVisited >= len(cps) {
		return time.Time{}, false
	}
	return r.PracticeStartAt.Add(durationDays(cps[r.CheckpointsVisited])), true
}

// consumeCheckpoints marks every checkpoint whose time has passed as visited.
func (s *Spacing) consumeCheckpoints(r *WordRecord, now time.Time) {
	cps := s.checkpoints(r.State)
	for r.CheckpointsVisited < len(cps) {
		cp := r.PracticeStartAt.Add(durationDays(cps[r.CheckpointsVisited]))
		if cp.After(now) {
			break
		}
		r.CheckpointsVisited++
	}
}

func (s *Spacing) checkpoints(st State) []float64 {
	switch st {
	case StatePracticingFlagged:
		return s.cfg.FlaggedCheckpointsDays
	case StatePracticingUnflagged:
		return s.cfg.UnflaggedCheckpointsDays
	}
	return nil
}

func (s *Spacing) clamp(halfLife float64) float64 {
	if halfLife < s.cfg.HalfLifeMinDays {
		return s.cfg.HalfLifeMinDays
	}
	if halfLife > s.cfg.HalfLifeMaxDays {
		return s.cfg.HalfLifeMaxDays
	}
	return halfLife
}

func durationDays(d float64) time.Duration {
	return time.Duration(d * float64(day))
}
