// Package planner turns a user's due word set into ordered placement
// requests for the passage generator.
//
// The planner never fails a session: when its constraints cannot all hold it
// relaxes them in a fixed order (sentence diversity first, then insertion
// density down toward the floor) rather than returning an error.
package planner

import (
	"log/slog"
	"sort"
	"time"

	"github.com/kalini-labs/lexio/internal/config"
	"github.com/kalini-labs/lexio/internal/mastery"
	"github.com/kalini-labs/lexio/pkg/provider/passage"
)

// Planner selects and orders due words and assigns them to sentence slots.
type Planner struct {
	session   config.SessionConfig
	insertion config.InsertionConfig
	log       *slog.Logger
}

// New builds a planner from the practice configuration.
func New(cfg config.PracticeConfig, log *slog.Logger) *Planner {
	if log == nil {
		log = slog.Default()
	}
	return &Planner{session: cfg.Session, insertion: cfg.Insertion, log: log}
}

// Request is one planning round for a user's session.
type Request struct {
	User     string
	Language string
	Grade    int

	// Bridge is the active grade-transition profile, nil outside a bridge
	// period. During a bridge the lower density band applies.
	Bridge *config.BridgeConfig

	// Due is the candidate record set, typically from a store due query.
	Due []mastery.WordRecord

	Now time.Time
}

// Plan is the planning result.
type Plan struct {
	// Placements are the ordered generator placement requests.
	Placements []passage.PlacementRequest

	// Deferred holds due words beyond the daily cap; they roll over to the
	// next day's session.
	Deferred []mastery.WordRecord

	// SkippedLanguage counts records dropped for a language mismatch.
	SkippedLanguage int
}

// stateRank orders the due set: previously mastered words that regressed come
// first, then regular practice, then fresh review, then maintenance checks.
func stateRank(s mastery.State) int {
	switch s {
	case mastery.StatePracticingFlagged:
		return 0
	case mastery.StatePracticingUnflagged:
		return 1
	case mastery.StateUnderReview:
		return 2
	case mastery.StateMastered:
		return 3
	}
	return 4
}

// Build selects, orders, caps, and slots the due set. It never returns an
// error; an empty due set yields an empty plan.
func (p *Planner) Build(req Request) Plan {
	var plan Plan

	candidates := make([]mastery.WordRecord, 0, len(req.Due))
	for _, rec := range req.Due {
		if rec.Language != req.Language {
			plan.SkippedLanguage++
			p.log.Warn("planner: skipping word with language mismatch",
				"user", req.User, "word", rec.Word,
				"word_language", rec.Language, "session_language", req.Language)
			continue
		}
		if rec.State == mastery.StateNeedsInstruction {
			// Lesson words are surfaced separately by the session layer, not
			// embedded in passages.
			continue
		}
		if !req.Now.IsZero() && rec.NextDueAt.After(req.Now) {
			continue
		}
		candidates = append(candidates, rec)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := stateRank(candidates[i].State), stateRank(candidates[j].State)
		if ri != rj {
			return ri < rj
		}
		if !candidates[i].NextDueAt.Equal(candidates[j].NextDueAt) {
			return candidates[i].NextDueAt.Before(candidates[j].NextDueAt)
		}
		return candidates[i].Word < candidates[j].Word
	})

	if cap := p.dailyCap(req.Grade); cap > 0 && len(candidates) > cap {
		plan.Deferred = candidates[cap:]
		candidates = candidates[:cap]
	}

	plan.Placements = p.slot(candidates, req)
	return plan
}

// dailyCap returns the per-day item cap for the grade, zero for older grades
// with no cap. The effective cap sits at the midpoint of the configured band.
func (p *Planner) dailyCap(grade int) int {
	if grade > p.session.YoungGradeMax {
		return 0
	}
	return (p.session.DailyCapMin + p.session.DailyCapMax) / 2
}

// slot assigns each selected word a sentence index so that per-sentence
// insertion density stays inside the active band.
func (p *Planner) slot(records []mastery.WordRecord, req Request) []passage.PlacementRequest {
	if len(records) == 0 {
		return []passage.PlacementRequest{}
	}

	perSentence := p.wordsPerSentence(req.Grade, req.Bridge != nil)
	out := make([]passage.PlacementRequest, 0, len(records))
	for i, rec := range records {
		out = append(out, passage.PlacementRequest{
			Word:            rec.Word,
			Language:        rec.Language,
			SentenceSlot:    i / perSentence,
			AvoidTemplateID: rec.LastTemplateID,
			HighlightStyle:  p.insertion.HighlightStyle,
		})
	}
	return out
}

// wordsPerSentence derives how many practice words one sentence carries from
// the density band and an estimated sentence length for the grade, targeting
// the middle of the band so slots sit above the floor with headroom under the
// ceiling. The result never exceeds the per-sentence cap, and never drops
// below one even when that undershoots the floor: a thin passage beats a
// failed session.
func (p *Planner) wordsPerSentence(grade int, bridge bool) int {
	lo, hi := p.insertion.DensityMinPct, p.insertion.DensityMaxPct
	if bridge {
		lo, hi = p.insertion.BridgeDensityMinPct, p.insertion.BridgeDensityMaxPct
	}

	// Rounded midpoint of the band.
	n := (estimatedSentenceWords(grade)*(lo+hi) + 100) / 200
	if n < 1 {
		n = 1
	}
	if n > p.insertion.MaxPerSentence {
		n = p.insertion.MaxPerSentence
	}
	return n
}

// estimatedSentenceWords approximates sentence length for a grade level;
// early readers get short sentences.
func estimatedSentenceWords(grade int) int {
	if grade < 1 {
		grade = 1
	}
	if grade > 8 {
		grade = 8
	}
	return 6 + grade
}

// RelaxDiversity clears the avoid-template constraint from placements. First
// relaxation step when the generator cannot satisfy a plan.
func (p *Planner) RelaxDiversity(placements []passage.PlacementRequest) []passage.PlacementRequest {
	out := make([]passage.PlacementRequest, len(placements))
	copy(out, placements)
	for i := range out {
		out[i].AvoidTemplateID = ""
	}
	return out
}

// RelaxDensity respreads placements at one word per sentence, walking the
// insertion density down toward (and possibly past) the floor. Second and
// final relaxation step.
func (p *Planner) RelaxDensity(placements []passage.PlacementRequest) []passage.PlacementRequest {
	out := make([]passage.PlacementRequest, len(placements))
	copy(out, placements)
	for i := range out {
		out[i].SentenceSlot = i
	}
	return out
}
