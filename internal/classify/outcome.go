// Package classify turns raw recognition results and audio-quality signals
// into discrete attempt outcomes.
//
// The classifier is a pure function over one word-in-sentence attempt: it
// produces GREEN (clear correct), RED (clear error), or UNCERTAIN
// (insufficient confidence or capture quality to score at all). UNCERTAIN
// attempts never reach the state machine and never mutate a word record —
// the session schedules a same-session retry instead.
package classify

// Outcome is the discrete result of one spoken-word attempt.
type Outcome string

const (
	// Green marks a clear correct read: the capture passed all quality gates
	// and the transcript matches the target word, directly or through an
	// allowed variant.
	Green Outcome = "GREEN"

	// Red marks a clear error: quality gates passed but the transcript does
	// not match the target.
	Red Outcome = "RED"

	// Uncertain marks an unscorable attempt: one or more quality gates
	// failed. Uncertain outcomes cause no state transition.
	Uncertain Outcome = "UNCERTAIN"
)

// IsValid reports whether o is a recognised outcome.
func (o Outcome) IsValid() bool {
	switch o {
	case Green, Red, Uncertain:
		return true
	}
	return false
}

// Scored reports whether o may be applied to a word record. Only GREEN and
// RED outcomes are scored; UNCERTAIN is not.
func (o Outcome) Scored() bool {
	return o == Green || o == Red
}
