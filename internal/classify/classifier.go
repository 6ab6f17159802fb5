package classify

import (
	"github.com/kalini-labs/lexio/internal/config"
	"github.com/kalini-labs/lexio/pkg/provider/signal"
)

// Classifier scores word attempts for one language. It is read-only after
// construction and safe for concurrent use.
type Classifier struct {
	scoring config.ScoringConfig
	phoneme config.PhonemeConfig
	matcher *Matcher
}

// New creates a Classifier for lang using the global scoring gates from
// scoring. The language's phoneme overrides, when present, replace the
// global phoneme gate, and its variant packs drive lexical matching.
func New(scoring config.ScoringConfig, lang config.Language) *Classifier {
	phoneme := scoring.Phoneme
	if lang.Phoneme != nil {
		phoneme = *lang.Phoneme
	}
	return &Classifier{
		scoring: scoring,
		phoneme: phoneme,
		matcher: NewMatcher(lang.VariantPacks, lang.Script == "Latin"),
	}
}

// Classify scores a single attempt at target. It is a pure function: no
// record is touched and no retry is scheduled here — the caller owns both.
func (c *Classifier) Classify(target string, sig signal.AttemptSignal) Outcome {
	if !c.scorable(sig) {
		return Uncertain
	}
	if c.matcher.Matches(target, sig.Transcript) {
		return Green
	}
	return Red
}

// scorable applies the quality gates: ASR confidence, SNR, timing band, and
// phoneme quality. Any failed gate makes the attempt unscorable.
func (c *Classifier) scorable(sig signal.AttemptSignal) bool {
	if sig.ASRConfidence < c.scoring.ASRConfidenceMin {
		return false
	}
	if sig.SNRDb < c.scoring.SNRMinDb {
		return false
	}
	if sig.TimingPercentile < c.scoring.TimingPercentileLow ||
		sig.TimingPercentile > c.scoring.TimingPercentileHigh {
		return false
	}
	return c.phonemeOK(sig.PhonemeQualities)
}

// phonemeOK checks the per-phoneme quality gate. An attempt fails only when
// the average is below the minimum AND more than the allowed count of
// phonemes score below the low threshold. No phoneme data passes the gate.
func (c *Classifier) phonemeOK(qualities []float64) bool {
	if len(qualities) == 0 {
		return true
	}
	sum := 0.0
	low := 0
	for _, q := range qualities {
		sum += q
		if q < c.phoneme.LowThreshold {
			low++
		}
	}
	avg := sum / float64(len(qualities))
	if avg < c.phoneme.AvgMin && low > c.phoneme.AllowLowCountMax {
		return false
	}
	return true
}
