package classify

import (
	"testing"

	"github.com/kalini-labs/lexio/internal/config"
	"github.com/kalini-labs/lexio/pkg/provider/signal"
)

func testLanguage(code string) config.Language {
	for _, lang := range config.Default().Languages {
		if lang.Code == code {
			return lang
		}
	}
	panic("unknown test language " + code)
}

// goodSignal passes every default quality gate.
func goodSignal(transcript string) signal.AttemptSignal {
	return signal.AttemptSignal{
		Transcript:       transcript,
		ASRConfidence:    0.95,
		SNRDb:            20,
		TimingPercentile: 50,
	}
}

func TestClassifyOutcomes(t *testing.T) {
	c := New(config.Default().Practice.Scoring, testLanguage("en"))

	if got := c.Classify("ship", goodSignal("ship")); got != Green {
		t.Errorf("exact match = %v, want Green", got)
	}
	if got := c.Classify("ship", goodSignal("banana")); got != Red {
		t.Errorf("mismatch = %v, want Red", got)
	}
	if got := c.Classify("ship", goodSignal("Ship.")); got != Green {
		t.Errorf("case and punctuation should not matter, got %v", got)
	}
}

func TestQualityGates(t *testing.T) {
	c := New(config.Default().Practice.Scoring, testLanguage("en"))

	tests := map[string]signal.AttemptSignal{
		"low confidence": {
			Transcript: "ship", ASRConfidence: 0.5, SNRDb: 20, TimingPercentile: 50,
		},
		"noisy capture": {
			Transcript: "ship", ASRConfidence: 0.95, SNRDb: 3, TimingPercentile: 50,
		},
		"too fast": {
			Transcript: "ship", ASRConfidence: 0.95, SNRDb: 20, TimingPercentile: 1,
		},
		"too slow": {
			Transcript: "ship", ASRConfidence: 0.95, SNRDb: 20, TimingPercentile: 99,
		},
	}
	for name, sig := range tests {
		t.Run(name, func(t *testing.T) {
			if got := c.Classify("ship", sig); got != Uncertain {
				t.Errorf("Classify = %v, want Uncertain", got)
			}
		})
	}
}

func TestPhonemeGate(t *testing.T) {
	c := New(config.Default().Practice.Scoring, testLanguage("en"))

	// Defaults: avg_min 0.6, low_threshold 0.4, allow_low_count_max 1.

	sig := goodSignal("ship")
	sig.PhonemeQualities = []float64{0.2, 0.3, 0.3}
	if got := c.Classify("ship", sig); got != Uncertain {
		t.Errorf("low average with many low phonemes = %v, want Uncertain", got)
	}

	// Low average but only one phoneme under the threshold is tolerated.
	sig.PhonemeQualities = []float64{0.3, 0.6, 0.6}
	if got := c.Classify("ship", sig); got != Green {
		t.Errorf("single low phoneme = %v, want Green", got)
	}

	// No phoneme data passes the gate entirely.
	sig.PhonemeQualities = nil
	if got := c.Classify("ship", sig); got != Green {
		t.Errorf("no phoneme data = %v, want Green", got)
	}
}

func TestLanguagePhonemeOverride(t *testing.T) {
	lang := testLanguage("en")
	lang.Phoneme = &config.PhonemeConfig{
		AvgMin:           0.9,
		LowThreshold:     0.8,
		AllowLowCountMax: 0,
	}
	c := New(config.Default().Practice.Scoring, lang)

	sig := goodSignal("ship")
	sig.PhonemeQualities = []float64{0.7, 0.7, 0.7}
	if got := c.Classify("ship", sig); got != Uncertain {
		t.Errorf("stricter language gate = %v, want Uncertain", got)
	}
}

func TestOutcomePredicates(t *testing.T) {
	for _, o := range []Outcome{Green, Red, Uncertain} {
		if !o.IsValid() {
			t.Errorf("%v.IsValid() = false", o)
		}
	}
	if Outcome("PURPLE").IsValid() {
		t.Error("unknown outcome reported valid")
	}
	if !Green.Scored() || !Red.Scored() {
		t.Error("Green and Red must be scored outcomes")
	}
	if Uncertain.Scored() {
		t.Error("Uncertain must not be a scored outcome")
	}
}
