package signal

// AttemptSignal is the measurement tuple produced by the speech capture layer
// for one spoken-word attempt inside a sentence. The browser (or any other
// capture frontend) performs recognition; only this tuple crosses the
// scheduler boundary.
type AttemptSignal struct {
	// Transcript is the recognised text for the attempted word.
	Transcript string

	// ASRConfidence is the recogniser's confidence score (0.0–1.0).
	ASRConfidence float64

	// SNRDb is the signal-to-noise ratio of the capture in decibels.
	SNRDb float64

	// TimingPercentile places the attempt's duration within the expected
	// duration distribution for the word (0–100). Values outside the
	// configured band mark the attempt as unscorable.
	TimingPercentile float64

	// PhonemeQualities holds per-phoneme quality scores (0.0–1.0) when the
	// recogniser reports them. May be empty.
	PhonemeQualities []float64
}

// SentenceContext identifies where in a passage a word attempt happened.
type SentenceContext struct {
	// TemplateID identifies the sentence template the word was embedded in.
	// Feeds the sentence-diversity requirement for mastery.
	TemplateID string

	// SentenceIndex is the position of the sentence within the passage.
	SentenceIndex int

	// Text is the full sentence as displayed to the reader.
	Text string
}
