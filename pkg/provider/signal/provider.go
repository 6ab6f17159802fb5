// Package signal defines the Source interface for attempt signal capture.
//
// A signal source wraps whatever frontend actually listens to the child read
// (browser speech APIs pushed over a live connection, a test script, a local
// microphone pipeline) and exposes a uniform blocking capture call. The
// scheduler never observes recogniser callbacks or event timing — only the
// resulting [AttemptSignal] tuple.
//
// Implementors must be safe for concurrent use.
package signal

import "context"

// Source captures the measurement tuple for a single word-in-sentence attempt.
type Source interface {
	// Capture blocks until a signal for the given word is available or ctx is
	// cancelled. The sentence context tells the frontend which occurrence of
	// the word is being attempted.
	Capture(ctx context.Context, word string, sentence SentenceContext) (AttemptSignal, error)
}
