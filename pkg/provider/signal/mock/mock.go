// Package mock provides a test double for the signal package interfaces.
//
// Use Source to feed a scripted sequence of AttemptSignal values and inspect
// which words the scheduler asked to capture.
//
// Example:
//
//	src := &mock.Source{Signals: []signal.AttemptSignal{
//	    {Transcript: "cat", ASRConfidence: 0.95, SNRDb: 22, TimingPercentile: 50},
//	}}
//	sig, _ := src.Capture(ctx, "cat", signal.SentenceContext{})
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/kalini-labs/lexio/pkg/provider/signal"
)

// CaptureCall records a single invocation of Source.Capture.
type CaptureCall struct {
	// Word is the target word passed to Capture.
	Word string
	// Sentence is the sentence context passed to Capture.
	Sentence signal.SentenceContext
}

// Source is a mock implementation of signal.Source. Signals are returned in
// order; when the script runs out, Capture returns an error.
type Source struct {
	mu sync.Mutex

	// Signals is the scripted sequence returned by successive Capture calls.
	Signals []signal.AttemptSignal

	// CaptureErr, if non-nil, is returned by every Capture call.
	CaptureErr error

	// CaptureCalls records every call to Capture.
	CaptureCalls []CaptureCall

	next int
}

// Capture records the call and returns the next scripted signal.
func (s *Source) Capture(_ context.Context, word string, sentence signal.SentenceContext) (signal.AttemptSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CaptureCalls = append(s.CaptureCalls, CaptureCall{Word: word, Sentence: sentence})
	if s.CaptureErr != nil {
		return signal.AttemptSignal{}, s.CaptureErr
	}
	if s.next >= len(s.Signals) {
		return signal.AttemptSignal{}, fmt.Errorf("mock source: no signal scripted for capture %d", s.next)
	}
	sig := s.Signals[s.next]
	s.next++
	return sig, nil
}

// Reset clears recorded calls and rewinds the script. Thread-safe.
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CaptureCalls = nil
	s.next = 0
}
