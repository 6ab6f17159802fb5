// Package push implements a [signal.Source] fed externally, one signal at a
// time. The HTTP/WebSocket ingest pushes recognition results from the browser
// into a Source while a session loop blocks in Capture.
package push

import (
	"context"
	"fmt"
	"sync"

	"github.com/kalini-labs/lexio/pkg/provider/signal"
)

// Source is a channel-backed signal source. Pushed signals are delivered to
// the oldest waiting Capture call in arrival order. Safe for concurrent use.
type Source struct {
	mu     sync.Mutex
	ch     chan signal.AttemptSignal
	closed bool
}

// New creates a Source with an internal buffer of size buffer. A buffer of 0
// makes Push block until a Capture call is waiting.
func New(buffer int) *Source {
	return &Source{ch: make(chan signal.AttemptSignal, buffer)}
}

// Push delivers one captured signal. It blocks while the buffer is full and
// returns an error after Close.
func (s *Source) Push(ctx context.Context, sig signal.AttemptSignal) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("push source: closed")
	}
	ch := s.ch
	s.mu.Unlock()

	select {
	case ch <- sig:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Capture implements [signal.Source]. The word and sentence context are not
// needed here — the frontend that pushes signals already knows which word it
// was listening for, and the session processes attempts strictly in order.
func (s *Source) Capture(ctx context.Context, _ string, _ signal.SentenceContext) (signal.AttemptSignal, error) {
	select {
	case sig, ok := <-s.ch:
		if !ok {
			return signal.AttemptSignal{}, fmt.Errorf("push source: closed")
		}
		return sig, nil
	case <-ctx.Done():
		return signal.AttemptSignal{}, ctx.Err()
	}
}

// Close releases any blocked Capture calls. Pushing after Close is an error.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)
	return nil
}

var _ signal.Source = (*Source)(nil)
