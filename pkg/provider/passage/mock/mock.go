// Package mock provides a test double for the passage package interfaces.
//
// Use Generator to return canned passages and inspect the placement requests
// the planner produced.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kalini-labs/lexio/pkg/provider/passage"
)

// Generator is a mock implementation of passage.Generator.
type Generator struct {
	mu sync.Mutex

	// Passage is returned by Generate. If nil, a passage is synthesised with
	// one sentence per placement request.
	Passage *passage.Passage

	// GenerateErr, if non-nil, is returned as the error from Generate.
	GenerateErr error

	// GenerateCalls records every request passed to Generate.
	GenerateCalls []passage.GenerateRequest
}

// Generate records the call and returns Passage, GenerateErr.
func (g *Generator) Generate(_ context.Context, req passage.GenerateRequest) (*passage.Passage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.GenerateCalls = append(g.GenerateCalls, req)
	if g.GenerateErr != nil {
		return nil, g.GenerateErr
	}
	if g.Passage != nil {
		return g.Passage, nil
	}

	// Synthesise a minimal passage that contains every requested word.
	slots := 1
	for _, p := range req.Placements {
		if p.SentenceSlot+1 > slots {
			slots = p.SentenceSlot + 1
		}
	}
	sentences := make([]string, slots)
	for i := range sentences {
		var words []string
		for _, p := range req.Placements {
			if p.SentenceSlot == i {
				words = append(words, p.Word)
			}
		}
		if len(words) == 0 {
			sentences[i] = fmt.Sprintf("Filler sentence number %d.", i+1)
		} else {
			sentences[i] = fmt.Sprintf("This sentence practices %s.", strings.Join(words, " and "))
		}
	}
	return &passage.Passage{
		SubjectImageHint: "a friendly reading companion",
		Sentences:        sentences,
	}, nil
}

// Reset clears all recorded calls. Thread-safe.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.GenerateCalls = nil
}
