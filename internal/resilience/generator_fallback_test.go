package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/kalini-labs/lexio/pkg/provider/passage"
	passagemock "github.com/kalini-labs/lexio/pkg/provider/passage/mock"
)

func TestGeneratorFallback_PrimarySuccess(t *testing.T) {
	primary := &passagemock.Generator{
		Passage: &passage.Passage{Sentences: []string{"The ship sails."}},
	}
	secondary := &passagemock.Generator{
		Passage: &passage.Passage{Sentences: []string{"A backup sentence."}},
	}

	fb := NewGeneratorFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	p, err := fb.Generate(context.Background(), passage.GenerateRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Sentences[0] != "The ship sails." {
		t.Fatalf("sentence = %q, want the primary's passage", p.Sentences[0])
	}
	if len(primary.GenerateCalls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.GenerateCalls))
	}
	if len(secondary.GenerateCalls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.GenerateCalls))
	}
}

func TestGeneratorFallback_Failover(t *testing.T) {
	primary := &passagemock.Generator{
		GenerateErr: errors.New("primary down"),
	}
	secondary := &passagemock.Generator{
		Passage: &passage.Passage{Sentences: []string{"A backup sentence."}},
	}

	fb := NewGeneratorFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	p, err := fb.Generate(context.Background(), passage.GenerateRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Sentences[0] != "A backup sentence." {
		t.Fatalf("sentence = %q, want the fallback's passage", p.Sentences[0])
	}
	if len(primary.GenerateCalls) != 1 || len(secondary.GenerateCalls) != 1 {
		t.Fatalf("calls: primary %d, secondary %d; want 1 and 1",
			len(primary.GenerateCalls), len(secondary.GenerateCalls))
	}
}

func TestGeneratorFallback_AllFail(t *testing.T) {
	primary := &passagemock.Generator{GenerateErr: errors.New("primary down")}
	secondary := &passagemock.Generator{GenerateErr: errors.New("secondary down")}

	fb := NewGeneratorFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Generate(context.Background(), passage.GenerateRequest{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("expected ErrAllFailed, got %v", err)
	}
}

func TestGeneratorFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &passagemock.Generator{GenerateErr: errors.New("primary down")}
	secondary := &passagemock.Generator{
		Passage: &passage.Passage{Sentences: []string{"A backup sentence."}},
	}

	fb := NewGeneratorFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
	})
	fb.AddFallback("secondary", secondary)

	// Trip the primary's breaker, then confirm it stops being called.
	for range 3 {
		if _, err := fb.Generate(context.Background(), passage.GenerateRequest{}); err != nil {
			t.Fatalf("fallback should have served the request: %v", err)
		}
	}
	calls := len(primary.GenerateCalls)
	if _, err := fb.Generate(context.Background(), passage.GenerateRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(primary.GenerateCalls) != calls {
		t.Errorf("open breaker should skip the primary, calls went %d -> %d",
			calls, len(primary.GenerateCalls))
	}
}
