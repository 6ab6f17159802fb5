package resilience

import (
	"context"

	"github.com/kalini-labs/lexio/pkg/provider/passage"
)

// GeneratorFallback implements [passage.Generator] with automatic failover
// across multiple generation backends. Each backend has its own circuit
// breaker; when the primary fails or its breaker is open, the next healthy
// fallback is tried.
type GeneratorFallback struct {
	group *FallbackGroup[passage.Generator]
}

// Compile-time interface assertion.
var _ passage.Generator = (*GeneratorFallback)(nil)

// NewGeneratorFallback creates a [GeneratorFallback] with primary as the
// preferred backend.
func NewGeneratorFallback(primary passage.Generator, primaryName string, cfg FallbackConfig) *GeneratorFallback {
	return &GeneratorFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional generator as a fallback.
func (f *GeneratorFallback) AddFallback(name string, gen passage.Generator) {
	f.group.AddFallback(name, gen)
}

// Generate asks the first healthy backend for a passage. The session layer
// relaxes placement constraints between its own attempts; failover here is
// per-call, so each relax step again starts from the primary.
func (f *GeneratorFallback) Generate(ctx context.Context, req passage.GenerateRequest) (*passage.Passage, error) {
	return ExecuteWithResult(f.group, func(g passage.Generator) (*passage.Passage, error) {
		return g.Generate(ctx, req)
	})
}
