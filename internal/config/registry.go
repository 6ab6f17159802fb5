package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kalini-labs/lexio/pkg/provider/passage"
)

// ErrGeneratorNotRegistered is returned by [Registry.CreateGenerator] when no
// factory has been registered under the requested name.
var ErrGeneratorNotRegistered = errors.New("config: generator not registered")

// Registry maps passage generator names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]func(GeneratorConfig) (passage.Generator, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]func(GeneratorConfig) (passage.Generator, error)),
	}
}

// RegisterGenerator registers a passage generator factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterGenerator(name string, factory func(GeneratorConfig) (passage.Generator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[name] = factory
}

// CreateGenerator instantiates a passage generator using the factory
// registered under entry.Name. Returns [ErrGeneratorNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateGenerator(entry GeneratorConfig) (passage.Generator, error) {
	r.mu.RLock()
	factory, ok := r.generators[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGeneratorNotRegistered, entry.Name)
	}
	return factory(entry)
}
