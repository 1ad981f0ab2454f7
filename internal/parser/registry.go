package parser

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/marulkan/fluent-bit/internal/logger"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Registry owns named parsers. Filters resolve names against it once at
// setup and keep plain references; the registry outlives those filters.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// NewRegistryFromDefinitions builds every definition and registers it.
// The first invalid definition aborts construction.
func NewRegistryFromDefinitions(defs []connector.ParserDefinition) (*Registry, error) {
	r := NewRegistry()
	for i, def := range defs {
		p, err := New(def)
		if err != nil {
			return nil, fmt.Errorf("invalid parser definition at index %d: %w", i, err)
		}
		if err := r.Register(p); err != nil {
			return nil, fmt.Errorf("invalid parser definition at index %d: %w", i, err)
		}
	}
	logger.Debug("parser registry built", slog.Int("parsers", r.Len()))
	return r, nil
}

// Register adds p under p.Name(). Names must be unique.
func (r *Registry) Register(p Parser) error {
	name := p.Name()
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.parsers[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.parsers[name] = p
	r.order = append(r.order, name)
	return nil
}

// Resolve returns the parser registered under name.
func (r *Registry) Resolve(name string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[name]
	return p, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered parsers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Chain resolves names in order into a chain. Names that do not resolve are
// returned in missing and left out of the chain.
func (r *Registry) Chain(names []string) (chain *Chain, missing []string) {
	resolved := make([]Parser, 0, len(names))
	for _, name := range names {
		p, ok := r.Resolve(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		resolved = append(resolved, p)
	}
	return NewChain(resolved...), missing
}
