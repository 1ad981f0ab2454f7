// Package registry maps module type strings to constructors for input,
// filter, and output modules.
//
// # Adding a New Module
//
//  1. Implement input.Module, filter.Module, or output.Module
//  2. Write a constructor matching the registry signature
//  3. Register it from an init() function
//
// Example for a new output module:
//
//	func init() {
//	    registry.RegisterOutput("kafka", func(cfg *connector.ModuleConfig) (output.Module, error) {
//	        return kafka.NewFromConfig(cfg)
//	    })
//	}
//
// # Built-in Modules
//
// Inputs: file. Filters: parser, set, remove. Outputs: stdout, file, database.
// They are registered by RegisterBuiltins, which runs at package initialization.
//
// Unknown type strings resolve to nil; the factory turns that into a
// configuration error.
package registry

import (
	"sort"
	"sync"

	"github.com/marulkan/fluent-bit/internal/modules/filter"
	"github.com/marulkan/fluent-bit/internal/modules/input"
	"github.com/marulkan/fluent-bit/internal/modules/output"
	"github.com/marulkan/fluent-bit/internal/parser"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// InputConstructor creates an input module from configuration.
type InputConstructor func(cfg *connector.ModuleConfig) (input.Module, error)

// FilterConstructor creates a filter module from configuration.
// index is the filter's position in the pipeline; parsers is the pipeline's
// parser registry, which filters may resolve names against.
type FilterConstructor func(cfg connector.ModuleConfig, index int, parsers *parser.Registry) (filter.Module, error)

// OutputConstructor creates an output module from configuration.
type OutputConstructor func(cfg *connector.ModuleConfig) (output.Module, error)

// table is a concurrency-safe map from type string to constructor.
type table[C any] struct {
	mu sync.RWMutex
	m  map[string]C
}

func newTable[C any]() *table[C] {
	return &table[C]{m: make(map[string]C)}
}

func (t *table[C]) set(name string, c C) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[name] = c
}

func (t *table[C]) get(name string) (C, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.m[name]
	return c, ok
}

func (t *table[C]) names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.m))
	for n := range t.m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (t *table[C]) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m = make(map[string]C)
}

var (
	inputs  = newTable[InputConstructor]()
	filters = newTable[FilterConstructor]()
	outputs = newTable[OutputConstructor]()
)

// RegisterInput registers an input constructor, replacing any previous one.
func RegisterInput(moduleType string, constructor InputConstructor) {
	inputs.set(moduleType, constructor)
}

// RegisterFilter registers a filter constructor, replacing any previous one.
func RegisterFilter(moduleType string, constructor FilterConstructor) {
	filters.set(moduleType, constructor)
}

// RegisterOutput registers an output constructor, replacing any previous one.
func RegisterOutput(moduleType string, constructor OutputConstructor) {
	outputs.set(moduleType, constructor)
}

// GetInputConstructor returns the constructor for moduleType, or nil.
func GetInputConstructor(moduleType string) InputConstructor {
	c, _ := inputs.get(moduleType)
	return c
}

// GetFilterConstructor returns the constructor for moduleType, or nil.
func GetFilterConstructor(moduleType string) FilterConstructor {
	c, _ := filters.get(moduleType)
	return c
}

// GetOutputConstructor returns the constructor for moduleType, or nil.
func GetOutputConstructor(moduleType string) OutputConstructor {
	c, _ := outputs.get(moduleType)
	return c
}

// ListInputTypes returns the registered input types, sorted.
func ListInputTypes() []string { return inputs.names() }

// ListFilterTypes returns the registered filter types, sorted.
func ListFilterTypes() []string { return filters.names() }

// ListOutputTypes returns the registered output types, sorted.
func ListOutputTypes() []string { return outputs.names() }

// ClearRegistries removes all registered constructors.
// Intended for tests; call RegisterBuiltins to restore the defaults.
func ClearRegistries() {
	inputs.clear()
	filters.clear()
	outputs.clear()
}
