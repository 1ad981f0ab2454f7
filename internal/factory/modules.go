// Package factory instantiates a pipeline's parsers and modules from its
// configuration using the module registry.
//
// # Module Creation
//
// Parser definitions are compiled first into a parser.Registry, which every
// filter constructor receives. Module types are then looked up in the
// registry package. An unregistered type is a configuration error.
//
// # Adding New Module Types
//
// To add a new module type, see the documentation in internal/registry.
// You do NOT need to modify this factory; just register your constructor.
package factory

import (
	"errors"
	"fmt"

	"github.com/marulkan/fluent-bit/internal/errhandling"
	"github.com/marulkan/fluent-bit/internal/modules/filter"
	"github.com/marulkan/fluent-bit/internal/modules/input"
	"github.com/marulkan/fluent-bit/internal/modules/output"
	"github.com/marulkan/fluent-bit/internal/parser"
	"github.com/marulkan/fluent-bit/internal/registry"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// ErrNilPipeline is returned when Build receives no pipeline.
var ErrNilPipeline = errors.New("pipeline configuration is nil")

// Modules holds the instantiated stages of one pipeline.
type Modules struct {
	Parsers *parser.Registry
	Input   input.Module
	Filters []filter.Module
	Output  output.Module
}

// Close closes the input and output modules, returning the first error.
func (m *Modules) Close() error {
	var errs []error
	if m.Input != nil {
		errs = append(errs, m.Input.Close())
	}
	if m.Output != nil {
		errs = append(errs, m.Output.Close())
	}
	return errors.Join(errs...)
}

// Build creates every parser and module of the pipeline.
// Modules already created are closed when a later one fails.
func Build(pipeline *connector.Pipeline) (*Modules, error) {
	if pipeline == nil {
		return nil, errhandling.NewConfigurationError(errhandling.CodeInvalidConfig, "building pipeline", ErrNilPipeline)
	}

	parsers, err := CreateParserRegistry(pipeline.Parsers)
	if err != nil {
		return nil, err
	}

	modules := &Modules{Parsers: parsers}

	modules.Input, err = CreateInputModule(pipeline.Input)
	if err != nil {
		return nil, err
	}

	modules.Filters, err = CreateFilterModules(pipeline.Filters, parsers)
	if err != nil {
		_ = modules.Close()
		return nil, err
	}

	modules.Output, err = CreateOutputModule(pipeline.Output)
	if err != nil {
		_ = modules.Close()
		return nil, err
	}

	return modules, nil
}

// CreateParserRegistry compiles parser definitions into a registry.
func CreateParserRegistry(defs []connector.ParserDefinition) (*parser.Registry, error) {
	parsers, err := parser.NewRegistryFromDefinitions(defs)
	if err != nil {
		return nil, errhandling.NewConfigurationError(errhandling.CodeInvalidParser, "invalid parser definition", err)
	}
	return parsers, nil
}

// CreateInputModule creates an input module instance from configuration.
// A nil configuration yields a nil module.
func CreateInputModule(cfg *connector.ModuleConfig) (input.Module, error) {
	if cfg == nil {
		return nil, nil
	}

	constructor := registry.GetInputConstructor(cfg.Type)
	if constructor == nil {
		return nil, unknownModule("input", cfg.Type)
	}

	module, err := constructor(cfg)
	if err != nil {
		return nil, errhandling.NewConfigurationError(errhandling.CodeInvalidConfig, fmt.Sprintf("invalid %s input config", cfg.Type), err)
	}
	return module, nil
}

// CreateFilterModules creates filter module instances in pipeline order.
func CreateFilterModules(cfgs []connector.ModuleConfig, parsers *parser.Registry) ([]filter.Module, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}
	if parsers == nil {
		parsers = parser.NewRegistry()
	}

	modules := make([]filter.Module, 0, len(cfgs))
	for i, cfg := range cfgs {
		constructor := registry.GetFilterConstructor(cfg.Type)
		if constructor == nil {
			return nil, unknownModule(fmt.Sprintf("filter at index %d", i), cfg.Type)
		}
		module, err := constructor(cfg, i, parsers)
		if err != nil {
			return nil, errhandling.NewConfigurationError(errhandling.CodeInvalidConfig, fmt.Sprintf("creating %s filter", cfg.Type), err)
		}
		modules = append(modules, module)
	}
	return modules, nil
}

// CreateOutputModule creates an output module instance from configuration.
// A nil configuration yields a nil module.
func CreateOutputModule(cfg *connector.ModuleConfig) (output.Module, error) {
	if cfg == nil {
		return nil, nil
	}

	constructor := registry.GetOutputConstructor(cfg.Type)
	if constructor == nil {
		return nil, unknownModule("output", cfg.Type)
	}

	module, err := constructor(cfg)
	if err != nil {
		return nil, errhandling.NewConfigurationError(errhandling.CodeInvalidConfig, fmt.Sprintf("invalid %s output config", cfg.Type), err)
	}
	return module, nil
}

func unknownModule(kind, moduleType string) error {
	return errhandling.NewConfigurationError(errhandling.CodeUnknownModule, fmt.Sprintf("unknown %s type %q", kind, moduleType), nil)
}
