package registry

import (
	"fmt"

	"github.com/marulkan/fluent-bit/internal/modules/filter"
	"github.com/marulkan/fluent-bit/internal/modules/input"
	"github.com/marulkan/fluent-bit/internal/modules/output"
	"github.com/marulkan/fluent-bit/internal/parser"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Built-in module type names.
const (
	TypeFile     = "file"
	TypeParser   = "parser"
	TypeSet      = "set"
	TypeRemove   = "remove"
	TypeStdout   = "stdout"
	TypeDatabase = "database"
)

func init() {
	RegisterBuiltins()
}

// RegisterBuiltins registers every built-in module type.
func RegisterBuiltins() {
	RegisterInput(TypeFile, func(cfg *connector.ModuleConfig) (input.Module, error) {
		m, err := input.NewFileFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	})

	RegisterFilter(TypeParser, func(cfg connector.ModuleConfig, index int, parsers *parser.Registry) (filter.Module, error) {
		parserConfig, err := filter.ParseParserConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid parser config at index %d: %w", index, err)
		}
		module, err := filter.NewParserFromConfig(parserConfig, parsers)
		if err != nil {
			return nil, fmt.Errorf("invalid parser config at index %d: %w", index, err)
		}
		return module, nil
	})

	RegisterFilter(TypeSet, func(cfg connector.ModuleConfig, index int, _ *parser.Registry) (filter.Module, error) {
		setConfig, err := filter.ParseSetConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid set config at index %d: %w", index, err)
		}
		module, err := filter.NewSetFromConfig(setConfig)
		if err != nil {
			return nil, fmt.Errorf("invalid set config at index %d: %w", index, err)
		}
		return module, nil
	})

	RegisterFilter(TypeRemove, func(cfg connector.ModuleConfig, index int, _ *parser.Registry) (filter.Module, error) {
		removeConfig, err := filter.ParseRemoveConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid remove config at index %d: %w", index, err)
		}
		module, err := filter.NewRemoveFromConfig(removeConfig)
		if err != nil {
			return nil, fmt.Errorf("invalid remove config at index %d: %w", index, err)
		}
		return module, nil
	})

	RegisterOutput(TypeStdout, func(cfg *connector.ModuleConfig) (output.Module, error) {
		m, err := output.NewStdoutFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	})

	RegisterOutput(TypeFile, func(cfg *connector.ModuleConfig) (output.Module, error) {
		m, err := output.NewFileFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	})

	RegisterOutput(TypeDatabase, func(cfg *connector.ModuleConfig) (output.Module, error) {
		m, err := output.NewDatabaseOutputFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}
