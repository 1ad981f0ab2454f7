// Package config provides functionality for parsing and validating
// pipeline configuration files (JSON/YAML).
package config

import (
	"path/filepath"

	"github.com/marulkan/fluent-bit/internal/errhandling"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Loader loads pipeline configurations from files.
type Loader struct {
	// basePath resolves relative configuration paths
	basePath string
}

// NewLoader creates a new configuration loader.
func NewLoader(basePath string) *Loader {
	return &Loader{basePath: basePath}
}

// Load reads, validates and converts a pipeline configuration.
// Every failure is returned as a configuration error.
func (l *Loader) Load(path string) (*connector.Pipeline, error) {
	if l.basePath != "" && !filepath.IsAbs(path) {
		path = filepath.Join(l.basePath, path)
	}

	result := ParseConfig(path)
	if !result.IsValid() {
		return nil, errhandling.NewConfigurationError(errhandling.CodeInvalidConfig,
			"invalid pipeline configuration "+path, result.Err())
	}

	pipeline, err := ConvertToPipeline(result.Data)
	if err != nil {
		return nil, errhandling.NewConfigurationError(errhandling.CodeInvalidConfig,
			"converting pipeline configuration "+path, err)
	}
	return pipeline, nil
}
