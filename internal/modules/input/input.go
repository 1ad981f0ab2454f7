// Package input provides implementations for input modules.
// Input modules are responsible for reading records from a source.
package input

import (
	"context"
	"errors"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// ErrNilConfig is returned when a constructor receives no configuration.
var ErrNilConfig = errors.New("module configuration is nil")

// Module represents an input module that produces records.
type Module interface {
	// Fetch reads the available records from the source.
	// The context can be used to cancel long-running reads.
	Fetch(ctx context.Context) ([]*connector.Record, error)
	// Close releases any resources held by the module.
	Close() error
}
