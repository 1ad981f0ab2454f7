// Package output provides implementations for output modules.
// Output modules deliver filtered records to a destination.
package output

import (
	"context"
	"errors"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// ErrNilConfig is returned when a constructor receives no configuration.
var ErrNilConfig = errors.New("module configuration is nil")

// Module represents an output module that sends records to a destination.
type Module interface {
	// Send delivers records and returns how many were written.
	Send(ctx context.Context, records []*connector.Record) (int, error)

	// Close releases any resources held by the module.
	Close() error
}
