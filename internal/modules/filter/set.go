// This file implements the "set" filter module, which sets one field to a
// literal value on every record.
package filter

import (
	"context"
	"errors"

	"github.com/marulkan/fluent-bit/internal/logger"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// SetConfig represents the configuration for a set filter module.
type SetConfig struct {
	// Target is the top-level field to set
	Target string `json:"target"`
	// Value is the literal value to set
	Value interface{} `json:"value"`
}

// SetModule sets or replaces a single field on each record.
// An existing field keeps its position; a new one is appended.
type SetModule struct {
	config SetConfig
}

// NewSetFromConfig creates a new set filter module from configuration.
func NewSetFromConfig(config SetConfig) (*SetModule, error) {
	if config.Target == "" {
		return nil, errors.New("target field is required")
	}

	logger.Debug("set filter module initialized", "target", config.Target)

	return &SetModule{config: config}, nil
}

// Process implements the filter.Module interface.
// Input records are not modified; each output record is a copy.
func (m *SetModule) Process(ctx context.Context, records []*connector.Record) ([]*connector.Record, error) {
	return mapRecords(ctx, records, func(rec *connector.Record) *connector.Record {
		out := rec.Clone()
		out.Fields.Set(m.config.Target, m.config.Value)
		return out
	})
}

// ParseSetConfig parses a raw configuration map into SetConfig.
func ParseSetConfig(config map[string]interface{}) (SetConfig, error) {
	var cfg SetConfig

	target, ok := config["target"].(string)
	if !ok || target == "" {
		return cfg, errors.New("'target' is required and must be a non-empty string")
	}
	cfg.Target = target

	// a nil value is allowed, a missing one is not
	if _, hasValue := config["value"]; !hasValue {
		return cfg, errors.New("'value' is required")
	}
	cfg.Value = config["value"]

	return cfg, nil
}

var _ Module = (*SetModule)(nil)
