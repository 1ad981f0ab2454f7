// This file implements the "remove" filter module for dropping fields.
// Missing fields are ignored.
package filter

import (
	"context"
	"errors"
	"fmt"

	"github.com/marulkan/fluent-bit/internal/logger"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// RemoveConfig represents the configuration for a remove filter module.
type RemoveConfig struct {
	// Target is a single field to remove
	Target string `json:"target"`
	// Targets lists fields to remove
	Targets []string `json:"targets"`
}

// RemoveModule removes fields from each record.
type RemoveModule struct {
	targets []string
}

// NewRemoveFromConfig creates a new remove filter module from configuration.
func NewRemoveFromConfig(config RemoveConfig) (*RemoveModule, error) {
	targets := append([]string(nil), config.Targets...)
	if config.Target != "" {
		targets = append(targets, config.Target)
	}

	seen := make(map[string]bool, len(targets))
	unique := make([]string, 0, len(targets))
	for _, t := range targets {
		if t != "" && !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}
	if len(unique) == 0 {
		return nil, errors.New("at least one non-empty target field is required")
	}

	logger.Debug("remove filter module initialized", "targets", unique)

	return &RemoveModule{targets: unique}, nil
}

// Process implements the filter.Module interface.
// Records without any target field are passed through as-is.
func (m *RemoveModule) Process(ctx context.Context, records []*connector.Record) ([]*connector.Record, error) {
	return mapRecords(ctx, records, func(rec *connector.Record) *connector.Record {
		hit := false
		for _, t := range m.targets {
			if rec.Fields.Has(t) {
				hit = true
				break
			}
		}
		if !hit {
			return rec
		}
		out := rec.Clone()
		for _, t := range m.targets {
			out.Fields.Delete(t)
		}
		return out
	})
}

// ParseRemoveConfig parses a raw configuration map into RemoveConfig.
func ParseRemoveConfig(config map[string]interface{}) (RemoveConfig, error) {
	var cfg RemoveConfig

	if target, ok := config["target"].(string); ok {
		cfg.Target = target
	}
	if raw, ok := config["targets"]; ok {
		list, isList := raw.([]interface{})
		if !isList {
			return cfg, errors.New("'targets' must be a list of strings")
		}
		for i, item := range list {
			s, isString := item.(string)
			if !isString {
				return cfg, fmt.Errorf("'targets[%d]' must be a string, got %T", i, item)
			}
			cfg.Targets = append(cfg.Targets, s)
		}
	}
	if cfg.Target == "" && len(cfg.Targets) == 0 {
		return cfg, errors.New("'target' or 'targets' is required")
	}
	return cfg, nil
}

var _ Module = (*RemoveModule)(nil)
