// This file implements the "parser" filter module, which reparses the text
// held in one record field and merges the structured result back into the record.
//
// The parser filter never mutates its input: a successful parse produces a new
// record, and every other outcome returns the input record pointer unchanged.
package filter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/marulkan/fluent-bit/internal/logger"
	"github.com/marulkan/fluent-bit/internal/parser"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Errors returned while building a parser filter.
var (
	ErrEmptyKeyName      = errors.New("'key_name' is required and must be a non-empty string")
	ErrNoParsers         = errors.New("'parsers' is required and must list at least one parser")
	ErrNoParsersResolved = errors.New("none of the configured parsers could be resolved")
)

// MaxWorkers bounds the per-batch fan-out of a parser filter.
const MaxWorkers = 64

// ParserConfig represents the configuration for a parser filter module.
type ParserConfig struct {
	// KeyName is the field whose text value is reparsed.
	KeyName string `json:"key_name"`
	// ReserveData keeps the original fields that the parse result does not overwrite.
	ReserveData bool `json:"reserve_data"`
	// PreserveKey keeps KeyName and its original value after a successful parse.
	PreserveKey bool `json:"preserve_key"`
	// Parsers lists registry names, tried in order until one matches.
	Parsers []string `json:"parsers"`
	// Workers splits a batch across this many goroutines. Zero or one runs serially.
	Workers int `json:"workers,omitempty"`
}

// ParserModule implements the parser filter.
// It is read-only after construction and safe for concurrent use.
type ParserModule struct {
	keyName     string
	reserveData bool
	preserveKey bool
	workers     int
	chain       *parser.Chain
}

// NewParserFromConfig creates a parser filter, resolving the configured parser
// names against registry. Unknown names are logged and skipped; construction
// fails only when none of them resolve.
func NewParserFromConfig(config ParserConfig, registry *parser.Registry) (*ParserModule, error) {
	if config.KeyName == "" {
		return nil, ErrEmptyKeyName
	}
	if len(config.Parsers) == 0 {
		return nil, ErrNoParsers
	}
	if config.Workers < 0 || config.Workers > MaxWorkers {
		return nil, fmt.Errorf("'workers' must be between 0 and %d, got %d", MaxWorkers, config.Workers)
	}
	if registry == nil {
		registry = parser.NewRegistry()
	}

	chain, missing := registry.Chain(config.Parsers)
	for _, name := range missing {
		logger.Warn("parser filter: requested parser not found, skipping",
			"parser", name,
			"key_name", config.KeyName,
		)
	}
	if chain.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoParsersResolved, strings.Join(config.Parsers, ", "))
	}

	logger.Debug("parser filter module initialized",
		"key_name", config.KeyName,
		"parsers", chain.Names(),
		"reserve_data", config.ReserveData,
		"preserve_key", config.PreserveKey,
		"workers", config.Workers,
	)

	return &ParserModule{
		keyName:     config.KeyName,
		reserveData: config.ReserveData,
		preserveKey: config.PreserveKey,
		workers:     config.Workers,
		chain:       chain,
	}, nil
}

// KeyName returns the field the filter reparses.
func (m *ParserModule) KeyName() string {
	return m.keyName
}

// ParserNames returns the resolved parser names in the order they are tried.
func (m *ParserModule) ParserNames() []string {
	return m.chain.Names()
}

// Apply reparses a single record. It returns rec itself when the key is
// missing, its value is not text, or no parser matches.
func (m *ParserModule) Apply(rec *connector.Record) *connector.Record {
	if rec == nil {
		return nil
	}

	raw, found := rec.Fields.Get(m.keyName)
	if !found {
		return rec
	}
	text, ok := textValue(raw)
	if !ok {
		return rec
	}

	parsed, ok := m.chain.TryParse(text)
	if !ok {
		return rec
	}
	return m.merge(rec, raw, parsed)
}

// merge builds the outgoing record. Parsed fields always win on collision.
func (m *ParserModule) merge(rec *connector.Record, original interface{}, parsed connector.Fields) *connector.Record {
	var out connector.Fields

	switch {
	case m.reserveData:
		out = make(connector.Fields, 0, len(rec.Fields)+len(parsed))
		for _, f := range rec.Fields {
			if f.Key == m.keyName && !m.preserveKey {
				continue
			}
			out = append(out, f)
		}
	case m.preserveKey:
		out = make(connector.Fields, 0, len(parsed)+1)
		out = append(out, connector.Field{Key: m.keyName, Value: original})
	default:
		out = make(connector.Fields, 0, len(parsed))
	}

	// A parsed field named like key_name overwrites the kept original in place.
	for _, f := range parsed {
		out.Set(f.Key, f.Value)
	}

	return &connector.Record{Time: rec.Time, Fields: out}
}

// textValue accepts string and []byte values only. Anything else counts as a lookup miss.
func textValue(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return "", false
	}
}

// Process implements the filter.Module interface.
// The returned slice has the same length and order as records.
func (m *ParserModule) Process(ctx context.Context, records []*connector.Record) ([]*connector.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(records) == 0 {
		return records, nil
	}

	result := make([]*connector.Record, len(records))
	var parsed atomic.Int64

	run := func(ctx context.Context, lo, hi int) error {
		var n int64
		for i := lo; i < hi; i++ {
			if (i-lo) > 0 && (i-lo)%100 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			result[i] = m.Apply(records[i])
			if result[i] != records[i] {
				n++
			}
		}
		parsed.Add(n)
		return nil
	}

	if m.workers <= 1 || len(records) < 2 {
		if err := run(ctx, 0, len(records)); err != nil {
			return nil, err
		}
	} else {
		workers := m.workers
		if workers > len(records) {
			workers = len(records)
		}
		size := (len(records) + workers - 1) / workers

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for lo := 0; lo < len(records); lo += size {
			lo, hi := lo, lo+size
			if hi > len(records) {
				hi = len(records)
			}
			g.Go(func() error { return run(gctx, lo, hi) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	logger.Debug("parser filter processed records",
		"key_name", m.keyName,
		"records", len(records),
		"parsed", parsed.Load(),
	)

	return result, nil
}

// ParseParserConfig parses a raw configuration map into ParserConfig.
// Option names follow the snake_case form used in pipeline files; boolean
// options also accept "on"/"off" strings.
func ParseParserConfig(config map[string]interface{}) (ParserConfig, error) {
	var cfg ParserConfig

	keyName, ok := config["key_name"].(string)
	if !ok || strings.TrimSpace(keyName) == "" {
		return cfg, ErrEmptyKeyName
	}
	cfg.KeyName = keyName

	parsers, err := parseNameList(config["parsers"])
	if err != nil {
		return cfg, err
	}
	cfg.Parsers = parsers

	if cfg.ReserveData, err = parseBoolOption(config, "reserve_data"); err != nil {
		return cfg, err
	}
	if cfg.PreserveKey, err = parseBoolOption(config, "preserve_key"); err != nil {
		return cfg, err
	}

	if raw, has := config["workers"]; has && raw != nil {
		n, ok := toInt(raw)
		if !ok {
			return cfg, fmt.Errorf("'workers' must be an integer, got %T", raw)
		}
		cfg.Workers = n
	}

	return cfg, nil
}

func parseNameList(raw interface{}) ([]string, error) {
	var names []string
	switch v := raw.(type) {
	case nil:
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				names = append(names, s)
			}
		}
	case []interface{}:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("'parsers[%d]' must be a string, got %T", i, item)
			}
			if s = strings.TrimSpace(s); s != "" {
				names = append(names, s)
			}
		}
	default:
		return nil, fmt.Errorf("'parsers' must be a list of strings, got %T", raw)
	}
	if len(names) == 0 {
		return nil, ErrNoParsers
	}
	return names, nil
}

func parseBoolOption(config map[string]interface{}, key string) (bool, error) {
	raw, has := config[key]
	if !has || raw == nil {
		return false, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "on", "yes":
			return true, nil
		case "off", "no":
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("'%s' must be a boolean, got %q", key, v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("'%s' must be a boolean, got %T", key, raw)
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Verify interface compliance at compile time
var _ Module = (*ParserModule)(nil)
