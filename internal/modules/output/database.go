package output

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/marulkan/fluent-bit/internal/database"
	"github.com/marulkan/fluent-bit/internal/errhandling"
	"github.com/marulkan/fluent-bit/internal/logger"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

const (
	defaultDatabaseOutputTimeout = 30 * time.Second
	defaultTimeColumn            = "time"
	defaultDataColumn            = "record"

	// RecordFieldPrefix prefixes field references in query templates.
	RecordFieldPrefix = "record."
)

// OnError policies of the database output.
const (
	OnErrorFail = "fail"
	OnErrorSkip = "skip"
	OnErrorLog  = "log"
)

// Errors returned by the database output.
var (
	ErrDatabaseOutputMissingTarget = errors.New("either 'table' or 'query' is required for database output")
	ErrUnmatchedPlaceholder        = errors.New("unmatched template placeholder in query")
)

// DatabaseOutputConfig holds configuration for the database output module.
type DatabaseOutputConfig struct {
	ConnectionString    string
	ConnectionStringRef string
	Driver              string

	// Table receives one row per record: (TimeColumn, DataColumn).
	// It may be schema-qualified ("logs.events").
	Table      string
	TimeColumn string
	DataColumn string

	// Query is used instead of Table when set. Placeholders: {{time}},
	// {{record}} (all fields as JSON) and {{record.<field>}}.
	Query string

	Transaction bool
	OnError     string

	MaxOpenConns int
	MaxIdleConns int
	TimeoutMs    int
}

// DatabaseOutput inserts records through database/sql.
type DatabaseOutput struct {
	db      *sql.DB
	config  DatabaseOutputConfig
	timeout time.Duration
}

// NewDatabaseOutputFromConfig opens the configured database and returns a
// ready database output.
func NewDatabaseOutputFromConfig(cfg *connector.ModuleConfig) (*DatabaseOutput, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	config, err := ParseDatabaseOutputConfig(cfg.Config)
	if err != nil {
		return nil, err
	}

	db, _, err := database.Open(database.Config{
		ConnectionString:    config.ConnectionString,
		ConnectionStringRef: config.ConnectionStringRef,
		Driver:              config.Driver,
		MaxOpenConns:        config.MaxOpenConns,
		MaxIdleConns:        config.MaxIdleConns,
		ConnectTimeout:      timeoutOf(config),
	})
	if err != nil {
		return nil, errhandling.NewDatabaseError("opening database output connection", err)
	}
	return NewDatabaseOutput(db, config), nil
}

// NewDatabaseOutput wraps an open connection pool.
func NewDatabaseOutput(db *sql.DB, config DatabaseOutputConfig) *DatabaseOutput {
	if config.TimeColumn == "" {
		config.TimeColumn = defaultTimeColumn
	}
	if config.DataColumn == "" {
		config.DataColumn = defaultDataColumn
	}
	if config.OnError == "" {
		config.OnError = OnErrorFail
	}

	logger.Debug("database output module created",
		"table", config.Table,
		"transaction", config.Transaction,
		"on_error", config.OnError,
	)
	return &DatabaseOutput{db: db, config: config, timeout: timeoutOf(config)}
}

func timeoutOf(config DatabaseOutputConfig) time.Duration {
	if config.TimeoutMs > 0 {
		return time.Duration(config.TimeoutMs) * time.Millisecond
	}
	return defaultDatabaseOutputTimeout
}

// ParseDatabaseOutputConfig parses and validates the raw configuration map.
func ParseDatabaseOutputConfig(cfg map[string]interface{}) (DatabaseOutputConfig, error) {
	var config DatabaseOutputConfig

	config.ConnectionString, _ = cfg["connectionString"].(string)
	config.ConnectionStringRef, _ = cfg["connectionStringRef"].(string)
	config.Driver, _ = cfg["driver"].(string)
	config.Table, _ = cfg["table"].(string)
	config.TimeColumn, _ = cfg["timeColumn"].(string)
	config.DataColumn, _ = cfg["dataColumn"].(string)
	config.Query, _ = cfg["query"].(string)
	config.Transaction, _ = cfg["transaction"].(bool)
	config.OnError, _ = cfg["onError"].(string)
	config.MaxOpenConns = intOption(cfg["maxOpenConns"])
	config.MaxIdleConns = intOption(cfg["maxIdleConns"])
	config.TimeoutMs = intOption(cfg["timeoutMs"])

	if config.ConnectionString == "" && config.ConnectionStringRef == "" {
		return config, database.ErrMissingConnectionString
	}
	if config.Table == "" && config.Query == "" {
		return config, ErrDatabaseOutputMissingTarget
	}
	switch config.OnError {
	case "", OnErrorFail, OnErrorSkip, OnErrorLog:
	default:
		return config, fmt.Errorf("'onError' must be one of fail, skip, log; got %q", config.OnError)
	}
	return config, nil
}

func intOption(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

// Send writes records to the database.
func (d *DatabaseOutput) Send(ctx context.Context, records []*connector.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	start := time.Now()
	var (
		sent int
		err  error
	)
	if d.config.Transaction {
		sent, err = d.sendWithTransaction(ctx, records)
	} else {
		sent, err = d.sendEach(ctx, d.db, records)
	}

	if err != nil {
		logger.Error("database output send failed",
			"module_type", "database",
			"duration", time.Since(start),
			"sent_count", sent,
			"error", err.Error(),
		)
		return sent, errhandling.NewDatabaseError("database output send failed", err)
	}

	logger.Debug("database output send completed",
		"module_type", "database",
		"record_count", len(records),
		"sent_count", sent,
		"duration", time.Since(start),
	)
	return sent, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (d *DatabaseOutput) sendWithTransaction(ctx context.Context, records []*connector.Record) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, database.NewTransactionError("beginning transaction", err)
	}

	sent, err := d.sendEach(ctx, tx, records)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warn("database output rollback failed", "error", rbErr.Error())
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, database.NewTransactionError("committing transaction", err)
	}
	return sent, nil
}

func (d *DatabaseOutput) sendEach(ctx context.Context, ex execer, records []*connector.Record) (int, error) {
	sent := 0
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if rec == nil {
			continue
		}

		query, args, err := d.statement(rec)
		if err != nil {
			if handled := d.handleError(err, i); handled != nil {
				return sent, handled
			}
			continue
		}

		queryCtx, cancel := context.WithTimeout(ctx, d.timeout)
		_, err = ex.ExecContext(queryCtx, query, args...)
		cancel()
		if err != nil {
			dbErr := database.ClassifyDatabaseError(err, "insert", query, len(args))
			if handled := d.handleError(dbErr, i); handled != nil {
				return sent, handled
			}
			continue
		}
		sent++
	}
	return sent, nil
}

// handleError applies the onError policy; a nil result means continue.
func (d *DatabaseOutput) handleError(err error, recordIndex int) error {
	switch d.config.OnError {
	case OnErrorSkip:
		logger.Warn("skipping record due to database error",
			"record_index", recordIndex,
			"error", err.Error(),
		)
		return nil
	case OnErrorLog:
		logger.Error("database error (continuing)",
			"record_index", recordIndex,
			"error", err.Error(),
		)
		return nil
	default:
		return fmt.Errorf("record %d: %w", recordIndex, err)
	}
}

// statement returns the SQL and arguments for one record.
func (d *DatabaseOutput) statement(rec *connector.Record) (string, []interface{}, error) {
	if d.config.Query != "" {
		return buildParameterizedQuery(d.config.Query, rec)
	}

	data, err := json.Marshal(rec.Fields)
	if err != nil {
		return "", nil, fmt.Errorf("encoding record: %w", err)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES ($1, $2)",
		quoteQualified(d.config.Table),
		pq.QuoteIdentifier(d.config.TimeColumn),
		pq.QuoteIdentifier(d.config.DataColumn),
	)
	return query, []interface{}{rec.Time, string(data)}, nil
}

// quoteQualified quotes each dot-separated part of a table name.
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// buildParameterizedQuery replaces {{...}} placeholders with $n parameters.
// Values never reach the SQL text.
func buildParameterizedQuery(template string, rec *connector.Record) (string, []interface{}, error) {
	var (
		sb   strings.Builder
		args []interface{}
	)
	rest := template
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end == -1 {
			return "", nil, ErrUnmatchedPlaceholder
		}
		end += start

		ref := strings.TrimSpace(rest[start+2 : end])
		value, err := placeholderValue(ref, rec)
		if err != nil {
			return "", nil, err
		}
		args = append(args, value)

		sb.WriteString(rest[:start])
		fmt.Fprintf(&sb, "$%d", len(args))
		rest = rest[end+2:]
	}
	if strings.Contains(rest, "}}") {
		return "", nil, ErrUnmatchedPlaceholder
	}
	sb.WriteString(rest)
	return sb.String(), args, nil
}

func placeholderValue(ref string, rec *connector.Record) (interface{}, error) {
	switch {
	case ref == "time":
		return rec.Time, nil
	case ref == "record":
		data, err := json.Marshal(rec.Fields)
		if err != nil {
			return nil, fmt.Errorf("encoding record: %w", err)
		}
		return string(data), nil
	case strings.HasPrefix(ref, RecordFieldPrefix):
		v, _ := rec.Fields.Get(strings.TrimPrefix(ref, RecordFieldPrefix))
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encoding field %q: %w", ref, err)
			}
			return string(data), nil
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown query placeholder {{%s}}", ref)
	}
}

// Close closes the connection pool.
func (d *DatabaseOutput) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

var _ Module = (*DatabaseOutput)(nil)
