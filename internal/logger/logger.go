// Package logger provides structured logging functionality.
// It wraps the standard log/slog package for consistent logging across the runtime.
//
// Logs are written to stderr so that NDJSON records written to stdout by the
// output modules are never interleaved with log lines. Two formats are supported:
//   - JSON (default): Machine-readable structured logging
//   - Text: slog's key=value text format for interactive use
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger is the default logger instance.
var Logger *slog.Logger

// output is where new handlers write; tests swap it out.
var output io.Writer = os.Stderr

func init() {
	Logger = newLogger(output, slog.LevelInfo, FormatJSON)
}

// OutputFormat represents the log output format
type OutputFormat int

const (
	// FormatJSON is the default machine-readable JSON format
	FormatJSON OutputFormat = iota
	// FormatText is slog's human-readable key=value format
	FormatText
)

// ParseFormat converts "json" or "text" to an OutputFormat.
// Unknown values fall back to FormatJSON.
func ParseFormat(s string) OutputFormat {
	if strings.EqualFold(s, "text") {
		return FormatText
	}
	return FormatJSON
}

// ParseLevel converts "debug", "info", "warn" or "error" to a slog.Level.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level slog.Level, format OutputFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// SetLevel configures the logging level, keeping JSON output.
func SetLevel(level slog.Level) {
	Logger = newLogger(output, level, FormatJSON)
}

// SetLevelAndFormat sets both the log level and format.
func SetLevelAndFormat(level slog.Level, format OutputFormat) {
	Logger = newLogger(output, level, format)
}

// SetOutput redirects subsequent loggers to w and rebuilds the default logger.
func SetOutput(w io.Writer, level slog.Level, format OutputFormat) {
	output = w
	Logger = newLogger(output, level, format)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// WithModule returns a logger with module context.
func WithModule(moduleType string, index int) *slog.Logger {
	return Logger.With(slog.String("module_type", moduleType), slog.Int("module_index", index))
}

// ExecutionContext contains context information for pipeline execution logging.
type ExecutionContext struct {
	// PipelineID is the unique identifier for the pipeline (required)
	PipelineID string
	// PipelineName is the human-readable name of the pipeline
	PipelineName string
	// Stage is the current execution stage (input, filter, output)
	Stage string
	// ModuleType is the type of module being executed (file, parser, database, ...)
	ModuleType string
	// DryRun indicates if this is a dry-run execution
	DryRun bool
	// FilterIndex is the index of the current filter; negative when not in the filter stage
	FilterIndex int
}

func (c ExecutionContext) attrs() []any {
	attrs := make([]any, 0, 6)
	attrs = append(attrs, slog.String("pipeline_id", c.PipelineID))
	if c.PipelineName != "" {
		attrs = append(attrs, slog.String("pipeline_name", c.PipelineName))
	}
	if c.Stage != "" {
		attrs = append(attrs, slog.String("stage", c.Stage))
	}
	if c.ModuleType != "" {
		attrs = append(attrs, slog.String("module_type", c.ModuleType))
	}
	if c.DryRun {
		attrs = append(attrs, slog.Bool("dry_run", true))
	}
	if c.FilterIndex >= 0 {
		attrs = append(attrs, slog.Int("filter_index", c.FilterIndex))
	}
	return attrs
}

// WithExecution returns a logger with execution context attached.
func WithExecution(ctx ExecutionContext) *slog.Logger {
	return Logger.With(ctx.attrs()...)
}

// LogExecutionStart logs the start of a pipeline execution.
func LogExecutionStart(ctx ExecutionContext) {
	Logger.Info("execution started", ctx.attrs()...)
}

// LogExecutionEnd logs the completion of a pipeline execution.
func LogExecutionEnd(ctx ExecutionContext, status string, recordsProcessed int, duration time.Duration) {
	attrs := append(ctx.attrs(),
		slog.String("status", status),
		slog.Int("records_processed", recordsProcessed),
		slog.Duration("duration", duration),
	)
	Logger.Info("execution completed", attrs...)
}

// LogStageEnd logs the completion of a pipeline stage.
// A non-nil err is logged at error level together with its unwrap chain.
func LogStageEnd(ctx ExecutionContext, recordCount int, duration time.Duration, err error) {
	attrs := append(ctx.attrs(),
		slog.Int("record_count", recordCount),
		slog.Duration("duration", duration),
	)
	if err == nil {
		Logger.Info("stage completed", attrs...)
		return
	}
	attrs = append(attrs, slog.String("error", err.Error()), slog.String("error_type", fmt.Sprintf("%T", err)))
	if chain := errorChain(err); len(chain) > 1 {
		attrs = append(attrs, slog.String("error_chain", strings.Join(chain, " -> ")))
	}
	Logger.Error("stage failed", attrs...)
}

func errorChain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		err = errors.Unwrap(err)
	}
	return chain
}
