// Package connector provides public types and interfaces for reparsing pipelines.
// This package is intended to be importable by external projects that need
// to build records or pipeline definitions for the reparse runtime.
package connector

import "time"

// Pipeline represents a complete pipeline configuration.
// It contains the parser definitions and the modules (Input, Filters, Output)
// required to move records from a source through the reparsing filters.
type Pipeline struct {
	// ID is the unique identifier for this pipeline
	ID string `json:"id"`

	// Name is the human-readable name of the pipeline
	Name string `json:"name"`

	// Description provides additional context about the pipeline
	Description string `json:"description,omitempty"`

	// Version is the pipeline configuration version
	Version string `json:"version"`

	// Parsers holds the parser definitions that filters resolve by name
	Parsers []ParserDefinition `json:"parsers,omitempty"`

	// Input defines the record source module
	Input *ModuleConfig `json:"input"`

	// Filters is an ordered list of record filter modules
	Filters []ModuleConfig `json:"filters,omitempty"`

	// Output defines the record destination module
	Output *ModuleConfig `json:"output"`

	// CreatedAt is when the pipeline definition was loaded
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// ModuleConfig represents the configuration for a pipeline module.
type ModuleConfig struct {
	// Type identifies the module type (e.g., "file", "parser", "database")
	Type string `json:"type"`

	// Config contains the module-specific configuration
	Config map[string]interface{} `json:"config"`
}

// ParserDefinition describes one named parser.
// Format selects the parsing engine; the remaining fields are format specific.
type ParserDefinition struct {
	// Name is the unique name filters use to reference the parser
	Name string `json:"name"`

	// Format is one of "json", "regex", "logfmt", "ltsv", "expr", "script"
	Format string `json:"format"`

	// Regex is the pattern for the regex format; named groups become fields
	Regex string `json:"regex,omitempty"`

	// Expression is the expr-lang program for the expr format
	Expression string `json:"expression,omitempty"`

	// Script is JavaScript source defining parse(text) for the script format
	Script string `json:"script,omitempty"`

	// Types maps a field name to the type its text value is decoded into
	// ("string", "integer", "float", "bool", "hex")
	Types map[string]string `json:"types,omitempty"`

	// Prefilter lists literals; text containing none of them is not parsed
	Prefilter []string `json:"prefilter,omitempty"`

	// PrefilterCaseInsensitive matches prefilter literals ignoring ASCII case
	PrefilterCaseInsensitive bool `json:"prefilterCaseInsensitive,omitempty"`
}

// ExecutionResult represents the result of a pipeline execution.
type ExecutionResult struct {
	// PipelineID is the ID of the executed pipeline
	PipelineID string `json:"pipelineId"`

	// Status is the execution status ("success", "error")
	Status string `json:"status"`

	// StartedAt is when execution started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when execution completed
	CompletedAt time.Time `json:"completedAt"`

	// RecordsProcessed is the number of records delivered to the output
	RecordsProcessed int `json:"recordsProcessed"`

	// RecordsFailed is the number of records the output could not deliver
	RecordsFailed int `json:"recordsFailed"`

	// Error contains error details if execution failed
	Error *ExecutionError `json:"error,omitempty"`

	// Preview holds the first filtered records of a dry run
	Preview []*Record `json:"preview,omitempty"`
}

// ExecutionError contains details about an execution failure.
type ExecutionError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Module is the module where the error occurred
	Module string `json:"module,omitempty"`

	// Category is the error classification (configuration, io, database, canceled, unknown)
	Category string `json:"category,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}
