package config

import (
	"errors"
	"fmt"
	"strings"
)

// Parse error types.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
	ErrorTypeFormat = "format"
)

// ParseResult holds a decoded configuration document.
type ParseResult struct {
	// Data is the top-level object, nil when decoding failed or the document was empty
	Data map[string]interface{}
	// Errors lists decoding failures
	Errors []ParseError
	// FilePath is empty when parsed from a string
	FilePath string
	// Format is "json" or "yaml"
	Format string
}

// IsValid returns true if no parsing errors occurred.
func (r *ParseResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ParseError is a decoding failure with an optional source position.
type ParseError struct {
	Path string
	// Line and Column are 1-based, 0 when unknown
	Line   int
	Column int
	Offset int64
	Message string
	// Type is one of the ErrorType constants
	Type string
}

// Error implements the error interface.
func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, ", column %d", e.Column)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// ValidationResult contains the result of schema validation.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError is a schema violation.
type ValidationError struct {
	// Path is the JSON pointer of the offending value, e.g. "/pipeline/filters/0/config"
	Path string
	// Type is a coarse category such as "required", "type" or "enum"
	Type    string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result combines parsing and validation of one configuration.
type Result struct {
	Data             map[string]interface{}
	ParseErrors      []ParseError
	ValidationErrors []ValidationError
	FilePath         string
	Format           string
}

// IsValid returns true if no errors occurred.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// AllErrors returns parse errors followed by validation errors.
func (r *Result) AllErrors() []error {
	errs := make([]error, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.ParseErrors {
		errs = append(errs, e)
	}
	for _, e := range r.ValidationErrors {
		errs = append(errs, e)
	}
	return errs
}

// Err joins all errors, or returns nil for a valid result.
func (r *Result) Err() error {
	return errors.Join(r.AllErrors()...)
}
