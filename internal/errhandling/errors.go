// Package errhandling provides error types and classification helpers.
// This file defines error categories and constructors used across the runtime
// to distinguish fatal configuration problems from runtime I/O failures.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryConfiguration represents invalid pipeline, filter or parser configuration.
	// Configuration errors are fatal and abort setup before any record is processed.
	CategoryConfiguration ErrorCategory = "configuration"

	// CategoryIO represents read/write failures of input and output modules.
	CategoryIO ErrorCategory = "io"

	// CategoryDatabase represents database connection, query or transaction failures.
	CategoryDatabase ErrorCategory = "database"

	// CategoryCanceled represents execution stopped by context cancellation or deadline.
	CategoryCanceled ErrorCategory = "canceled"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// Error codes carried by ClassifiedError.
const (
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeUnknownModule   = "UNKNOWN_MODULE"
	CodeInvalidParser   = "INVALID_PARSER"
	CodeReadFailed      = "READ_FAILED"
	CodeWriteFailed     = "WRITE_FAILED"
	CodeDatabaseFailure = "DATABASE_FAILURE"
	CodeCanceled        = "CANCELED"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Code is a stable machine-readable code.
	Code string

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Category, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// NewConfigurationError creates a fatal configuration error.
func NewConfigurationError(code, message string, originalErr error) *ClassifiedError {
	if code == "" {
		code = CodeInvalidConfig
	}
	return &ClassifiedError{
		Category:    CategoryConfiguration,
		Code:        code,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewIOError creates an input/output error.
func NewIOError(code, message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryIO,
		Code:        code,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewDatabaseError creates a database error.
func NewDatabaseError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryDatabase,
		Code:        CodeDatabaseFailure,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned as-is.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{Category: CategoryUnknown, Message: "nil error"}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{
			Category:    CategoryCanceled,
			Code:        CodeCanceled,
			Message:     "execution canceled",
			OriginalErr: err,
		}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &ClassifiedError{
			Category:    CategoryIO,
			Code:        CodeReadFailed,
			Message:     pathErr.Op + " " + pathErr.Path,
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// IsFatal returns true if the error must abort pipeline setup.
// Only configuration errors are fatal.
func IsFatal(err error) bool {
	return GetErrorCategory(err) == CategoryConfiguration
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil or unclassified errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Category
	}

	return CategoryUnknown
}
