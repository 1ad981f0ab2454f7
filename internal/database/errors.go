package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Error categories for database operations
const (
	CategoryConnection  = "connection"
	CategoryQuery       = "query"
	CategoryConstraint  = "constraint"
	CategoryTransaction = "transaction"
	CategoryTimeout     = "timeout"
)

const maxQueryLen = 500

// DatabaseError is a categorized database error.
//
//nolint:revive // reads fine as database.DatabaseError at call sites
type DatabaseError struct {
	Category  string
	Operation string
	Message   string
	// Query is the statement text, truncated; parameter values are never kept
	Query       string
	ParamCount  int
	SQLState    string
	OriginalErr error
	Retryable   bool
}

func (e *DatabaseError) Error() string {
	msg := fmt.Sprintf("database %s error", e.Category)
	if e.Operation != "" {
		msg += " in " + e.Operation
	}
	msg += ": " + e.Message
	if e.SQLState != "" {
		msg += " (sqlstate " + e.SQLState + ")"
	}
	if e.OriginalErr != nil {
		msg += fmt.Sprintf(" (original: %v)", e.OriginalErr)
	}
	return msg
}

func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// NewConnectionError creates a retryable connection error.
func NewConnectionError(message string, originalErr error) *DatabaseError {
	return &DatabaseError{
		Category:    CategoryConnection,
		Operation:   "connect",
		Message:     message,
		OriginalErr: originalErr,
		Retryable:   true,
	}
}

// NewTransactionError creates a transaction error.
func NewTransactionError(message string, originalErr error) *DatabaseError {
	return &DatabaseError{
		Category:    CategoryTransaction,
		Operation:   "transaction",
		Message:     message,
		OriginalErr: originalErr,
	}
}

// ClassifyDatabaseError classifies a driver error. PostgreSQL errors are
// classified by SQLSTATE class; other errors by context and message.
func ClassifyDatabaseError(err error, operation, query string, paramCount int) *DatabaseError {
	if err == nil {
		return nil
	}

	dbErr := &DatabaseError{
		Category:    CategoryQuery,
		Operation:   operation,
		Message:     err.Error(),
		Query:       truncateQuery(query),
		ParamCount:  paramCount,
		OriginalErr: err,
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		dbErr.SQLState = string(pqErr.Code)
		dbErr.Message = pqErr.Message
		switch pqErr.Code.Class() {
		case "08": // connection_exception
			dbErr.Category = CategoryConnection
			dbErr.Retryable = true
		case "23": // integrity_constraint_violation
			dbErr.Category = CategoryConstraint
		case "40": // transaction_rollback, incl. serialization failure and deadlock
			dbErr.Category = CategoryTransaction
			dbErr.Retryable = true
		case "57":
			if pqErr.Code == "57014" { // query_canceled
				dbErr.Category = CategoryTimeout
				dbErr.Retryable = true
			}
		}
		return dbErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		dbErr.Category = CategoryTimeout
		dbErr.Retryable = true
	case isConnectionMessage(strings.ToLower(err.Error())):
		dbErr.Category = CategoryConnection
		dbErr.Retryable = true
	}
	return dbErr
}

func isConnectionMessage(msg string) bool {
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "bad connection", "no such host"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func truncateQuery(query string) string {
	if len(query) > maxQueryLen {
		return query[:maxQueryLen] + "... (truncated)"
	}
	return query
}

// IsRetryableError reports whether err wraps a retryable DatabaseError.
func IsRetryableError(err error) bool {
	var dbErr *DatabaseError
	return errors.As(err, &dbErr) && dbErr.Retryable
}
