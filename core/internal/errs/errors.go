// Package errs defines the structured error taxonomy shared by every stage
// of the query pipeline (compile-time, plan-time, security-time, runtime).
package errs

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies an Error the way spec §6/§7 enumerates the error envelope.
type Kind string

const (
	KindValidation       Kind = "VALIDATION"
	KindQueryTooLarge    Kind = "QUERY_TOO_LARGE"
	KindQueryTooDeep     Kind = "QUERY_TOO_DEEP"
	KindQueryTooComplex  Kind = "QUERY_TOO_COMPLEX"
	KindUnknownField     Kind = "UNKNOWN_FIELD"
	KindUnknownType      Kind = "UNKNOWN_TYPE"
	KindUnknownOperator  Kind = "UNKNOWN_OPERATOR"
	KindRequiresJoin     Kind = "REQUIRES_JOIN"
	KindConnectionPool   Kind = "CONNECTION_POOL"
	KindDatabase         Kind = "DATABASE"
	KindPolicyDenied     Kind = "POLICY_DENIED"
)

// Error is the structured error every component returns. Messages never
// carry raw SQL or literal parameter values (spec §7) — only schema
// identifiers and measurements.
type Error struct {
	Kind    Kind
	Message string
	Path    string // JSON-pointer path, populated for compile-time errors

	// Measurements, populated for the matching Kind only.
	Size          int
	MaxSize       int
	Depth         int
	MaxDepth      int
	Complexity    int
	MaxComplexity int
	SQLState      string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewAt(kind Kind, path string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Path: path}
}

func QueryTooLarge(size, max int) *Error {
	return &Error{Kind: KindQueryTooLarge, Message: "query exceeds maximum size", Size: size, MaxSize: max}
}

func QueryTooDeep(depth, max int) *Error {
	return &Error{Kind: KindQueryTooDeep, Message: "query exceeds maximum nesting depth", Depth: depth, MaxDepth: max}
}

func QueryTooComplex(complexity, max int) *Error {
	return &Error{Kind: KindQueryTooComplex, Message: "query exceeds maximum complexity", Complexity: complexity, MaxComplexity: max}
}

func Database(message, sqlState string) *Error {
	return &Error{Kind: KindDatabase, Message: message, SQLState: sqlState}
}

func ConnectionPool(message string) *Error {
	return &Error{Kind: KindConnectionPool, Message: message}
}

// Wrap attaches component context to an error without leaking its contents
// into the structured Kind — used at component boundaries per SPEC_FULL §7.
func Wrap(err error, component string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, component)
}

// As unwraps a *Error from a pkg/errors wrap chain, so callers don't need to
// import pkg/errors directly just to reach the structured cause.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		cause := pkgerrors.Cause(err)
		if cause == err {
			return nil, false
		}
		err = cause
	}
	return nil, false
}
