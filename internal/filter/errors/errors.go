// Package errors provides structured error handling for the filter engine.
// It defines stable error codes, categories and formatting for terminal
// output and JSON.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/conduit-lang/contentq/internal/filter/ast"
)

// ErrorCode is a stable error code. Codes satisfy the error interface so
// callers can write errors.Is(err, ErrUnknownField).
type ErrorCode string

// Error implements the error interface
func (c ErrorCode) Error() string {
	return string(c)
}

// ErrorCategory represents the category of a filter error
type ErrorCategory string

const (
	// CategorySyntax represents parse errors (SYN001-099)
	CategorySyntax ErrorCategory = "syntax"
	// CategorySemantic represents resolve and compile errors (SEM200-299)
	CategorySemantic ErrorCategory = "semantic"
	// CategoryBinding represents argument binding and usage errors (BND300-399)
	CategoryBinding ErrorCategory = "binding"
	// CategoryJoin represents association setup errors (JON400-499)
	CategoryJoin ErrorCategory = "join"
	// CategoryInternal represents defects in the engine itself (INT900-999)
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the severity level of an error
type ErrorSeverity string

const (
	// SeverityError rejects the operation; the process keeps running
	SeverityError ErrorSeverity = "error"
	// SeverityFatal aborts the current request
	SeverityFatal ErrorSeverity = "fatal"
)

// CompilerError is a structured filter error
type CompilerError struct {
	// Code is the unique error code (e.g., "SYN001", "BND301")
	Code ErrorCode `json:"code"`
	// Type is a machine-readable error type identifier
	Type string `json:"type"`
	// Category is the error category
	Category ErrorCategory `json:"category"`
	// Severity is the error severity level
	Severity ErrorSeverity `json:"severity"`
	// Message is the primary error message, safe to show to end users
	Message string `json:"message"`
	// Location is the offset into the query text (-1 when not positional)
	Location ast.SourceLocation `json:"location"`
	// Query is the filter text the error refers to (optional)
	Query string `json:"query,omitempty"`
	// Near is the text surrounding Location
	Near string `json:"near,omitempty"`
	// Expected describes what was expected (optional)
	Expected string `json:"expected,omitempty"`
	// Actual describes what was actually found (optional)
	Actual string `json:"actual,omitempty"`
	// Suggestion provides a hint for fixing the error (optional)
	Suggestion string `json:"suggestion,omitempty"`
	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *CompilerError) Error() string {
	return FormatCompact(e)
}

// Format returns a human-readable error message for terminal output
func (e *CompilerError) Format() string {
	return FormatError(e)
}

// Is matches error codes and other errors with the same code
func (e *CompilerError) Is(target error) bool {
	switch t := target.(type) {
	case ErrorCode:
		return e.Code == t
	case *CompilerError:
		return e.Code == t.Code
	}
	return false
}

// Unwrap returns the underlying cause
func (e *CompilerError) Unwrap() error {
	return e.Cause
}

// ToJSON returns the error as a JSON string
func (e *CompilerError) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// WithQuery attaches the query text and computes the surrounding excerpt
func (e *CompilerError) WithQuery(query string) *CompilerError {
	e.Query = query
	if e.Location.Offset >= 0 {
		e.Near = Excerpt(query, e.Location.Offset)
	}
	return e
}

// WithExpected sets the expected value for the error
func (e *CompilerError) WithExpected(expected string) *CompilerError {
	e.Expected = expected
	return e
}

// WithActual sets the actual value for the error
func (e *CompilerError) WithActual(actual string) *CompilerError {
	e.Actual = actual
	return e
}

// WithSuggestion sets a suggestion for fixing the error
func (e *CompilerError) WithSuggestion(suggestion string) *CompilerError {
	e.Suggestion = suggestion
	return e
}

// WithCause records the underlying error
func (e *CompilerError) WithCause(cause error) *CompilerError {
	e.Cause = cause
	return e
}

// ErrorList is a collection of filter errors
type ErrorList []*CompilerError

// Error implements the error interface
func (el ErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	return FormatErrorList(el)
}

// Err returns nil for an empty list, the single error for one entry and
// the list itself otherwise
func (el ErrorList) Err() error {
	switch len(el) {
	case 0:
		return nil
	case 1:
		return el[0]
	default:
		return el
	}
}

// ToJSON returns all errors as a JSON array
func (el ErrorList) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(el, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// As extracts the first *CompilerError from err
func As(err error) (*CompilerError, bool) {
	var ce *CompilerError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	var list ErrorList
	if stderrors.As(err, &list) && len(list) > 0 {
		return list[0], true
	}
	return nil, false
}

// CodeOf returns the error code carried by err, or "" if there is none
func CodeOf(err error) ErrorCode {
	if ce, ok := As(err); ok {
		return ce.Code
	}
	return ""
}

// IsInternal reports whether err signals a defect in the engine
func IsInternal(err error) bool {
	ce, ok := As(err)
	return ok && ce.Category == CategoryInternal
}

// Excerpt returns up to ten characters either side of offset
func Excerpt(text string, offset int) string {
	const radius = 10
	runes := []rune(text)
	if offset > len(runes) {
		offset = len(runes)
	}
	if offset < 0 {
		offset = 0
	}
	start := offset - radius
	if start < 0 {
		start = 0
	}
	end := offset + radius
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}

// noLocation marks errors that do not point into the query text
var noLocation = ast.SourceLocation{Offset: -1}

// newError creates a new CompilerError with the given parameters
func newError(
	code ErrorCode,
	typ string,
	category ErrorCategory,
	severity ErrorSeverity,
	message string,
	loc ast.SourceLocation,
) *CompilerError {
	return &CompilerError{
		Code:     code,
		Type:     typ,
		Category: category,
		Severity: severity,
		Message:  message,
		Location: loc,
	}
}

func quote(s string) string {
	return fmt.Sprintf("'%s'", s)
}
