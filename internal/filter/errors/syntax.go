package errors

import (
	"fmt"

	"github.com/conduit-lang/contentq/internal/filter/ast"
)

// Syntax error codes (SYN001-099)
const (
	// ErrUnexpectedChar indicates a character that starts no token
	ErrUnexpectedChar ErrorCode = "SYN001"
	// ErrExpectedToken indicates a specific token was expected but not found
	ErrExpectedToken ErrorCode = "SYN002"
	// ErrUnterminatedString indicates a string literal was not terminated
	ErrUnterminatedString ErrorCode = "SYN003"
	// ErrUnterminatedGroup indicates a '(' or '[' without its closing bracket
	ErrUnterminatedGroup ErrorCode = "SYN004"
	// ErrInvalidNumber indicates a malformed number literal
	ErrInvalidNumber ErrorCode = "SYN005"
	// ErrChainedComparison indicates a comparison whose right side is not a single value
	ErrChainedComparison ErrorCode = "SYN006"
	// ErrUnexpectedEnd indicates the query ended too early
	ErrUnexpectedEnd ErrorCode = "SYN007"
	// ErrEmptyQuery indicates a blank query
	ErrEmptyQuery ErrorCode = "SYN008"
	// ErrTrailingInput indicates text after a complete expression
	ErrTrailingInput ErrorCode = "SYN009"
)

// NewUnexpectedChar creates a SYN001 error
func NewUnexpectedChar(loc ast.SourceLocation, ch rune) *CompilerError {
	return newError(
		ErrUnexpectedChar,
		"unexpected_character",
		CategorySyntax,
		SeverityError,
		fmt.Sprintf("Unexpected character %q at %d", ch, loc.Offset),
		loc,
	)
}

// NewExpectedToken creates a SYN002 error
func NewExpectedToken(loc ast.SourceLocation, expected, found string) *CompilerError {
	return newError(
		ErrExpectedToken,
		"expected_token",
		CategorySyntax,
		SeverityError,
		fmt.Sprintf("Expected %s but found %s at %d", expected, quote(found), loc.Offset),
		loc,
	).WithExpected(expected).WithActual(found)
}

// NewUnterminatedString creates a SYN003 error
func NewUnterminatedString(loc ast.SourceLocation, delimiter rune) *CompilerError {
	return newError(
		ErrUnterminatedString,
		"unterminated_string",
		CategorySyntax,
		SeverityError,
		fmt.Sprintf("Unterminated string starting at %d", loc.Offset),
		loc,
	).WithSuggestion(fmt.Sprintf("Close the string with %c; escape a literal %c as \\%c", delimiter, delimiter, delimiter))
}

// NewUnterminatedGroup creates a SYN004 error
func NewUnterminatedGroup(loc ast.SourceLocation, open, close string) *CompilerError {
	return newError(
		ErrUnterminatedGroup,
		"unterminated_group",
		CategorySyntax,
		SeverityError,
		fmt.Sprintf("Unterminated group: %s opened at %d is never closed", quote(open), loc.Offset),
		loc,
	).WithExpected(close)
}

// NewInvalidNumber creates a SYN005 error
func NewInvalidNumber(loc ast.SourceLocation, literal string) *CompilerError {
	return newError(
		ErrInvalidNumber,
		"invalid_number",
		CategorySyntax,
		SeverityError,
		fmt.Sprintf("Malformed number %s at %d", quote(literal), loc.Offset),
		loc,
	).WithSuggestion("Numbers are digits with at most one decimal point, e.g. 18 or 4.5")
}

// NewChainedComparison creates a SYN006 error
func NewChainedComparison(loc ast.SourceLocation, op string) *CompilerError {
	return newError(
		ErrChainedComparison,
		"chained_comparison",
		CategorySyntax,
		SeverityError,
		fmt.Sprintf("Operator %s cannot be chained at %d", quote(op), loc.Offset),
		loc,
	).WithSuggestion("Only 'and' and 'or' may join expressions; compare against a single value")
}

// NewUnexpectedEnd creates a SYN007 error
func NewUnexpectedEnd(loc ast.SourceLocation, expected string) *CompilerError {
	return newError(
		ErrUnexpectedEnd,
		"unexpected_end",
		CategorySyntax,
		SeverityError,
		fmt.Sprintf("Unexpected end of query, expected %s", expected),
		loc,
	).WithExpected(expected)
}

// NewEmptyQuery creates a SYN008 error
func NewEmptyQuery() *CompilerError {
	return newError(
		ErrEmptyQuery,
		"empty_query",
		CategorySyntax,
		SeverityError,
		"Query is empty",
		ast.SourceLocation{},
	)
}

// NewTrailingInput creates a SYN009 error
func NewTrailingInput(loc ast.SourceLocation, found string) *CompilerError {
	return newError(
		ErrTrailingInput,
		"trailing_input",
		CategorySyntax,
		SeverityError,
		fmt.Sprintf("Unexpected %s after the end of the expression at %d", quote(found), loc.Offset),
		loc,
	).WithSuggestion("Join expressions with 'and' or 'or'")
}
