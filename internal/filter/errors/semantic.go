package errors

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/contentq/internal/filter/ast"
)

// Semantic error codes (SEM200-299)
const (
	// ErrUnknownField indicates a member that is neither a field nor a virtual field
	ErrUnknownField ErrorCode = "SEM201"
	// ErrUnknownFunction indicates a call to an unregistered function
	ErrUnknownFunction ErrorCode = "SEM202"
	// ErrUnknownContextField indicates an unknown @attribute
	ErrUnknownContextField ErrorCode = "SEM203"
	// ErrConstantsNotAllowed indicates a literal in a query compiled without constants
	ErrConstantsNotAllowed ErrorCode = "SEM204"
	// ErrWrongArity indicates a function called with the wrong number of arguments
	ErrWrongArity ErrorCode = "SEM205"
	// ErrInvalidOnArgument indicates a malformed On(...) argument
	ErrInvalidOnArgument ErrorCode = "SEM206"
	// ErrUnknownType indicates an unknown content type
	ErrUnknownType ErrorCode = "SEM207"
	// ErrNoPrimaryAssociation indicates On(Type, ?) on a type without a primary association
	ErrNoPrimaryAssociation ErrorCode = "SEM208"
	// ErrOperatorNotSupported indicates an operator that does not apply to the operand type
	ErrOperatorNotSupported ErrorCode = "SEM209"
	// ErrInvalidLiteral indicates a literal that cannot be converted to the field type
	ErrInvalidLiteral ErrorCode = "SEM210"
	// ErrUnknownSortField indicates a sort on a field the type does not have
	ErrUnknownSortField ErrorCode = "SEM211"
	// ErrInvalidOperand indicates an operand in a position it cannot occupy
	ErrInvalidOperand ErrorCode = "SEM212"
)

// NewUnknownField creates a SEM201 error
func NewUnknownField(loc ast.SourceLocation, typeName, field string) *CompilerError {
	return newError(
		ErrUnknownField,
		"unknown_field",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("Type %s has no field %s", typeName, quote(field)),
		loc,
	)
}

// NewUnknownFunction creates a SEM202 error
func NewUnknownFunction(loc ast.SourceLocation, name string, known []string) *CompilerError {
	e := newError(
		ErrUnknownFunction,
		"unknown_function",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("Unknown function %s", quote(name)),
		loc,
	)
	if len(known) > 0 {
		e.WithSuggestion("Available functions: " + strings.Join(known, ", "))
	}
	return e
}

// NewUnknownContextField creates a SEM203 error
func NewUnknownContextField(loc ast.SourceLocation, name string) *CompilerError {
	return newError(
		ErrUnknownContextField,
		"unknown_context_field",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("Unknown context attribute @%s", name),
		loc,
	)
}

// NewConstantsNotAllowed creates a SEM204 error
func NewConstantsNotAllowed(loc ast.SourceLocation, literal string) *CompilerError {
	return newError(
		ErrConstantsNotAllowed,
		"constants_not_permitted",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("Constants not permitted in this query: %s at %d", literal, loc.Offset),
		loc,
	).WithSuggestion("Use a ? placeholder and bind the value")
}

// NewWrongArity creates a SEM205 error
func NewWrongArity(loc ast.SourceLocation, name string, expected string, actual int) *CompilerError {
	return newError(
		ErrWrongArity,
		"wrong_arity",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("%s expects %s argument(s), got %d", name, expected, actual),
		loc,
	).WithExpected(expected).WithActual(fmt.Sprint(actual))
}

// NewInvalidOnArgument creates a SEM206 error
func NewInvalidOnArgument(loc ast.SourceLocation, position int, expected, found string) *CompilerError {
	return newError(
		ErrInvalidOnArgument,
		"invalid_on_argument",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("On argument %d must be %s", position, expected),
		loc,
	).WithExpected(expected).WithActual(found).
		WithSuggestion(`Write On(Type, ?) or On(Type, ?, "map")`)
}

// NewUnknownType creates a SEM207 error
func NewUnknownType(loc ast.SourceLocation, name string) *CompilerError {
	return newError(
		ErrUnknownType,
		"unknown_type",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("Unknown content type %s", quote(name)),
		loc,
	)
}

// NewNoPrimaryAssociation creates a SEM208 error
func NewNoPrimaryAssociation(loc ast.SourceLocation, source, target string) *CompilerError {
	return newError(
		ErrNoPrimaryAssociation,
		"no_primary_association",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("%s has no primary association to %s", source, target),
		loc,
	).WithSuggestion(fmt.Sprintf(`Name the association: On(%s, ?, "map")`, target))
}

// NewOperatorNotSupported creates a SEM209 error
func NewOperatorNotSupported(loc ast.SourceLocation, op, operand, typ string) *CompilerError {
	return newError(
		ErrOperatorNotSupported,
		"operator_not_supported",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("Operator %s cannot be applied to %s of type %s", quote(op), operand, typ),
		loc,
	)
}

// NewInvalidLiteral creates a SEM210 error
func NewInvalidLiteral(loc ast.SourceLocation, literal, typ string) *CompilerError {
	return newError(
		ErrInvalidLiteral,
		"invalid_literal",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("Literal %s cannot be used as %s", literal, typ),
		loc,
	).WithExpected(typ).WithActual(literal)
}

// NewUnknownSortField creates a SEM211 error
func NewUnknownSortField(typeName, field string) *CompilerError {
	return newError(
		ErrUnknownSortField,
		"unknown_sort_field",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("Cannot sort %s by unknown field %s", typeName, quote(field)),
		noLocation,
	)
}

// NewInvalidOperand creates a SEM212 error
func NewInvalidOperand(loc ast.SourceLocation, operand, reason string) *CompilerError {
	return newError(
		ErrInvalidOperand,
		"invalid_operand",
		CategorySemantic,
		SeverityError,
		fmt.Sprintf("%s %s", operand, reason),
		loc,
	)
}
