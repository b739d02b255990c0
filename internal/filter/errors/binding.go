package errors

import "fmt"

// Binding and usage error codes (BND300-399)
const (
	// ErrArgTypeMismatch indicates a bound value of the wrong type for its slot
	ErrArgTypeMismatch ErrorCode = "BND301"
	// ErrTooManyArgs indicates more binds than declared slots
	ErrTooManyArgs ErrorCode = "BND302"
	// ErrNullArg indicates null bound into a non-nullable slot
	ErrNullArg ErrorCode = "BND303"
	// ErrArgOutOfOrder indicates a bind to a slot other than the next one
	ErrArgOutOfOrder ErrorCode = "BND304"
	// ErrArgParse indicates text that cannot be parsed as the slot type
	ErrArgParse ErrorCode = "BND305"
	// ErrInvalidState indicates an operation not allowed in the filter's current state
	ErrInvalidState ErrorCode = "BND306"
	// ErrInvalidPage indicates a negative offset or an oversized page
	ErrInvalidPage ErrorCode = "BND307"
)

// NewArgTypeMismatch creates a BND301 error
func NewArgTypeMismatch(slot int, expected, actual string) *CompilerError {
	return newError(
		ErrArgTypeMismatch,
		"arg_type_mismatch",
		CategoryBinding,
		SeverityError,
		fmt.Sprintf("Argument slot %d expects %s, got %s", slot, expected, actual),
		noLocation,
	).WithExpected(expected).WithActual(actual)
}

// NewTooManyArgs creates a BND302 error
func NewTooManyArgs(declared int) *CompilerError {
	return newError(
		ErrTooManyArgs,
		"too_many_args",
		CategoryBinding,
		SeverityError,
		fmt.Sprintf("Filter declares %d argument slot(s); all are already bound", declared),
		noLocation,
	).WithExpected(fmt.Sprint(declared))
}

// NewNullArg creates a BND303 error
func NewNullArg(slot int, expected string) *CompilerError {
	return newError(
		ErrNullArg,
		"null_arg",
		CategoryBinding,
		SeverityError,
		fmt.Sprintf("Argument slot %d does not accept null", slot),
		noLocation,
	).WithExpected(expected).WithActual("null")
}

// NewArgOutOfOrder creates a BND304 error
func NewArgOutOfOrder(slot, next int) *CompilerError {
	return newError(
		ErrArgOutOfOrder,
		"arg_out_of_order",
		CategoryBinding,
		SeverityError,
		fmt.Sprintf("Argument slot %d bound out of order; next slot is %d", slot, next),
		noLocation,
	).WithExpected(fmt.Sprintf("slot %d", next)).WithActual(fmt.Sprintf("slot %d", slot))
}

// NewArgParse creates a BND305 error
func NewArgParse(slot int, expected, text string, cause error) *CompilerError {
	return newError(
		ErrArgParse,
		"arg_parse",
		CategoryBinding,
		SeverityError,
		fmt.Sprintf("Argument slot %d expects %s, cannot parse %q", slot, expected, text),
		noLocation,
	).WithExpected(expected).WithActual(text).WithCause(cause)
}

// NewInvalidState creates a BND306 error
func NewInvalidState(operation, state string) *CompilerError {
	return newError(
		ErrInvalidState,
		"invalid_state",
		CategoryBinding,
		SeverityError,
		fmt.Sprintf("Cannot %s a filter in state %s", operation, state),
		noLocation,
	).WithActual(state)
}

// NewInvalidPage creates a BND307 error
func NewInvalidPage(offset, size, max int) *CompilerError {
	return newError(
		ErrInvalidPage,
		"invalid_page",
		CategoryBinding,
		SeverityError,
		fmt.Sprintf("Invalid page offset=%d size=%d (size must be between 0 and %d)", offset, size, max),
		noLocation,
	)
}
