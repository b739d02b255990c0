package errors

import "fmt"

// Join and setup error codes (JON400-499)
const (
	// ErrUnknownAssociation indicates no association service for a (source, target, map) triple
	ErrUnknownAssociation ErrorCode = "JON401"
	// ErrMissingPrimaryAssociation indicates the short On form without a primary association
	ErrMissingPrimaryAssociation ErrorCode = "JON402"
	// ErrSetupFailed indicates an association store failed while populating a collector
	ErrSetupFailed ErrorCode = "JON403"
)

// NewUnknownAssociation creates a JON401 error
func NewUnknownAssociation(source, target, mapName string) *CompilerError {
	name := mapName
	if name == "" {
		name = "<primary>"
	}
	return newError(
		ErrUnknownAssociation,
		"unknown_association",
		CategoryJoin,
		SeverityError,
		fmt.Sprintf("No association %s from %s to %s", name, source, target),
		noLocation,
	)
}

// NewMissingPrimaryAssociation creates a JON402 error
func NewMissingPrimaryAssociation(source, target string) *CompilerError {
	return newError(
		ErrMissingPrimaryAssociation,
		"missing_primary_association",
		CategoryJoin,
		SeverityError,
		fmt.Sprintf("%s declares no primary association to %s", source, target),
		noLocation,
	)
}

// NewSetupFailed creates a JON403 error
func NewSetupFailed(source, target, mapName string, cause error) *CompilerError {
	return newError(
		ErrSetupFailed,
		"setup_failed",
		CategoryJoin,
		SeverityError,
		fmt.Sprintf("Loading association %s from %s to %s failed", mapName, source, target),
		noLocation,
	).WithCause(cause)
}
