package errors

import "fmt"

// Internal invariant error codes (INT900-999)
const (
	// ErrCollectorIndex indicates a collector dispatch with no matching collector
	ErrCollectorIndex ErrorCode = "INT901"
	// ErrUnexpectedNode indicates a node the generator cannot compile
	ErrUnexpectedNode ErrorCode = "INT902"
)

// NewCollectorIndex creates an INT901 error
func NewCollectorIndex(index, available int) *CompilerError {
	return newError(
		ErrCollectorIndex,
		"collector_index",
		CategoryInternal,
		SeverityFatal,
		fmt.Sprintf("Collector #%d requested but only %d collector(s) are attached", index, available),
		noLocation,
	)
}

// NewUnexpectedNode creates an INT902 error
func NewUnexpectedNode(node string) *CompilerError {
	return newError(
		ErrUnexpectedNode,
		"unexpected_node",
		CategoryInternal,
		SeverityFatal,
		fmt.Sprintf("Cannot compile node %s", node),
		noLocation,
	)
}
