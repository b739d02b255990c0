package errors

import (
	"fmt"
	"strings"
)

// FormatError returns a human-readable error message for terminal output
func FormatError(e *CompilerError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s [%s]\n", severityIcon(e.Severity), categoryDisplayName(e.Category), e.Code)

	if e.Query != "" && e.Location.Offset >= 0 {
		fmt.Fprintf(&b, "  %s\n", e.Query)
		fmt.Fprintf(&b, "  %s^ %s\n", strings.Repeat(" ", caretColumn(e.Query, e.Location.Offset)), e.Message)
	} else {
		fmt.Fprintf(&b, "  %s\n", e.Message)
	}

	if e.Expected != "" || e.Actual != "" {
		b.WriteString("\n")
		if e.Expected != "" {
			fmt.Fprintf(&b, "  Expected: %s\n", e.Expected)
		}
		if e.Actual != "" {
			fmt.Fprintf(&b, "  Actual:   %s\n", e.Actual)
		}
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n💡 %s\n", e.Suggestion)
	}

	return b.String()
}

// FormatErrorList returns a formatted string of all errors
func FormatErrorList(errors ErrorList) string {
	if len(errors) == 0 {
		return "no errors"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Filter rejected with %d error(s)\n\n", len(errors))

	for i, err := range errors {
		if i > 0 {
			b.WriteString("\n" + strings.Repeat("-", 80) + "\n\n")
		}
		b.WriteString(err.Format())
	}

	return b.String()
}

// FormatCompact returns a compact one-line error format
func FormatCompact(e *CompilerError) string {
	if e.Near != "" {
		return fmt.Sprintf("%s: %s (near %q) [%s]", e.Severity, e.Message, e.Near, e.Code)
	}
	return fmt.Sprintf("%s: %s [%s]", e.Severity, e.Message, e.Code)
}

func caretColumn(query string, offset int) int {
	n := len([]rune(query))
	if offset > n {
		return n
	}
	return offset
}

// severityIcon returns the icon for a severity level
func severityIcon(severity ErrorSeverity) string {
	switch severity {
	case SeverityError:
		return "❌"
	case SeverityFatal:
		return "💥"
	default:
		return "❓"
	}
}

// categoryDisplayName returns a human-readable category name
func categoryDisplayName(category ErrorCategory) string {
	switch category {
	case CategorySyntax:
		return "Syntax Error"
	case CategorySemantic:
		return "Semantic Error"
	case CategoryBinding:
		return "Binding Error"
	case CategoryJoin:
		return "Join Error"
	case CategoryInternal:
		return "Internal Error"
	default:
		return "Filter Error"
	}
}
