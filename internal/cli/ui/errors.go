package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
)

// ErrorOptions configures a problem report
type ErrorOptions struct {
	Context      string
	Problem      string
	Suggestions  []string
	HelpCommands []string
}

// Error prints a standardized problem report
//
// Example output:
//
//	❌ TYPE NOT FOUND: Cannot find content type 'Artcle'.
//
//	   Did you mean: Article?
//
//	   → List types: contentq types
func (p *Printer) Error(opts ErrorOptions) {
	red := p.style(color.FgRed, color.Bold)
	if opts.Context != "" {
		red.Fprintf(p.w, "❌ %s: %s\n", strings.ToUpper(opts.Context), opts.Problem)
	} else {
		red.Fprintf(p.w, "❌ %s\n", opts.Problem)
	}

	if len(opts.Suggestions) > 0 {
		fmt.Fprintln(p.w)
		p.style(color.FgYellow).Fprintf(p.w, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}
	if len(opts.HelpCommands) > 0 {
		fmt.Fprintln(p.w)
		cyan := p.style(color.FgCyan)
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(p.w, "   → %s\n", cmd)
		}
	}
}

// FilterError prints err. Filter errors get the positional format with the
// caret under the offending text; other errors print as a plain problem.
func (p *Printer) FilterError(err error) {
	ce, ok := ferrors.As(err)
	if !ok {
		p.Error(ErrorOptions{Problem: err.Error()})
		return
	}

	body := ferrors.FormatError(ce)
	header, rest, _ := strings.Cut(body, "\n")
	p.style(color.FgRed, color.Bold).Fprintln(p.w, header)
	fmt.Fprint(p.w, rest)
	if ce.Cause != nil {
		p.style(color.FgHiBlack).Fprintf(p.w, "  cause: %v\n", ce.Cause)
	}
}

// TypeNotFound prints an unknown content type report with close matches
func (p *Printer) TypeNotFound(name string, known []string) {
	p.Error(ErrorOptions{
		Context:      "type not found",
		Problem:      fmt.Sprintf("Cannot find content type '%s'.", name),
		Suggestions:  Suggest(name, known),
		HelpCommands: []string{"List types: contentq types"},
	})
}
