// Package ui renders CLI output: tables, key-value blocks, titled sections
// and formatted filter errors.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Printer writes styled output to w
type Printer struct {
	w       io.Writer
	noColor bool
}

// NewPrinter creates a printer. noColor disables all styling.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	return &Printer{w: w, noColor: noColor}
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.w
}

func (p *Printer) style(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if p.noColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

// Title prints a bold section title
func (p *Printer) Title(title string) {
	p.style(color.Bold, color.FgCyan).Fprintln(p.w, title)
}

// Lines prints indented lines under the last title
func (p *Printer) Lines(lines ...string) {
	for _, line := range lines {
		fmt.Fprintf(p.w, "  %s\n", line)
	}
}

// KeyValues prints aligned "key: value" pairs in the given order
func (p *Printer) KeyValues(pairs [][2]string) {
	width := 0
	for _, kv := range pairs {
		if len(kv[0]) > width {
			width = len(kv[0])
		}
	}
	key := p.style(color.FgCyan)
	for _, kv := range pairs {
		key.Fprint(p.w, padRight(kv[0]+":", width+1))
		fmt.Fprintf(p.w, " %s\n", kv[1])
	}
}

// Table prints rows under a header line and a separator
func (p *Printer) Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	head := p.style(color.Bold, color.FgCyan)
	gray := p.style(color.FgHiBlack)
	for i, h := range headers {
		if i < len(headers)-1 {
			h = padRight(h, widths[i])
		}
		head.Fprint(p.w, h)
		p.gap(i, len(headers))
	}
	fmt.Fprintln(p.w)
	for i, width := range widths {
		gray.Fprint(p.w, strings.Repeat("─", width))
		p.gap(i, len(widths))
	}
	fmt.Fprintln(p.w)

	for _, row := range rows {
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if i == len(widths)-1 {
				fmt.Fprint(p.w, cell)
			} else {
				fmt.Fprint(p.w, padRight(cell, widths[i]))
			}
			p.gap(i, len(widths))
		}
		fmt.Fprintln(p.w)
	}
}

func (p *Printer) gap(i, n int) {
	if i < n-1 {
		fmt.Fprint(p.w, "  ")
	}
}

// Success prints a green check line
func (p *Printer) Success(format string, args ...interface{}) {
	p.style(color.FgGreen, color.Bold).Fprintf(p.w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Highlight returns s in green, or unchanged when color is disabled
func (p *Printer) Highlight(s string) string {
	return p.style(color.FgGreen).Sprint(s)
}

// Dim returns s in gray, or unchanged when color is disabled
func (p *Printer) Dim(s string) string {
	return p.style(color.FgHiBlack).Sprint(s)
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
