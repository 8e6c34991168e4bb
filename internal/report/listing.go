package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/akave-ai/newsreport/internal/config"
)

// Listing is a titled, ranked block ready for printing.
type Listing struct {
	Title string
	Lines []string
}

// Printer renders listings as bordered text blocks:
//
//	--- Popular Articles ---
//	1. Some title (42 views)
//	------------------------
//
// An empty listing is either skipped or printed as header and footer only,
// depending on the empty mode.
type Printer struct {
	w         io.Writer
	emptyMode string
}

// NewPrinter returns a Printer writing to w. emptyMode is config.EmptySuppress
// or config.EmptyBorder; anything else behaves like EmptySuppress.
func NewPrinter(w io.Writer, emptyMode string) *Printer {
	return &Printer{w: w, emptyMode: emptyMode}
}

// Print writes l followed by a blank line.
func (p *Printer) Print(l Listing) error {
	if len(l.Lines) == 0 && p.emptyMode != config.EmptyBorder {
		return nil
	}
	header := "--- " + l.Title + " ---"

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for i, line := range l.Lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	b.WriteString(strings.Repeat("-", utf8.RuneCountInString(header)))
	b.WriteString("\n\n")

	_, err := io.WriteString(p.w, b.String())
	return err
}

// PrintFailure writes the one-line diagnostic for a report that could not run.
func (p *Printer) PrintFailure(description string) error {
	return p.PrintError("fetch " + description)
}

// PrintError writes "Error: Failed to <operation>." followed by a blank line.
func (p *Printer) PrintError(operation string) error {
	_, err := fmt.Fprintf(p.w, "Error: Failed to %s.\n\n", operation)
	return err
}
