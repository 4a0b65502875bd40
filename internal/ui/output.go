// Package ui provides styled terminal output for the containeros CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ANSI palette indexes, so output degrades cleanly on 16-color terminals.
const (
	colorRed    = lipgloss.Color("1")
	colorGreen  = lipgloss.Color("2")
	colorYellow = lipgloss.Color("3")
	colorBlue   = lipgloss.Color("4")
	colorCyan   = lipgloss.Color("6")
)

// Writer provides styled output methods that respect color settings.
type Writer struct {
	out    io.Writer
	errOut io.Writer

	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	info    lipgloss.Style
	step    lipgloss.Style
	bold    lipgloss.Style
}

// NewWriter creates a Writer for stdout/stderr. The color profile is
// detected from the terminal; noColor or the NO_COLOR env var disables it.
func NewWriter(noColor bool) *Writer {
	r := lipgloss.NewRenderer(os.Stdout)
	if noColor || os.Getenv("NO_COLOR") != "" {
		r.SetColorProfile(termenv.Ascii)
	}

	return newWriter(os.Stdout, os.Stderr, r)
}

// NewWriterWithOutputs creates a Writer with custom output destinations and
// a fixed color profile: plain when noColor, ANSI otherwise. Intended for
// testing.
func NewWriterWithOutputs(out, errOut io.Writer, noColor bool) *Writer {
	r := lipgloss.NewRenderer(out)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	} else {
		r.SetColorProfile(termenv.ANSI)
	}

	return newWriter(out, errOut, r)
}

func newWriter(out, errOut io.Writer, r *lipgloss.Renderer) *Writer {
	return &Writer{
		out:     out,
		errOut:  errOut,
		success: r.NewStyle().Foreground(colorGreen),
		warning: r.NewStyle().Foreground(colorYellow),
		err:     r.NewStyle().Foreground(colorRed).Bold(true),
		info:    r.NewStyle().Foreground(colorCyan),
		step:    r.NewStyle().Foreground(colorBlue).Bold(true),
		bold:    r.NewStyle().Bold(true),
	}
}

// Out is the writer for primary command output (JSON, tables).
func (w *Writer) Out() io.Writer {
	return w.out
}

// Success prints a success message with a green checkmark prefix.
func (w *Writer) Success(msg string) {
	writeLine(w.out, w.success.Render("✓"), msg)
}

// Warning prints a warning message to stderr with a yellow prefix.
func (w *Writer) Warning(msg string) {
	writeLine(w.errOut, w.warning.Render("warning:"), msg)
}

// Error prints an error message to stderr with a red prefix.
func (w *Writer) Error(msg string) {
	writeLine(w.errOut, w.err.Render("error:"), msg)
}

// Info prints an informational message with a cyan prefix.
func (w *Writer) Info(msg string) {
	writeLine(w.out, w.info.Render("info:"), msg)
}

// Step announces one unit of a longer operation (a build, a retag).
func (w *Writer) Step(msg string) {
	writeLine(w.out, w.step.Render("==>"), msg)
}

// Bold renders text in bold.
func (w *Writer) Bold(msg string) string {
	return w.bold.Render(msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Infof prints a formatted informational message.
func (w *Writer) Infof(format string, args ...any) {
	w.Info(fmt.Sprintf(format, args...))
}

// Stepf prints a formatted step message.
func (w *Writer) Stepf(format string, args ...any) {
	w.Step(fmt.Sprintf(format, args...))
}

func writeLine(out io.Writer, prefix, msg string) {
	if _, err := fmt.Fprintf(out, "%s %s\n", prefix, msg); err != nil {
		return
	}
}
