package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewWriter wraps w so ANSI sequences match what the terminal supports,
// as detected from w and environ.
func NewWriter(w io.Writer, environ []string) *colorprofile.Writer {
	return colorprofile.NewWriter(w, environ)
}

// Stdout returns a color-aware stdout writer and whether stdout is a
// terminal.
func Stdout() (io.Writer, bool) {
	return NewWriter(os.Stdout, os.Environ()), IsTerminal(os.Stdout)
}
