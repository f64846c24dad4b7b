package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// IsInteractive reports whether f is a terminal. Replies are rendered with
// glamour only in that case so piped output stays plain.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
