package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// With auto set, the style follows the terminal background; otherwise the
// plain "notty" style is used, which suits pipes and tests.
func NewRenderer(auto bool) (func(string) (string, error), error) {
	opt := glamour.WithStandardStyle("notty")
	if auto {
		opt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}
