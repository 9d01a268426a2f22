package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the arbor banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"                _", "#86efac"},
		{"   __ _ _ __ | |__   ___  _ __", "#4ade80"},
		{"  / _` | '__|| '_ \\ / _ \\| '__|", "#22c55e"},
		{" | (_| | |   | |_) | (_) | |", "#16a34a"},
		{"  \\__,_|_|   |_.__/ \\___/|_|", "#15803d"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
