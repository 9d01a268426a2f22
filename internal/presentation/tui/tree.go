package tui

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/state"
)

// TreeMarkdown describes a generation as a markdown document: a heading, the
// nested component list, and a table of state values.
func TreeMarkdown(gen *domain.Generation, entries []state.Entry) string {
	var sb strings.Builder
	if gen == nil {
		sb.WriteString("_No tree has been built yet._\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "# Generation %d (%s)\n\n", gen.Number, gen.Trigger)

	values := make(map[domain.HandleID]any, len(entries))
	for _, e := range entries {
		values[e.Handle] = e.Value
	}

	var walk func(n *domain.ComponentNode, depth int)
	walk = func(n *domain.ComponentNode, depth int) {
		fmt.Fprintf(&sb, "%s- **%s** `%s` %s", strings.Repeat("  ", depth), n.TypeName, n.Position.Last(), n.Handle)
		if n.Status == domain.NodeReused {
			sb.WriteString(" _(reused)_")
		}
		if v, ok := values[n.Handle]; ok {
			fmt.Fprintf(&sb, " = `%v`", v)
		}
		sb.WriteString("\n")
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(gen.Root, 0)

	if len(entries) > 0 {
		sorted := append([]state.Entry(nil), entries...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

		sb.WriteString("\n| Position | Handle | Value |\n|---|---|---|\n")
		for _, e := range sorted {
			fmt.Fprintf(&sb, "| `%s` | %s | `%v` |\n", e.Position, e.Handle, e.Value)
		}
	}
	return sb.String()
}

// Printer is a ports.Renderer that prints every published generation to an
// io.Writer, rendered through glamour.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	render func(string) (string, error)
	states func() []state.Entry
}

// NewPrinter creates a printer. states supplies the values shown next to the
// nodes and may be nil.
func NewPrinter(out io.Writer, render func(string) (string, error), states func() []state.Entry) *Printer {
	return &Printer{out: out, render: render, states: states}
}

// Publish implements ports.Renderer.
func (p *Printer) Publish(_ context.Context, gen *domain.Generation, _ *domain.TreeDiff) error {
	var entries []state.Entry
	if p.states != nil {
		entries = p.states()
	}
	md := TreeMarkdown(gen, entries)

	text := md
	if p.render != nil {
		rendered, err := p.render(md)
		if err != nil {
			return fmt.Errorf("failed to render tree: %w", err)
		}
		text = rendered
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.out, text)
	return err
}
