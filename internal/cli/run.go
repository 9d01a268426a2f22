package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/state"
)

// Output formats for Build.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatMermaid  = "mermaid"
)

// BuildOptions configures a one-shot build.
type BuildOptions struct {
	// Sets are position=value writes applied after the first build.
	Sets   []string
	Format string
	// Render turns markdown into terminal output. Nil prints it raw.
	Render func(string) (string, error)
}

// BuildResult is the JSON form of a build.
type BuildResult struct {
	RootID     string                `json:"root_id"`
	Generation uint64                `json:"generation"`
	Trigger    domain.BuildTrigger   `json:"trigger"`
	Root       *domain.ComponentNode `json:"root"`
	States     []state.Entry         `json:"states"`
}

// Build loads the description, builds it once, applies the assignments with
// a second pass and prints the resulting tree. The snapshot, when enabled,
// is saved after each pass.
func Build(ctx context.Context, opts Options, bopts BuildOptions, w io.Writer) error {
	assignments := make([]Assignment, 0, len(bopts.Sets))
	for _, s := range bopts.Sets {
		a, err := ParseAssignment(s)
		if err != nil {
			return err
		}
		assignments = append(assignments, a)
	}

	rt, err := Setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	eng := rt.Engine
	if err := eng.Flush(ctx); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if len(assignments) > 0 {
		for _, a := range assignments {
			if err := eng.Write(a.Position, a.Value); err != nil {
				return err
			}
		}
		if err := eng.Flush(ctx); err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}
	}

	gen := eng.Current()
	switch bopts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(BuildResult{
			RootID:     eng.RootID(),
			Generation: gen.Number,
			Trigger:    gen.Trigger,
			Root:       gen.Root,
			States:     eng.States(),
		})
	case FormatMermaid:
		_, err := io.WriteString(w, graph.GenerateMermaid(gen.Root, &graph.Overlay{Stateful: statefulHandles(eng.Handles())}))
		return err
	case "", FormatMarkdown:
		return tui.NewPrinter(w, bopts.Render, eng.States).Publish(ctx, gen, nil)
	default:
		return fmt.Errorf("unknown format %q (want %s, %s or %s)", bopts.Format, FormatMarkdown, FormatJSON, FormatMermaid)
	}
}

func statefulHandles(handles []domain.ScopeHandle) map[domain.HandleID]bool {
	out := make(map[domain.HandleID]bool, len(handles))
	for _, h := range handles {
		if !h.Stateless {
			out[h.ID] = true
		}
	}
	return out
}
