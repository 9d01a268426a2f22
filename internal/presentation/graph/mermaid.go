package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Overlay contains dynamic data to visualize on the tree.
type Overlay struct {
	// Stateful marks handles that carry state; their nodes are drawn as cylinders.
	Stateful map[domain.HandleID]bool
	// Diff highlights what the last build mounted and reused.
	Diff *domain.TreeDiff
}

// GenerateMermaid produces a Mermaid flowchart of a component tree.
// Node shapes:
// - Stateful: [(Cylinder)]
// - Keyed: (Rounded)
// - Default: [Rectangle]
func GenerateMermaid(root *domain.ComponentNode, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if root == nil {
		return sb.String()
	}

	root.Walk(func(n *domain.ComponentNode) bool {
		id := sanitizeMermaidID(string(n.Position))

		opener, closer := "[", "]"
		switch {
		case overlay != nil && overlay.Stateful[n.Handle]:
			opener, closer = "[(", ")]"
		case strings.Contains(n.Position.Last(), "#"):
			opener, closer = "(", ")"
		}

		label := strings.ReplaceAll(n.Position.Last(), "\"", "'")
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %s\"%s\n", id, opener, label, n.Handle, closer)

		for _, c := range n.Children {
			fmt.Fprintf(&sb, "    %s --> %s\n", id, sanitizeMermaidID(string(c.Position)))
		}
		return true
	})

	if overlay != nil && overlay.Diff != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps the labels readable on both themes.
		sb.WriteString("    classDef mounted fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef reused fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		for _, n := range overlay.Diff.Mounted {
			fmt.Fprintf(&sb, "    class %s mounted;\n", sanitizeMermaidID(string(n.Position)))
		}
		for _, n := range overlay.Diff.Reused {
			fmt.Fprintf(&sb, "    class %s reused;\n", sanitizeMermaidID(string(n.Position)))
		}
	}

	return sb.String()
}

// sanitizeMermaidID maps a position onto Mermaid's identifier alphabet.
func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(
		"/", "_",
		"@", "_",
		"#", "_k_",
		".", "_",
		"-", "_",
		" ", "_",
		"\\", "_",
	)
	s := strings.TrimPrefix(r.Replace(id), "_")
	if s == "" {
		return "root"
	}
	return s
}
