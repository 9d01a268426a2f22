package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func sampleTree() (*domain.ComponentNode, *domain.ComponentNode, *domain.ComponentNode) {
	counter := &domain.ComponentNode{TypeName: "Counter", Position: "/Root@0/Counter#main", Handle: 2}
	label := &domain.ComponentNode{TypeName: "Label", Position: "/Root@0/Label@0", Handle: 3}
	root := &domain.ComponentNode{
		TypeName: "Root",
		Position: "/Root@0",
		Handle:   1,
		Children: []*domain.ComponentNode{counter, label},
	}
	return root, counter, label
}

func TestGenerateMermaid(t *testing.T) {
	root, counter, label := sampleTree()

	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "Shapes And Edges",
			contains: []string{
				"graph TD",
				`Root_0["Root@0 <br/> h1"]`,
				`Root_0_Counter_k_main("Counter#main <br/> h2")`,
				`Root_0_Label_0["Label@0 <br/> h3"]`,
				"Root_0 --> Root_0_Counter_k_main",
				"Root_0 --> Root_0_Label_0",
			},
			excludes: []string{"classDef"},
		},
		{
			name:    "Stateful Cylinder",
			overlay: &graph.Overlay{Stateful: map[domain.HandleID]bool{2: true}},
			contains: []string{
				`Root_0_Counter_k_main[("Counter#main <br/> h2")]`,
			},
			excludes: []string{"classDef"},
		},
		{
			name: "Diff Overlay",
			overlay: &graph.Overlay{Diff: &domain.TreeDiff{
				Mounted: []*domain.ComponentNode{label},
				Reused:  []*domain.ComponentNode{root, counter},
			}},
			contains: []string{
				"classDef mounted",
				"class Root_0_Label_0 mounted;",
				"class Root_0 reused;",
				"class Root_0_Counter_k_main reused;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(root, tt.overlay)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestGenerateMermaid_Empty(t *testing.T) {
	assert.Equal(t, "graph TD\n", graph.GenerateMermaid(nil, nil))
}

func TestGenerateMermaid_EdgeCount(t *testing.T) {
	root, _, _ := sampleTree()
	out := graph.GenerateMermaid(root, nil)
	assert.Equal(t, 2, strings.Count(out, "-->"))
}
