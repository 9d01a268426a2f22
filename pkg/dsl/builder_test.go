package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeBuilder_Build(t *testing.T) {
	count := state.NewVar(1)
	var inits int

	decl := Node("Column").
		Width(domain.Percent(100)).
		MaxHeight(domain.Points(300)).
		Child(
			Node("Counter").
				Key("main").
				Identity("main").
				State(count).
				DidInit(func(*domain.ComponentNode) { inits++ }).
				Steady(domain.Animation{Name: "pulse"}).
				FinalUnmount(domain.Animation{Name: "fade-out"}),
			nil,
			Node("Label").View("label", map[string]any{"text": "hi"}),
		).
		Build()

	assert.Equal(t, "Column", decl.Type)
	require.NotNil(t, decl.Size)
	assert.Equal(t, domain.Percent(100), decl.Size.Width)
	assert.Equal(t, domain.Points(300), decl.Size.MaxHeight)
	assert.Nil(t, decl.Model)

	require.Len(t, decl.Children, 2, "nil children are skipped")
	counter := decl.Children[0]
	assert.Equal(t, "main", counter.Key)
	assert.Same(t, count, counter.State)
	require.NotNil(t, counter.Model)
	assert.Len(t, counter.Model.DidInit, 1)
	assert.Len(t, counter.Model.Animations, 1)
	assert.Len(t, counter.Model.FinalUnmountAnims, 1)

	assert.Equal(t, "label", decl.Children[1].View.Class)
}

func TestNodeBuilder_BuildReturnsFreshDeclarations(t *testing.T) {
	b := Node("Root").Child(Node("A"))
	first, second := b.Build(), b.Build()
	assert.NotSame(t, first, second)
	assert.NotSame(t, first.Children[0], second.Children[0])
}

func TestProvider_DrivesEngine(t *testing.T) {
	count := state.NewVar(0)
	var seen []int

	eng := arbor.New()
	eng.SetRoot(Provider(func() *NodeBuilder {
		return Node("Root").Child(
			Node("Counter").State(count).Construct(func(ctx tree.BuildContext) ([]*tree.Declaration, error) {
				v, err := count.Get(ctx)
				if err != nil {
					return nil, err
				}
				seen = append(seen, v)
				return nil, nil
			}),
		)
	}))

	ctx := context.Background()
	require.NoError(t, eng.Flush(ctx))
	count.Set(4)
	require.NoError(t, eng.Flush(ctx))

	assert.Equal(t, []int{0, 4}, seen)
}

func TestStatic(t *testing.T) {
	p := Static(Node("Root"))
	assert.Same(t, p.Describe(), p.Describe())
}
