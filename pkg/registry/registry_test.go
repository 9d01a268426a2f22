package registry_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type labelProps struct {
	Text  string `yaml:"text"`
	Lines int    `yaml:"lines"`
}

func label(p labelProps) (*tree.Declaration, error) {
	return &tree.Declaration{
		Type: "Label",
		View: &domain.ViewConfiguration{
			Class:      "label",
			Attributes: map[string]any{"text": p.Text, "lines": p.Lines},
		},
	}, nil
}

func TestRegistry_BuildTyped(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("label", registry.Typed(label))

	decl, err := reg.Build("label", registry.Props{"text": "hi", "lines": "2"})
	require.NoError(t, err)
	assert.Equal(t, "Label", decl.Type)
	assert.Equal(t, 2, decl.View.Attributes["lines"], "weak typing turns \"2\" into an int")
}

func TestRegistry_Errors(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("label", registry.Typed(label))
	reg.Register("nil", func(registry.Props) (*tree.Declaration, error) { return nil, nil })

	_, err := reg.Build("missing", nil)
	assert.ErrorContains(t, err, "component not found: missing")

	_, err = reg.Build("label", registry.Props{"colour": "red"})
	assert.ErrorContains(t, err, "invalid props")

	_, err = reg.Build("nil", nil)
	assert.ErrorContains(t, err, "returned no declaration")

	_, err = reg.Callback("nope")
	assert.ErrorContains(t, err, "callback not found: nope")
}

func TestRegistry_Listing(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("b", registry.Typed(label))
	reg.Register("a", registry.Typed(label))
	reg.RegisterCallback("log", func(*domain.ComponentNode) {})

	assert.Equal(t, []string{"a", "b"}, reg.Components())
	assert.True(t, reg.HasComponent("a"))
	assert.False(t, reg.HasComponent("c"))

	fn, err := reg.Callback("log")
	require.NoError(t, err)
	assert.NotNil(t, fn)
}
