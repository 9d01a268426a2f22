package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/loader"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterDoc = `
name: counter-demo
root:
  type: Column
  size: {width: 100%, height: auto, max_width: 640}
  children:
    - type: Counter
      key: main
      identity: main
      state: {initial: 0}
      lifecycle:
        will_mount: [mounted]
      animations:
        initial_mount:
          - {name: fade-in, duration: 200ms}
    - component: label
      props: {text: hello}
`

type labelProps struct {
	Text string `yaml:"text"`
}

func newRegistry(mounted *[]domain.Position) *registry.Registry {
	reg := registry.NewRegistry()
	reg.Register("label", registry.Typed(func(p labelProps) (*tree.Declaration, error) {
		return &tree.Declaration{
			Type: "Label",
			View: &domain.ViewConfiguration{Class: "label", Attributes: map[string]any{"text": p.Text}},
		}, nil
	}))
	reg.RegisterCallback("mounted", func(n *domain.ComponentNode) {
		*mounted = append(*mounted, n.Position)
	})
	return reg
}

func TestParse_Declaration(t *testing.T) {
	var mounted []domain.Position
	l := loader.New(newRegistry(&mounted))

	desc, err := l.Parse([]byte(counterDoc))
	require.NoError(t, err)
	assert.Equal(t, "counter-demo", desc.Name)

	root := desc.Describe()
	assert.Equal(t, "Column", root.Type)
	require.NotNil(t, root.Size)
	assert.Equal(t, domain.Percent(100), root.Size.Width)
	assert.True(t, root.Size.Height.IsAuto())
	assert.Equal(t, domain.Points(640), root.Size.MaxWidth)

	require.Len(t, root.Children, 2)
	counter := root.Children[0]
	assert.Equal(t, "main", counter.Key)
	assert.Equal(t, "main", counter.Identity)
	assert.NotNil(t, counter.State)
	require.NotNil(t, counter.Model)
	assert.Len(t, counter.Model.WillMount, 1)
	require.Len(t, counter.Model.InitialMountAnims, 1)
	assert.Equal(t, "fade-in", counter.Model.InitialMountAnims[0].Name)

	label := root.Children[1]
	assert.Equal(t, "Label", label.Type)
	assert.Equal(t, "hello", label.View.Attributes["text"])
	assert.Nil(t, label.State)
}

func TestParse_ValidationCollectsEveryProblem(t *testing.T) {
	l := loader.New(registry.NewRegistry())
	_, err := l.Parse([]byte(`
root:
  type: Column
  children:
    - component: missing
    - key: a
      type: X
      lifecycle: {did_init: [nope]}
    - key: a
      type: Y
    - props: {x: 1}
`))
	require.Error(t, err)
	assert.ErrorContains(t, err, "found 5 errors")
	assert.ErrorContains(t, err, "component not found: missing")
	assert.ErrorContains(t, err, "callback not found: nope")
	assert.ErrorContains(t, err, `duplicate key "a"`)
	assert.ErrorContains(t, err, "node needs a type or a component")
	assert.ErrorContains(t, err, "props given without a component")
}

func TestParse_Errors(t *testing.T) {
	l := loader.New(nil)

	_, err := l.Parse([]byte("name: empty\n"))
	assert.ErrorIs(t, err, loader.ErrEmptyDescription)

	_, err = l.Parse([]byte("root: {type: A, colour: red}\n"))
	assert.ErrorContains(t, err, "failed to parse description")

	_, err = l.Parse([]byte("root: {type: A, size: {width: wide}}\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: {type: Root}\n"), 0o644))

	desc, err := loader.New(nil).LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Root", desc.Describe().Type)

	_, err = loader.New(nil).LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDescription_DrivesEngine(t *testing.T) {
	var mounted []domain.Position
	l := loader.New(newRegistry(&mounted))
	desc, err := l.Parse([]byte(counterDoc))
	require.NoError(t, err)

	eng := arbor.New()
	eng.SetRoot(desc)
	ctx := context.Background()
	require.NoError(t, eng.Flush(ctx))

	counterPos := domain.Position("/Column@0/Counter#main")
	assert.Equal(t, []domain.Position{counterPos}, mounted)

	before, ok := eng.Current().At(counterPos)
	require.True(t, ok)

	require.NoError(t, eng.Write(counterPos, 5))
	require.NoError(t, eng.Flush(ctx))

	after, ok := eng.Current().At(counterPos)
	require.True(t, ok)
	assert.Equal(t, before.Handle, after.Handle, "a fresh Describe keeps the handle")
	assert.Len(t, mounted, 1, "reused nodes are not mounted again")

	var value any
	for _, e := range eng.States() {
		if e.Position == counterPos {
			value = e.Value
		}
	}
	assert.Equal(t, 5, value)
}

func TestDescription_UnresolvableComponentFailsTheBuild(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("broken", func(registry.Props) (*tree.Declaration, error) {
		return nil, assert.AnError
	})
	desc, err := loader.New(reg).Parse([]byte("root: {component: broken}\n"))
	require.NoError(t, err)

	eng := arbor.New()
	eng.SetRoot(desc)
	err = eng.Flush(context.Background())
	assert.ErrorIs(t, err, domain.ErrConstructionFailure)
	assert.ErrorIs(t, err, assert.AnError)
}
