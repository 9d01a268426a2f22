package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/tree"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDescription is returned for a document without a root node.
var ErrEmptyDescription = errors.New("description has no root")

// Loader turns YAML into descriptions, resolving names against a registry.
type Loader struct {
	registry *registry.Registry
}

// New creates a loader. A nil registry accepts only self-contained nodes.
func New(reg *registry.Registry) *Loader {
	if reg == nil {
		reg = registry.NewRegistry()
	}
	return &Loader{registry: reg}
}

// LoadFile reads and parses the description at path.
func (l *Loader) LoadFile(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read description: %w", err)
	}
	return l.Parse(data)
}

// Parse decodes a description and validates it against the registry.
// Unknown fields are rejected.
func (l *Loader) Parse(data []byte) (*Description, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse description: %w", err)
	}
	if doc.Root == nil {
		return nil, ErrEmptyDescription
	}
	if err := l.Validate(doc.Root); err != nil {
		return nil, err
	}
	return &Description{Name: doc.Name, Root: doc.Root, loader: l}, nil
}

// Validate walks spec and reports every problem found, not just the first.
func (l *Loader) Validate(spec *NodeSpec) error {
	var problems []string
	l.validate(spec, "root", &problems)
	if len(problems) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
	}
	return nil
}

func (l *Loader) validate(spec *NodeSpec, path string, problems *[]string) {
	if spec == nil {
		*problems = append(*problems, fmt.Sprintf("%s: empty node", path))
		return
	}
	if spec.Component != "" {
		if !l.registry.HasComponent(spec.Component) {
			*problems = append(*problems, fmt.Sprintf("%s: component not found: %s", path, spec.Component))
		}
	} else {
		if spec.Type == "" {
			*problems = append(*problems, fmt.Sprintf("%s: node needs a type or a component", path))
		}
		if len(spec.Props) > 0 {
			*problems = append(*problems, fmt.Sprintf("%s: props given without a component", path))
		}
	}
	if spec.Lifecycle != nil {
		for _, name := range spec.Lifecycle.names() {
			if _, err := l.registry.Callback(name); err != nil {
				*problems = append(*problems, fmt.Sprintf("%s: %v", path, err))
			}
		}
	}

	keys := make(map[string]bool)
	for i, child := range spec.Children {
		childPath := fmt.Sprintf("%s.children[%d]", path, i)
		if child != nil && child.Key != "" {
			// Type is unknown until a component resolves, so keys are compared by key only.
			if keys[child.Key] {
				*problems = append(*problems, fmt.Sprintf("%s: duplicate key %q", childPath, child.Key))
			}
			keys[child.Key] = true
		}
		l.validate(child, childPath, problems)
	}
}

func (s *LifecycleSpec) names() []string {
	var out []string
	for _, group := range [][]string{s.DidInit, s.WillMount, s.DidUnmount, s.WillDispose} {
		out = append(out, group...)
	}
	return out
}

// Declaration converts spec into a fresh declaration tree. Each call declares
// new state cells, as a hand-written Describe would.
func (l *Loader) Declaration(spec *NodeSpec) (*tree.Declaration, error) {
	var decl *tree.Declaration
	if spec.Component != "" {
		built, err := l.registry.Build(spec.Component, spec.Props)
		if err != nil {
			return nil, err
		}
		// Components may hand out a shared declaration; never mutate it.
		c := *built
		c.Children = append([]*tree.Declaration(nil), built.Children...)
		decl = &c
	} else {
		decl = &tree.Declaration{}
	}

	if spec.Type != "" {
		decl.Type = spec.Type
	}
	if spec.Key != "" {
		decl.Key = spec.Key
	}
	if spec.Identity != nil {
		decl.Identity = spec.Identity
	}
	if spec.View != nil {
		decl.View = spec.View
	}
	if spec.Size != nil {
		decl.Size = spec.Size
	}
	if spec.State != nil {
		decl.State = state.Declare[any](spec.State.Initial)
	}

	model, err := l.model(spec)
	if err != nil {
		return nil, err
	}
	if model != nil {
		decl.Model = model
	}

	for _, child := range spec.Children {
		cd, err := l.Declaration(child)
		if err != nil {
			return nil, err
		}
		decl.Children = append(decl.Children, cd)
	}
	return decl, nil
}

func (l *Loader) model(spec *NodeSpec) (*domain.Model, error) {
	if spec.Lifecycle == nil && spec.Animations == nil {
		return nil, nil
	}
	m := &domain.Model{}
	if lc := spec.Lifecycle; lc != nil {
		groups := []struct {
			names []string
			dst   *[]domain.LifecycleFunc
		}{
			{lc.DidInit, &m.DidInit},
			{lc.WillMount, &m.WillMount},
			{lc.DidUnmount, &m.DidUnmount},
			{lc.WillDispose, &m.WillDispose},
		}
		for _, g := range groups {
			for _, name := range g.names {
				fn, err := l.registry.Callback(name)
				if err != nil {
					return nil, err
				}
				*g.dst = append(*g.dst, fn)
			}
		}
	}
	if a := spec.Animations; a != nil {
		m.Animations = a.Steady
		m.InitialMountAnims = a.InitialMount
		m.FinalUnmountAnims = a.FinalUnmount
	}
	return m, nil
}

// Description is a parsed description file. It implements tree.Provider.
type Description struct {
	Name string
	Root *NodeSpec

	loader *Loader
}

// Describe implements tree.Provider. A component that fails to resolve turns
// into a root whose construction fails, so the build pass reports it as a
// ConstructionFailure and the previous tree stays in place.
func (d *Description) Describe() *tree.Declaration {
	decl, err := d.loader.Declaration(d.Root)
	if err != nil {
		typeName := d.Root.Type
		if typeName == "" {
			typeName = d.Root.Component
		}
		return &tree.Declaration{
			Type: typeName,
			Construct: func(tree.BuildContext) ([]*tree.Declaration, error) {
				return nil, err
			},
		}
	}
	return decl
}
