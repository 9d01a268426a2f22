package dsl

import (
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/tree"
)

// NodeBuilder provides a fluent API for configuring a declaration.
type NodeBuilder struct {
	decl     tree.Declaration
	children []*NodeBuilder
}

// Node starts a declaration of the given component type.
func Node(typeName string) *NodeBuilder {
	return &NodeBuilder{decl: tree.Declaration{Type: typeName}}
}

// Key scopes the node among its siblings.
func (n *NodeBuilder) Key(key string) *NodeBuilder {
	n.decl.Key = key
	return n
}

// Identity sets the value compared to decide reuse.
func (n *NodeBuilder) Identity(id any) *NodeBuilder {
	n.decl.Identity = id
	return n
}

// View sets the host view class and its attributes.
func (n *NodeBuilder) View(class string, attrs map[string]any) *NodeBuilder {
	n.decl.View = &domain.ViewConfiguration{Class: class, Attributes: attrs}
	return n
}

// Size replaces the whole size constraint.
func (n *NodeBuilder) Size(c domain.SizeConstraint) *NodeBuilder {
	n.decl.Size = &c
	return n
}

// Width sets the exact width.
func (n *NodeBuilder) Width(d domain.Dimension) *NodeBuilder {
	n.size().Width = d
	return n
}

// Height sets the exact height.
func (n *NodeBuilder) Height(d domain.Dimension) *NodeBuilder {
	n.size().Height = d
	return n
}

// MinWidth and the other bound setters only apply where the exact dimension is auto.
func (n *NodeBuilder) MinWidth(d domain.Dimension) *NodeBuilder {
	n.size().MinWidth = d
	return n
}

func (n *NodeBuilder) MaxWidth(d domain.Dimension) *NodeBuilder {
	n.size().MaxWidth = d
	return n
}

func (n *NodeBuilder) MinHeight(d domain.Dimension) *NodeBuilder {
	n.size().MinHeight = d
	return n
}

func (n *NodeBuilder) MaxHeight(d domain.Dimension) *NodeBuilder {
	n.size().MaxHeight = d
	return n
}

func (n *NodeBuilder) size() *domain.SizeConstraint {
	if n.decl.Size == nil {
		n.decl.Size = &domain.SizeConstraint{}
	}
	return n.decl.Size
}

// State binds a state cell (state.Declare or state.NewVar) to the node.
func (n *NodeBuilder) State(cell state.Cell) *NodeBuilder {
	n.decl.State = cell
	return n
}

// Construct sets the construction logic. Its children follow the static ones.
func (n *NodeBuilder) Construct(fn tree.ConstructFunc) *NodeBuilder {
	n.decl.Construct = fn
	return n
}

// OnReuse is notified at commit when a previous node is carried over.
func (n *NodeBuilder) OnReuse(fn tree.ReuseFunc) *NodeBuilder {
	n.decl.OnReuse = fn
	return n
}

// DidInit adds a callback run once the node is first committed.
func (n *NodeBuilder) DidInit(fns ...domain.LifecycleFunc) *NodeBuilder {
	n.model().DidInit = append(n.model().DidInit, fns...)
	return n
}

// WillMount adds a callback run before the node appears.
func (n *NodeBuilder) WillMount(fns ...domain.LifecycleFunc) *NodeBuilder {
	n.model().WillMount = append(n.model().WillMount, fns...)
	return n
}

// DidUnmount adds a callback run after the node is removed.
func (n *NodeBuilder) DidUnmount(fns ...domain.LifecycleFunc) *NodeBuilder {
	n.model().DidUnmount = append(n.model().DidUnmount, fns...)
	return n
}

// WillDispose adds a callback run when the node's scope handle is disposed.
func (n *NodeBuilder) WillDispose(fns ...domain.LifecycleFunc) *NodeBuilder {
	n.model().WillDispose = append(n.model().WillDispose, fns...)
	return n
}

// Steady adds animations played continuously while mounted.
func (n *NodeBuilder) Steady(anims ...domain.Animation) *NodeBuilder {
	n.model().Animations = append(n.model().Animations, anims...)
	return n
}

// InitialMount adds animations played once on mount.
func (n *NodeBuilder) InitialMount(anims ...domain.Animation) *NodeBuilder {
	n.model().InitialMountAnims = append(n.model().InitialMountAnims, anims...)
	return n
}

// FinalUnmount adds animations played once on unmount.
func (n *NodeBuilder) FinalUnmount(anims ...domain.Animation) *NodeBuilder {
	n.model().FinalUnmountAnims = append(n.model().FinalUnmountAnims, anims...)
	return n
}

func (n *NodeBuilder) model() *domain.Model {
	if n.decl.Model == nil {
		n.decl.Model = &domain.Model{}
	}
	return n.decl.Model
}

// Child appends static children.
func (n *NodeBuilder) Child(children ...*NodeBuilder) *NodeBuilder {
	n.children = append(n.children, children...)
	return n
}

// Build returns the declaration tree. Every call returns new declarations
// sharing the configured cells and callbacks.
func (n *NodeBuilder) Build() *tree.Declaration {
	d := n.decl
	d.Children = nil
	for _, c := range n.children {
		if c != nil {
			d.Children = append(d.Children, c.Build())
		}
	}
	return &d
}
