// Package tree defines the declarative description a build pass consumes.
//
// A Declaration names a component type and carries everything the engine
// needs to place it: an optional scope key, the identity used for reuse, its
// view and size configuration, its lifecycle model, its state cell, and either
// static children or a Construct function that produces them.
package tree

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/state"
)

// ConstructFunc runs the component's construction logic. State bound to the
// component is readable through ctx. The returned declarations are appended
// after the static Children.
type ConstructFunc func(ctx BuildContext) ([]*Declaration, error)

// ReuseFunc is notified when a previous node is carried into the new tree.
type ReuseFunc func(prev *domain.ComponentNode)

// Declaration is one component in a description.
type Declaration struct {
	Type string
	// Key scopes the component among its siblings. Without a key, position is
	// the ordinal among unkeyed siblings of the same type.
	Key string
	// Identity decides reuse. Two declarations with equal identities at the
	// same position are the same logical instance.
	Identity any

	View  *domain.ViewConfiguration
	Size  *domain.SizeConstraint
	Model *domain.Model

	// State is nil for components that declare no state.
	State state.Cell

	Construct ConstructFunc
	OnReuse   ReuseFunc

	Children []*Declaration
}

// Provider produces the root declaration for every pass.
type Provider interface {
	Describe() *Declaration
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() *Declaration

// Describe implements Provider.
func (f ProviderFunc) Describe() *Declaration {
	return f()
}

// Static always returns the same declaration.
func Static(d *Declaration) Provider {
	return ProviderFunc(func() *Declaration { return d })
}

// BuildContext is what construction logic sees of the pass.
type BuildContext interface {
	state.Token

	// Context is the context of the build pass. On a running engine loop it
	// lets construction logic call Engine.Dispatch without blocking.
	Context() context.Context
	// Handle is the scope handle assigned to the component being built.
	Handle() domain.ScopeHandle
	// Position is the component's structural path.
	Position() domain.Position
	// Reused reports whether the component continues a previous node.
	Reused() bool
	// Previous returns the node this one replaces or continues, if any.
	Previous() *domain.ComponentNode
	// RenderState returns the cache carried from the previous node on reuse.
	RenderState() any
	// SetRenderState replaces the cache stored on the node being built.
	SetRenderState(v any)
}
