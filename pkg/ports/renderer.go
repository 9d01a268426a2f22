package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Renderer consumes committed generations. Publish is called on the engine's
// main context, once per successful build, in generation order. An aborted
// build is never published.
type Renderer interface {
	Publish(ctx context.Context, gen *domain.Generation, diff *domain.TreeDiff) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, gen *domain.Generation, diff *domain.TreeDiff) error

// Publish implements Renderer.
func (f RendererFunc) Publish(ctx context.Context, gen *domain.Generation, diff *domain.TreeDiff) error {
	return f(ctx, gen, diff)
}

// Animator plays animation groups for nodes. Playback itself is the host's
// business; the engine only decides what starts and stops.
type Animator interface {
	Play(ctx context.Context, node *domain.ComponentNode, group *domain.AnimationGroup) error
	Stop(ctx context.Context, node *domain.ComponentNode, group *domain.AnimationGroup) error
}
