// Package mount applies committed generations to the host: it fires the
// mount-related lifecycle callbacks carried by node bridges and tells an
// Animator which animation groups start and stop.
package mount

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Mounter implements ports.Renderer.
//
// For each diff it runs, in order: didUnmount for every removed node (after
// starting its final-unmount animation), willDispose for every removed node
// whose handle was disposed, then willMount for every constructed node
// (followed by its initial-mount animation). Steady-state animations start
// when a node mounts and keep playing while the node is reused.
type Mounter struct {
	mu       sync.Mutex
	animator ports.Animator
	next     ports.Renderer
	steady   map[domain.HandleID]*playing
	mounted  map[domain.HandleID]*domain.ComponentNode
	logger   *slog.Logger
}

type playing struct {
	node  *domain.ComponentNode
	group *domain.AnimationGroup
}

// Option configures the Mounter.
type Option func(*Mounter)

// WithAnimator sets the animation backend.
func WithAnimator(a ports.Animator) Option {
	return func(m *Mounter) {
		m.animator = a
	}
}

// WithNext chains a renderer that receives the generation after mounting.
func WithNext(r ports.Renderer) Option {
	return func(m *Mounter) {
		m.next = r
	}
}

// WithLogger configures a logger for the Mounter.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mounter) {
		m.logger = logger
	}
}

// New creates a Mounter.
func New(opts ...Option) *Mounter {
	m := &Mounter{
		steady:  make(map[domain.HandleID]*playing),
		mounted: make(map[domain.HandleID]*domain.ComponentNode),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Publish implements ports.Renderer.
func (m *Mounter) Publish(ctx context.Context, gen *domain.Generation, diff *domain.TreeDiff) error {
	if diff == nil {
		return nil
	}

	m.mu.Lock()
	var errs []error

	disposed := make(map[domain.HandleID]bool, len(diff.Disposed))
	for _, id := range diff.Disposed {
		disposed[id] = true
	}

	for _, n := range diff.Unmounted {
		errs = append(errs, m.stopSteady(ctx, n.Handle))
		if n.Bridge != nil && n.Bridge.FinalUnmount != nil {
			errs = append(errs, m.play(ctx, n, n.Bridge.FinalUnmount))
		}
		if n.Bridge != nil {
			domain.Fire(n.Bridge.DidUnmount, n)
		}
		delete(m.mounted, n.Handle)
	}
	for _, n := range diff.Unmounted {
		if n.Bridge != nil && disposed[n.Handle] {
			domain.Fire(n.Bridge.WillDispose, n)
		}
	}

	for _, n := range diff.Mounted {
		m.mounted[n.Handle] = n
		if n.Bridge == nil {
			continue
		}
		domain.Fire(n.Bridge.WillMount, n)
		if n.Bridge.InitialMount != nil {
			errs = append(errs, m.play(ctx, n, n.Bridge.InitialMount))
		}
		if n.Bridge.Steady != nil {
			errs = append(errs, m.startSteady(ctx, n))
		}
	}

	for _, n := range diff.Reused {
		m.mounted[n.Handle] = n
		errs = append(errs, m.continueSteady(ctx, n))
	}
	m.mu.Unlock()

	if m.next != nil {
		if err := m.next.Publish(ctx, gen, diff); err != nil {
			errs = append(errs, fmt.Errorf("downstream renderer: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Mounted returns the number of nodes currently mounted.
func (m *Mounter) Mounted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mounted)
}

// Playing reports whether a steady-state group is running for id.
func (m *Mounter) Playing(id domain.HandleID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.steady[id]
	return ok
}

func (m *Mounter) play(ctx context.Context, n *domain.ComponentNode, g *domain.AnimationGroup) error {
	if m.animator == nil {
		return nil
	}
	if err := m.animator.Play(ctx, n, g); err != nil {
		m.logger.Warn("animation failed to start", "position", n.Position, "err", err)
		return fmt.Errorf("play at %s: %w", n.Position, err)
	}
	return nil
}

func (m *Mounter) startSteady(ctx context.Context, n *domain.ComponentNode) error {
	m.steady[n.Handle] = &playing{node: n, group: n.Bridge.Steady}
	return m.play(ctx, n, n.Bridge.Steady)
}

// continueSteady keeps a reused node's steady group running. The group is
// started if the node just gained one and stopped if it lost it.
func (m *Mounter) continueSteady(ctx context.Context, n *domain.ComponentNode) error {
	current, running := m.steady[n.Handle]
	var want *domain.AnimationGroup
	if n.Bridge != nil {
		want = n.Bridge.Steady
	}

	switch {
	case running && want == nil:
		return m.stopSteady(ctx, n.Handle)
	case !running && want != nil:
		return m.startSteady(ctx, n)
	case running:
		current.node = n
		current.group = want
	}
	return nil
}

func (m *Mounter) stopSteady(ctx context.Context, id domain.HandleID) error {
	p, ok := m.steady[id]
	if !ok {
		return nil
	}
	delete(m.steady, id)
	if m.animator == nil {
		return nil
	}
	if err := m.animator.Stop(ctx, p.node, p.group); err != nil {
		return fmt.Errorf("stop at %s: %w", p.node.Position, err)
	}
	return nil
}
