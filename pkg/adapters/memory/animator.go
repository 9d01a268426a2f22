package memory

import (
	"context"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// AnimationCall is one Play or Stop received by an Animator.
type AnimationCall struct {
	Op        string
	Position  domain.Position
	Handle    domain.HandleID
	Names     []string
	Fill      domain.FillMode
	Repeating bool
}

// Animator implements ports.Animator by recording every call.
type Animator struct {
	mu    sync.Mutex
	calls []AnimationCall
}

// NewAnimator creates an empty recording animator.
func NewAnimator() *Animator {
	return &Animator{}
}

// Play implements ports.Animator.
func (a *Animator) Play(ctx context.Context, node *domain.ComponentNode, group *domain.AnimationGroup) error {
	a.record("play", node, group)
	return nil
}

// Stop implements ports.Animator.
func (a *Animator) Stop(ctx context.Context, node *domain.ComponentNode, group *domain.AnimationGroup) error {
	a.record("stop", node, group)
	return nil
}

func (a *Animator) record(op string, node *domain.ComponentNode, group *domain.AnimationGroup) {
	call := AnimationCall{
		Op:        op,
		Position:  node.Position,
		Handle:    node.Handle,
		Fill:      group.Fill,
		Repeating: group.Repeat,
	}
	for _, anim := range group.Animations {
		call.Names = append(call.Names, anim.Name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
}

// Calls returns a copy of the recorded calls.
func (a *Animator) Calls() []AnimationCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AnimationCall(nil), a.calls...)
}

// Reset forgets recorded calls.
func (a *Animator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = nil
}
