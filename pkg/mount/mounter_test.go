package mount_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/mount"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id domain.HandleID, pos domain.Position, log *[]string) *domain.ComponentNode {
	tag := func(what string) domain.LifecycleFunc {
		return func(n *domain.ComponentNode) { *log = append(*log, what+" "+string(n.Position)) }
	}
	model := &domain.Model{
		WillMount:         []domain.LifecycleFunc{tag("willMount")},
		DidUnmount:        []domain.LifecycleFunc{tag("didUnmount")},
		WillDispose:       []domain.LifecycleFunc{tag("willDispose")},
		Animations:        []domain.Animation{{Name: "pulse"}},
		InitialMountAnims: []domain.Animation{{Name: "fade-in"}},
		FinalUnmountAnims: []domain.Animation{{Name: "fade-out"}},
	}
	return &domain.ComponentNode{TypeName: "A", Position: pos, Handle: id, Bridge: model.Bridge()}
}

func TestMounter_MountThenReuse(t *testing.T) {
	var log []string
	anim := memory.NewAnimator()
	m := mount.New(mount.WithAnimator(anim))
	ctx := context.Background()

	a := node(1, "/A#k1", &log)
	require.NoError(t, m.Publish(ctx, nil, &domain.TreeDiff{Generation: 1, Mounted: []*domain.ComponentNode{a}}))

	assert.Equal(t, []string{"willMount /A#k1"}, log)
	calls := anim.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"fade-in"}, calls[0].Names)
	assert.False(t, calls[0].Repeating)
	assert.Equal(t, []string{"pulse"}, calls[1].Names)
	assert.True(t, calls[1].Repeating)
	assert.True(t, m.Playing(1))

	anim.Reset()
	again := node(1, "/A#k1", &log)
	require.NoError(t, m.Publish(ctx, nil, &domain.TreeDiff{Generation: 2, Reused: []*domain.ComponentNode{again}}))

	assert.Equal(t, []string{"willMount /A#k1"}, log, "no lifecycle on reuse")
	assert.Empty(t, anim.Calls(), "steady animation keeps running untouched")
	assert.True(t, m.Playing(1))
	assert.Equal(t, 1, m.Mounted())
}

func TestMounter_DiscardAndReplace(t *testing.T) {
	var log []string
	anim := memory.NewAnimator()
	m := mount.New(mount.WithAnimator(anim))
	ctx := context.Background()

	old := node(1, "/A#k1", &log)
	require.NoError(t, m.Publish(ctx, nil, &domain.TreeDiff{Mounted: []*domain.ComponentNode{old}}))
	log = nil
	anim.Reset()

	fresh := node(2, "/A#k1", &log)
	err := m.Publish(ctx, nil, &domain.TreeDiff{
		Generation: 2,
		Mounted:    []*domain.ComponentNode{fresh},
		Unmounted:  []*domain.ComponentNode{old},
		Disposed:   []domain.HandleID{1},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"didUnmount /A#k1",
		"willDispose /A#k1",
		"willMount /A#k1",
	}, log)

	calls := anim.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "stop", calls[0].Op)
	assert.Equal(t, domain.HandleID(1), calls[0].Handle)
	assert.Equal(t, "play", calls[1].Op)
	assert.Equal(t, []string{"fade-out"}, calls[1].Names)
	assert.Equal(t, domain.FillForwards, calls[1].Fill)
	assert.Equal(t, domain.HandleID(2), calls[2].Handle)

	assert.False(t, m.Playing(1))
	assert.True(t, m.Playing(2))
	assert.Equal(t, 1, m.Mounted())
}

func TestMounter_UnmountWithoutDispose(t *testing.T) {
	var log []string
	m := mount.New()
	n := node(1, "/A@0", &log)

	require.NoError(t, m.Publish(context.Background(), nil, &domain.TreeDiff{Unmounted: []*domain.ComponentNode{n}}))
	assert.Equal(t, []string{"didUnmount /A@0"}, log)
}

type failingAnimator struct{}

func (failingAnimator) Play(context.Context, *domain.ComponentNode, *domain.AnimationGroup) error {
	return errors.New("no display")
}

func (failingAnimator) Stop(context.Context, *domain.ComponentNode, *domain.AnimationGroup) error {
	return nil
}

func TestMounter_ErrorsAreJoinedAndChained(t *testing.T) {
	var log []string
	next := memory.NewRenderer()
	m := mount.New(mount.WithAnimator(failingAnimator{}), mount.WithNext(next))

	gen := domain.NewGeneration(1, domain.TriggerInitial)
	err := m.Publish(context.Background(), gen, &domain.TreeDiff{Mounted: []*domain.ComponentNode{node(1, "/A@0", &log)}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
	assert.Equal(t, []string{"willMount /A@0"}, log, "callbacks still fire")
	assert.Equal(t, 1, next.Published(), "downstream renderer still receives the generation")
}

var _ ports.Renderer = (*mount.Mounter)(nil)
