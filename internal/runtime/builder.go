package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/scope"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/tree"
)

// Builder runs build passes against a registry and a store. It is not safe for
// concurrent use; the engine calls it from its main context only.
type Builder struct {
	registry *scope.Registry
	store    *state.Store
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// BuilderOption configures the Builder.
type BuilderOption func(*Builder)

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) BuilderOption {
	return func(b *Builder) {
		b.hooks = hooks
	}
}

// WithLogger sets the builder's logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a builder.
func NewBuilder(registry *scope.Registry, store *state.Store, opts ...BuilderOption) *Builder {
	b := &Builder{
		registry: registry,
		store:    store,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build walks root and produces the next generation after prior (nil for the
// first build).
//
// On success every handle of prior is released once, so handles whose
// positions were not produced again are disposed with their state, and the
// returned diff lists what changed. On failure nothing is published: the
// handles acquired by this pass are released and prior stays valid.
// A ReuseTypeMismatch is returned as is; construction errors and panics come
// back as ConstructionFailure. A DoubleLink panic is not recovered.
func (b *Builder) Build(ctx context.Context, root *tree.Declaration, prior *domain.Generation, trigger domain.BuildTrigger) (*domain.Generation, *domain.TreeDiff, error) {
	if root == nil {
		return nil, nil, domain.ErrNoRoot
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	number := uint64(1)
	if prior != nil {
		number = prior.Number + 1
	}

	p := &pass{
		builder: b,
		ctx:     ctx,
		gen:     domain.NewGeneration(number, trigger),
		prior:   prior,
	}

	event := &domain.BuildEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventWillBuild},
		Generation: number,
		Trigger:    trigger,
	}
	if b.hooks.OnWillBuild != nil {
		b.hooks.OnWillBuild(ctx, event)
	}

	start := time.Now()
	rootNode, err := p.run(root)
	if err != nil {
		p.abort()
		b.logger.Warn("build pass aborted",
			"generation", number,
			"trigger", trigger,
			"err", err,
		)
		if b.hooks.OnBuildAborted != nil {
			b.hooks.OnBuildAborted(ctx, &domain.BuildEvent{
				EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventBuildAborted},
				Generation: number,
				Trigger:    trigger,
				Duration:   time.Since(start),
				Err:        err,
			})
		}
		return nil, nil, err
	}

	p.gen.Root = rootNode
	p.gen.BuiltAt = time.Now()
	diff := p.commit()

	b.logger.Debug("build pass committed",
		"generation", number,
		"trigger", trigger,
		"nodes", len(p.gen.Nodes),
		"mounted", len(diff.Mounted),
		"reused", len(diff.Reused),
		"unmounted", len(diff.Unmounted),
		"disposed", len(diff.Disposed),
	)
	if b.hooks.OnDidBuild != nil {
		b.hooks.OnDidBuild(ctx, &domain.BuildEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventDidBuild},
			Generation: number,
			Trigger:    trigger,
			Nodes:      len(p.gen.Nodes),
			Duration:   time.Since(start),
			Diff:       diff,
		})
	}
	return p.gen, diff, nil
}

// reuseNotice is a reuse to report once the pass commits.
type reuseNotice struct {
	node *domain.ComponentNode
	prev *domain.ComponentNode
	fn   tree.ReuseFunc
}

// pass is the bookkeeping of one Build call.
type pass struct {
	builder *Builder
	ctx     context.Context
	gen     *domain.Generation
	prior   *domain.Generation

	acquired  []domain.HandleID
	bindings  []state.Binding
	stateless []domain.HandleID
	mounted   []*domain.ComponentNode
	reused    []reuseNotice
}

func (p *pass) run(root *tree.Declaration) (*domain.ComponentNode, error) {
	p.builder.store.BeginPass(p.gen.Number)
	defer p.builder.store.EndPass()

	pos := domain.RootPosition.Child(domain.Segment(root.Type, root.Key, 0))
	return p.visit(root, pos)
}

func (p *pass) visit(decl *tree.Declaration, pos domain.Position) (*domain.ComponentNode, error) {
	b := p.builder

	if decl.Type == "" {
		return nil, domain.ConstructionFailure(pos, "", fmt.Errorf("declaration has no type"))
	}
	if _, dup := p.gen.Nodes[pos]; dup {
		return nil, domain.ConstructionFailure(pos, decl.Type, fmt.Errorf("duplicate position among siblings"))
	}

	old, _ := p.prior.At(pos)
	reuse, err := ShouldReuse(old, decl)
	if err != nil {
		return nil, err
	}
	if reuse && decl.State != nil {
		// A stateless handle cannot start carrying state; give the component a fresh one.
		if h, ok := b.registry.Lookup(old.Handle); ok && h.Stateless {
			reuse = false
		}
	}

	handle, err := b.registry.Acquire(pos, decl.Type, p.gen.Number, reuse)
	if err != nil {
		return nil, err
	}
	p.acquired = append(p.acquired, handle.ID)
	p.gen.Handles[handle.ID] = struct{}{}
	reused := reuse && old != nil && handle.ID == old.Handle

	if decl.State != nil {
		p.bindings = append(p.bindings, b.store.Bind(decl.State, handle.ID, pos))
	} else if !handle.Stateless {
		// The registry learns about it at commit; a reused handle keeps its
		// entry if this pass is abandoned.
		p.stateless = append(p.stateless, handle.ID)
		handle.Stateless = true
	}

	node := &domain.ComponentNode{
		TypeName:   decl.Type,
		Position:   pos,
		Handle:     handle.ID,
		Identity:   decl.Identity,
		View:       decl.View,
		Size:       decl.Size,
		Bridge:     decl.Model.Bridge(),
		Generation: p.gen.Number,
	}
	if reused {
		node.Status = domain.NodeReused
		node.Born = old.Born
		node.RenderState = old.RenderState
	} else {
		node.Status = domain.NodeConstructed
		node.Born = p.gen.Number
	}
	p.gen.Nodes[pos] = node
	if reused {
		p.reused = append(p.reused, reuseNotice{node: node, prev: old, fn: decl.OnReuse})
	} else {
		p.mounted = append(p.mounted, node)
	}

	children := decl.Children
	if decl.Construct != nil {
		bctx := &buildContext{pass: p, handle: handle, node: node, prev: old, reused: reused}
		extra, err := p.construct(decl, bctx)
		if err != nil {
			return nil, domain.ConstructionFailure(pos, decl.Type, err)
		}
		if len(extra) > 0 {
			children = append(children[:len(children):len(children)], extra...)
		}
	}

	ordinals := make(map[string]int)
	for _, child := range children {
		if child == nil {
			continue
		}
		ordinal := 0
		if child.Key == "" {
			ordinal = ordinals[child.Type]
			ordinals[child.Type]++
		}
		cn, err := p.visit(child, pos.Child(domain.Segment(child.Type, child.Key, ordinal)))
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, cn)
	}

	return node, nil
}

// construct runs decl.Construct, turning panics into errors. Fatal engine
// errors keep propagating.
func (p *pass) construct(decl *tree.Declaration, bctx *buildContext) (children []*tree.Declaration, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*domain.Error); ok && e.Fatal() {
				panic(r)
			}
			err = fmt.Errorf("panic during construction: %v", r)
		}
	}()
	return decl.Construct(bctx)
}

// abort gives back every reference this pass took and undoes its bindings,
// newest first, so the prior generation's handles, entries and cells are left
// as they were.
func (p *pass) abort() {
	b := p.builder
	for i := len(p.acquired) - 1; i >= 0; i-- {
		b.registry.Release(p.acquired[i])
	}
	for i := len(p.bindings) - 1; i >= 0; i-- {
		b.store.Unbind(p.bindings[i])
	}
	p.acquired, p.bindings, p.stateless = nil, nil, nil
}

// commit releases the prior generation's references and reports the diff.
func (p *pass) commit() *domain.TreeDiff {
	b := p.builder
	diff := &domain.TreeDiff{
		Generation: p.gen.Number,
		Mounted:    p.mounted,
	}
	for _, r := range p.reused {
		diff.Reused = append(diff.Reused, r.node)
	}
	for _, id := range p.stateless {
		if err := b.registry.MarkStateless(id); err != nil {
			b.logger.Warn("failed to mark handle stateless", "handle", id.String(), "err", err)
		}
	}

	if p.prior != nil {
		for _, pos := range p.prior.Positions() {
			old := p.prior.Nodes[pos]
			if p.gen.Touches(old.Handle) {
				continue
			}
			gone := *old
			gone.Status = domain.NodeDiscarded
			diff.Unmounted = append(diff.Unmounted, &gone)
		}
		for id := range p.prior.Handles {
			if b.registry.Release(id) {
				diff.Disposed = append(diff.Disposed, id)
			}
		}
		sort.Slice(diff.Disposed, func(i, j int) bool { return diff.Disposed[i] < diff.Disposed[j] })
	}

	for _, n := range diff.Unmounted {
		if b.hooks.OnNodeDiscard != nil {
			b.hooks.OnNodeDiscard(p.ctx, nodeEvent(domain.EventNodeDiscard, p.gen.Number, n))
		}
	}
	for _, r := range p.reused {
		if r.fn != nil {
			r.fn(r.prev)
		}
		if b.hooks.OnNodeReuse != nil {
			b.hooks.OnNodeReuse(p.ctx, nodeEvent(domain.EventNodeReuse, p.gen.Number, r.node))
		}
	}
	// didInit runs only for nodes that made it into a published generation.
	for _, n := range p.mounted {
		if n.Bridge != nil {
			domain.Fire(n.Bridge.DidInit, n)
		}
	}
	return diff
}

func nodeEvent(t domain.EventType, generation uint64, n *domain.ComponentNode) *domain.NodeEvent {
	return &domain.NodeEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: t},
		Generation: generation,
		Position:   n.Position,
		TypeName:   n.TypeName,
		Handle:     n.Handle,
	}
}

// buildContext is the tree.BuildContext handed to construction logic.
type buildContext struct {
	pass   *pass
	handle domain.ScopeHandle
	node   *domain.ComponentNode
	prev   *domain.ComponentNode
	reused bool
}

func (c *buildContext) Generation() uint64              { return c.pass.gen.Number }
func (c *buildContext) Context() context.Context        { return c.pass.ctx }
func (c *buildContext) Handle() domain.ScopeHandle      { return c.handle }
func (c *buildContext) Position() domain.Position       { return c.node.Position }
func (c *buildContext) Reused() bool                    { return c.reused }
func (c *buildContext) Previous() *domain.ComponentNode { return c.prev }
func (c *buildContext) RenderState() any                { return c.node.RenderState }
func (c *buildContext) SetRenderState(v any)            { c.node.RenderState = v }
