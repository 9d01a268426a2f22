package arbor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/mount"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/scope"
	"github.com/aretw0/arbor/pkg/snapshot"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/google/uuid"
)

// ErrAlreadyRunning is returned by Run when another loop owns the engine.
var ErrAlreadyRunning = errors.New("engine already running")

// Engine is the high-level entry point of the arbor library. It owns one
// component tree: the scope registry, the state store, the builder, and the
// renderer that receives every committed generation.
//
// The goroutine running Run is the main context. Without a running loop, the
// caller of Flush plays that role.
type Engine struct {
	registry  *scope.Registry
	store     *state.Store
	builder   *runtime.Builder
	renderer  ports.Renderer
	mounter   *mount.Mounter
	snapshots *snapshot.Manager

	downstream  ports.Renderer
	animator    ports.Animator
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	rootID      string
	onScheduled func()

	mu         sync.RWMutex
	provider   tree.Provider
	current    *domain.Generation
	propsDirty bool
	halted     error

	passMu  sync.Mutex
	rebuild chan struct{}
	tasks   chan func(context.Context)
	running atomic.Bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRenderer chains a renderer after the built-in mounter.
func WithRenderer(r ports.Renderer) Option {
	return func(e *Engine) {
		e.downstream = r
	}
}

// WithAnimator sets the animation backend driven by the mounter.
func WithAnimator(a ports.Animator) Option {
	return func(e *Engine) {
		e.animator = a
	}
}

// WithSnapshots persists state through mgr after every committed build.
func WithSnapshots(mgr *snapshot.Manager) Option {
	return func(e *Engine) {
		e.snapshots = mgr
	}
}

// WithRootID names the tree for snapshots (default: a random UUID).
func WithRootID(id string) Option {
	return func(e *Engine) {
		e.rootID = id
	}
}

// WithOnRebuildScheduled registers a callback run whenever a rebuild is
// requested. Hosts without a Run loop use it to schedule Flush themselves.
func WithOnRebuildScheduled(fn func()) Option {
	return func(e *Engine) {
		e.onScheduled = fn
	}
}

// New initializes an engine. Call SetRoot before the first build.
func New(opts ...Option) *Engine {
	e := &Engine{
		rebuild: make(chan struct{}, 1),
		tasks:   make(chan func(context.Context)),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if e.rootID == "" {
		e.rootID = uuid.NewString()
	}
	e.logger = e.logger.With(logging.KeyRootID, e.rootID)

	e.store = state.NewStore(
		state.WithScheduler(e.requestRebuild),
		state.WithLogger(e.logger),
	)
	e.registry = scope.New(
		scope.WithDisposer(e.store),
		scope.WithLogger(e.logger),
	)
	e.builder = runtime.NewBuilder(e.registry, e.store,
		runtime.WithHooks(e.hooks),
		runtime.WithLogger(e.logger),
	)

	mountOpts := []mount.Option{mount.WithLogger(e.logger)}
	if e.animator != nil {
		mountOpts = append(mountOpts, mount.WithAnimator(e.animator))
	}
	if e.downstream != nil {
		mountOpts = append(mountOpts, mount.WithNext(e.downstream))
	}
	e.mounter = mount.New(mountOpts...)
	e.renderer = e.mounter

	return e
}

// RootID returns the name used for snapshots.
func (e *Engine) RootID() string {
	return e.rootID
}

// SetRoot replaces the description provider and requests a rebuild.
func (e *Engine) SetRoot(p tree.Provider) {
	e.mu.Lock()
	e.provider = p
	e.propsDirty = true
	e.mu.Unlock()
	e.requestRebuild()
}

// Invalidate requests a rebuild even though no state changed, for hosts whose
// description depends on data outside the store.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.propsDirty = true
	e.mu.Unlock()
	e.requestRebuild()
}

// Current returns the last published generation, or nil before the first build.
func (e *Engine) Current() *domain.Generation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Halted returns the fatal error that stopped the engine, if any.
func (e *Engine) Halted() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.halted
}

// Handles returns every live scope handle.
func (e *Engine) Handles() []domain.ScopeHandle {
	return e.registry.Handles()
}

// States returns a copy of every state entry.
func (e *Engine) States() []state.Entry {
	return e.store.Entries()
}

// Mounted returns the number of nodes the mounter considers on screen.
func (e *Engine) Mounted() int {
	return e.mounter.Mounted()
}

// Write enqueues value for the state at pos. Safe from any goroutine.
func (e *Engine) Write(pos domain.Position, value any) error {
	h, ok := e.registry.At(pos)
	if !ok {
		return domain.InvalidAccess(0, "no component at %s", pos)
	}
	if h.Stateless {
		return domain.InvalidAccess(h.ID, "component at %s declares no state", pos)
	}
	e.store.Write(h.ID, value)
	return nil
}

// WriteHandle enqueues value for the state of handle id. Safe from any goroutine.
func (e *Engine) WriteHandle(id domain.HandleID, value any) {
	e.store.Write(id, value)
}

func (e *Engine) requestRebuild() {
	select {
	case e.rebuild <- struct{}{}:
	default:
	}
	if e.onScheduled != nil {
		e.onScheduled()
	}
}

// Flush drains pending writes and, when anything changed, runs one build pass
// and publishes it. It returns nil without building when nothing changed.
//
// A ConstructionFailure is returned and leaves the current generation in
// place. A fatal error halts the engine: this and every later call returns an
// error wrapping domain.ErrEngineHalted.
func (e *Engine) Flush(ctx context.Context) error {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	if err := e.Halted(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEngineHalted, err)
	}

	select {
	case <-e.rebuild:
	default:
	}

	updates := e.store.Drain()
	applied := 0
	for _, u := range updates {
		if !u.Applied() {
			continue
		}
		applied++
		if e.hooks.OnStateUpdate != nil {
			e.hooks.OnStateUpdate(ctx, &domain.StateEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStateUpdate},
				Handle:    u.Handle,
				Position:  u.Position,
				Value:     u.Value,
			})
		}
	}

	e.mu.Lock()
	provider, prior, propsDirty := e.provider, e.current, e.propsDirty
	e.propsDirty = false
	e.mu.Unlock()

	if provider == nil {
		return domain.ErrNoRoot
	}

	var trigger domain.BuildTrigger
	switch {
	case prior == nil:
		trigger = domain.TriggerInitial
	case propsDirty:
		trigger = domain.TriggerPropsUpdate
	case applied > 0:
		trigger = domain.TriggerStateUpdate
	default:
		return nil
	}

	return e.build(ctx, provider, prior, trigger)
}

func (e *Engine) build(ctx context.Context, provider tree.Provider, prior *domain.Generation, trigger domain.BuildTrigger) error {
	gen, diff, err := e.safeBuild(ctx, provider.Describe(), prior, trigger)
	if err != nil {
		if domain.IsFatal(err) {
			e.halt(err)
			return fmt.Errorf("%w: %w", domain.ErrEngineHalted, err)
		}
		return err
	}

	e.mu.Lock()
	e.current = gen
	e.mu.Unlock()

	if err := e.renderer.Publish(ctx, gen, diff); err != nil {
		e.logger.Warn("renderer reported errors", "generation", gen.Number, "err", err)
	}
	if e.snapshots != nil {
		if err := e.snapshots.Save(ctx, e.rootID, e.capture(gen.Number)); err != nil {
			e.logger.Error("failed to persist snapshot", "generation", gen.Number, "err", err)
		}
	}
	return nil
}

// safeBuild turns a fatal engine panic raised during the pass into an error.
func (e *Engine) safeBuild(ctx context.Context, root *tree.Declaration, prior *domain.Generation, trigger domain.BuildTrigger) (gen *domain.Generation, diff *domain.TreeDiff, err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(*domain.Error)
			if !ok || !de.Fatal() {
				panic(r)
			}
			err = de
		}
	}()
	return e.builder.Build(ctx, root, prior, trigger)
}

func (e *Engine) halt(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.halted == nil {
		e.halted = err
		e.logger.Error("engine halted", "err", err)
	}
}

// Run is the main loop. It builds once, then rebuilds whenever writes or a
// root change request it and executes dispatched tasks, until ctx is done or
// the engine halts. Construction failures are logged and the loop continues.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)
	ctx = context.WithValue(ctx, loopKey{}, e)

	if err := e.step(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.rebuild:
			if err := e.step(ctx); err != nil {
				return err
			}
		case task := <-e.tasks:
			task(ctx)
		}
	}
}

// step runs Flush and keeps only the errors that must end the loop.
func (e *Engine) step(ctx context.Context) error {
	err := e.Flush(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrEngineHalted):
		return err
	case errors.Is(err, domain.ErrNoRoot):
		return nil
	default:
		e.logger.Warn("build failed, keeping previous tree", "err", err)
		return nil
	}
}

// loopKey marks the contexts the running loop hands to tasks and build passes.
type loopKey struct{}

// onLoop reports whether ctx was handed out by e's running loop.
func (e *Engine) onLoop(ctx context.Context) bool {
	owner, _ := ctx.Value(loopKey{}).(*Engine)
	return owner == e
}

// Dispatch runs fn on the main context. With a running loop it blocks until
// the loop picks fn up; otherwise fn runs on the caller's goroutine.
//
// Code already on the loop runs fn inline when it passes the context it was
// given: the ctx of a dispatched task, or BuildContext.Context() during
// construction. Called from the loop with any other context, Dispatch blocks
// until that context is done. A fn run inline during a pass must not call Flush.
func (e *Engine) Dispatch(ctx context.Context, fn func(context.Context)) error {
	if !e.running.Load() || e.onLoop(ctx) {
		fn(ctx)
		return nil
	}

	done := make(chan struct{})
	task := func(ctx context.Context) {
		defer close(done)
		fn(ctx)
	}
	select {
	case e.tasks <- task:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
