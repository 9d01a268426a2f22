package scope

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// Disposer deletes the state held for a handle. The state store implements it.
type Disposer interface {
	Delete(id domain.HandleID)
}

// entry holds the handle and its reference count.
type entry struct {
	handle domain.ScopeHandle
	refs   int
}

// Registry owns every live scope handle.
type Registry struct {
	mu         sync.RWMutex
	handles    map[domain.HandleID]*entry
	byPosition map[domain.Position]domain.HandleID
	nextID     domain.HandleID

	disposer  Disposer
	onDispose func(domain.ScopeHandle)
	logger    *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

// WithDisposer sets who deletes state when a handle is disposed.
func WithDisposer(d Disposer) Option {
	return func(r *Registry) {
		r.disposer = d
	}
}

// WithOnDispose registers a callback invoked after a handle is disposed.
func WithOnDispose(fn func(domain.ScopeHandle)) Option {
	return func(r *Registry) {
		r.onDispose = fn
	}
}

// WithLogger configures a logger for the Registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		handles:    make(map[domain.HandleID]*entry),
		byPosition: make(map[domain.Position]domain.HandleID),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the handle for pos.
//
// With reuse set and a live handle at pos, that handle gains a reference and is
// returned unchanged; a live handle of a different type is a ReuseTypeMismatch.
// Otherwise a fresh handle with one reference is allocated and indexed at pos,
// replacing any previous occupant in the position index.
func (r *Registry) Acquire(pos domain.Position, typeName string, generation uint64, reuse bool) (domain.ScopeHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reuse {
		if id, ok := r.byPosition[pos]; ok {
			e := r.handles[id]
			if e.handle.TypeName != typeName {
				return domain.ScopeHandle{}, domain.ReuseTypeMismatch(pos, e.handle.TypeName, typeName)
			}
			e.refs++
			return e.handle, nil
		}
	}

	r.nextID++
	h := domain.ScopeHandle{
		ID:         r.nextID,
		Position:   pos,
		TypeName:   typeName,
		Generation: generation,
	}
	r.handles[h.ID] = &entry{handle: h, refs: 1}
	r.byPosition[pos] = h.ID
	return h, nil
}

// Retain adds a reference to a live handle. It reports false for unknown IDs.
func (r *Registry) Retain(id domain.HandleID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.handles[id]
	if !ok {
		return false
	}
	e.refs++
	return true
}

// Release drops one reference. When the count reaches zero the handle is
// disposed: its state is deleted and true is returned. Unknown IDs are ignored.
func (r *Registry) Release(id domain.HandleID) bool {
	r.mu.Lock()
	e, ok := r.handles[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return false
	}

	delete(r.handles, id)
	if r.byPosition[e.handle.Position] == id {
		r.reindex(e.handle.Position)
	}
	r.mu.Unlock()

	if r.disposer != nil {
		r.disposer.Delete(id)
	}
	if r.onDispose != nil {
		r.onDispose(e.handle)
	}
	r.logger.Debug("scope handle disposed",
		"handle", id.String(),
		"position", e.handle.Position,
		"type", e.handle.TypeName,
	)
	return true
}

// reindex points pos at the newest remaining live handle for it. This restores
// a prior generation's handle when an aborted pass releases its replacement.
// Caller holds r.mu.
func (r *Registry) reindex(pos domain.Position) {
	delete(r.byPosition, pos)
	var best domain.HandleID
	for id, e := range r.handles {
		if e.handle.Position == pos && id > best {
			best = id
		}
	}
	if best != 0 {
		r.byPosition[pos] = best
	}
}

// MarkStateless flags a handle as carrying no state and deletes any entry it
// has. Calling it again is a no-op.
func (r *Registry) MarkStateless(id domain.HandleID) error {
	r.mu.Lock()
	e, ok := r.handles[id]
	if !ok {
		r.mu.Unlock()
		return domain.InvalidAccess(id, "handle is not live")
	}
	already := e.handle.Stateless
	e.handle.Stateless = true
	r.mu.Unlock()

	if !already && r.disposer != nil {
		r.disposer.Delete(id)
	}
	return nil
}

// Lookup returns the live handle for id.
func (r *Registry) Lookup(id domain.HandleID) (domain.ScopeHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.handles[id]
	if !ok {
		return domain.ScopeHandle{}, false
	}
	return e.handle, true
}

// At returns the live handle indexed at pos.
func (r *Registry) At(pos domain.Position) (domain.ScopeHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPosition[pos]
	if !ok {
		return domain.ScopeHandle{}, false
	}
	return r.handles[id].handle, true
}

// Refs returns the reference count of id, zero when it is not live.
func (r *Registry) Refs(id domain.HandleID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.handles[id]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Handles returns every live handle ordered by ID.
func (r *Registry) Handles() []domain.ScopeHandle {
	r.mu.RLock()
	out := make([]domain.ScopeHandle, 0, len(r.handles))
	for _, e := range r.handles {
		out = append(out, e.handle)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
