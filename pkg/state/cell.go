package state

import (
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Cell is a declared piece of component state that the runtime can bind to a
// scope handle. It is implemented by Provisional and Var.
type Cell interface {
	linkValue() (value any, written bool)
	decode(raw any) (any, error)
	attach(s *Store, id domain.HandleID)
	detach(id domain.HandleID)
	// checkpoint captures the cell's phase; calling the result puts it back.
	checkpoint() func()
}

// Provisional is state that has been declared but not yet linked to a handle.
// Writes are buffered; the last one becomes the initial value at link time.
type Provisional[T any] struct {
	mu      sync.Mutex
	value   T
	written bool
	live    *Live[T]
}

// Declare starts the two-phase life of a state value with its default.
func Declare[T any](initial T) *Provisional[T] {
	return &Provisional[T]{value: initial}
}

// Set buffers v before linking and forwards it to the store afterwards.
func (p *Provisional[T]) Set(v T) {
	p.mu.Lock()
	if live := p.live; live != nil {
		p.mu.Unlock()
		live.Set(v)
		return
	}
	p.value = v
	p.written = true
	p.mu.Unlock()
}

// Value returns the buffered value.
func (p *Provisional[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Live returns the linked accessor, or nil while unlinked.
func (p *Provisional[T]) Live() *Live[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

func (p *Provisional[T]) linkValue() (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.written
}

func (p *Provisional[T]) decode(raw any) (any, error) {
	return decodeAs[T](raw)
}

func (p *Provisional[T]) attach(s *Store, id domain.HandleID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live = &Live[T]{store: s, handle: id}
	p.written = false
}

func (p *Provisional[T]) detach(id domain.HandleID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live != nil && p.live.handle == id {
		p.live = nil
	}
}

func (p *Provisional[T]) checkpoint() func() {
	p.mu.Lock()
	value, written, live := p.value, p.written, p.live
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.value, p.written, p.live = value, written, live
	}
}

// Link consumes p into a fresh entry for id. Linking a handle that already
// has an entry panics with a DoubleLink error.
func Link[T any](s *Store, p *Provisional[T], id domain.HandleID, pos domain.Position) *Live[T] {
	value, _ := p.linkValue()
	s.Link(id, pos, value)

	s.mu.Lock()
	s.entries[id].cell = p
	s.mu.Unlock()

	p.attach(s, id)
	return p.Live()
}

// Live is state bound to a scope handle.
type Live[T any] struct {
	store  *Store
	handle domain.HandleID
}

// Handle returns the scope handle the state is bound to.
func (l *Live[T]) Handle() domain.HandleID {
	return l.handle
}

// Store returns the store holding the value.
func (l *Live[T]) Store() *Store {
	return l.store
}

// Get reads the current value during the pass named by tok.
func (l *Live[T]) Get(tok Token) (T, error) {
	var zero T
	raw, err := l.store.Read(l.handle, tok)
	if err != nil {
		return zero, err
	}
	v, err := decodeAs[T](raw)
	if err != nil {
		return zero, domain.InvalidAccess(l.handle, "stored value has type %T: %v", raw, err)
	}
	return v, nil
}

// Set enqueues v. Safe from any goroutine.
func (l *Live[T]) Set(v T) {
	l.store.Write(l.handle, v)
}

// Var is the host-facing accessor for a state value. It accepts writes in
// either phase and reads once linked.
type Var[T any] struct {
	*Provisional[T]
}

// NewVar declares a state value with its default.
func NewVar[T any](initial T) *Var[T] {
	return &Var[T]{Provisional: Declare(initial)}
}

// Get reads the value during the pass named by tok. It fails with
// InvalidAccess while the value is not linked.
func (v *Var[T]) Get(tok Token) (T, error) {
	if live := v.Live(); live != nil {
		return live.Get(tok)
	}
	var zero T
	return zero, domain.InvalidAccess(0, "state is not linked")
}

// Handle returns the bound handle, if any.
func (v *Var[T]) Handle() (domain.HandleID, bool) {
	if live := v.Live(); live != nil {
		return live.handle, true
	}
	return 0, false
}

// decodeAs converts raw into T. Values restored from JSON snapshots or sent by
// outer surfaces arrive as generic maps and float64 numbers.
func decodeAs[T any](raw any) (T, error) {
	if v, ok := raw.(T); ok {
		return v, nil
	}
	var out T
	if raw == nil {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           &out,
	})
	if err != nil {
		return out, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return out, fmt.Errorf("failed to decode %T: %w", raw, err)
	}
	return out, nil
}
