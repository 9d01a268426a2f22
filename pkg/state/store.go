package state

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// Token proves that a read happens during a particular build pass.
type Token interface {
	Generation() uint64
}

// Entry is a read-only copy of a linked value.
type Entry struct {
	Handle   domain.HandleID `json:"handle"`
	Position domain.Position `json:"position"`
	Value    any             `json:"value"`
	Dirty    bool            `json:"dirty,omitempty"`
}

type entry struct {
	position domain.Position
	value    any
	dirty    bool
	cell     Cell
}

// Update is one mailbox value after a drain.
type Update struct {
	Handle   domain.HandleID
	Position domain.Position
	Value    any
	// Dropped is set when the handle had no entry any more.
	Dropped bool
	// Err is set when the value could not be converted to the declared type.
	// Such a write is not applied.
	Err error
}

// Store owns every state entry.
type Store struct {
	mu      sync.RWMutex
	entries map[domain.HandleID]*entry
	seeds   map[domain.Position]any
	pass    uint64
	open    bool

	mailMu    sync.Mutex
	pending   map[domain.HandleID]any
	order     []domain.HandleID
	scheduled bool
	scheduler func()

	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithScheduler sets the callback that requests a rebuild. It is invoked
// once per batch of writes, from the goroutine that made the first write.
func WithScheduler(fn func()) Option {
	return func(s *Store) {
		s.scheduler = fn
	}
}

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[domain.HandleID]*entry),
		seeds:   make(map[domain.Position]any),
		pending: make(map[domain.HandleID]any),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginPass opens the read window for generation.
func (s *Store) BeginPass(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pass = generation
	s.open = true
}

// EndPass closes the read window and clears dirty marks.
func (s *Store) EndPass() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	for _, e := range s.entries {
		e.dirty = false
	}
}

// Read returns the value linked to id. It fails with InvalidAccess outside
// the pass named by tok, or when id has no entry.
func (s *Store) Read(id domain.HandleID, tok Token) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tok == nil || !s.open || tok.Generation() != s.pass {
		return nil, domain.InvalidAccess(id, "read outside build pass")
	}
	e, ok := s.entries[id]
	if !ok {
		return nil, domain.InvalidAccess(id, "state is not linked")
	}
	return e.value, nil
}

// Linked reports whether id has an entry.
func (s *Store) Linked(id domain.HandleID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

// Link creates the entry for id with an initial value. Linking a handle twice
// is a programming error and panics with a DoubleLink error.
func (s *Store) Link(id domain.HandleID, pos domain.Position, initial any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		panic(domain.DoubleLink(id))
	}
	s.entries[id] = &entry{position: pos, value: initial}
}

// Binding records what a Bind call replaced.
type Binding struct {
	id      domain.HandleID
	pos     domain.Position
	cell    Cell
	prev    Cell
	created bool
	seed    any
	seeded  bool
	restore func()
}

// Bind attaches cell to the handle. A handle without an entry is linked with
// the cell's value: a write made before binding, else a restored seed for pos,
// else the declared default. A handle that already has an entry keeps it; a
// write made on the cell before binding is then delivered through the mailbox.
// The entry remembers only the most recently bound cell.
//
// The returned Binding lets Unbind undo the call when a pass is abandoned.
func (s *Store) Bind(cell Cell, id domain.HandleID, pos domain.Position) Binding {
	b := Binding{id: id, pos: pos, cell: cell, restore: cell.checkpoint()}
	value, written := cell.linkValue()

	s.mu.Lock()
	e, exists := s.entries[id]
	b.created = !exists
	if !exists {
		if seed, ok := s.seeds[pos]; ok {
			delete(s.seeds, pos)
			b.seed, b.seeded = seed, true
			if !written {
				decoded, err := cell.decode(seed)
				if err != nil {
					s.logger.Warn("discarding restored state",
						"handle", id.String(),
						"position", pos,
						"err", err,
					)
				} else {
					value = decoded
				}
			}
		}
		e = &entry{position: pos, value: value}
		s.entries[id] = e
	} else {
		b.prev = e.cell
	}
	e.cell = cell
	s.mu.Unlock()

	cell.attach(s, id)
	if exists && written {
		s.Write(id, value)
	}
	return b
}

// Unbind reverts b. An entry the call created is removed, an existing one gets
// its previous cell back, a consumed seed is returned, and the cell goes back
// to the phase it had before Bind: attached to its former handle, or
// provisional with its buffered write. Bindings of one pass are undone newest
// first.
func (s *Store) Unbind(b Binding) {
	if b.cell == nil {
		return
	}
	s.mu.Lock()
	if e, ok := s.entries[b.id]; ok {
		switch {
		case b.created:
			delete(s.entries, b.id)
		case e.cell == b.cell:
			e.cell = b.prev
		}
	}
	if b.seeded {
		if _, taken := s.seeds[b.pos]; !taken {
			s.seeds[b.pos] = b.seed
		}
	}
	s.mu.Unlock()

	b.restore()
}

// Delete removes the entry for id and detaches its cell. It implements
// scope.Disposer.
func (s *Store) Delete(id domain.HandleID) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if ok && e.cell != nil {
		e.cell.detach(id)
	}
}

// Seed registers values restored from a snapshot. Each is consumed by the
// first fresh link at its position.
func (s *Store) Seed(values map[domain.Position]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pos, v := range values {
		s.seeds[pos] = v
	}
}

// Write enqueues value for id. Safe from any goroutine.
func (s *Store) Write(id domain.HandleID, value any) {
	s.mailMu.Lock()
	if _, queued := s.pending[id]; !queued {
		s.order = append(s.order, id)
	}
	s.pending[id] = value
	schedule := !s.scheduled
	s.scheduled = true
	fn := s.scheduler
	s.mailMu.Unlock()

	if schedule && fn != nil {
		fn()
	}
}

// Pending returns the number of handles with a queued write.
func (s *Store) Pending() int {
	s.mailMu.Lock()
	defer s.mailMu.Unlock()
	return len(s.pending)
}

// Drain applies every queued write, in first-write order, and re-arms the
// scheduler. Main context only.
func (s *Store) Drain() []Update {
	s.mailMu.Lock()
	pending, order := s.pending, s.order
	s.pending = make(map[domain.HandleID]any)
	s.order = nil
	s.scheduled = false
	s.mailMu.Unlock()

	if len(order) == 0 {
		return nil
	}

	updates := make([]Update, 0, len(order))
	s.mu.Lock()
	for _, id := range order {
		value := pending[id]
		e, ok := s.entries[id]
		if !ok {
			updates = append(updates, Update{Handle: id, Value: value, Dropped: true})
			continue
		}
		if e.cell != nil {
			decoded, err := e.cell.decode(value)
			if err != nil {
				updates = append(updates, Update{Handle: id, Position: e.position, Value: value, Err: err})
				continue
			}
			value = decoded
		}
		e.value = value
		e.dirty = true
		updates = append(updates, Update{Handle: id, Position: e.position, Value: value})
	}
	s.mu.Unlock()

	for _, u := range updates {
		switch {
		case u.Dropped:
			s.logger.Debug("dropping write for disposed handle", "handle", u.Handle.String())
		case u.Err != nil:
			s.logger.Warn("state write does not match declared type",
				"handle", u.Handle.String(),
				"position", u.Position,
				"err", u.Err,
			)
		}
	}
	return updates
}

// Len returns the number of linked entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a copy of every entry ordered by handle. It is meant for
// inspection and snapshots, not for component reads.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for id, e := range s.entries {
		out = append(out, Entry{Handle: id, Position: e.position, Value: e.value, Dirty: e.dirty})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Applied reports whether the update reached its entry.
func (u Update) Applied() bool {
	return !u.Dropped && u.Err == nil
}
