package memory

import (
	"context"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Renderer implements ports.Renderer by keeping every published generation.
type Renderer struct {
	mu    sync.Mutex
	gens  []*domain.Generation
	diffs []*domain.TreeDiff
}

// NewRenderer creates an empty recording renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Publish implements ports.Renderer.
func (r *Renderer) Publish(ctx context.Context, gen *domain.Generation, diff *domain.TreeDiff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens = append(r.gens, gen)
	r.diffs = append(r.diffs, diff)
	return nil
}

// Published returns the number of generations received.
func (r *Renderer) Published() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gens)
}

// Last returns the most recent generation and diff, or nils.
func (r *Renderer) Last() (*domain.Generation, *domain.TreeDiff) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.gens) == 0 {
		return nil, nil
	}
	return r.gens[len(r.gens)-1], r.diffs[len(r.diffs)-1]
}
