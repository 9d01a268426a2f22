package domain

import (
	"sort"
	"time"
)

// BuildTrigger records why a build pass ran.
type BuildTrigger string

const (
	TriggerInitial     BuildTrigger = "initial"
	TriggerStateUpdate BuildTrigger = "state_update"
	TriggerPropsUpdate BuildTrigger = "props_update"
)

// Generation is one complete tree produced by a build pass.
type Generation struct {
	Number  uint64                      `json:"number"`
	Trigger BuildTrigger                `json:"trigger"`
	Root    *ComponentNode              `json:"root"`
	Nodes   map[Position]*ComponentNode `json:"-"`
	Handles map[HandleID]struct{}       `json:"-"`
	BuiltAt time.Time                   `json:"built_at"`
}

// NewGeneration returns an empty generation ready to be filled by a builder.
func NewGeneration(number uint64, trigger BuildTrigger) *Generation {
	return &Generation{
		Number:  number,
		Trigger: trigger,
		Nodes:   make(map[Position]*ComponentNode),
		Handles: make(map[HandleID]struct{}),
	}
}

// At returns the node built at pos, if any.
func (g *Generation) At(pos Position) (*ComponentNode, bool) {
	if g == nil {
		return nil, false
	}
	n, ok := g.Nodes[pos]
	return n, ok
}

// Positions returns every position in the generation in lexical order.
func (g *Generation) Positions() []Position {
	if g == nil {
		return nil
	}
	out := make([]Position, 0, len(g.Nodes))
	for p := range g.Nodes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Touches reports whether the generation holds a reference on id.
func (g *Generation) Touches(id HandleID) bool {
	if g == nil {
		return false
	}
	_, ok := g.Handles[id]
	return ok
}
