package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventWillBuild    EventType = "will_build"
	EventDidBuild     EventType = "did_build"
	EventBuildAborted EventType = "build_aborted"
	EventNodeReuse    EventType = "node_reuse"
	EventNodeDiscard  EventType = "node_discard"
	EventStateUpdate  EventType = "state_update"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// BuildEvent describes a build pass. Diff and Duration are set once the pass
// has completed, Err when it was aborted.
type BuildEvent struct {
	EventBase
	Generation uint64        `json:"generation"`
	Trigger    BuildTrigger  `json:"trigger"`
	Nodes      int           `json:"nodes,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Diff       *TreeDiff     `json:"-"`
	Err        error         `json:"-"`
}

// NodeEvent describes a reuse decision for a single node.
type NodeEvent struct {
	EventBase
	Generation uint64   `json:"generation"`
	Position   Position `json:"position"`
	TypeName   string   `json:"type"`
	Handle     HandleID `json:"handle"`
}

// StateEvent is emitted when a state update has been applied to an entry.
type StateEvent struct {
	EventBase
	Handle   HandleID `json:"handle"`
	Position Position `json:"position,omitempty"`
	Value    any      `json:"value,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnWillBuild    func(context.Context, *BuildEvent)
	OnDidBuild     func(context.Context, *BuildEvent)
	OnBuildAborted func(context.Context, *BuildEvent)
	OnNodeReuse    func(context.Context, *NodeEvent)
	OnNodeDiscard  func(context.Context, *NodeEvent)
	OnStateUpdate  func(context.Context, *StateEvent)
}

// Merge returns hooks that call h first and then other for every event.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnWillBuild:    chain(h.OnWillBuild, other.OnWillBuild),
		OnDidBuild:     chain(h.OnDidBuild, other.OnDidBuild),
		OnBuildAborted: chain(h.OnBuildAborted, other.OnBuildAborted),
		OnNodeReuse:    chain(h.OnNodeReuse, other.OnNodeReuse),
		OnNodeDiscard:  chain(h.OnNodeDiscard, other.OnNodeDiscard),
		OnStateUpdate:  chain(h.OnStateUpdate, other.OnStateUpdate),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
