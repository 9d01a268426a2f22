package domain

import "time"

// Snapshot is the durable form of the state store: every linked value keyed by
// the position of its handle. Handles are process-local, positions are not.
type Snapshot struct {
	RootID     string              `json:"root_id"`
	Generation uint64              `json:"generation"`
	States     map[Position]any    `json:"states"`
	Types      map[Position]string `json:"types,omitempty"`
	SavedAt    time.Time           `json:"saved_at"`
}

// NewSnapshot creates an empty snapshot for rootID.
func NewSnapshot(rootID string, generation uint64) *Snapshot {
	return &Snapshot{
		RootID:     rootID,
		Generation: generation,
		States:     make(map[Position]any),
		Types:      make(map[Position]string),
		SavedAt:    time.Now(),
	}
}

// Clone returns a copy whose maps can be mutated independently.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.States = make(map[Position]any, len(s.States))
	for k, v := range s.States {
		c.States[k] = v
	}
	c.Types = make(map[Position]string, len(s.Types))
	for k, v := range s.Types {
		c.Types[k] = v
	}
	return &c
}
