package domain

// TreeDiff describes how one generation differs from the one before it.
// It is designed to be serialized to JSON for inspection tools.
type TreeDiff struct {
	// Generation is the number of the newer generation.
	Generation uint64 `json:"generation"`

	// Mounted nodes were constructed in this generation.
	Mounted []*ComponentNode `json:"-"`

	// Reused nodes were carried from the previous generation.
	Reused []*ComponentNode `json:"-"`

	// Unmounted nodes belong to the previous generation and are gone now.
	Unmounted []*ComponentNode `json:"-"`

	// Disposed handles reached zero references when this generation committed.
	Disposed []HandleID `json:"disposed,omitempty"`
}

// Empty reports whether nothing was mounted or removed.
func (d *TreeDiff) Empty() bool {
	return d == nil || (len(d.Mounted) == 0 && len(d.Unmounted) == 0 && len(d.Disposed) == 0)
}

// Summary is the JSON-friendly view of a diff, by position.
type Summary struct {
	Generation uint64     `json:"generation"`
	Mounted    []Position `json:"mounted,omitempty"`
	Reused     []Position `json:"reused,omitempty"`
	Unmounted  []Position `json:"unmounted,omitempty"`
	Disposed   []HandleID `json:"disposed,omitempty"`
}

// Summarize flattens the diff into positions.
func (d *TreeDiff) Summarize() Summary {
	if d == nil {
		return Summary{}
	}
	return Summary{
		Generation: d.Generation,
		Mounted:    positions(d.Mounted),
		Reused:     positions(d.Reused),
		Unmounted:  positions(d.Unmounted),
		Disposed:   d.Disposed,
	}
}

func positions(nodes []*ComponentNode) []Position {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]Position, len(nodes))
	for i, n := range nodes {
		out[i] = n.Position
	}
	return out
}
