package domain

// NodeStatus tracks a node through its life: a node is Constructed in the
// generation that first produces it, Reused in each later generation that keeps
// it, and Discarded when its position disappears or reuse is refused.
type NodeStatus string

const (
	NodeConstructed NodeStatus = "constructed"
	NodeReused      NodeStatus = "reused"
	NodeDiscarded   NodeStatus = "discarded"
)

// ViewConfiguration describes the host view a component wants. It is opaque to
// the engine and handed to the renderer untouched.
type ViewConfiguration struct {
	Class      string         `json:"class" yaml:"class"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// ComponentNode is one element of a built tree. It is immutable once the
// generation that contains it has been published.
type ComponentNode struct {
	TypeName string   `json:"type"`
	Position Position `json:"position"`
	Handle   HandleID `json:"handle"`

	// Identity is the componentIdentifier used to decide reuse.
	Identity any `json:"identity,omitempty"`

	View   *ViewConfiguration `json:"view,omitempty"`
	Size   *SizeConstraint    `json:"size,omitempty"`
	Bridge *Bridge            `json:"-"`

	Children []*ComponentNode `json:"children,omitempty"`

	Status     NodeStatus `json:"status"`
	Generation uint64     `json:"generation"`
	Born       uint64     `json:"born"`

	// RenderState is a cache owned by the component and carried across reuse.
	RenderState any `json:"-"`
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's subtree.
func (n *ComponentNode) Walk(fn func(*ComponentNode) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *ComponentNode) Count() int {
	total := 0
	n.Walk(func(*ComponentNode) bool {
		total++
		return true
	})
	return total
}
