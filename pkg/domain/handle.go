package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// HandleID identifies a scope handle. IDs are allocated monotonically and are
// never reused, so a stale ID can never alias a newer handle.
type HandleID uint64

func (id HandleID) String() string {
	return "h" + strconv.FormatUint(uint64(id), 10)
}

// Position is the structural path of a component from the root of the tree,
// written as "/"-joined segments, e.g. "/Root@0/List@0/Row#k1".
type Position string

// RootPosition is the parent of the root component.
const RootPosition Position = ""

// Segment returns the path segment for a child declaration.
// Keyed children are addressed by key, unkeyed children by ordinal among
// unkeyed siblings of the same type.
func Segment(typeName, key string, ordinal int) string {
	if key != "" {
		return typeName + "#" + key
	}
	return typeName + "@" + strconv.Itoa(ordinal)
}

// Child returns the position of a child segment under p.
func (p Position) Child(segment string) Position {
	return Position(string(p) + "/" + segment)
}

// Parent returns the enclosing position, or RootPosition for a top-level one.
func (p Position) Parent() Position {
	i := strings.LastIndex(string(p), "/")
	if i <= 0 {
		return RootPosition
	}
	return p[:i]
}

// Depth is the number of segments in the path.
func (p Position) Depth() int {
	return strings.Count(string(p), "/")
}

// Last returns the final segment of the path.
func (p Position) Last() string {
	i := strings.LastIndex(string(p), "/")
	return string(p[i+1:])
}

func (p Position) String() string {
	return string(p)
}

// ParsePosition validates a textual position coming from an outer surface.
func ParsePosition(s string) (Position, error) {
	if s == "" || !strings.HasPrefix(s, "/") {
		return RootPosition, fmt.Errorf("invalid position %q: must start with '/'", s)
	}
	for _, seg := range strings.Split(s[1:], "/") {
		if seg == "" {
			return RootPosition, fmt.Errorf("invalid position %q: empty segment", s)
		}
	}
	return Position(s), nil
}

// ScopeHandle is the stable identity a component keeps across rebuilds.
// Its state entry in the store is keyed by ID.
type ScopeHandle struct {
	ID         HandleID `json:"id"`
	Position   Position `json:"position"`
	TypeName   string   `json:"type"`
	Stateless  bool     `json:"stateless,omitempty"`
	Generation uint64   `json:"generation"`
}
