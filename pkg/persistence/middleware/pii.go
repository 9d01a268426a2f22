package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Mask replaces redacted values nested inside persisted state.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that keeps sensitive state out of
// persisted snapshots. A position matching any pattern is left out entirely,
// so a restored tree starts that component from its default. Inside the
// remaining values, map keys matching a pattern are replaced by Mask.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, rootID string, snap *domain.Snapshot) error {
	// The engine still holds snap; redact a copy.
	redacted := *snap
	redacted.States = make(map[domain.Position]any, len(snap.States))
	redacted.Types = make(map[domain.Position]string, len(snap.Types))

	for pos, v := range snap.States {
		if m.matches(string(pos)) {
			continue
		}
		redacted.States[pos] = m.mask(v)
		if t, ok := snap.Types[pos]; ok {
			redacted.Types[pos] = t
		}
	}
	return m.next.Save(ctx, rootID, &redacted)
}

func (m *piiMiddleware) Load(ctx context.Context, rootID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, rootID)
}

func (m *piiMiddleware) Delete(ctx context.Context, rootID string) error {
	return m.next.Delete(ctx, rootID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(s string) bool {
	for _, p := range m.patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// mask returns v with matching map keys masked. Maps are copied, never
// modified in place.
func (m *piiMiddleware) mask(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, sub := range t {
			if m.matches(k) {
				out[k] = Mask
				continue
			}
			out[k] = m.mask(sub)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, sub := range t {
			out[i] = m.mask(sub)
		}
		return out
	default:
		return v
	}
}
