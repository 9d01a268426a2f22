package runtime

import (
	"reflect"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// ShouldReuse decides whether decl continues old.
//
// Reuse is only defined between nodes of the same type; comparing different
// types returns a ReuseTypeMismatch error. Identities are then compared with
// reflect.DeepEqual. Two missing identities match, a missing identity never
// matches a present one, and identities of different dynamic types never match.
func ShouldReuse(old *domain.ComponentNode, decl *tree.Declaration) (bool, error) {
	if old == nil || decl == nil {
		return false, nil
	}
	if old.TypeName != decl.Type {
		return false, domain.ReuseTypeMismatch(old.Position, old.TypeName, decl.Type)
	}

	a, b := old.Identity, decl.Identity
	if a == nil || b == nil {
		return a == nil && b == nil, nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false, nil
	}
	return reflect.DeepEqual(a, b), nil
}
