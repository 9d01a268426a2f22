package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSnapshotNotFound is returned when a snapshot ID cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrEngineHalted is returned by every engine call after a fatal error.
var ErrEngineHalted = errors.New("engine halted")

// ErrNoRoot is returned when a build is requested before a root was set.
var ErrNoRoot = errors.New("no root description")

// Kind categorizes an engine error.
type Kind string

const (
	// KindInvalidAccess: state read outside a build pass or for an unlinked handle.
	KindInvalidAccess Kind = "invalid_access"
	// KindDoubleLink: a second link for a handle that is already linked.
	KindDoubleLink Kind = "double_link"
	// KindReuseTypeMismatch: reuse attempted across different component types.
	KindReuseTypeMismatch Kind = "reuse_type_mismatch"
	// KindConstructionFailure: a component failed to construct; the pass is aborted.
	KindConstructionFailure Kind = "construction_failure"
)

// Error is the structured error raised by the runtime.
type Error struct {
	Kind     Kind
	Position Position
	TypeName string
	Handle   HandleID
	Detail   string
	Cause    error
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(string(e.Kind))

	if e.Position != RootPosition {
		b.WriteString(" at ")
		b.WriteString(string(e.Position))
	}
	if e.TypeName != "" {
		b.WriteString(" (")
		b.WriteString(e.TypeName)
		b.WriteByte(')')
	}
	if e.Handle != 0 {
		b.WriteString(" [")
		b.WriteString(e.Handle.String())
		b.WriteByte(']')
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Fatal reports whether the error signals a programming bug that must stop
// the engine rather than abort a single pass.
func (e *Error) Fatal() bool {
	return e.Kind == KindDoubleLink || e.Kind == KindReuseTypeMismatch
}

// Sentinels usable with errors.Is.
var (
	ErrInvalidAccess       = &Error{Kind: KindInvalidAccess}
	ErrDoubleLink          = &Error{Kind: KindDoubleLink}
	ErrReuseTypeMismatch   = &Error{Kind: KindReuseTypeMismatch}
	ErrConstructionFailure = &Error{Kind: KindConstructionFailure}
)

// InvalidAccess creates an invalid access error for handle.
func InvalidAccess(handle HandleID, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidAccess, Handle: handle, Detail: fmt.Sprintf(format, args...)}
}

// DoubleLink creates a double link error for handle.
func DoubleLink(handle HandleID) *Error {
	return &Error{Kind: KindDoubleLink, Handle: handle, Detail: "state is already linked"}
}

// ReuseTypeMismatch creates a reuse error between two types at pos.
func ReuseTypeMismatch(pos Position, oldType, newType string) *Error {
	return &Error{
		Kind:     KindReuseTypeMismatch,
		Position: pos,
		TypeName: newType,
		Detail:   fmt.Sprintf("cannot reuse %s as %s", oldType, newType),
	}
}

// ConstructionFailure wraps cause as the failure of the component at pos.
func ConstructionFailure(pos Position, typeName string, cause error) *Error {
	return &Error{Kind: KindConstructionFailure, Position: pos, TypeName: typeName, Cause: cause}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsFatal reports whether err carries a fatal engine error.
func IsFatal(err error) bool {
	e, ok := AsError(err)
	return ok && e.Fatal()
}
