package store

import (
	"errors"
	"fmt"
)

// Kind categorizes a store-level error per spec.md 7.
type Kind string

const (
	KindInvariantViolation Kind = "INVARIANT_VIOLATION"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindSandboxFault       Kind = "SANDBOX_FAULT"
	KindIOFault            Kind = "IO_FAULT"
	KindSchemaMismatch     Kind = "SCHEMA_MISMATCH"
)

// Error is the discriminated result every store-layer public function
// returns instead of a bare string; the store never prints, it only
// reports. See spec.md 7 "Propagation policy".
type Error struct {
	Kind    Kind
	Message string
	// Details carries conflicting ids, node ids, etc. for the caller to
	// format without re-deriving them.
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is(err, ErrInvariantViolation) match any *Error sharing
// that sentinel's Kind.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return e.Kind == o.Kind
	}
	return false
}

// Sentinels usable with errors.Is for each kind.
var (
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation, Message: "invariant violation"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "conflict"}
	ErrSchemaMismatch     = &Error{Kind: KindSchemaMismatch, Message: "schema mismatch"}
)

// NewConflict builds a *Error of kind Conflict with structured details
// (e.g. the two conflicting node ids).
func NewConflict(message string, details map[string]any) *Error {
	return &Error{Kind: KindConflict, Message: message, Details: details}
}

// NewError builds a *Error of the given kind with structured details.
func NewError(kind Kind, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}
