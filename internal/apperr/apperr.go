// Package apperr classifies failures so flow boundaries can map them to stable
// response codes without knowing which store or broker produced them.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error carries a Kind together with the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Transient marks a store or broker failure. Context deadlines land here too.
func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// Validation marks user-correctable input.
func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Err: errors.New(msg)}
}

// Conflict marks a duplicate identity or key.
func Conflict(op string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Err: err}
}

// KindOf reports the Kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
