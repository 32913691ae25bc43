package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by a Ledger operation matches exactly one
// of these with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrNotFound     = errors.New("not found")
	ErrPersistence  = errors.New("persistence error")
)

// Error carries the offending entity, identifier and field so the
// presentation layer can render a specific message.
type Error struct {
	Kind   error
	Entity string
	ID     string
	Field  string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
		if e.ID != "" {
			fmt.Fprintf(&b, " %s", e.ID)
		}
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (%s)", e.Field)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationErr(entity, field, msg string) error {
	return &Error{Kind: ErrValidation, Entity: entity, Field: field, Msg: msg}
}

func conflictErr(entity, id, msg string) error {
	return &Error{Kind: ErrConflict, Entity: entity, ID: id, Msg: msg}
}

func notFoundErr(entity, id string) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id}
}

func invalidStateErr(msg string) error {
	return &Error{Kind: ErrInvalidState, Entity: "timer", Msg: msg}
}

// FieldOf returns the offending field of a ledger error, if any.
func FieldOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Field
	}
	return ""
}

// IsWarning reports whether err only signals a failed durable write. The
// in-memory change it accompanies has already been applied.
func IsWarning(err error) bool {
	return errors.Is(err, ErrPersistence) &&
		!errors.Is(err, ErrValidation) &&
		!errors.Is(err, ErrConflict) &&
		!errors.Is(err, ErrInvalidState) &&
		!errors.Is(err, ErrNotFound)
}
