// Package apperror defines the error kinds surfaced by the billing services.
package apperror

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindValidation       Kind = "VALIDATION"
	KindConflict         Kind = "CONFLICT"
	KindStorage          Kind = "STORAGE"
	KindInternal         Kind = "INTERNAL"
)

// Error carries a kind, the entity it concerns and a human readable reason.
// The wrapped error is kept for logging only and never rendered.
type Error struct {
	Kind   Kind
	Entity string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Entity == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, Reason: "not found"}
}

func PermissionDenied(entity, reason string) *Error {
	return &Error{Kind: KindPermissionDenied, Entity: entity, Reason: reason}
}

func Validation(entity, reason string) *Error {
	return &Error{Kind: KindValidation, Entity: entity, Reason: reason}
}

func Conflict(entity, reason string) *Error {
	return &Error{Kind: KindConflict, Entity: entity, Reason: reason}
}

func Storage(entity string, err error) *Error {
	return &Error{Kind: KindStorage, Entity: entity, Reason: "storage failure", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromDB translates a gorm error for the given entity. Errors that already
// carry a kind pass through untouched.
func FromDB(entity string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindConflict, Entity: entity, Reason: "already exists", Err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &Error{Kind: KindValidation, Entity: entity, Reason: "references a missing record", Err: err}
	default:
		return Storage(entity, err)
	}
}
