// File: internal/repository/errors.go
package repository

import (
    "errors"
    "fmt"
)

type ErrorKind string

const (
    KindNotFound   ErrorKind = "NOT_FOUND"
    KindValidation ErrorKind = "VALIDATION"
    KindDatabase   ErrorKind = "DATABASE"
)

// ErrNotFound matches any StoreError of kind NOT_FOUND via errors.Is.
var ErrNotFound = errors.New("record not found")

// StoreError is returned by every persistence operation that fails.
type StoreError struct {
    Kind   ErrorKind
    Op     string
    Entity string
    ID     uint
    Cause  error
}

func (e *StoreError) Error() string {
    target := e.Entity
    if e.ID != 0 {
        target = fmt.Sprintf("%s %d", e.Entity, e.ID)
    }
    if e.Cause != nil {
        return fmt.Sprintf("store %s error in %s (%s): %v", e.Kind, e.Op, target, e.Cause)
    }
    return fmt.Sprintf("store %s error in %s (%s)", e.Kind, e.Op, target)
}

func (e *StoreError) Unwrap() error { return e.Cause }

func (e *StoreError) Is(target error) bool {
    return target == ErrNotFound && e.Kind == KindNotFound
}

func NewNotFound(op, entity string, id uint) *StoreError {
    return &StoreError{Kind: KindNotFound, Op: op, Entity: entity, ID: id}
}

func NewInvalidInput(op, entity string, cause error) *StoreError {
    return &StoreError{Kind: KindValidation, Op: op, Entity: entity, Cause: cause}
}

func NewDatabaseError(op, entity string, id uint, cause error) *StoreError {
    return &StoreError{Kind: KindDatabase, Op: op, Entity: entity, ID: id, Cause: cause}
}

// IsNotFound reports whether err is, or wraps, a NOT_FOUND StoreError.
func IsNotFound(err error) bool {
    return errors.Is(err, ErrNotFound)
}

// AsStoreError unwraps err to a *StoreError if it carries one.
func AsStoreError(err error) (*StoreError, bool) {
    var se *StoreError
    if errors.As(err, &se) {
        return se, true
    }
    return nil, false
}
