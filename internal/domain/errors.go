package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrPersistence  = errors.New("persistence failure")
)

// PersistenceError tags a failed store operation so callers can map it
// to a server error without inspecting driver errors.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPersistence) match any PersistenceError.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError wraps err unless it is nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
