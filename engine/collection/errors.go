package collection

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID   = errors.New("duplicate id")
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRecord = errors.New("invalid record")
	ErrImmutableID   = errors.New("record id cannot change")
	ErrPersistence   = errors.New("persistence failed")
)

// PersistenceError reports a failed slot write. The in-memory collection
// stays authoritative when this is returned.
type PersistenceError struct {
	Slot string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s to slot %q: %v", e.Op, e.Slot, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
