package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("entity already exists")

	// ErrConflict is returned when the backend aborted a transaction because
	// of a concurrent one (serialization failure, deadlock, write conflict).
	ErrConflict = errors.New("transaction conflict")

	ErrColumnNotFound = fmt.Errorf("%w: column", ErrNotFound)
	ErrCardNotFound   = fmt.Errorf("%w: card", ErrNotFound)
	ErrTitleExists    = fmt.Errorf("%w: column title", ErrDuplicate)
)
