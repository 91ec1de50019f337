package service

import (
	"errors"
	"fmt"

	"github.com/avvvet/kanban-services/internal/boardsvc/store"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateTitle     = errors.New("a column with this title already exists")
	ErrInvalidOrder       = errors.New("order must be greater than 0")
	ErrNonEmptyColumn     = errors.New("column still has cards")
	ErrTransactionFailure = errors.New("transaction failed")
	ErrValidation         = errors.New("validation failed")
)

// NonEmptyColumnError reports how many cards block a column delete.
type NonEmptyColumnError struct {
	Count int
}

func (e *NonEmptyColumnError) Error() string {
	return fmt.Sprintf("cannot delete column with %d card(s); move or delete them first", e.Count)
}

func (e *NonEmptyColumnError) Is(target error) bool {
	return target == ErrNonEmptyColumn
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// translate maps storage failures onto the service taxonomy. Errors that
// already belong to it pass through.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicateTitle),
		errors.Is(err, ErrInvalidOrder),
		errors.Is(err, ErrNonEmptyColumn),
		errors.Is(err, ErrTransactionFailure),
		errors.Is(err, ErrValidation):
		return err
	case errors.Is(err, store.ErrColumnNotFound):
		return fmt.Errorf("%w: column", ErrNotFound)
	case errors.Is(err, store.ErrCardNotFound):
		return fmt.Errorf("%w: card", ErrNotFound)
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrTitleExists):
		return ErrDuplicateTitle
	}
	return fmt.Errorf("%w: %v", ErrTransactionFailure, err)
}
