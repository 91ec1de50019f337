package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/boardsvc/position"
	"github.com/avvvet/kanban-services/internal/boardsvc/store"
	"github.com/avvvet/kanban-services/internal/comm"
)

// ColumnService owns the board-wide column order.
type ColumnService struct {
	store    store.Store
	notifier Notifier
}

func NewColumnService(store store.Store, notifier Notifier) *ColumnService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ColumnService{store: store, notifier: notifier}
}

// Create appends a column titled title to the end of the board.
func (s *ColumnService) Create(ctx context.Context, title string, color *string) (*models.Column, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateColor(color); err != nil {
		return nil, err
	}

	var col *models.Column
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.LockBoard(ctx); err != nil {
			return err
		}
		if err := ensureTitleFree(ctx, tx, title, ""); err != nil {
			return err
		}

		max, err := tx.MaxColumnOrder(ctx)
		if err != nil {
			return err
		}

		ts := now()
		col = &models.Column{
			ID:        uuid.NewString(),
			Title:     title,
			Order:     position.Append(max),
			Color:     color,
			Cards:     []models.Card{},
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		return tx.InsertColumn(ctx, col)
	})
	if err != nil {
		log.WithField("title", title).Errorf("create column: %v", err)
		return nil, translate(err)
	}

	log.WithFields(log.Fields{"column": col.ID, "order": col.Order}).Info("column created")
	notify(s.notifier, comm.ColumnCreatedPayload{Column: *col})
	return col, nil
}

// Update changes the title and/or color of a column. Order is untouched.
func (s *ColumnService) Update(ctx context.Context, id string, patch models.ColumnPatch) (*models.Column, error) {
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
	}
	if err := validateColor(patch.Color); err != nil {
		return nil, err
	}

	var col *models.Column
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.LockBoard(ctx); err != nil {
			return err
		}

		var err error
		col, err = tx.GetColumn(ctx, id)
		if err != nil {
			return err
		}

		if patch.Title != nil && *patch.Title != col.Title {
			if err := ensureTitleFree(ctx, tx, *patch.Title, col.ID); err != nil {
				return err
			}
			col.Title = *patch.Title
		}
		if patch.Color != nil {
			col.Color = patch.Color
		}
		col.UpdatedAt = now()

		if err := tx.UpdateColumn(ctx, col); err != nil {
			return err
		}
		return withCards(ctx, tx, col)
	})
	if err != nil {
		log.WithField("column", id).Errorf("update column: %v", err)
		return nil, translate(err)
	}

	log.WithField("column", col.ID).Info("column updated")
	notify(s.notifier, comm.ColumnUpdatedPayload{Column: *col})
	return col, nil
}

// Reorder moves a column to newOrder, renumbering the columns in between.
// An order past the last column is treated as the last position.
func (s *ColumnService) Reorder(ctx context.Context, id string, newOrder int) (*models.Column, error) {
	if newOrder < 1 {
		return nil, ErrInvalidOrder
	}

	var (
		col   *models.Column
		moved bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.LockBoard(ctx); err != nil {
			return err
		}

		var err error
		col, err = tx.GetColumn(ctx, id)
		if err != nil {
			return err
		}

		count, err := tx.MaxColumnOrder(ctx)
		if err != nil {
			return err
		}

		target := position.Clamp(newOrder, count)
		shift, ok := position.Reorder(col.Order, target)
		if ok {
			if err := tx.ShiftColumns(ctx, shift); err != nil {
				return err
			}
			col.Order = target
			col.UpdatedAt = now()
			if err := tx.UpdateColumn(ctx, col); err != nil {
				return err
			}
			moved = true
		}
		return withCards(ctx, tx, col)
	})
	if err != nil {
		log.WithFields(log.Fields{"column": id, "order": newOrder}).Errorf("reorder column: %v", err)
		return nil, translate(err)
	}

	if moved {
		log.WithFields(log.Fields{"column": col.ID, "order": col.Order}).Info("column reordered")
		notify(s.notifier, comm.ColumnUpdatedPayload{Column: *col})
	}
	return col, nil
}

// Remove deletes an empty column and closes the gap it leaves.
func (s *ColumnService) Remove(ctx context.Context, id string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.LockBoard(ctx); err != nil {
			return err
		}

		col, err := tx.GetColumn(ctx, id)
		if err != nil {
			return err
		}

		count, err := tx.CountCards(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &NonEmptyColumnError{Count: count}
		}

		if err := tx.DeleteColumn(ctx, id); err != nil {
			return err
		}
		return tx.ShiftColumns(ctx, position.Remove(col.Order))
	})
	if err != nil {
		log.WithField("column", id).Errorf("remove column: %v", err)
		return translate(err)
	}

	log.WithField("column", id).Info("column removed")
	notify(s.notifier, comm.ColumnDeletedPayload{ColumnID: id})
	return nil
}

// Get returns a column with its cards in order.
func (s *ColumnService) Get(ctx context.Context, id string) (*models.Column, error) {
	col, err := s.store.GetColumn(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if err := withCards(ctx, s.store, col); err != nil {
		return nil, translate(err)
	}
	return col, nil
}

// List returns every column in order, each with its cards.
func (s *ColumnService) List(ctx context.Context) ([]models.Column, error) {
	board, err := readBoard(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return board.Columns, nil
}

// ensureTitleFree fails with ErrDuplicateTitle when a column other than
// exceptID already holds title.
func ensureTitleFree(ctx context.Context, tx store.Tx, title, exceptID string) error {
	existing, err := tx.FindColumnByTitle(ctx, title)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != exceptID:
		return ErrDuplicateTitle
	}
	return nil
}
