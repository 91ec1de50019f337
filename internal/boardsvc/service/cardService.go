package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/boardsvc/position"
	"github.com/avvvet/kanban-services/internal/boardsvc/store"
	"github.com/avvvet/kanban-services/internal/comm"
)

// NewCard is the input of CardService.Create.
type NewCard struct {
	Title    string
	Content  *string
	ColumnID string
}

// CardService owns the card order inside every column.
type CardService struct {
	store    store.Store
	notifier Notifier
}

func NewCardService(store store.Store, notifier Notifier) *CardService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CardService{store: store, notifier: notifier}
}

// Create appends a card to the end of its column.
func (s *CardService) Create(ctx context.Context, in NewCard) (*models.Card, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if in.ColumnID == "" {
		return nil, validationError("columnId is required")
	}

	var card *models.Card
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.LockColumns(ctx, in.ColumnID); err != nil {
			return err
		}
		if _, err := tx.GetColumn(ctx, in.ColumnID); err != nil {
			return err
		}

		max, err := tx.MaxCardOrder(ctx, in.ColumnID)
		if err != nil {
			return err
		}

		ts := now()
		card = &models.Card{
			ID:        uuid.NewString(),
			Title:     in.Title,
			Content:   in.Content,
			ColumnID:  in.ColumnID,
			Order:     position.Append(max),
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		return tx.InsertCard(ctx, card)
	})
	if err != nil {
		log.WithField("column", in.ColumnID).Errorf("create card: %v", err)
		return nil, translate(err)
	}

	log.WithFields(log.Fields{"card": card.ID, "column": card.ColumnID, "order": card.Order}).Info("card created")
	notify(s.notifier, comm.CardCreatedPayload{Card: *card})
	return card, nil
}

// Update edits the descriptive fields of a card in place.
func (s *CardService) Update(ctx context.Context, id string, patch models.CardPatch) (*models.Card, error) {
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
	}
	if err := validatePriority(patch.Priority); err != nil {
		return nil, err
	}

	var card *models.Card
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		card, err = lockCard(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(card)
		card.UpdatedAt = now()
		return tx.UpdateCard(ctx, card)
	})
	if err != nil {
		log.WithField("card", id).Errorf("update card: %v", err)
		return nil, translate(err)
	}

	log.WithField("card", card.ID).Info("card updated")
	notify(s.notifier, comm.CardUpdatedPayload{Card: *card})
	return card, nil
}

// Move places a card at newOrder inside newColumnID, which may be its
// current column. Orders past the tail land on the tail.
func (s *CardService) Move(ctx context.Context, id, newColumnID string, newOrder int) (*models.Card, error) {
	if newOrder < 1 {
		return nil, ErrInvalidOrder
	}
	if newColumnID == "" {
		return nil, validationError("newColumnId is required")
	}

	var (
		card  *models.Card
		moved bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		card, err = lockCard(ctx, tx, id, newColumnID)
		if err != nil {
			return err
		}

		if newColumnID == card.ColumnID {
			moved, err = moveWithinColumn(ctx, tx, card, newOrder)
		} else {
			moved, err = moveAcrossColumns(ctx, tx, card, newColumnID, newOrder)
		}
		if err != nil || !moved {
			return err
		}

		card.UpdatedAt = now()
		return tx.UpdateCard(ctx, card)
	})
	if err != nil {
		log.WithFields(log.Fields{"card": id, "column": newColumnID, "order": newOrder}).Errorf("move card: %v", err)
		return nil, translate(err)
	}

	if moved {
		log.WithFields(log.Fields{"card": card.ID, "column": card.ColumnID, "order": card.Order}).Info("card moved")
		notify(s.notifier, comm.CardMovedPayload{Card: *card})
	}
	return card, nil
}

func moveWithinColumn(ctx context.Context, tx store.Tx, card *models.Card, newOrder int) (bool, error) {
	count, err := tx.CountCards(ctx, card.ColumnID)
	if err != nil {
		return false, err
	}

	target := position.Clamp(newOrder, count)
	shift, ok := position.Reorder(card.Order, target)
	if !ok {
		return false, nil
	}
	if err := tx.ShiftCards(ctx, card.ColumnID, shift); err != nil {
		return false, err
	}
	card.Order = target
	return true, nil
}

func moveAcrossColumns(ctx context.Context, tx store.Tx, card *models.Card, destID string, newOrder int) (bool, error) {
	if _, err := tx.GetColumn(ctx, destID); err != nil {
		return false, err
	}
	destCount, err := tx.CountCards(ctx, destID)
	if err != nil {
		return false, err
	}

	target := position.Clamp(newOrder, position.Append(destCount))
	source, dest := position.Transfer(card.Order, target)
	if err := tx.ShiftCards(ctx, card.ColumnID, source); err != nil {
		return false, err
	}
	if err := tx.ShiftCards(ctx, destID, dest); err != nil {
		return false, err
	}
	card.ColumnID = destID
	card.Order = target
	return true, nil
}

// Remove deletes a card and closes the gap in its column.
func (s *CardService) Remove(ctx context.Context, id string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		card, err := lockCard(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteCard(ctx, id); err != nil {
			return err
		}
		return tx.ShiftCards(ctx, card.ColumnID, position.Remove(card.Order))
	})
	if err != nil {
		log.WithField("card", id).Errorf("remove card: %v", err)
		return translate(err)
	}

	log.WithField("card", id).Info("card removed")
	notify(s.notifier, comm.CardDeletedPayload{CardID: id})
	return nil
}

func (s *CardService) Get(ctx context.Context, id string) (*models.Card, error) {
	card, err := s.store.GetCard(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return card, nil
}

// List returns every card ordered by column, then order.
func (s *CardService) List(ctx context.Context) ([]models.Card, error) {
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return cardValues(cards), nil
}

// lockCard locks the column holding card id, plus any extra columns, and
// reads the card again under those locks. A card moved to another column
// between the two reads fails with a conflict.
func lockCard(ctx context.Context, tx store.Tx, id string, extra ...string) (*models.Card, error) {
	card, err := tx.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.LockColumns(ctx, scopes(append([]string{card.ColumnID}, extra...)...)...); err != nil {
		return nil, err
	}

	locked, err := tx.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if locked.ColumnID != card.ColumnID {
		return nil, store.ErrConflict
	}
	return locked, nil
}

// scopes returns the distinct column ids in lock order.
func scopes(ids ...string) []string {
	sort.Strings(ids)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if len(out) == 0 || out[len(out)-1] != id {
			out = append(out, id)
		}
	}
	return out
}
