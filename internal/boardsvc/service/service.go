// Package service implements the ordering services of the board. Every
// mutation runs in a single store transaction and is announced through the
// Notifier only after it has committed.
package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/boardsvc/store"
	"github.com/avvvet/kanban-services/internal/comm"
)

var hexColor = regexp.MustCompile(`^#([0-9A-Fa-f]{3}){1,2}$`)

// now is truncated to milliseconds, the coarsest precision of the stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return validationError("title must not be empty")
	}
	return nil
}

func validateColor(color *string) error {
	if color != nil && !hexColor.MatchString(*color) {
		return validationError("color %q is not a hex color", *color)
	}
	return nil
}

func validatePriority(p *models.Priority) error {
	if p != nil && !p.Valid() {
		return validationError("unknown priority %q", *p)
	}
	return nil
}

func notify(n Notifier, p comm.Payload) {
	n.Notify(comm.NewEvent(p))
}

func cardValues(cards []*models.Card) []models.Card {
	out := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		out = append(out, *c)
	}
	return out
}

// withCards loads the cards of col in order.
func withCards(ctx context.Context, tx store.Tx, col *models.Column) error {
	cards, err := tx.ListCardsByColumn(ctx, col.ID)
	if err != nil {
		return err
	}
	col.Cards = cardValues(cards)
	return nil
}

// assembleBoard nests cards into their columns. Both inputs are expected in
// order: columns by position, cards by (column, position).
func assembleBoard(columns []*models.Column, cards []*models.Card) *models.Board {
	board := &models.Board{Columns: make([]models.Column, 0, len(columns))}
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		c := *col
		c.Cards = []models.Card{}
		board.Columns = append(board.Columns, c)
		index[col.ID] = i
	}
	for _, card := range cards {
		if i, ok := index[card.ColumnID]; ok {
			board.Columns[i].Cards = append(board.Columns[i].Cards, *card)
		}
	}
	return board
}
