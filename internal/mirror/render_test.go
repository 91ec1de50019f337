package mirror

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
)

func TestRenderShowsColumnsAndCardsInOrder(t *testing.T) {
	high := models.PriorityHigh
	color := "#0f0"
	out := Render(models.Board{Columns: []models.Column{
		{ID: "A", Title: "Todo", Order: 1, Color: &color, Cards: []models.Card{
			{ID: "a1", Title: "write", Order: 1, Priority: &high},
			{ID: "a2", Title: "ship", Order: 2},
		}},
		{ID: "B", Title: "Done", Order: 2},
	}})

	assert.Contains(t, out, "1. Todo")
	assert.Contains(t, out, "2. Done")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "no cards")
	assert.Less(t, strings.Index(out, "1 write"), strings.Index(out, "2 ship"))
}

func TestRenderEmptyBoard(t *testing.T) {
	assert.Contains(t, Render(models.Board{}), "empty board")
}
