package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/comm"
)

func card(id, columnID string, order int) models.Card {
	return models.Card{ID: id, Title: id, ColumnID: columnID, Order: order}
}

// newBoard mirrors columns A [a1 a2 a3] and B [b1 b2], deliberately given
// out of order.
func newBoard() *Mirror {
	m := New()
	m.Sync(models.Board{Columns: []models.Column{
		{ID: "B", Title: "B", Order: 2, Cards: []models.Card{card("b2", "B", 2), card("b1", "B", 1)}},
		{ID: "A", Title: "A", Order: 1, Cards: []models.Card{card("a1", "A", 1), card("a3", "A", 3), card("a2", "A", 2)}},
	}})
	return m
}

// cards returns the card ids of a column and checks their orders are 1..n.
func cards(t *testing.T, m *Mirror, columnID string) []string {
	t.Helper()
	for _, col := range m.Board().Columns {
		if col.ID != columnID {
			continue
		}
		out := make([]string, 0, len(col.Cards))
		for i, c := range col.Cards {
			require.Equal(t, i+1, c.Order, "card %s", c.ID)
			require.Equal(t, columnID, c.ColumnID, "card %s", c.ID)
			out = append(out, c.ID)
		}
		return out
	}
	t.Fatalf("column %s not mirrored", columnID)
	return nil
}

func columns(t *testing.T, m *Mirror) []string {
	t.Helper()
	var out []string
	for i, col := range m.Board().Columns {
		require.Equal(t, i+1, col.Order, "column %s", col.ID)
		out = append(out, col.ID)
	}
	return out
}

func TestSyncSortsBoard(t *testing.T) {
	m := newBoard()
	assert.Equal(t, []string{"A", "B"}, columns(t, m))
	assert.Equal(t, []string{"a1", "a2", "a3"}, cards(t, m, "A"))
	assert.Equal(t, []string{"b1", "b2"}, cards(t, m, "B"))
}

func TestBoardReturnsCopy(t *testing.T) {
	m := newBoard()
	b := m.Board()
	b.Columns[0].Cards[0].Title = "changed"
	b.Columns[0].Title = "changed"

	again := m.Board()
	assert.Equal(t, "A", again.Columns[0].Title)
	assert.Equal(t, "a1", again.Columns[0].Cards[0].Title)
}

func TestOptimisticMoveCard(t *testing.T) {
	t.Run("towards tail", func(t *testing.T) {
		m := newBoard()
		require.True(t, m.MoveCard("a1", "A", 3))
		assert.Equal(t, []string{"a2", "a3", "a1"}, cards(t, m, "A"))
	})

	t.Run("towards head", func(t *testing.T) {
		m := newBoard()
		require.True(t, m.MoveCard("a3", "A", 1))
		assert.Equal(t, []string{"a3", "a1", "a2"}, cards(t, m, "A"))
	})

	t.Run("across columns", func(t *testing.T) {
		m := newBoard()
		require.True(t, m.MoveCard("a2", "B", 1))
		assert.Equal(t, []string{"a1", "a3"}, cards(t, m, "A"))
		assert.Equal(t, []string{"a2", "b1", "b2"}, cards(t, m, "B"))
	})

	t.Run("across columns past the tail", func(t *testing.T) {
		m := newBoard()
		require.True(t, m.MoveCard("a1", "B", 10))
		assert.Equal(t, []string{"a2", "a3"}, cards(t, m, "A"))
		assert.Equal(t, []string{"b1", "b2", "a1"}, cards(t, m, "B"))
	})

	t.Run("no-op and unknown ids", func(t *testing.T) {
		m := newBoard()
		assert.False(t, m.MoveCard("a2", "A", 2))
		assert.False(t, m.MoveCard("zz", "A", 1))
		assert.False(t, m.MoveCard("a1", "Z", 1))
		assert.Equal(t, []string{"a1", "a2", "a3"}, cards(t, m, "A"))
	})
}

func TestOptimisticAddAndRemoveCard(t *testing.T) {
	m := newBoard()

	require.True(t, m.AddCard(card("b3", "B", 0)))
	assert.Equal(t, []string{"b1", "b2", "b3"}, cards(t, m, "B"))

	require.True(t, m.AddCard(card("b0", "B", 1)))
	assert.Equal(t, []string{"b0", "b1", "b2", "b3"}, cards(t, m, "B"))

	assert.False(t, m.AddCard(card("x", "Z", 1)))

	require.True(t, m.RemoveCard("b1"))
	assert.Equal(t, []string{"b0", "b2", "b3"}, cards(t, m, "B"))
	assert.False(t, m.RemoveCard("b1"))
}

func TestOptimisticMoveColumn(t *testing.T) {
	m := newBoard()
	m.Apply(comm.NewEvent(comm.ColumnCreatedPayload{Column: models.Column{ID: "C", Title: "C", Order: 3}}))
	require.Equal(t, []string{"A", "B", "C"}, columns(t, m))

	require.True(t, m.MoveColumn("C", 1))
	assert.Equal(t, []string{"C", "A", "B"}, columns(t, m))

	require.True(t, m.MoveColumn("C", 99))
	assert.Equal(t, []string{"A", "B", "C"}, columns(t, m))

	assert.False(t, m.MoveColumn("C", 3))
	assert.False(t, m.MoveColumn("Z", 1))

	// cards travel with their column
	assert.Equal(t, []string{"a1", "a2", "a3"}, cards(t, m, "A"))
}

func TestApplyReconcilesOptimisticGuess(t *testing.T) {
	m := newBoard()

	// the local guess put a1 at the head of B, the server placed it second
	require.True(t, m.MoveCard("a1", "B", 1))
	m.Apply(comm.NewEvent(comm.CardMovedPayload{Card: card("a1", "B", 2)}))

	assert.Equal(t, []string{"a2", "a3"}, cards(t, m, "A"))
	assert.Equal(t, []string{"b1", "a1", "b2"}, cards(t, m, "B"))
}

func TestApplyCardEvents(t *testing.T) {
	m := newBoard()

	m.Apply(comm.NewEvent(comm.CardCreatedPayload{Card: card("a4", "A", 4)}))
	assert.Equal(t, []string{"a1", "a2", "a3", "a4"}, cards(t, m, "A"))

	// a duplicate delivery changes nothing
	m.Apply(comm.NewEvent(comm.CardCreatedPayload{Card: card("a4", "A", 4)}))
	assert.Equal(t, []string{"a1", "a2", "a3", "a4"}, cards(t, m, "A"))

	updated := card("a2", "A", 2)
	updated.Title = "renamed"
	m.Apply(comm.NewEvent(comm.CardUpdatedPayload{Card: updated}))
	assert.Equal(t, []string{"a1", "a2", "a3", "a4"}, cards(t, m, "A"))
	assert.Equal(t, "renamed", m.Board().Columns[0].Cards[1].Title)

	m.Apply(comm.NewEvent(comm.CardMovedPayload{Card: card("a4", "A", 1)}))
	assert.Equal(t, []string{"a4", "a1", "a2", "a3"}, cards(t, m, "A"))

	m.Apply(comm.NewEvent(comm.CardDeletedPayload{CardID: "a1"}))
	assert.Equal(t, []string{"a4", "a2", "a3"}, cards(t, m, "A"))

	// unknown ids are ignored
	m.Apply(comm.NewEvent(comm.CardDeletedPayload{CardID: "zz"}))
	m.Apply(comm.NewEvent(comm.CardCreatedPayload{Card: card("z1", "Z", 1)}))
	assert.Equal(t, []string{"a4", "a2", "a3"}, cards(t, m, "A"))
}

func TestApplyColumnEvents(t *testing.T) {
	m := newBoard()

	m.Apply(comm.NewEvent(comm.ColumnCreatedPayload{Column: models.Column{ID: "C", Title: "C", Order: 3, Cards: []models.Card{}}}))
	assert.Equal(t, []string{"A", "B", "C"}, columns(t, m))

	// a reorder arrives as an update carrying the column and its cards
	moved := models.Column{ID: "B", Title: "B", Order: 1, Cards: []models.Card{card("b1", "B", 1), card("b2", "B", 2)}}
	m.Apply(comm.NewEvent(comm.ColumnUpdatedPayload{Column: moved}))
	assert.Equal(t, []string{"B", "A", "C"}, columns(t, m))
	assert.Equal(t, []string{"b1", "b2"}, cards(t, m, "B"))

	// an update without cards keeps the mirrored ones
	m.Apply(comm.NewEvent(comm.ColumnUpdatedPayload{Column: models.Column{ID: "A", Title: "Backlog", Order: 2}}))
	assert.Equal(t, []string{"a1", "a2", "a3"}, cards(t, m, "A"))
	assert.Equal(t, "Backlog", m.Board().Columns[1].Title)

	m.Apply(comm.NewEvent(comm.ColumnDeletedPayload{ColumnID: "B"}))
	assert.Equal(t, []string{"A", "C"}, columns(t, m))
}

func TestApplyBoardStateSyncOverwrites(t *testing.T) {
	m := newBoard()
	require.True(t, m.MoveCard("a1", "B", 1))

	m.Apply(comm.NewEvent(comm.BoardStatePayload{Columns: []models.Column{
		{ID: "X", Title: "X", Order: 1, Cards: []models.Card{card("x1", "X", 1)}},
	}}))

	assert.Equal(t, []string{"X"}, columns(t, m))
	assert.Equal(t, []string{"x1"}, cards(t, m, "X"))
}

func TestApplyClampsStaleOrders(t *testing.T) {
	t.Run("card past the tail of its column", func(t *testing.T) {
		m := newBoard()
		m.Apply(comm.NewEvent(comm.CardMovedPayload{Card: card("a1", "B", 5)}))
		assert.Equal(t, []string{"a2", "a3"}, cards(t, m, "A"))
		assert.Equal(t, []string{"b1", "b2", "a1"}, cards(t, m, "B"))
	})

	t.Run("card before the head", func(t *testing.T) {
		m := newBoard()
		m.Apply(comm.NewEvent(comm.CardCreatedPayload{Card: card("b0", "B", 0)}))
		assert.Equal(t, []string{"b0", "b1", "b2"}, cards(t, m, "B"))
	})

	t.Run("column past the end of the board", func(t *testing.T) {
		m := newBoard()
		m.Apply(comm.NewEvent(comm.ColumnCreatedPayload{Column: models.Column{ID: "C", Title: "C", Order: 9}}))
		assert.Equal(t, []string{"A", "B", "C"}, columns(t, m))

		m.Apply(comm.NewEvent(comm.ColumnUpdatedPayload{Column: models.Column{ID: "A", Title: "A", Order: 7}}))
		assert.Equal(t, []string{"B", "C", "A"}, columns(t, m))
		assert.Equal(t, []string{"a1", "a2", "a3"}, cards(t, m, "A"))
	})
}
