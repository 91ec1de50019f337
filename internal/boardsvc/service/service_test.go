package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	boarddb "github.com/avvvet/kanban-services/internal/boardsvc/db"
	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/boardsvc/position"
	"github.com/avvvet/kanban-services/internal/boardsvc/store"
	"github.com/avvvet/kanban-services/internal/comm"
)

type recorder struct {
	mu     sync.Mutex
	events []comm.Event
}

func (r *recorder) Notify(e comm.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []comm.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]comm.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) last() comm.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	store   store.Store
	columns *ColumnService
	cards   *CardService
	board   *BoardService
	events  *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sqlDB, err := boarddb.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	s := store.NewSQLiteStore(sqlDB)
	t.Cleanup(func() { _ = s.Close() })

	rec := &recorder{}
	return &fixture{
		store:   s,
		columns: NewColumnService(s, rec),
		cards:   NewCardService(s, rec),
		board:   NewBoardService(s, rec),
		events:  rec,
	}
}

func (f *fixture) column(t *testing.T, title string) *models.Column {
	t.Helper()
	col, err := f.columns.Create(context.Background(), title, nil)
	require.NoError(t, err)
	return col
}

func (f *fixture) card(t *testing.T, columnID, title string) *models.Card {
	t.Helper()
	card, err := f.cards.Create(context.Background(), NewCard{Title: title, ColumnID: columnID})
	require.NoError(t, err)
	return card
}

// titles returns the card titles of a column in order and checks the
// orders are exactly 1..n.
func (f *fixture) titles(t *testing.T, columnID string) []string {
	t.Helper()
	cards, err := f.store.ListCardsByColumn(context.Background(), columnID)
	require.NoError(t, err)
	out := make([]string, 0, len(cards))
	for i, c := range cards {
		require.Equal(t, i+1, c.Order, "card %s in column %s", c.Title, columnID)
		out = append(out, c.Title)
	}
	return out
}

// columnTitles returns the column titles in order and checks the orders
// are exactly 1..n.
func (f *fixture) columnTitles(t *testing.T) []string {
	t.Helper()
	columns, err := f.store.ListColumns(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(columns))
	for i, c := range columns {
		require.Equal(t, i+1, c.Order, "column %s", c.Title)
		out = append(out, c.Title)
	}
	return out
}

// requireDense checks every ordering scope of the board.
func (f *fixture) requireDense(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	columns, err := f.store.ListColumns(ctx)
	require.NoError(t, err)
	orders := make([]int, 0, len(columns))
	for _, c := range columns {
		orders = append(orders, c.Order)

		cards, err := f.store.ListCardsByColumn(ctx, c.ID)
		require.NoError(t, err)
		cardOrders := make([]int, 0, len(cards))
		for _, card := range cards {
			cardOrders = append(cardOrders, card.Order)
		}
		require.True(t, position.Dense(cardOrders), "card orders of %s: %v", c.Title, cardOrders)
	}
	require.True(t, position.Dense(orders), "column orders: %v", orders)
}
