package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/comm"
)

func ptr[T any](v T) *T { return &v }

func TestColumnCreateAppends(t *testing.T) {
	f := newFixture(t)

	for i, title := range []string{"Todo", "Doing", "Done"} {
		col := f.column(t, title)
		assert.Equal(t, i+1, col.Order)
		assert.NotEmpty(t, col.ID)
		assert.Empty(t, col.Cards)
	}
	assert.Equal(t, []string{"Todo", "Doing", "Done"}, f.columnTitles(t))
	assert.Equal(t, []comm.EventType{comm.ColumnCreated, comm.ColumnCreated, comm.ColumnCreated}, f.events.types())
}

func TestColumnCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.columns.Create(ctx, "  ", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.columns.Create(ctx, "Todo", ptr("red"))
	assert.ErrorIs(t, err, ErrValidation)

	col, err := f.columns.Create(ctx, "Todo", ptr("#0f0"))
	require.NoError(t, err)
	require.NotNil(t, col.Color)
	assert.Equal(t, "#0f0", *col.Color)
}

func TestDuplicateTitleRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.column(t, "Todo")
	other := f.column(t, "Later")
	f.events.reset()

	_, err := f.columns.Create(ctx, "Todo", nil)
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	_, err = f.columns.Update(ctx, other.ID, models.ColumnPatch{Title: ptr("Todo")})
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	// titles are case sensitive
	_, err = f.columns.Create(ctx, "todo", nil)
	assert.NoError(t, err)

	assert.Equal(t, []comm.EventType{comm.ColumnCreated}, f.events.types())
}

func TestColumnUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	col := f.column(t, "Todo")
	f.column(t, "Done")
	f.card(t, col.ID, "a")

	updated, err := f.columns.Update(ctx, col.ID, models.ColumnPatch{Title: ptr("Todo"), Color: ptr("#AABBCC")})
	require.NoError(t, err)
	assert.Equal(t, "Todo", updated.Title)
	assert.Equal(t, 1, updated.Order)
	require.NotNil(t, updated.Color)
	assert.Equal(t, "#AABBCC", *updated.Color)
	require.Len(t, updated.Cards, 1)

	renamed, err := f.columns.Update(ctx, col.ID, models.ColumnPatch{Title: ptr("Backlog")})
	require.NoError(t, err)
	assert.Equal(t, "Backlog", renamed.Title)
	require.NotNil(t, renamed.Color, "absent color leaves it unchanged")

	ev := f.events.last()
	assert.Equal(t, comm.ColumnUpdated, ev.Type)
	assert.Equal(t, "Backlog", ev.Data.(comm.ColumnUpdatedPayload).Title)

	_, err = f.columns.Update(ctx, "missing", models.ColumnPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.columns.Update(ctx, col.ID, models.ColumnPatch{Color: ptr("#12")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestColumnReorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cols := map[string]*models.Column{}
	for _, title := range []string{"A", "B", "C", "D"} {
		cols[title] = f.column(t, title)
	}

	moved, err := f.columns.Reorder(ctx, cols["A"].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, moved.Order)
	assert.Equal(t, []string{"B", "C", "A", "D"}, f.columnTitles(t))

	_, err = f.columns.Reorder(ctx, cols["D"].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "B", "C", "A"}, f.columnTitles(t))

	// past the tail lands on the tail
	moved, err = f.columns.Reorder(ctx, cols["D"].ID, 99)
	require.NoError(t, err)
	assert.Equal(t, 4, moved.Order)
	assert.Equal(t, []string{"B", "C", "A", "D"}, f.columnTitles(t))
}

func TestColumnReorderErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	col := f.column(t, "A")
	f.column(t, "B")
	f.events.reset()

	_, err := f.columns.Reorder(ctx, col.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = f.columns.Reorder(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	same, err := f.columns.Reorder(ctx, col.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, same.Order)
	assert.Empty(t, f.events.types(), "no-op reorder is not broadcast")
	assert.Equal(t, []string{"A", "B"}, f.columnTitles(t))
}

func TestNonEmptyColumnDeleteBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.column(t, "First")
	col := f.column(t, "Busy")
	f.column(t, "Last")
	a := f.card(t, col.ID, "a")
	b := f.card(t, col.ID, "b")
	f.events.reset()

	err := f.columns.Remove(ctx, col.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonEmptyColumn)
	var nonEmpty *NonEmptyColumnError
	require.True(t, errors.As(err, &nonEmpty))
	assert.Equal(t, 2, nonEmpty.Count)
	assert.Empty(t, f.events.types())

	require.NoError(t, f.cards.Remove(ctx, a.ID))
	require.NoError(t, f.cards.Remove(ctx, b.ID))
	require.NoError(t, f.columns.Remove(ctx, col.ID))

	assert.Equal(t, []string{"First", "Last"}, f.columnTitles(t))
	ev := f.events.last()
	assert.Equal(t, comm.ColumnDeleted, ev.Type)
	assert.Equal(t, col.ID, ev.Data.(comm.ColumnDeletedPayload).ColumnID)

	assert.ErrorIs(t, f.columns.Remove(ctx, col.ID), ErrNotFound)
}

func TestColumnGetAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.column(t, "Todo")
	done := f.column(t, "Done")
	f.card(t, todo.ID, "a")
	f.card(t, todo.ID, "b")
	f.card(t, done.ID, "c")

	got, err := f.columns.Get(ctx, todo.ID)
	require.NoError(t, err)
	require.Len(t, got.Cards, 2)
	assert.Equal(t, "a", got.Cards[0].Title)

	list, err := f.columns.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Todo", list[0].Title)
	assert.Len(t, list[0].Cards, 2)
	assert.Len(t, list[1].Cards, 1)

	_, err = f.columns.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
