package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boarddb "github.com/avvvet/kanban-services/internal/boardsvc/db"
	"github.com/avvvet/kanban-services/internal/boardsvc/service"
	"github.com/avvvet/kanban-services/internal/boardsvc/store"
)

const board = `
columns:
  - title: Todo
    color: "#e2e8f0"
  - title: In Progress
  - title: Done
    color: "#0f0"
`

func newColumns(t *testing.T) *service.ColumnService {
	t.Helper()
	sqlDB, err := boarddb.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	s := store.NewSQLiteStore(sqlDB)
	t.Cleanup(func() { _ = s.Close() })
	return service.NewColumnService(s, nil)
}

func TestApplySeedsEmptyBoardInOrder(t *testing.T) {
	ctx := context.Background()
	columns := newColumns(t)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(board), 0o600))
	f, err := Load(path)
	require.NoError(t, err)

	n, err := Apply(ctx, columns, f)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := columns.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, want := range []string{"Todo", "In Progress", "Done"} {
		assert.Equal(t, want, list[i].Title)
		assert.Equal(t, i+1, list[i].Order)
	}
	require.NotNil(t, list[0].Color)
	assert.Equal(t, "#e2e8f0", *list[0].Color)
	assert.Nil(t, list[1].Color)

	// a second start leaves the board alone
	n, err = Apply(ctx, columns, f)
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err = columns.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestApplyStopsOnRejectedColumn(t *testing.T) {
	ctx := context.Background()
	columns := newColumns(t)

	f, err := Parse([]byte("columns:\n  - title: Todo\n  - title: Todo\n"))
	require.NoError(t, err)

	n, err := Apply(ctx, columns, f)
	assert.ErrorIs(t, err, service.ErrDuplicateTitle)
	assert.Equal(t, 1, n)
}

func TestParseRejectsMalformedFiles(t *testing.T) {
	_, err := Parse([]byte("columns: [title"))
	assert.Error(t, err)

	_, err = Parse([]byte("columns:\n  - color: \"#fff\"\n"))
	assert.ErrorContains(t, err, "no title")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
