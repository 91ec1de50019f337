// Package store is the storage collaborator of the board services. Each
// backend offers transactions, unique lookups and bulk conditional position
// shifts; the ordering services drive them through the Tx interface.
package store

import (
	"context"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/boardsvc/position"
)

// Tx is the set of row operations available inside one atomic unit.
type Tx interface {
	// LockBoard serializes mutations of the column ordering scope.
	LockBoard(ctx context.Context) error
	// LockColumns serializes mutations of the card ordering scope of each column.
	LockColumns(ctx context.Context, ids ...string) error

	GetColumn(ctx context.Context, id string) (*models.Column, error)
	FindColumnByTitle(ctx context.Context, title string) (*models.Column, error)
	MaxColumnOrder(ctx context.Context) (int, error)
	InsertColumn(ctx context.Context, c *models.Column) error
	UpdateColumn(ctx context.Context, c *models.Column) error
	DeleteColumn(ctx context.Context, id string) error
	ShiftColumns(ctx context.Context, s position.Shift) error
	ListColumns(ctx context.Context) ([]*models.Column, error)

	CountCards(ctx context.Context, columnID string) (int, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	MaxCardOrder(ctx context.Context, columnID string) (int, error)
	InsertCard(ctx context.Context, c *models.Card) error
	UpdateCard(ctx context.Context, c *models.Card) error
	DeleteCard(ctx context.Context, id string) error
	ShiftCards(ctx context.Context, columnID string, s position.Shift) error
	ListCards(ctx context.Context) ([]*models.Card, error)
	ListCardsByColumn(ctx context.Context, columnID string) ([]*models.Card, error)
}

// Store runs reads directly and mutations through WithTx. fn's changes are
// committed when it returns nil and rolled back otherwise.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
