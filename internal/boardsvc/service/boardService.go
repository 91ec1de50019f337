package service

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/boardsvc/store"
	"github.com/avvvet/kanban-services/internal/comm"
)

// BoardService reads the whole board for clients that need a full sync.
type BoardService struct {
	store    store.Store
	notifier Notifier
}

func NewBoardService(store store.Store, notifier Notifier) *BoardService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &BoardService{store: store, notifier: notifier}
}

// State returns all columns in order, each with its cards in order.
func (s *BoardService) State(ctx context.Context) (*models.Board, error) {
	return readBoard(ctx, s.store)
}

// Resync broadcasts the current board to every subscriber and returns it.
func (s *BoardService) Resync(ctx context.Context) (*models.Board, error) {
	board, err := readBoard(ctx, s.store)
	if err != nil {
		return nil, err
	}

	log.WithField("columns", len(board.Columns)).Info("board state broadcast")
	notify(s.notifier, comm.BoardStatePayload{Columns: board.Columns})
	return board, nil
}

// readBoard reads columns and cards inside one transaction so the two
// lists agree with each other.
func readBoard(ctx context.Context, s store.Store) (*models.Board, error) {
	var board *models.Board
	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		columns, err := tx.ListColumns(ctx)
		if err != nil {
			return err
		}
		cards, err := tx.ListCards(ctx)
		if err != nil {
			return err
		}
		board = assembleBoard(columns, cards)
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return board, nil
}
