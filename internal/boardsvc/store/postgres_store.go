package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/boardsvc/position"
)

// boardLockKey is the advisory lock key guarding the column ordering scope.
const boardLockKey int64 = 0x6b616e62616e

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	postgresTx
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{postgresTx: postgresTx{q: db}, db: db}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	if err := fn(ctx, &postgresTx{q: tx, locking: true}); err != nil {
		return err
	}

	// deferred position constraints are checked here
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translatePgErr(err))
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

type postgresTx struct {
	q pgQuerier
	// locking enables the scope locks and FOR UPDATE column reads inside a
	// transaction. Cards are guarded by the lock of their column.
	locking bool
}

func (t *postgresTx) forUpdate() string {
	if t.locking {
		return " FOR UPDATE"
	}
	return ""
}

func (t *postgresTx) LockBoard(ctx context.Context) error {
	if !t.locking {
		return nil
	}
	if _, err := t.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, boardLockKey); err != nil {
		return fmt.Errorf("failed to lock board: %w", translatePgErr(err))
	}
	return nil
}

func (t *postgresTx) LockColumns(ctx context.Context, ids ...string) error {
	if !t.locking || len(ids) == 0 {
		return nil
	}
	// card scopes share the board lock so column reorders never interleave
	if _, err := t.q.Exec(ctx, `SELECT pg_advisory_xact_lock_shared($1)`, boardLockKey); err != nil {
		return fmt.Errorf("failed to lock board: %w", translatePgErr(err))
	}
	_, err := t.q.Exec(ctx,
		`SELECT id FROM board_columns WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return fmt.Errorf("failed to lock columns: %w", translatePgErr(err))
	}
	return nil
}

const pgColumnFields = `id, title, position, color, created_at, updated_at`

func scanPgColumn(row pgx.Row) (*models.Column, error) {
	var c models.Column
	if err := row.Scan(&c.ID, &c.Title, &c.Order, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.Cards = []models.Card{}
	return &c, nil
}

func (t *postgresTx) GetColumn(ctx context.Context, id string) (*models.Column, error) {
	row := t.q.QueryRow(ctx, `SELECT `+pgColumnFields+` FROM board_columns WHERE id = $1`+t.forUpdate(), id)
	c, err := scanPgColumn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrColumnNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get column %s: %w", id, translatePgErr(err))
	}
	return c, nil
}

func (t *postgresTx) FindColumnByTitle(ctx context.Context, title string) (*models.Column, error) {
	row := t.q.QueryRow(ctx, `SELECT `+pgColumnFields+` FROM board_columns WHERE title = $1`, title)
	c, err := scanPgColumn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrColumnNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find column by title: %w", translatePgErr(err))
	}
	return c, nil
}

func (t *postgresTx) MaxColumnOrder(ctx context.Context) (int, error) {
	var max int
	if err := t.q.QueryRow(ctx, `SELECT COALESCE(MAX(position), 0) FROM board_columns`).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to read max column position: %w", translatePgErr(err))
	}
	return max, nil
}

func (t *postgresTx) InsertColumn(ctx context.Context, c *models.Column) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO board_columns (id, title, position, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Title, c.Order, c.Color, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert column: %w", translatePgErr(err))
	}
	return nil
}

func (t *postgresTx) UpdateColumn(ctx context.Context, c *models.Column) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE board_columns SET title = $1, position = $2, color = $3, updated_at = $4
		WHERE id = $5`,
		c.Title, c.Order, c.Color, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update column: %w", translatePgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrColumnNotFound
	}
	return nil
}

func (t *postgresTx) DeleteColumn(ctx context.Context, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM board_columns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete column: %w", translatePgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrColumnNotFound
	}
	return nil
}

func (t *postgresTx) ShiftColumns(ctx context.Context, s position.Shift) error {
	if s.Empty() {
		return nil
	}
	_, err := t.q.Exec(ctx, `
		UPDATE board_columns SET position = position + $1
		WHERE position BETWEEN $2 AND $3`,
		s.Delta, s.From, s.To)
	if err != nil {
		return fmt.Errorf("failed to shift columns: %w", translatePgErr(err))
	}
	return nil
}

func (t *postgresTx) ListColumns(ctx context.Context) ([]*models.Column, error) {
	rows, err := t.q.Query(ctx, `SELECT `+pgColumnFields+` FROM board_columns ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", translatePgErr(err))
	}
	defer rows.Close()

	columns := []*models.Column{}
	for rows.Next() {
		c, err := scanPgColumn(rows)
		if err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (t *postgresTx) CountCards(ctx context.Context, columnID string) (int, error) {
	var n int
	if err := t.q.QueryRow(ctx, `SELECT COUNT(*) FROM cards WHERE column_id = $1`, columnID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", translatePgErr(err))
	}
	return n, nil
}

const pgCardFields = `id, title, content, due_date, priority::text, column_id, position, created_at, updated_at`

func scanPgCard(row pgx.Row) (*models.Card, error) {
	var (
		c        models.Card
		priority *string
	)
	err := row.Scan(&c.ID, &c.Title, &c.Content, &c.DueDate, &priority, &c.ColumnID, &c.Order, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if priority != nil {
		p := models.Priority(*priority)
		c.Priority = &p
	}
	if c.DueDate != nil {
		d := c.DueDate.UTC()
		c.DueDate = &d
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (t *postgresTx) GetCard(ctx context.Context, id string) (*models.Card, error) {
	row := t.q.QueryRow(ctx, `SELECT `+pgCardFields+` FROM cards WHERE id = $1`, id)
	c, err := scanPgCard(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, translatePgErr(err))
	}
	return c, nil
}

func (t *postgresTx) MaxCardOrder(ctx context.Context, columnID string) (int, error) {
	var max int
	err := t.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM cards WHERE column_id = $1`, columnID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max card position: %w", translatePgErr(err))
	}
	return max, nil
}

func pgPriority(c *models.Card) *string {
	if c.Priority == nil {
		return nil
	}
	p := string(*c.Priority)
	return &p
}

func (t *postgresTx) InsertCard(ctx context.Context, c *models.Card) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO cards (id, title, content, due_date, priority, column_id, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::card_priority, $6, $7, $8, $9)`,
		c.ID, c.Title, c.Content, c.DueDate, pgPriority(c), c.ColumnID, c.Order, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", translatePgErr(err))
	}
	return nil
}

func (t *postgresTx) UpdateCard(ctx context.Context, c *models.Card) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE cards
		SET title = $1, content = $2, due_date = $3, priority = $4::card_priority,
		    column_id = $5, position = $6, updated_at = $7
		WHERE id = $8`,
		c.Title, c.Content, c.DueDate, pgPriority(c), c.ColumnID, c.Order, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", translatePgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (t *postgresTx) DeleteCard(ctx context.Context, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", translatePgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (t *postgresTx) ShiftCards(ctx context.Context, columnID string, s position.Shift) error {
	if s.Empty() {
		return nil
	}
	_, err := t.q.Exec(ctx, `
		UPDATE cards SET position = position + $1
		WHERE column_id = $2 AND position BETWEEN $3 AND $4`,
		s.Delta, columnID, s.From, s.To)
	if err != nil {
		return fmt.Errorf("failed to shift cards: %w", translatePgErr(err))
	}
	return nil
}

func (t *postgresTx) listCards(ctx context.Context, query string, args ...any) ([]*models.Card, error) {
	rows, err := t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", translatePgErr(err))
	}
	defer rows.Close()

	cards := []*models.Card{}
	for rows.Next() {
		c, err := scanPgCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (t *postgresTx) ListCards(ctx context.Context) ([]*models.Card, error) {
	return t.listCards(ctx, `SELECT `+pgCardFields+` FROM cards ORDER BY column_id, position`)
}

func (t *postgresTx) ListCardsByColumn(ctx context.Context, columnID string) ([]*models.Card, error) {
	return t.listCards(ctx,
		`SELECT `+pgCardFields+` FROM cards WHERE column_id = $1 ORDER BY position`, columnID)
}

func translatePgErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		if pgErr.ConstraintName == "board_columns_title_key" {
			return fmt.Errorf("%w: %v", ErrTitleExists, err)
		}
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case "40001", "40P01":
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
