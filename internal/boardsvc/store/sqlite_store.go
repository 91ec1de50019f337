package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/boardsvc/position"
)

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore keeps the board in an embedded SQLite database. The pool is
// expected to hold a single connection, which serializes transactions, so the
// lock methods have nothing to do.
type SQLiteStore struct {
	sqliteTx
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{sqliteTx: sqliteTx{q: db}, db: db}
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	if err := fn(ctx, &sqliteTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translateSQLiteErr(err))
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteTx struct {
	q sqlQuerier
}

func (t *sqliteTx) LockBoard(ctx context.Context) error { return nil }

func (t *sqliteTx) LockColumns(ctx context.Context, ids ...string) error { return nil }

const sqliteColumnFields = `id, title, position, color, created_at, updated_at`

func scanSQLiteColumn(row interface{ Scan(...any) error }) (*models.Column, error) {
	var (
		c                models.Column
		color            sql.NullString
		created, updated int64
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Order, &color, &created, &updated); err != nil {
		return nil, err
	}
	if color.Valid {
		c.Color = &color.String
	}
	c.CreatedAt = time.UnixMilli(created).UTC()
	c.UpdatedAt = time.UnixMilli(updated).UTC()
	c.Cards = []models.Card{}
	return &c, nil
}

func (t *sqliteTx) GetColumn(ctx context.Context, id string) (*models.Column, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+sqliteColumnFields+` FROM board_columns WHERE id = ?`, id)
	c, err := scanSQLiteColumn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrColumnNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get column %s: %w", id, err)
	}
	return c, nil
}

func (t *sqliteTx) FindColumnByTitle(ctx context.Context, title string) (*models.Column, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+sqliteColumnFields+` FROM board_columns WHERE title = ?`, title)
	c, err := scanSQLiteColumn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrColumnNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find column by title: %w", err)
	}
	return c, nil
}

func (t *sqliteTx) MaxColumnOrder(ctx context.Context) (int, error) {
	var max int
	err := t.q.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) FROM board_columns`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max column position: %w", err)
	}
	return max, nil
}

func (t *sqliteTx) InsertColumn(ctx context.Context, c *models.Column) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO board_columns (id, title, position, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Order, c.Color, c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert column: %w", translateSQLiteErr(err))
	}
	return nil
}

func (t *sqliteTx) UpdateColumn(ctx context.Context, c *models.Column) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE board_columns SET title = ?, position = ?, color = ?, updated_at = ?
		WHERE id = ?`,
		c.Title, c.Order, c.Color, c.UpdatedAt.UnixMilli(), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update column: %w", translateSQLiteErr(err))
	}
	return expectOneRow(res, ErrColumnNotFound)
}

func (t *sqliteTx) DeleteColumn(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM board_columns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete column: %w", translateSQLiteErr(err))
	}
	return expectOneRow(res, ErrColumnNotFound)
}

func (t *sqliteTx) ShiftColumns(ctx context.Context, s position.Shift) error {
	if s.Empty() {
		return nil
	}
	_, err := t.q.ExecContext(ctx, `
		UPDATE board_columns SET position = position + ?
		WHERE position >= ? AND position <= ?`,
		s.Delta, s.From, s.To)
	if err != nil {
		return fmt.Errorf("failed to shift columns: %w", translateSQLiteErr(err))
	}
	return nil
}

func (t *sqliteTx) ListColumns(ctx context.Context) ([]*models.Column, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT `+sqliteColumnFields+` FROM board_columns ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	defer rows.Close()

	columns := []*models.Column{}
	for rows.Next() {
		c, err := scanSQLiteColumn(rows)
		if err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (t *sqliteTx) CountCards(ctx context.Context, columnID string) (int, error) {
	var n int
	err := t.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE column_id = ?`, columnID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

const sqliteCardFields = `id, title, content, due_date, priority, column_id, position, created_at, updated_at`

func scanSQLiteCard(row interface{ Scan(...any) error }) (*models.Card, error) {
	var (
		c                models.Card
		content          sql.NullString
		due              sql.NullInt64
		priority         sql.NullString
		created, updated int64
	)
	err := row.Scan(&c.ID, &c.Title, &content, &due, &priority, &c.ColumnID, &c.Order, &created, &updated)
	if err != nil {
		return nil, err
	}
	if content.Valid {
		c.Content = &content.String
	}
	if due.Valid {
		d := time.UnixMilli(due.Int64).UTC()
		c.DueDate = &d
	}
	if priority.Valid {
		p := models.Priority(priority.String)
		c.Priority = &p
	}
	c.CreatedAt = time.UnixMilli(created).UTC()
	c.UpdatedAt = time.UnixMilli(updated).UTC()
	return &c, nil
}

func (t *sqliteTx) GetCard(ctx context.Context, id string) (*models.Card, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+sqliteCardFields+` FROM cards WHERE id = ?`, id)
	c, err := scanSQLiteCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return c, nil
}

func (t *sqliteTx) MaxCardOrder(ctx context.Context, columnID string) (int, error) {
	var max int
	err := t.q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM cards WHERE column_id = ?`, columnID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max card position: %w", err)
	}
	return max, nil
}

func sqliteCardArgs(c *models.Card) (due, priority any) {
	if c.DueDate != nil {
		due = c.DueDate.UnixMilli()
	}
	if c.Priority != nil {
		priority = string(*c.Priority)
	}
	return due, priority
}

func (t *sqliteTx) InsertCard(ctx context.Context, c *models.Card) error {
	due, priority := sqliteCardArgs(c)
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO cards (id, title, content, due_date, priority, column_id, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Content, due, priority, c.ColumnID, c.Order, c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", translateSQLiteErr(err))
	}
	return nil
}

func (t *sqliteTx) UpdateCard(ctx context.Context, c *models.Card) error {
	due, priority := sqliteCardArgs(c)
	res, err := t.q.ExecContext(ctx, `
		UPDATE cards
		SET title = ?, content = ?, due_date = ?, priority = ?, column_id = ?, position = ?, updated_at = ?
		WHERE id = ?`,
		c.Title, c.Content, due, priority, c.ColumnID, c.Order, c.UpdatedAt.UnixMilli(), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", translateSQLiteErr(err))
	}
	return expectOneRow(res, ErrCardNotFound)
}

func (t *sqliteTx) DeleteCard(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", translateSQLiteErr(err))
	}
	return expectOneRow(res, ErrCardNotFound)
}

func (t *sqliteTx) ShiftCards(ctx context.Context, columnID string, s position.Shift) error {
	if s.Empty() {
		return nil
	}
	_, err := t.q.ExecContext(ctx, `
		UPDATE cards SET position = position + ?
		WHERE column_id = ? AND position >= ? AND position <= ?`,
		s.Delta, columnID, s.From, s.To)
	if err != nil {
		return fmt.Errorf("failed to shift cards: %w", translateSQLiteErr(err))
	}
	return nil
}

func (t *sqliteTx) listCards(ctx context.Context, query string, args ...any) ([]*models.Card, error) {
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := []*models.Card{}
	for rows.Next() {
		c, err := scanSQLiteCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (t *sqliteTx) ListCards(ctx context.Context) ([]*models.Card, error) {
	return t.listCards(ctx, `SELECT `+sqliteCardFields+` FROM cards ORDER BY column_id, position`)
}

func (t *sqliteTx) ListCardsByColumn(ctx context.Context, columnID string) ([]*models.Card, error) {
	return t.listCards(ctx,
		`SELECT `+sqliteCardFields+` FROM cards WHERE column_id = ? ORDER BY position`, columnID)
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func translateSQLiteErr(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%w: %v", ErrTitleExists, err)
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}
