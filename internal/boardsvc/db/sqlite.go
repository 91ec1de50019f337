package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/pressly/goose/v3/database"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) the database file at path and
// applies migrations. Pragmas go through the DSN so they hold for every
// pooled connection.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection keeps transactions serialized
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := migrate(ctx, database.DialectSQLite3, db, "migrations/sqlite"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run sqlite migrations: %w", err)
	}

	return db, nil
}
