package database

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
)

// ErrConflict is returned when a write hits a unique constraint. Callers
// treat it as "row already exists" and must not conflate it with other
// storage failures.
var ErrConflict = errors.New("unique constraint violated")

type DB struct {
	*sql.DB
}

func NewConnection(path string) (*DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; serializing through one connection
	// avoids SQLITE_BUSY under concurrent upserts.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// SQLite extended result codes for unique constraint violations.
const (
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
)

// mapConstraintError converts unique-constraint violations to ErrConflict
// and passes every other error through unchanged.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}

	return err
}
