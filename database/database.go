package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/joehsn/formify/config"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrDuplicateEmail = errors.New("email already registered")
)

func Open(cfg config.Config) (*sql.DB, error) {
	return OpenDSN(cfg.DBUrl)
}

// OpenDSN opens the SQLite database at dsn with foreign keys enforced and
// brings its schema up to date. In-memory databases are pinned to a single
// connection so every statement sees the same data.
func OpenDSN(dsn string) (db *sql.DB, err error) {
	db, err = sql.Open("sqlite3", withParams(dsn))
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	// db tuning options
	if isMemory(dsn) {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(2 * time.Hour)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	if err = Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func withParams(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == code
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func now() time.Time {
	return time.Now().UTC()
}
