// Package db is the SQLite snapshot store shared by the pull and push
// pipelines.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports a snapshot row that does not exist.
var ErrNotFound = errors.New("not found")

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// queryer adds row-returning statements to execer.
type queryer interface {
	execer
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

// connPragmas run on the snapshot connection right after it opens.
var connPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// Open opens the SQLite file at path, creating it if absent. The pool is
// capped at one connection: pull workers share it and the pragmas above are
// per-connection state.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)

	for _, pragma := range connPragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return nil, errors.Join(fmt.Errorf("applying %q: %w", pragma, err), conn.Close())
		}
	}
	return conn, nil
}

// OpenSnapshot creates dir if needed, opens the database at dbPath and
// brings its schema up to date.
func OpenSnapshot(dir, dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	if filepath.Dir(dbPath) != filepath.Clean(dir) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	conn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := Initialize(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
