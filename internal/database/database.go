// Package database keeps the sqlite run archive: one row per published
// digest, its items and the sources that failed.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// pragmas run on every new connection before migrating.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// DB is the run archive.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the archive at dbPath and brings its schema up to
// date.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	// one writer per run; a single connection keeps the pragmas in effect
	conn.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the archive.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the archive file path.
func (db *DB) Path() string {
	return db.path
}
