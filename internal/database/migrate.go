package database

import (
	"database/sql"
	"fmt"
	"log"
)

// SchemaTooNewError is returned when an archive was written by a newer
// infradigest than the running binary knows how to read.
type SchemaTooNewError struct {
	Found     int
	Supported int
}

func (e *SchemaTooNewError) Error() string {
	return fmt.Sprintf("archive schema version %d is newer than supported version %d; upgrade infradigest", e.Found, e.Supported)
}

func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// SchemaVersion returns the archive's applied migration version.
func (db *DB) SchemaVersion() (int, error) {
	return getSchemaVersion(db.conn)
}

// migrate applies every migration above the archive's user_version. An
// archive stamped beyond the known migrations is left untouched.
func migrate(conn *sql.DB) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}

	latest := latestVersion()
	if current > latest {
		return &SchemaTooNewError{Found: current, Supported: latest}
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		log.Printf("Applying archive migration %d: %s", m.Version, m.Description)
		if err := apply(conn, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(conn *sql.DB, m Migration) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	if err := m.Up(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}

	// user_version is stamped outside the transaction; the DDL uses
	// IF NOT EXISTS so an interrupted step re-runs cleanly.
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("setting version %d: %w", m.Version, err)
	}
	return nil
}
