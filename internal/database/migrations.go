package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "runs and published items",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_date TEXT NOT NULL,
    generated_at TEXT NOT NULL,
    sources INTEGER DEFAULT 0,
    failed_sources INTEGER DEFAULT 0,
    raw_items INTEGER DEFAULT 0,
    filtered INTEGER DEFAULT 0,
    unique_items INTEGER DEFAULT 0,
    published INTEGER DEFAULT 0,
    pulse TEXT NOT NULL DEFAULT '',
    outlook TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_items (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    section TEXT NOT NULL,
    position INTEGER NOT NULL,
    title TEXT NOT NULL,
    url TEXT NOT NULL,
    source TEXT,
    published_at TEXT,
    relevance_score INTEGER DEFAULT 0,
    category_score INTEGER DEFAULT 0,
    significance TEXT,
    PRIMARY KEY (run_id, section, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(run_date);
CREATE INDEX IF NOT EXISTS idx_run_items_url ON run_items(url);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "per-run source failures",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS source_failures (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    source TEXT NOT NULL,
    url TEXT,
    error TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_source_failures_run ON source_failures(run_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
