package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/TobiSchelling/infradigest/internal/model"
)

// InsertRun archives a published digest together with the sources that
// failed during the run. Everything is written in one transaction.
func (db *DB) InsertRun(d *model.Digest, failures []SourceFailure) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	st := d.Stats
	result, err := tx.Exec(
		`INSERT INTO runs
		(run_date, generated_at, sources, failed_sources, raw_items, filtered, unique_items, published, pulse, outlook)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		RunDate(d.GeneratedAt), d.GeneratedAt.UTC().Format(time.RFC3339),
		st.Sources, st.FailedSources, st.RawItems, st.Scored, st.Unique, st.Published,
		d.Pulse, d.Outlook,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, s := range d.Sections {
		for i, it := range s.Items {
			var published *string
			if !it.Published.IsZero() {
				p := it.Published.UTC().Format(time.RFC3339)
				published = &p
			}
			_, err := tx.Exec(
				`INSERT INTO run_items
				(run_id, section, position, title, url, source, published_at, relevance_score, category_score, significance)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, string(s.Section), i+1, it.Title, it.Link, it.Source, published,
				it.Score, it.CategoryScore, it.Significance,
			)
			if err != nil {
				return 0, fmt.Errorf("inserting run item: %w", err)
			}
		}
	}

	for _, f := range failures {
		if _, err := tx.Exec(
			"INSERT INTO source_failures (run_id, source, url, error) VALUES (?, ?, ?, ?)",
			runID, f.Source, f.URL, f.Error,
		); err != nil {
			return 0, fmt.Errorf("inserting source failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

const runColumns = `id, run_date, generated_at, sources, failed_sources, raw_items, filtered, unique_items, published, pulse, outlook`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.RunDate, &r.GeneratedAt, &r.Sources, &r.FailedSources,
		&r.RawItems, &r.Filtered, &r.Unique, &r.Published, &r.Pulse, &r.Outlook)
	return r, err
}

// GetRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (db *DB) GetRuns(limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY generated_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetLastRun returns the most recent run, or nil when none exist.
func (db *DB) GetLastRun() (*Run, error) {
	r, err := scanRun(db.conn.QueryRow("SELECT " + runColumns + " FROM runs ORDER BY generated_at DESC, id DESC LIMIT 1"))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GetRunItems returns the items of a run in section and position order.
func (db *DB) GetRunItems(runID int64) ([]RunItem, error) {
	rows, err := db.conn.Query(
		`SELECT run_id, section, position, title, url, source, published_at, relevance_score, category_score, significance
		FROM run_items WHERE run_id = ? ORDER BY rowid`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RunItem
	for rows.Next() {
		var it RunItem
		if err := rows.Scan(&it.RunID, &it.Section, &it.Position, &it.Title, &it.URL,
			&it.Source, &it.PublishedAt, &it.RelevanceScore, &it.CategoryScore, &it.Significance); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetSourceFailures returns the sources that failed during a run.
func (db *DB) GetSourceFailures(runID int64) ([]SourceFailure, error) {
	rows, err := db.conn.Query(
		"SELECT source, COALESCE(url, ''), error FROM source_failures WHERE run_id = ? ORDER BY rowid", runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []SourceFailure
	for rows.Next() {
		var f SourceFailure
		if err := rows.Scan(&f.Source, &f.URL, &f.Error); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// GetStats returns aggregate archive statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest any
	}{
		{"SELECT COUNT(*) FROM runs", &s.Runs},
		{"SELECT COUNT(DISTINCT run_date) FROM runs", &s.Days},
		{"SELECT COUNT(*) FROM run_items", &s.PublishedItems},
		{"SELECT COUNT(DISTINCT url) FROM run_items", &s.DistinctURLs},
		{"SELECT COUNT(*) FROM source_failures", &s.SourceFailures},
		{"SELECT COALESCE(MAX(run_date), '') FROM runs", &s.LastRunDate},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
