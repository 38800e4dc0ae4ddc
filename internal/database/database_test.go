package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/TobiSchelling/infradigest/internal/model"
	"github.com/TobiSchelling/infradigest/internal/section"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testDigest(at time.Time) *model.Digest {
	return &model.Digest{
		GeneratedAt: at,
		Pulse:       "Today's digest tracks 2 developments across 1 domains.",
		Outlook:     "A lighter day.",
		Sections: []model.SectionDigest{
			{Section: section.MultilateralFinance},
			{Section: section.CanadaWatch, Items: []model.ScoredItem{
				{
					Item:         model.Item{Title: "Ontario deal", Link: "https://a.example.com/1", Source: "Globe", Published: at.Add(-time.Hour)},
					Score:        6,
					Significance: model.SignificanceMedium,
				},
				{
					Item:  model.Item{Title: "Undated note", Link: "https://b.example.com/2", Source: "Wire"},
					Score: 3,
				},
			}},
		},
		Stats: model.RunStats{Sources: 5, FailedSources: 1, RawItems: 40, Scored: 9, Unique: 7, Published: 2},
	}
}

func TestInsertRun(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2026, 2, 6, 7, 0, 0, 0, time.UTC)

	id, err := db.InsertRun(testDigest(at), []SourceFailure{{Source: "Dead", URL: "https://dead.example.com", Error: "HTTP 500"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero run ID")
	}

	run, err := db.GetLastRun()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run == nil || run.ID != id {
		t.Fatalf("expected last run %d, got %+v", id, run)
	}
	if run.RunDate != "2026-02-06" || run.Published != 2 || run.RawItems != 40 || run.Filtered != 9 {
		t.Errorf("unexpected run %+v", run)
	}

	items, err := db.GetRunItems(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Section != "canada_watch" || items[0].Position != 1 || items[0].RelevanceScore != 6 {
		t.Errorf("unexpected first item %+v", items[0])
	}
	if items[0].PublishedAt == nil {
		t.Error("expected published time for first item")
	}
	if items[1].PublishedAt != nil {
		t.Error("expected nil published time for undated item")
	}

	failures, err := db.GetSourceFailures(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(failures) != 1 || failures[0].Source != "Dead" {
		t.Errorf("unexpected failures %+v", failures)
	}
}

func TestGetLastRunEmpty(t *testing.T) {
	db := openTestDB(t)
	run, err := db.GetLastRun()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != nil {
		t.Errorf("expected nil run, got %+v", run)
	}
}

func TestGetRuns(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 2, 6, 7, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := db.InsertRun(testDigest(base.AddDate(0, 0, i)), nil); err != nil {
			t.Fatalf("insert run %d: %v", i, err)
		}
	}

	runs, err := db.GetRuns(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunDate != "2026-02-08" || runs[1].RunDate != "2026-02-07" {
		t.Errorf("expected newest first, got %s, %s", runs[0].RunDate, runs[1].RunDate)
	}

	all, _ := db.GetRuns(0)
	if len(all) != 3 {
		t.Errorf("expected 3 runs, got %d", len(all))
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2026, 2, 6, 7, 0, 0, 0, time.UTC)
	db.InsertRun(testDigest(at), []SourceFailure{{Source: "Dead", Error: "timeout"}})
	db.InsertRun(testDigest(at.Add(2*time.Hour)), nil)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Runs != 2 {
		t.Errorf("expected 2 runs, got %d", stats.Runs)
	}
	if stats.Days != 1 {
		t.Errorf("expected 1 day, got %d", stats.Days)
	}
	if stats.PublishedItems != 4 || stats.DistinctURLs != 2 {
		t.Errorf("expected 4 items and 2 urls, got %d and %d", stats.PublishedItems, stats.DistinctURLs)
	}
	if stats.SourceFailures != 1 {
		t.Errorf("expected 1 failure, got %d", stats.SourceFailures)
	}
	if stats.LastRunDate != "2026-02-06" {
		t.Errorf("unexpected last run date %q", stats.LastRunDate)
	}
}

func TestFormatRunDate(t *testing.T) {
	if got := FormatRunDate("2026-02-06"); got != "Feb 06, 2026" {
		t.Errorf("expected Feb 06, 2026, got %q", got)
	}
	if got := FormatRunDate("garbage"); got != "garbage" {
		t.Errorf("expected input back, got %q", got)
	}
	if got := RunDate(time.Date(2026, 2, 6, 23, 30, 0, 0, time.FixedZone("X", -5*3600))); got != "2026-02-07" {
		t.Errorf("expected UTC date, got %q", got)
	}
}
