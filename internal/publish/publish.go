// Package publish writes the rendered page and the JSON archive to disk.
// Deploying the written page is left to whatever runs infradigest.
package publish

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/TobiSchelling/infradigest/internal/model"
)

const archiveDateLayout = "2006-01-02"

// WritePage writes the page to path atomically: the bytes go to a temp file
// in the same directory which is then renamed over the target. A failure
// leaves any previous page untouched.
func WritePage(path string, page []byte) error {
	if err := writeAtomic(path, page); err != nil {
		return fmt.Errorf("publishing page: %w", err)
	}
	log.Printf("Published %s (%d bytes)", path, len(page))
	return nil
}

// archiveRecord is the JSON layout of one archived digest.
type archiveRecord struct {
	Date        string                `json:"date"`
	GeneratedAt string                `json:"generated_at"`
	Pulse       string                `json:"pulse"`
	Outlook     string                `json:"outlook"`
	Sections    []model.SectionDigest `json:"sections"`
	Stats       model.RunStats        `json:"stats"`
}

// ArchivePath returns the archive file path for the digest's date.
func ArchivePath(dir string, d *model.Digest) string {
	return filepath.Join(dir, "digest-"+d.GeneratedAt.UTC().Format(archiveDateLayout)+".json")
}

// WriteArchive stores the digest as digest-YYYY-MM-DD.json in dir. A second
// run on the same day replaces the earlier file.
func WriteArchive(dir string, d *model.Digest) (string, error) {
	rec := archiveRecord{
		Date:        d.GeneratedAt.UTC().Format(archiveDateLayout),
		GeneratedAt: d.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Pulse:       d.Pulse,
		Outlook:     d.Outlook,
		Sections:    d.Sections,
		Stats:       d.Stats,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding archive: %w", err)
	}

	path := ArchivePath(dir, d)
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}
	return path, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
