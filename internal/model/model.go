// Package model holds the values that flow through a digest run.
package model

import (
	"time"

	"github.com/TobiSchelling/infradigest/internal/section"
)

// Item is a single headline collected from a source.
type Item struct {
	Title     string    `json:"title"`
	Link      string    `json:"url"`
	Published time.Time `json:"published,omitzero"`
	Source    string    `json:"source"`
	Snippet   string    `json:"summary,omitempty"`

	// Copied from the source so later stages need no lookup.
	Tier            int              `json:"tier"`
	DefaultCategory section.Category `json:"-"`
}

// Significance levels.
const (
	SignificanceHigh   = "high"
	SignificanceMedium = "medium"
	SignificanceLow    = "low"
)

// ScoredItem is an Item with its relevance score and assigned section.
type ScoredItem struct {
	Item
	Score         int              `json:"relevance_score"`
	Category      section.Category `json:"category"`
	CategoryScore int              `json:"category_score"`
	Significance  string           `json:"significance"`
	// Seq is the first-seen position, used for stable ordering.
	Seq int `json:"-"`
}

// SectionDigest is the ordered item list of one section.
type SectionDigest struct {
	Section     section.Category `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Items       []ScoredItem     `json:"items"`
}

// RunStats counts items through the pipeline.
type RunStats struct {
	Sources       int `json:"sources"`
	FailedSources int `json:"failed_sources"`
	RawItems      int `json:"raw_items"`
	Scored        int `json:"filtered"`
	Unique        int `json:"unique"`
	Published     int `json:"published"`
}

// Digest is the categorized output of one run.
type Digest struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Pulse       string          `json:"pulse"`
	Outlook     string          `json:"outlook"`
	Sections    []SectionDigest `json:"sections"`
	Stats       RunStats        `json:"stats"`
}

// TotalItems returns the number of items across all sections.
func (d *Digest) TotalItems() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Items)
	}
	return n
}

// ActiveSections returns the sections that have at least one item.
func (d *Digest) ActiveSections() []SectionDigest {
	var active []SectionDigest
	for _, s := range d.Sections {
		if len(s.Items) > 0 {
			active = append(active, s)
		}
	}
	return active
}
