// Package compose groups scored items into the six digest sections and
// writes the rule-based pulse and outlook paragraphs.
package compose

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/TobiSchelling/infradigest/internal/config"
	"github.com/TobiSchelling/infradigest/internal/model"
	"github.com/TobiSchelling/infradigest/internal/section"
)

const (
	quietDay = "A quiet day across global infrastructure: no significant developments met our relevance threshold. Check back tomorrow."

	outlookBroad = "Broad coverage across all six domains today suggests an active policy week ahead. " +
		"Monitor multilateral announcements and national budget developments for signals on infrastructure spending trajectories. " +
		"Subscribe via RSS or bookmark this page for tomorrow's edition."
	outlookModerate = "Moderate activity across infrastructure policy channels. " +
		"Watch for follow-up developments on today's high-significance items, particularly any cross-border procurement or financing announcements. " +
		"Tomorrow's digest will track continuations."
	outlookLight = "A lighter day in infrastructure intelligence. " +
		"Policy cycles often see surges around fiscal year milestones, parliamentary sessions, and multilateral convenings. " +
		"Check back tomorrow for updated coverage."
)

const (
	maxHeadlines = 2
	maxCoverage  = 4
)

// Composer builds digests from categorized items.
type Composer struct {
	cfg *config.Config
}

// NewComposer creates a new digest composer.
func NewComposer(cfg *config.Config) *Composer {
	return &Composer{cfg: cfg}
}

// Build groups items by section, orders and caps each section, and fills in
// the pulse and outlook. The digest always holds all six sections in
// canonical order, empty or not. stats.Published is set from the result.
func (c *Composer) Build(items []model.ScoredItem, now time.Time, stats model.RunStats) *model.Digest {
	grouped := make(map[section.Category][]model.ScoredItem)
	for _, it := range items {
		grouped[it.Category] = append(grouped[it.Category], it)
	}

	limit := c.cfg.Digest.MaxItemsPerSection
	d := &model.Digest{GeneratedAt: now.UTC()}
	for _, id := range section.All() {
		sc := c.cfg.SectionConfig(id)
		list := grouped[id]
		SortItems(list)
		if limit > 0 && len(list) > limit {
			list = list[:limit]
		}
		d.Sections = append(d.Sections, model.SectionDigest{
			Section:     id,
			Title:       sc.Title,
			Description: sc.Description,
			Items:       list,
		})
	}

	d.Pulse = Pulse(d)
	d.Outlook = Outlook(d)
	stats.Published = d.TotalItems()
	d.Stats = stats

	log.Printf("Digest composed: %d items across %d sections", stats.Published, len(d.ActiveSections()))
	return d
}

// SortItems orders items by score descending, then newest first with unknown
// dates last, then first-seen order.
func SortItems(items []model.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Published.IsZero() != b.Published.IsZero() {
			return !a.Published.IsZero()
		}
		if !a.Published.Equal(b.Published) {
			return a.Published.After(b.Published)
		}
		return a.Seq < b.Seq
	})
}

// Pulse summarises what today's digest contains.
func Pulse(d *model.Digest) string {
	total := d.TotalItems()
	if total == 0 {
		return quietDay
	}

	active := d.ActiveSections()
	parts := []string{fmt.Sprintf("Today's digest tracks %d developments across %d domains.", total, len(active))}

	var high []string
	for _, s := range d.Sections {
		for _, it := range s.Items {
			if it.Significance == model.SignificanceHigh {
				high = append(high, it.Title)
			}
		}
	}
	switch {
	case len(high) == 1:
		parts = append(parts, fmt.Sprintf("Top story: %s.", high[0]))
	case len(high) > 1:
		parts = append(parts, fmt.Sprintf("Key developments include: %s.", strings.Join(high[:maxHeadlines], "; ")))
	}

	var coverage []string
	for _, s := range active {
		if len(coverage) == maxCoverage {
			break
		}
		coverage = append(coverage, s.Section.Label())
	}
	if len(coverage) == 1 {
		parts = append(parts, fmt.Sprintf("Coverage focuses on %s.", coverage[0]))
	} else {
		last := len(coverage) - 1
		parts = append(parts, fmt.Sprintf("Coverage spans %s, and %s.", strings.Join(coverage[:last], ", "), coverage[last]))
	}

	return strings.Join(parts, " ")
}

// Outlook returns a forward-looking note keyed on how many sections are
// active.
func Outlook(d *model.Digest) string {
	switch n := len(d.ActiveSections()); {
	case n >= 5:
		return outlookBroad
	case n >= 3:
		return outlookModerate
	default:
		return outlookLight
	}
}
