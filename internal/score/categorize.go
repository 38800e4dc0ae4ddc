package score

import (
	"log"

	"github.com/TobiSchelling/infradigest/internal/model"
	"github.com/TobiSchelling/infradigest/internal/section"
)

// Significance thresholds on relevance plus section score.
const (
	highThreshold   = 10
	mediumThreshold = 5
)

// Categorize assigns every item to exactly one section and sets its
// significance. Items are modified in place.
func (s *Scorer) Categorize(items []model.ScoredItem) {
	counts := make(map[section.Category]int)
	for i := range items {
		it := &items[i]
		it.Category, it.CategoryScore = s.rules.Categorize(Text(it.Item), it.Source, it.DefaultCategory)
		it.Significance = Significance(it.Score+it.CategoryScore, it.Tier)
		counts[it.Category]++
	}
	for _, c := range section.All() {
		if counts[c] > 0 {
			log.Printf("Section %s: %d items", c, counts[c])
		}
	}
}

// Significance maps a combined score and source tier to a badge level.
func Significance(total, tier int) string {
	switch {
	case total >= highThreshold || tier == 1:
		return model.SignificanceHigh
	case total >= mediumThreshold:
		return model.SignificanceMedium
	default:
		return model.SignificanceLow
	}
}
