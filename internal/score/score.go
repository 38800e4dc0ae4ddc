// Package score assigns keyword relevance scores, drops low scoring items
// and removes duplicates.
package score

import (
	"log"
	"strings"

	"github.com/TobiSchelling/infradigest/internal/config"
	"github.com/TobiSchelling/infradigest/internal/model"
	"github.com/TobiSchelling/infradigest/internal/section"
)

const (
	primaryWeight   = 2
	secondaryWeight = 1
)

// Scorer computes relevance scores from the section keyword lists and the
// global vocabulary.
type Scorer struct {
	rules      section.Rules
	primary    []string
	secondary  []string
	minScore   int
	tier1Boost int
	tier2Boost int
}

// NewScorer creates a scorer from config.
func NewScorer(cfg *config.Config) *Scorer {
	return &Scorer{
		rules:      cfg.Rules(),
		primary:    lowerAll(cfg.Keywords.Primary),
		secondary:  lowerAll(cfg.Keywords.Secondary),
		minScore:   cfg.Relevance.MinScore,
		tier1Boost: cfg.Relevance.Tier1Boost,
		tier2Boost: cfg.Relevance.Tier2Boost,
	}
}

// Text returns the lowercased text keywords are matched against.
func Text(item model.Item) string {
	return strings.ToLower(item.Title + " " + item.Snippet)
}

// Score returns the relevance score of a single item. It is never negative.
func (s *Scorer) Score(item model.Item) int {
	text := Text(item)
	score := s.rules.KeywordScore(text)

	for _, kw := range s.primary {
		if kw != "" && strings.Contains(text, kw) {
			score += primaryWeight
		}
	}
	for _, kw := range s.secondary {
		if kw != "" && strings.Contains(text, kw) {
			score += secondaryWeight
		}
	}

	switch item.Tier {
	case 1:
		score += s.tier1Boost
	case 2:
		score += s.tier2Boost
	}

	if score < 0 {
		return 0
	}
	return score
}

// Filter scores every item and keeps those at or above the minimum score.
// Seq records each item's position in the input.
func (s *Scorer) Filter(items []model.Item) []model.ScoredItem {
	var kept []model.ScoredItem
	for i, item := range items {
		sc := s.Score(item)
		if sc < s.minScore {
			continue
		}
		kept = append(kept, model.ScoredItem{Item: item, Score: sc, Seq: i})
	}
	log.Printf("Relevance filter: %d of %d items scored at least %d", len(kept), len(items), s.minScore)
	return kept
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, strings.ToLower(strings.TrimSpace(t)))
	}
	return out
}
