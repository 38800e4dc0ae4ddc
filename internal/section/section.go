// Package section defines the six fixed digest sections and the rule-based
// categorizer that assigns every item to exactly one of them.
package section

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is one of the six fixed digest sections.
type Category string

const (
	MultilateralFinance    Category = "multilateral_finance"
	MajorEconomies         Category = "major_economies"
	CanadaWatch            Category = "canada_watch"
	ProjectFinanceDelivery Category = "project_finance_delivery"
	ClimateSustainability  Category = "climate_sustainability"
	TechInnovation         Category = "tech_innovation"
)

// HintBonus is added once to a section's score when the source name matches
// one of its hints.
const HintBonus = 5

// All returns every category in canonical order.
func All() []Category {
	return []Category{
		MultilateralFinance,
		MajorEconomies,
		CanadaWatch,
		ProjectFinanceDelivery,
		ClimateSustainability,
		TechInnovation,
	}
}

// Valid reports whether c is one of the six fixed categories.
func (c Category) Valid() bool {
	return c.index() < len(All())
}

func (c Category) index() int {
	for i, cat := range All() {
		if cat == c {
			return i
		}
	}
	return len(All())
}

// Label returns the short human description used in digest prose.
func (c Category) Label() string {
	switch c {
	case MultilateralFinance:
		return "multilateral development finance"
	case MajorEconomies:
		return "major economy infrastructure policy"
	case CanadaWatch:
		return "Canadian infrastructure"
	case ProjectFinanceDelivery:
		return "project finance and delivery"
	case ClimateSustainability:
		return "climate resilience and sustainability"
	case TechInnovation:
		return "technology and innovation"
	}
	return string(c)
}

// Parse resolves a category ID, case-insensitively.
func Parse(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range All() {
		if string(c) == s {
			return c, nil
		}
	}
	valid := make([]string, 0, len(All()))
	for _, c := range All() {
		valid = append(valid, string(c))
	}
	return "", fmt.Errorf("unknown category %q (valid: %s)", s, strings.Join(valid, ", "))
}

// Keyword is a lowercase term and the weight it contributes on a hit.
type Keyword struct {
	Term   string `yaml:"term"`
	Weight int    `yaml:"weight"`
}

// UnmarshalYAML accepts either a bare string (weight 1) or a {term, weight} mapping.
func (k *Keyword) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		k.Term = node.Value
		k.Weight = 1
		return nil
	}
	type plain Keyword
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Weight == 0 {
		p.Weight = 1
	}
	*k = Keyword(p)
	return nil
}

// Rule is the keyword weight list and source hints of one section.
type Rule struct {
	Keywords []Keyword
	Hints    []string
}

// Rules maps every category to its rule. Missing categories score zero.
type Rules map[Category]Rule

// Hits returns the summed weight of the keywords that occur in text.
// text must already be lowercased.
func Hits(keywords []Keyword, text string) int {
	score := 0
	for _, kw := range keywords {
		if kw.Term != "" && strings.Contains(text, strings.ToLower(kw.Term)) {
			score += kw.Weight
		}
	}
	return score
}

// KeywordScore returns the summed keyword weight over all sections, ignoring
// source hints.
func (r Rules) KeywordScore(text string) int {
	score := 0
	for _, c := range All() {
		score += Hits(r[c].Keywords, text)
	}
	return score
}

// Scores returns the score of every section for the given text and source
// name, indexed in canonical order.
func (r Rules) Scores(text, source string) []int {
	source = strings.ToLower(source)
	scores := make([]int, len(All()))
	for i, c := range All() {
		rule := r[c]
		s := Hits(rule.Keywords, text)
		for _, hint := range rule.Hints {
			if hint != "" && strings.Contains(source, strings.ToLower(hint)) {
				s += HintBonus
				break
			}
		}
		scores[i] = s
	}
	return scores
}

// Categorize picks the highest scoring section. Ties go to fallback when it
// is among the tied sections, otherwise to the first tied section in
// canonical order. When nothing scores, fallback wins. An invalid fallback
// is treated as the first canonical category.
func (r Rules) Categorize(text, source string, fallback Category) (Category, int) {
	if !fallback.Valid() {
		fallback = All()[0]
	}
	scores := r.Scores(text, source)

	best := 0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	if best == 0 {
		return fallback, 0
	}
	if scores[fallback.index()] == best {
		return fallback, best
	}
	for i, s := range scores {
		if s == best {
			return All()[i], best
		}
	}
	return fallback, 0
}
