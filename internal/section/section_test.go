package section

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func testRules() Rules {
	return Rules{
		MultilateralFinance: {
			Keywords: []Keyword{{Term: "world bank", Weight: 1}, {Term: "development bank", Weight: 2}},
			Hints:    []string{"world bank"},
		},
		ClimateSustainability: {
			Keywords: []Keyword{{Term: "climate", Weight: 1}, {Term: "resilience", Weight: 2}, {Term: "green bond", Weight: 2}},
		},
		CanadaWatch: {
			Keywords: []Keyword{{Term: "canada", Weight: 1}, {Term: "ontario", Weight: 1}},
			Hints:    []string{"infrastructure canada"},
		},
	}
}

func TestAllHasSixCategories(t *testing.T) {
	if len(All()) != 6 {
		t.Fatalf("expected 6 categories, got %d", len(All()))
	}
	for _, c := range All() {
		if !c.Valid() {
			t.Errorf("expected %q to be valid", c)
		}
	}
	if Category("sports").Valid() {
		t.Error("expected unknown category to be invalid")
	}
}

func TestParse(t *testing.T) {
	c, err := Parse(" Canada_Watch ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != CanadaWatch {
		t.Errorf("expected canada_watch, got %q", c)
	}
	if _, err := Parse("weather"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestCategorizeHighestScoreWins(t *testing.T) {
	// climate: climate(1) + resilience(2) + green bond(2) = 5
	// multilateral: world bank(1) + development bank(2) = 3
	text := "world bank development bank backs climate resilience green bond"
	cat, score := testRules().Categorize(text, "Some Wire", CanadaWatch)
	if cat != ClimateSustainability {
		t.Errorf("expected climate_sustainability, got %q", cat)
	}
	if score != 5 {
		t.Errorf("expected score 5, got %d", score)
	}
}

func TestCategorizeTieGoesToDefault(t *testing.T) {
	// canada: canada(1) + ontario(1) = 2; climate: resilience(2) = 2
	text := "ontario and canada fund resilience"
	cat, _ := testRules().Categorize(text, "Wire", ClimateSustainability)
	if cat != ClimateSustainability {
		t.Errorf("expected tie to go to default, got %q", cat)
	}

	cat, _ = testRules().Categorize(text, "Wire", TechInnovation)
	if cat != CanadaWatch {
		t.Errorf("expected tie outside default to go to canonical order, got %q", cat)
	}
}

func TestCategorizeNoHitsUsesDefault(t *testing.T) {
	cat, score := testRules().Categorize("nothing relevant here", "Wire", TechInnovation)
	if cat != TechInnovation {
		t.Errorf("expected default category, got %q", cat)
	}
	if score != 0 {
		t.Errorf("expected score 0, got %d", score)
	}

	cat, _ = testRules().Categorize("nothing", "Wire", Category("bogus"))
	if !cat.Valid() {
		t.Errorf("expected a valid category for invalid fallback, got %q", cat)
	}
}

func TestSourceHintCountsOnce(t *testing.T) {
	scores := testRules().Scores("", "Infrastructure Canada Newsroom")
	if scores[CanadaWatch.index()] != HintBonus {
		t.Errorf("expected hint bonus %d, got %d", HintBonus, scores[CanadaWatch.index()])
	}
}

func TestKeywordScoreIgnoresHints(t *testing.T) {
	got := testRules().KeywordScore("world bank climate")
	if got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestKeywordUnmarshal(t *testing.T) {
	var kws []Keyword
	data := []byte(`
- climate
- term: green bond
  weight: 3
- term: net zero
`)
	if err := yaml.Unmarshal(data, &kws); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kws) != 3 {
		t.Fatalf("expected 3 keywords, got %d", len(kws))
	}
	if kws[0].Term != "climate" || kws[0].Weight != 1 {
		t.Errorf("unexpected scalar keyword: %+v", kws[0])
	}
	if kws[1].Weight != 3 {
		t.Errorf("expected weight 3, got %d", kws[1].Weight)
	}
	if kws[2].Weight != 1 {
		t.Errorf("expected default weight 1, got %d", kws[2].Weight)
	}
}
