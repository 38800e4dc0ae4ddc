package render

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/infradigest/internal/config"
	"github.com/TobiSchelling/infradigest/internal/model"
	"github.com/TobiSchelling/infradigest/internal/section"
)

var generated = time.Date(2026, 3, 4, 6, 5, 0, 0, time.UTC)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(config.Metadata{Title: "Infra Digest", Subtitle: "Daily"}, 85)
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	return r
}

func emptyDigest() *model.Digest {
	d := &model.Digest{GeneratedAt: generated, Pulse: "A quiet day.", Outlook: "Check back."}
	for _, id := range section.All() {
		d.Sections = append(d.Sections, model.SectionDigest{Section: id, Title: id.Label()})
	}
	return d
}

func TestRenderEmptyDigest(t *testing.T) {
	out, err := newRenderer(t).Render(emptyDigest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := string(out)

	for _, want := range []string{
		"<!DOCTYPE html>",
		"Infra Digest",
		"Wednesday, March 04, 2026",
		"March 04, 2026 at 06:05 UTC",
		"from 85 sources",
		"A quiet day.",
		"Check back.",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in output", want)
		}
	}
	for _, id := range section.All() {
		if !strings.Contains(html, `id="`+string(id)+`"`) {
			t.Errorf("expected section %s rendered", id)
		}
	}
	if n := strings.Count(html, "No significant developments in this section today."); n != 6 {
		t.Errorf("expected 6 empty placeholders, got %d", n)
	}
}

func TestRenderItems(t *testing.T) {
	d := emptyDigest()
	d.Sections[2].Description = "Federal **and** provincial programs."
	d.Sections[2].Items = []model.ScoredItem{{
		Item: model.Item{
			Title:     "Ontario <b>transit</b> deal & more",
			Link:      "https://example.com/ontario",
			Source:    "Globe",
			Published: time.Date(2026, 3, 3, 14, 30, 0, 0, time.UTC),
			Snippet:   "Short summary",
		},
		Significance: model.SignificanceHigh,
	}}

	out, err := newRenderer(t).Render(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := string(out)

	if !strings.Contains(html, "Ontario &lt;b&gt;transit&lt;/b&gt; deal &amp; more") {
		t.Error("expected title escaped")
	}
	if !strings.Contains(html, `href="https://example.com/ontario"`) {
		t.Error("expected item link")
	}
	if !strings.Contains(html, "<strong>and</strong>") {
		t.Error("expected markdown description rendered")
	}
	if !strings.Contains(html, "badge-high") {
		t.Error("expected significance badge")
	}
	if !strings.Contains(html, "Mar 3, 14:30 UTC") {
		t.Error("expected item time")
	}
	if n := strings.Count(html, "No significant developments in this section today."); n != 5 {
		t.Errorf("expected 5 empty placeholders, got %d", n)
	}
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	d := emptyDigest()
	d.Sections[0].Description = "Hello <script>alert(1)</script>"

	out, err := newRenderer(t).Render(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(out), "<script>alert(1)</script>") {
		t.Error("expected raw HTML in markdown to be dropped")
	}
}

func TestRenderPulseIsPlainText(t *testing.T) {
	d := emptyDigest()
	d.Pulse = "Top story: Budget adds *new* funds for <Metrolinx> and P3_pilot_plan."
	d.Outlook = "Watch `rates` and _tolls_."

	out, err := newRenderer(t).Render(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := string(out)

	for _, want := range []string{
		"Top story: Budget adds *new* funds for &lt;Metrolinx&gt; and P3_pilot_plan.",
		"Watch `rates` and _tolls_.",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in output", want)
		}
	}
	for _, bad := range []string{"<em>new</em>", "raw HTML omitted", "<code>rates</code>"} {
		if strings.Contains(html, bad) {
			t.Errorf("expected headline text kept literal, found %q", bad)
		}
	}
}

func TestRenderNilDigest(t *testing.T) {
	_, err := newRenderer(t).Render(nil)
	var re *RenderError
	if !errors.As(err, &re) {
		t.Fatalf("expected RenderError, got %v", err)
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(time.Time{}); got != "" {
		t.Errorf("expected empty for zero time, got %q", got)
	}
}
