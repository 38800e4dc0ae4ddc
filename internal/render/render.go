// Package render turns a digest into a single self-contained HTML page.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/infradigest/internal/config"
	"github.com/TobiSchelling/infradigest/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var md = goldmark.New()

const (
	generatedLayout = "January 02, 2006 at 15:04 UTC"
	dateLayout      = "Monday, January 02, 2006"
	itemLayout      = "Jan 2, 15:04 UTC"
)

// RenderError reports a failure to produce the page. Nothing should be
// published when it occurs.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering digest: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Renderer renders digests with the embedded templates.
type Renderer struct {
	page         *template.Template
	meta         config.Metadata
	totalSources int
}

// New parses the templates. totalSources is shown in the page footer.
func New(meta config.Metadata, totalSources int) (*Renderer, error) {
	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatTime": formatTime,
		"badgeClass": badgeClass,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, &RenderError{Err: fmt.Errorf("parsing base template: %w", err)}
	}
	page, err := base.Clone()
	if err != nil {
		return nil, &RenderError{Err: fmt.Errorf("cloning base template: %w", err)}
	}
	if _, err := page.ParseFS(templateFS, "templates/digest.html"); err != nil {
		return nil, &RenderError{Err: fmt.Errorf("parsing digest template: %w", err)}
	}

	return &Renderer{page: page, meta: meta, totalSources: totalSources}, nil
}

// Render executes the page template into memory so a failure never leaves a
// partial document behind.
func (r *Renderer) Render(d *model.Digest) ([]byte, error) {
	if d == nil {
		return nil, &RenderError{Err: errors.New("no digest")}
	}

	at := d.GeneratedAt.UTC()
	data := map[string]any{
		"Title":        r.meta.Title,
		"Subtitle":     r.meta.Subtitle,
		"SiteURL":      r.meta.SiteURL,
		"GeneratedAt":  at.Format(generatedLayout),
		"DateDisplay":  at.Format(dateLayout),
		"TotalSources": r.totalSources,
		"Digest":       d,
	}

	var buf bytes.Buffer
	if err := r.page.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return nil, &RenderError{Err: err}
	}
	return buf.Bytes(), nil
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(itemLayout)
}

func badgeClass(significance string) string {
	switch significance {
	case model.SignificanceHigh, model.SignificanceMedium:
		return "badge-" + significance
	default:
		return "badge-low"
	}
}
