package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/TobiSchelling/infradigest/internal/collect"
	"github.com/TobiSchelling/infradigest/internal/compose"
	"github.com/TobiSchelling/infradigest/internal/config"
	"github.com/TobiSchelling/infradigest/internal/database"
	"github.com/TobiSchelling/infradigest/internal/fetch"
	"github.com/TobiSchelling/infradigest/internal/model"
	"github.com/TobiSchelling/infradigest/internal/publish"
	"github.com/TobiSchelling/infradigest/internal/render"
	"github.com/TobiSchelling/infradigest/internal/score"
)

// DryRunLimit is the number of items a dry run lists.
const DryRunLimit = 25

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps      []StepResult
	Digest     *model.Digest
	OutputPath string
	Failed     []*collect.SourceFetchError
	// Top holds the highest scoring items of a dry run.
	Top []model.ScoredItem
}

// Err returns the first step error, if any.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", s.Name, s.Err)
		}
	}
	return nil
}

// PageRenderer turns a digest into page bytes.
type PageRenderer interface {
	Render(d *model.Digest) ([]byte, error)
}

// Pipeline runs the nine digest steps in order.
type Pipeline struct {
	cfg        *config.Config
	db         *database.DB
	collector  *collect.Collector
	scorer     *score.Scorer
	renderer   PageRenderer
	outputPath string
	now        func() time.Time
}

// New creates a new pipeline. db may be nil, in which case runs are not
// archived to sqlite.
func New(cfg *config.Config, db *database.DB) (*Pipeline, error) {
	r, err := render.New(cfg.Metadata, len(cfg.Sources))
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:        cfg,
		db:         db,
		collector:  collect.NewCollector(cfg),
		scorer:     score.NewScorer(cfg),
		renderer:   r,
		outputPath: cfg.Output.Path,
		now:        time.Now,
	}, nil
}

// SetOutputPath overrides the configured page path.
func (p *Pipeline) SetOutputPath(path string) {
	if path != "" {
		p.outputPath = path
	}
}

// Run executes Collect, Enrich, Score, Deduplicate, Categorize, Compose,
// Render, Publish and Archive. A render or publish failure stops the run
// and leaves the previous page in place. Archive failures are only logged.
func (p *Pipeline) Run(ctx context.Context) *Result {
	if p.cfg.Fetch.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Fetch.RunTimeout)
		defer cancel()
	}

	r := &Result{OutputPath: p.outputPath}
	scored, stats := p.prepare(ctx, r, "9")

	log.Println("Step 6/9: Composing digest...")
	d := compose.NewComposer(p.cfg).Build(scored, p.now(), stats)
	r.Digest = d
	r.Steps = append(r.Steps, StepResult{
		Name:    "Compose",
		Summary: fmt.Sprintf("%d items across %d of 6 sections", d.TotalItems(), len(d.ActiveSections())),
	})

	log.Println("Step 7/9: Rendering page...")
	page, err := p.renderer.Render(d)
	if err != nil {
		var re *render.RenderError
		if !errors.As(err, &re) {
			err = &render.RenderError{Err: err}
		}
		r.Steps = append(r.Steps, StepResult{Name: "Render", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{Name: "Render", Summary: fmt.Sprintf("Rendered %d bytes", len(page))})

	log.Println("Step 8/9: Publishing page...")
	if err := publish.WritePage(p.outputPath, page); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Publish", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{Name: "Publish", Summary: "Wrote " + p.outputPath})

	log.Println("Step 9/9: Archiving run...")
	r.Steps = append(r.Steps, p.archive(d, r.Failed))

	return r
}

// DryRun collects, scores, deduplicates and categorizes without rendering or
// writing anything, and lists the top items by score.
func (p *Pipeline) DryRun(ctx context.Context) *Result {
	if p.cfg.Fetch.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Fetch.RunTimeout)
		defer cancel()
	}

	r := &Result{}
	scored, _ := p.prepare(ctx, r, "5")

	top := make([]model.ScoredItem, len(scored))
	copy(top, scored)
	compose.SortItems(top)
	if len(top) > DryRunLimit {
		top = top[:DryRunLimit]
	}
	r.Top = top
	return r
}

// prepare runs the first five steps shared by Run and DryRun.
func (p *Pipeline) prepare(ctx context.Context, r *Result, total string) ([]model.ScoredItem, model.RunStats) {
	stats := model.RunStats{Sources: len(p.cfg.Sources)}

	log.Printf("Step 1/%s: Collecting sources...", total)
	collected := p.collector.Collect(ctx)
	r.Failed = collected.Failed
	stats.FailedSources = len(collected.Failed)
	stats.RawItems = len(collected.Items)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("%d items from %d sources, %d failed", len(collected.Items), len(collected.Sources), len(collected.Failed)),
	})

	log.Printf("Step 2/%s: Enriching snippets...", total)
	enrich := fetch.NewContentFetcher(p.cfg.Enrich.Timeout, p.cfg.Fetch.UserAgent, p.cfg.Enrich.MaxItems)
	er := enrich.FillMissingSnippets(ctx, collected.Items)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("Filled %d snippets, %d failed, %d skipped", er.Fetched, er.Failed, er.Skipped),
	})

	log.Printf("Step 3/%s: Scoring items...", total)
	scored := p.scorer.Filter(collected.Items)
	stats.Scored = len(scored)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Score",
		Summary: fmt.Sprintf("%d of %d items met the relevance threshold", len(scored), len(collected.Items)),
	})

	log.Printf("Step 4/%s: Deduplicating...", total)
	unique := score.Dedupe(scored)
	stats.Unique = len(unique)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Deduplicate",
		Summary: fmt.Sprintf("%d unique items, %d duplicates removed", len(unique), len(scored)-len(unique)),
	})

	log.Printf("Step 5/%s: Categorizing...", total)
	p.scorer.Categorize(unique)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Categorize",
		Summary: fmt.Sprintf("Assigned %d items to sections", len(unique)),
	})

	return unique, stats
}

func (p *Pipeline) archive(d *model.Digest, failed []*collect.SourceFetchError) StepResult {
	var done []string

	if dir := p.cfg.Archive.Dir; dir != "" {
		path, err := publish.WriteArchive(dir, d)
		if err != nil {
			log.Printf("Warning: JSON archive failed: %v", err)
		} else {
			done = append(done, path)
		}
	}

	if p.db != nil {
		failures := make([]database.SourceFailure, 0, len(failed))
		for _, f := range failed {
			failures = append(failures, database.SourceFailure{Source: f.Source, URL: f.URL, Error: f.Err.Error()})
		}
		id, err := p.db.InsertRun(d, failures)
		if err != nil {
			log.Printf("Warning: run archive failed: %v", err)
		} else {
			done = append(done, fmt.Sprintf("run #%d", id))
		}
	}

	if len(done) == 0 {
		return StepResult{Name: "Archive", Summary: "Nothing archived"}
	}
	return StepResult{Name: "Archive", Summary: "Archived " + strings.Join(done, ", ")}
}
