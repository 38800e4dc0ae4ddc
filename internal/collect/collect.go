package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/infradigest/internal/config"
	"github.com/TobiSchelling/infradigest/internal/model"
)

const maxBodyBytes = 10 << 20

// Result holds the results of a collection run.
type Result struct {
	Items   []model.Item
	Sources map[string]int
	Failed  []*SourceFetchError
}

// Collector fetches every configured source and merges the items in
// source-list order.
type Collector struct {
	sources      []config.Source
	client       *http.Client
	limiter      *HostLimiter
	userAgent    string
	concurrency  int
	maxPerSource int
	maxAge       time.Duration
	now          func() time.Time
}

// NewCollector creates a collector for the configured sources.
func NewCollector(cfg *config.Config) *Collector {
	fc := cfg.Fetch
	timeout := fc.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	concurrency := fc.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var maxAge time.Duration
	if fc.MaxAgeDays > 0 {
		maxAge = time.Duration(fc.MaxAgeDays) * 24 * time.Hour
	}

	sources := make([]config.Source, len(cfg.Sources))
	copy(sources, cfg.Sources)

	return &Collector{
		sources: sources,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		limiter:      NewHostLimiter(fc.HostInterval),
		userAgent:    fc.UserAgent,
		concurrency:  concurrency,
		maxPerSource: fc.MaxItemsPerSource,
		maxAge:       maxAge,
		now:          time.Now,
	}
}

// Collect fetches all sources. Failed sources are logged and skipped; the
// result may be empty when every source fails.
func (c *Collector) Collect(ctx context.Context) *Result {
	perSource := make([][]model.Item, len(c.sources))
	errs := make([]error, len(c.sources))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, src := range c.sources {
		i, src := i, src
		g.Go(func() error {
			if ctx.Err() != nil {
				errs[i] = &SourceFetchError{Source: src.Name, URL: src.FetchURL(), Err: ctx.Err()}
				return nil
			}
			perSource[i], errs[i] = c.FetchSource(ctx, src)
			return nil // never fail the group, errors are per source
		})
	}
	_ = g.Wait()

	r := &Result{Sources: make(map[string]int)}
	for i, src := range c.sources {
		if errs[i] != nil {
			var sfe *SourceFetchError
			if !errors.As(errs[i], &sfe) {
				sfe = &SourceFetchError{Source: src.Name, URL: src.FetchURL(), Err: errs[i]}
			}
			log.Printf("Skipping %v", sfe)
			r.Failed = append(r.Failed, sfe)
			continue
		}
		log.Printf("Parsed %d items from %s", len(perSource[i]), src.Name)
		r.Items = append(r.Items, perSource[i]...)
		r.Sources[src.Name] = len(perSource[i])
	}

	log.Printf("Collection complete: %d items from %d sources, %d failed",
		len(r.Items), len(c.sources)-len(r.Failed), len(r.Failed))
	return r
}

// FetchSource fetches and parses a single source.
func (c *Collector) FetchSource(ctx context.Context, src config.Source) ([]model.Item, error) {
	fetchURL := src.FetchURL()
	wrap := func(err error) error {
		return &SourceFetchError{Source: src.Name, URL: fetchURL, Err: err}
	}

	if err := c.limiter.Wait(ctx, fetchURL); err != nil {
		return nil, wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, wrap(fmt.Errorf("creating request: %w", err))
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, wrap(&StatusError{Code: resp.StatusCode})
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)

	var items []model.Item
	switch src.Type {
	case config.TypeHTML:
		items, err = scrapeListing(body, resp.Request.URL, src, c.maxPerSource)
	default:
		items, err = parseFeed(body, src, c.cutoff(), c.maxPerSource)
	}
	if err != nil {
		return nil, wrap(fmt.Errorf("parsing %s: %w", src.Type, err))
	}
	return items, nil
}

func (c *Collector) cutoff() time.Time {
	if c.maxAge <= 0 {
		return time.Time{}
	}
	return c.now().Add(-c.maxAge)
}
