package fetch

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/infradigest/internal/collect"
	"github.com/TobiSchelling/infradigest/internal/model"
)

const (
	snippetLength = 300
	minTextLength = 100
)

// Result holds the results of a snippet enrichment run.
type Result struct {
	Fetched int
	Failed  int
	Skipped int
}

// ContentFetcher fills empty snippets by fetching the linked page and
// extracting its readable text.
type ContentFetcher struct {
	client    *http.Client
	userAgent string
	maxItems  int
}

// NewContentFetcher creates a content fetcher that enriches at most
// maxItems items per run.
func NewContentFetcher(timeout time.Duration, userAgent string, maxItems int) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = "infradigest/1.0 (infrastructure digest)"
	}
	return &ContentFetcher{
		userAgent: userAgent,
		maxItems:  maxItems,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FillMissingSnippets fetches content for items with an empty snippet,
// updating items in place. Failures leave the item untouched.
func (f *ContentFetcher) FillMissingSnippets(ctx context.Context, items []model.Item) *Result {
	result := &Result{}
	if f.maxItems <= 0 {
		return result
	}

	failedDomains := make(map[string]struct{})
	attempted := 0

	for i := range items {
		item := &items[i]
		if item.Snippet != "" {
			continue
		}
		if attempted >= f.maxItems || ctx.Err() != nil {
			result.Skipped++
			continue
		}

		domain := ""
		if u, err := url.Parse(item.Link); err == nil {
			domain = strings.ToLower(u.Host)
		}
		if _, failed := failedDomains[domain]; failed {
			result.Failed++
			continue
		}

		attempted++
		text, httpErr := f.fetchArticleText(ctx, item.Link)
		if httpErr != nil {
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP error for %s, skipping remaining from %s", item.Link, domain)
			continue
		}

		if text == "" {
			result.Failed++
			continue
		}
		item.Snippet = collect.Truncate(text, snippetLength)
		result.Fetched++
	}

	if result.Fetched+result.Failed > 0 {
		log.Printf("Snippet enrichment complete: %d fetched, %d failed, %d skipped",
			result.Fetched, result.Failed, result.Skipped)
	}
	return result
}

// fetchArticleText returns the readable text of a page. Only HTTP status
// failures are reported as errors; everything else yields empty text.
func (f *ContentFetcher) fetchArticleText(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", nil
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &collect.StatusError{Code: resp.StatusCode}
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, 5<<20), resp.Request.URL)
	if err != nil {
		return "", nil
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) > minTextLength {
		return text, nil
	}
	return "", nil
}
