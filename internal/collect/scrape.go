package collect

import (
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/TobiSchelling/infradigest/internal/config"
	"github.com/TobiSchelling/infradigest/internal/model"
)

const (
	defaultSelector   = "a[href]"
	minHeadlineLength = 20
	maxHeadlineLength = 300
)

// skipPatterns mark navigation and boilerplate links.
var skipPatterns = []string{
	"login", "sign-in", "subscribe", "cookie", "privacy",
	"terms", "contact", "about-us", "careers", "javascript:",
	"mailto:", "#", "facebook.com", "twitter.com", "linkedin.com",
	"youtube.com", "instagram.com",
}

// scrapeListing extracts headline links from an HTML listing page. base is
// the final page URL, used to resolve relative links.
func scrapeListing(body io.Reader, base *url.URL, src config.Source, limit int) ([]model.Item, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	selector := src.Selector
	if selector == "" {
		selector = defaultSelector
	}

	seen := make(map[string]struct{})
	var items []model.Item
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(items) >= limit {
			return false
		}

		// A selector may match a container rather than the anchor itself.
		a := s
		if goquery.NodeName(s) != "a" {
			a = s.Find("a[href]").First()
		}
		href, ok := a.Attr("href")
		if !ok {
			return true
		}

		title := collapseSpace(s.Text())
		n := utf8.RuneCountInString(title)
		if n < minHeadlineLength || n > maxHeadlineLength {
			return true
		}

		link, ok := resolveLink(base, href)
		if !ok {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}

		items = append(items, model.Item{
			Title:           title,
			Link:            link,
			Source:          src.Name,
			Tier:            src.Tier,
			DefaultCategory: src.Category,
		})
		return true
	})

	return items, nil
}

// resolveLink turns href into an absolute http(s) URL, rejecting
// boilerplate links.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, p := range skipPatterns {
		if strings.Contains(lower, p) {
			return "", false
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}
