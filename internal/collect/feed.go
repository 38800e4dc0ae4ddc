package collect

import (
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/infradigest/internal/config"
	"github.com/TobiSchelling/infradigest/internal/model"
)

const minFeedTitleLength = 10

// parseFeed parses an RSS/Atom body into items. Entries published before
// cutoff are dropped; entries without a date are kept.
func parseFeed(body io.Reader, src config.Source, cutoff time.Time, limit int) ([]model.Item, error) {
	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, err
	}

	var items []model.Item
	for _, entry := range feed.Items {
		if limit > 0 && len(items) >= limit {
			break
		}

		item := parseEntry(entry, src)
		if item == nil {
			continue
		}
		if !cutoff.IsZero() && !item.Published.IsZero() && item.Published.Before(cutoff) {
			continue
		}
		items = append(items, *item)
	}

	return items, nil
}

func parseEntry(entry *gofeed.Item, src config.Source) *model.Item {
	link := strings.TrimSpace(entry.Link)
	if link == "" && strings.HasPrefix(entry.GUID, "http") {
		link = strings.TrimSpace(entry.GUID)
	}
	if link == "" {
		return nil
	}

	title := CleanText(entry.Title)
	if utf8.RuneCountInString(title) < minFeedTitleLength {
		return nil
	}

	var published time.Time
	if entry.PublishedParsed != nil {
		published = entry.PublishedParsed.UTC()
	} else if entry.UpdatedParsed != nil {
		published = entry.UpdatedParsed.UTC()
	}

	raw := entry.Description
	if raw == "" {
		raw = entry.Content
	}

	return &model.Item{
		Title:           title,
		Link:            link,
		Published:       published,
		Source:          src.Name,
		Snippet:         CleanSnippet(raw),
		Tier:            src.Tier,
		DefaultCategory: src.Category,
	}
}
