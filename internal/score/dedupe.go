package score

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/TobiSchelling/infradigest/internal/model"
)

// NormalizeTitle lowercases a title, strips punctuation and collapses
// whitespace.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeLink canonicalises a link: https scheme, lowercase host without
// "www.", no fragment, no utm_* tracking parameters, no trailing slash.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(link), "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for k := range q {
		if strings.HasPrefix(strings.ToLower(k), "utm_") {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	return u.String()
}

// Dedupe removes items whose normalized title or normalized link collides
// with another item. The higher scoring item survives; on equal scores the
// earlier one does. A newcomer that collides with several kept items has to
// beat all of them, and takes the earliest of their slots.
//
// The output has pairwise distinct title keys and link keys, so Dedupe is
// idempotent.
func Dedupe(items []model.ScoredItem) []model.ScoredItem {
	type slot struct {
		item    model.ScoredItem
		title   string
		link    string
		removed bool
	}

	var slots []*slot
	byTitle := make(map[string]*slot)
	byLink := make(map[string]*slot)

	forget := func(s *slot) {
		if s.title != "" && byTitle[s.title] == s {
			delete(byTitle, s.title)
		}
		if s.link != "" && byLink[s.link] == s {
			delete(byLink, s.link)
		}
	}
	remember := func(s *slot) {
		if s.title != "" {
			byTitle[s.title] = s
		}
		if s.link != "" {
			byLink[s.link] = s
		}
	}

	for _, item := range items {
		title := NormalizeTitle(item.Title)
		link := NormalizeLink(item.Link)

		var hits []*slot
		if s, ok := byTitle[title]; ok && title != "" {
			hits = append(hits, s)
		}
		if s, ok := byLink[link]; ok && link != "" && (len(hits) == 0 || hits[0] != s) {
			hits = append(hits, s)
		}

		if len(hits) == 0 {
			s := &slot{item: item, title: title, link: link}
			slots = append(slots, s)
			remember(s)
			continue
		}

		wins := true
		for _, h := range hits {
			if item.Score <= h.item.Score {
				wins = false
				break
			}
		}
		if !wins {
			continue
		}

		// earliest kept slot is reused so first-seen order survives
		first := hits[0]
		for _, h := range hits[1:] {
			if h.item.Seq < first.item.Seq {
				first = h
			}
		}
		for _, h := range hits {
			forget(h)
			if h != first {
				h.removed = true
			}
		}
		seq := first.item.Seq
		first.item = item
		first.item.Seq = seq
		first.title = title
		first.link = link
		remember(first)
	}

	out := make([]model.ScoredItem, 0, len(slots))
	for _, s := range slots {
		if !s.removed {
			out = append(out, s.item)
		}
	}
	return out
}
