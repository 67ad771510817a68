package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"chat-gateway/internal/domain"
)

const (
	defaultTechBaseURL = "https://hn.algolia.com"
	techHitsPerPage    = 5
)

// Tech searches Hacker News stories through the Algolia API.
type Tech struct {
	base
}

// NewTech creates a technology news source.
func NewTech(opts ...Option) *Tech {
	return &Tech{base: newBase("hackernews", defaultTechBaseURL, opts)}
}

type hnResponse struct {
	Hits []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Points      int    `json:"points"`
		NumComments int    `json:"num_comments"`
		CreatedAt   string `json:"created_at"`
	} `json:"hits"`
}

// Fetch returns the top matching stories.
func (t *Tech) Fetch(ctx context.Context, query string) (string, error) {
	terms := searchTerms(query)
	if terms == "" {
		return "", domain.ErrNoData
	}
	q := url.Values{}
	q.Set("query", terms)
	q.Set("tags", "story")
	q.Set("hitsPerPage", strconv.Itoa(techHitsPerPage))

	var payload hnResponse
	if err := t.getJSON(ctx, "/api/v1/search_by_date", q, nil, &payload); err != nil {
		return "", err
	}

	var b strings.Builder
	n := 0
	for _, h := range payload.Hits {
		if strings.TrimSpace(h.Title) == "" {
			continue
		}
		n++
		if n == 1 {
			b.WriteString("Recent technology stories:")
		}
		fmt.Fprintf(&b, "\n%d. %s (%d points, %d comments", n, strings.TrimSpace(h.Title), h.Points, h.NumComments)
		if len(h.CreatedAt) >= 10 {
			fmt.Fprintf(&b, ", %s", h.CreatedAt[:10])
		}
		b.WriteString(")")
		if h.URL != "" {
			fmt.Fprintf(&b, "\n   %s", h.URL)
		}
	}
	if n == 0 {
		return "", domain.ErrNoData
	}
	return b.String(), nil
}
