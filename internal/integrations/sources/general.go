package sources

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"chat-gateway/internal/domain"
)

const (
	defaultGeneralBaseURL = "https://en.wikipedia.org"
	generalResultLimit    = 3
)

// Snippet is one ordered free-text search hit.
type Snippet struct {
	Summary string
	Snippet string
	URL     string
}

// General is the fallback source: free-text page search over Wikipedia.
type General struct {
	base
	sanitizer *bluemonday.Policy
}

// NewGeneral creates the general-purpose search source.
func NewGeneral(opts ...Option) *General {
	return &General{
		base:      newBase("wikipedia", defaultGeneralBaseURL, opts),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

type wikiSearchResponse struct {
	Pages []struct {
		Key         string `json:"key"`
		Title       string `json:"title"`
		Excerpt     string `json:"excerpt"`
		Description string `json:"description"`
	} `json:"pages"`
}

// Search returns up to three ordered hits for query.
func (g *General) Search(ctx context.Context, query string) ([]Snippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(generalResultLimit))

	var payload wikiSearchResponse
	if err := g.getJSON(ctx, "/w/rest.php/v1/search/page", q, nil, &payload); err != nil {
		return nil, err
	}

	out := make([]Snippet, 0, len(payload.Pages))
	for _, p := range payload.Pages {
		if strings.TrimSpace(p.Title) == "" {
			continue
		}
		summary := strings.TrimSpace(p.Title)
		if d := strings.TrimSpace(p.Description); d != "" {
			summary += " - " + d
		}
		s := Snippet{
			Summary: summary,
			Snippet: g.plainText(p.Excerpt),
		}
		if p.Key != "" {
			s.URL = g.baseURL + "/wiki/" + url.PathEscape(p.Key)
		}
		out = append(out, s)
		if len(out) == generalResultLimit {
			break
		}
	}
	return out, nil
}

// Fetch renders the search hits as a text block.
func (g *General) Fetch(ctx context.Context, query string) (string, error) {
	hits, err := g.Search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		// A question rarely matches page text verbatim; retry with keywords.
		if terms := searchTerms(query); terms != "" && terms != strings.ToLower(strings.TrimSpace(query)) {
			if hits, err = g.Search(ctx, terms); err != nil {
				return "", err
			}
		}
	}
	if len(hits) == 0 {
		return "", domain.ErrNoData
	}

	var b strings.Builder
	b.WriteString("Web search results:")
	for i, h := range hits {
		fmt.Fprintf(&b, "\n%d. %s", i+1, h.Summary)
		if h.Snippet != "" {
			fmt.Fprintf(&b, "\n   %s", h.Snippet)
		}
		if h.URL != "" {
			fmt.Fprintf(&b, "\n   %s", h.URL)
		}
	}
	return b.String(), nil
}

func (g *General) plainText(fragment string) string {
	text := html.UnescapeString(g.sanitizer.Sanitize(fragment))
	return strings.Join(strings.Fields(text), " ")
}
