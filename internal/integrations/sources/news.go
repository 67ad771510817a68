package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chat-gateway/internal/domain"
)

const (
	defaultNewsBaseURL = "https://newsapi.org"
	newsPageSize       = 5
)

// News reads headlines from NewsAPI. Without an API key it always reports no
// data, which sends the query to the general source.
type News struct {
	base
	apiKey   string
	category string
}

// NewNews creates a source that searches all recent articles.
func NewNews(apiKey string, opts ...Option) *News {
	return &News{
		base:   newBase("newsapi", defaultNewsBaseURL, opts),
		apiKey: strings.TrimSpace(apiKey),
	}
}

// NewSports creates a source that reads the sports top headlines.
func NewSports(apiKey string, opts ...Option) *News {
	return &News{
		base:     newBase("newsapi-sports", defaultNewsBaseURL, opts),
		apiKey:   strings.TrimSpace(apiKey),
		category: "sports",
	}
}

type newsResponse struct {
	Status   string        `json:"status"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Articles []newsArticle `json:"articles"`
}

type newsArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// Fetch returns up to five headlines matching query.
func (n *News) Fetch(ctx context.Context, query string) (string, error) {
	if n.apiKey == "" {
		return "", domain.ErrNoData
	}
	terms := searchTerms(query)

	articles, err := n.articles(ctx, terms)
	if err != nil {
		return "", err
	}
	if len(articles) == 0 && n.category != "" && terms != "" {
		// Category headlines rarely match a full question; widen to the
		// whole category before giving up.
		if articles, err = n.articles(ctx, ""); err != nil {
			return "", err
		}
	}
	if len(articles) == 0 {
		return "", domain.ErrNoData
	}
	return formatArticles(articles), nil
}

func (n *News) articles(ctx context.Context, terms string) ([]newsArticle, error) {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(newsPageSize))
	q.Set("language", "en")

	path := "/v2/everything"
	if n.category != "" {
		path = "/v2/top-headlines"
		q.Set("category", n.category)
		if terms != "" {
			q.Set("q", terms)
		}
	} else {
		if terms == "" {
			return nil, nil
		}
		q.Set("q", terms)
		q.Set("sortBy", "publishedAt")
	}

	var payload newsResponse
	if err := n.getJSON(ctx, path, q, map[string]string{"X-Api-Key": n.apiKey}, &payload); err != nil {
		return nil, err
	}
	if payload.Status == "error" {
		return nil, fmt.Errorf("sources: %s: %s: %s", n.name, payload.Code, payload.Message)
	}

	out := make([]newsArticle, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		if strings.TrimSpace(a.Title) == "" || a.Title == "[Removed]" {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func formatArticles(articles []newsArticle) string {
	var b strings.Builder
	b.WriteString("Latest headlines:")
	for i, a := range articles {
		fmt.Fprintf(&b, "\n%d. %s", i+1, strings.TrimSpace(a.Title))
		if a.Source.Name != "" {
			fmt.Fprintf(&b, " (%s", a.Source.Name)
			if ts, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
				fmt.Fprintf(&b, ", %s", ts.UTC().Format("2006-01-02"))
			}
			b.WriteString(")")
		}
		if d := strings.TrimSpace(a.Description); d != "" {
			fmt.Fprintf(&b, "\n   %s", d)
		}
		if a.URL != "" {
			fmt.Fprintf(&b, "\n   %s", a.URL)
		}
	}
	return b.String()
}
