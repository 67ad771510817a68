// Package webpage downloads a single page and reduces it to its title,
// visible text and outbound links.
package webpage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"chat-gateway/internal/domain"
)

const (
	DefaultMaxText  = 4000
	DefaultMaxLinks = 20

	defaultTimeout = 5 * time.Second
	maxPageBytes   = 2 << 20
	userAgent      = "chat-gateway/1.0 (+https://github.com/chat-gateway)"
)

// NetworkError is returned for transport failures and non-2xx responses.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webpage: unexpected status %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("webpage: fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) HTTPStatusCode() int {
	return e.StatusCode
}

type Client struct {
	httpClient *http.Client
	maxText    int
	maxLinks   int
	// allowPrivate disables the public-address guard.
	allowPrivate bool
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as is, so
// only the host check before the request protects against private targets.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLimits overrides the text length (in characters) and link count caps.
func WithLimits(maxText, maxLinks int) Option {
	return func(c *Client) {
		if maxText > 0 {
			c.maxText = maxText
		}
		if maxLinks >= 0 {
			c.maxLinks = maxLinks
		}
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		maxText:  DefaultMaxText,
		maxLinks: DefaultMaxLinks,
	}
	c.httpClient = c.guardedHTTPClient()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads rawURL and parses it. Only public addresses are fetched.
func (c *Client) Fetch(ctx context.Context, rawURL string) (domain.Page, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Page{}, fmt.Errorf("webpage: invalid url %q", rawURL)
	}
	if !c.allowPrivate {
		if err := checkHost(u.Hostname()); err != nil {
			return domain.Page{}, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Page{}, fmt.Errorf("webpage: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,text/plain;q=0.8")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Page{}, &NetworkError{URL: u.String(), Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return domain.Page{}, &NetworkError{URL: u.String(), StatusCode: res.StatusCode, Err: errors.New(res.Status)}
	}

	// Redirects change the base links resolve against.
	base := u
	if res.Request != nil && res.Request.URL != nil {
		base = res.Request.URL
	}

	body := io.LimitReader(res.Body, maxPageBytes)
	if strings.HasPrefix(res.Header.Get("Content-Type"), "text/plain") {
		raw, err := io.ReadAll(body)
		if err != nil {
			return domain.Page{}, &NetworkError{URL: u.String(), Err: err}
		}
		return domain.Page{URL: base.String(), Text: truncate(collapse(string(raw)), c.maxText)}, nil
	}

	doc, err := html.Parse(body)
	if err != nil {
		return domain.Page{}, fmt.Errorf("webpage: parse %s: %w", u, err)
	}
	return c.extract(doc, base), nil
}

func (c *Client) extract(doc *html.Node, base *url.URL) domain.Page {
	page := domain.Page{URL: base.String()}
	var text strings.Builder
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg, atom.Iframe:
				return
			case atom.Title:
				if page.Title == "" {
					page.Title = collapse(nodeText(n))
				}
				return
			case atom.A:
				if link := resolveLink(base, attr(n, "href")); link != "" && !seen[link] && len(page.Links) < c.maxLinks {
					seen[link] = true
					page.Links = append(page.Links, link)
				}
			}
		case html.TextNode:
			text.WriteString(n.Data)
			text.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	page.Text = truncate(collapse(text.String()), c.maxText)
	return page
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// resolveLink returns an absolute http(s) URL without fragment, or "".
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
