// Package sources holds the external data sources used to augment prompts:
// one client per domain, each returning a plain-text block or
// domain.ErrNoData.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	userAgent          = "chat-gateway/1.0 (+https://github.com/chat-gateway)"
	defaultHTTPTimeout = 5 * time.Second
	maxBodyBytes       = 1 << 20
)

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	Source     string
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("sources: %s: unexpected status %d from %s: %s", e.Source, e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

func isNotFound(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// Option configures a source client.
type Option func(*base)

// WithBaseURL points the source at a different host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(b *base) {
		if v := strings.TrimRight(strings.TrimSpace(baseURL), "/"); v != "" {
			b.baseURL = v
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(b *base) {
		if httpClient != nil {
			b.httpClient = httpClient
		}
	}
}

type base struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

func newBase(name, defaultBaseURL string, opts []Option) base {
	b := base{
		name:       name,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Name returns the source identifier used in logs.
func (b *base) Name() string {
	return b.name
}

func (b *base) getJSON(ctx context.Context, path string, query url.Values, headers map[string]string, target any) error {
	endpoint := b.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("sources: %s: create request: %w", b.name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sources: %s: request failed: %w", b.name, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &HTTPStatusError{
			Source:     b.name,
			StatusCode: res.StatusCode,
			URL:        b.baseURL + path,
			Body:       string(buf),
		}
	}

	if err := json.NewDecoder(io.LimitReader(res.Body, maxBodyBytes)).Decode(target); err != nil {
		return fmt.Errorf("sources: %s: decode response: %w", b.name, err)
	}
	return nil
}
