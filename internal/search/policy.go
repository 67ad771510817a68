package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chat-gateway/internal/domain"
)

const (
	defaultFetchTimeout = 5 * time.Second
	defaultDeadline     = 12 * time.Second

	// NoInformationMessage is the body of the sentinel result returned when
	// every source failed.
	NoInformationMessage = "No real-time information is available for this query right now. " +
		"Sources could not be reached or returned no results."
)

// Fetcher retrieves a text block for a query from one external source. It
// returns domain.ErrNoData when the source has nothing for the query.
type Fetcher interface {
	Fetch(ctx context.Context, query string) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, query string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// Source pairs a fetcher with the reliability its data is reported under.
type Source struct {
	Name        string
	Fetcher     Fetcher
	Reliability domain.Reliability
}

// Policy is the timeout and fallback policy shared by every source. Each
// attempt gets its own deadline derived from the caller's context, and the
// whole search is bounded by Deadline.
type Policy struct {
	FetchTimeout time.Duration
	Deadline     time.Duration
}

func (p Policy) fetchTimeout() time.Duration {
	if p.FetchTimeout <= 0 {
		return defaultFetchTimeout
	}
	return p.FetchTimeout
}

func (p Policy) deadline() time.Duration {
	if p.Deadline <= 0 {
		return defaultDeadline
	}
	return p.Deadline
}

// primaryTimeout is the budget of the specialized attempt. It always leaves
// at least one fetch timeout (or half the deadline) for the general fallback.
func (p Policy) primaryTimeout() time.Duration {
	fetch, deadline := p.fetchTimeout(), p.deadline()
	rest := deadline - fetch
	switch {
	case rest >= fetch:
		return fetch
	case rest <= 0:
		return deadline / 2
	default:
		return rest
	}
}

type outcome struct {
	body string
	err  error
}

// attempt runs one fetch under timeout. A fetcher that ignores
// its context is abandoned once the timeout fires; a panicking fetcher is
// reported as a failure.
func (p Policy) attempt(ctx context.Context, src Source, query string, timeout time.Duration) (string, error) {
	if src.Fetcher == nil {
		return "", fmt.Errorf("search: source %q has no fetcher", src.Name)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("search: source %q panicked: %v", src.Name, r)}
			}
		}()
		body, err := src.Fetcher.Fetch(ctx, query)
		ch <- outcome{body: body, err: err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return "", o.err
		}
		if strings.TrimSpace(o.body) == "" {
			return "", domain.ErrNoData
		}
		return strings.TrimSpace(o.body), nil
	case <-ctx.Done():
		return "", fmt.Errorf("search: source %q: %w", src.Name, ctx.Err())
	}
}
