package domain

import (
	"errors"
	"time"
)

// Domain is the subject area a search query is routed to.
type Domain string

const (
	DomainFinance Domain = "finance"
	DomainNews    Domain = "news"
	DomainSports  Domain = "sports"
	DomainWeather Domain = "weather"
	DomainTech    Domain = "tech"
	DomainGeneral Domain = "general"
)

// Reliability describes where the text in a SearchResult came from.
type Reliability string

const (
	// ReliabilityVerified marks data from a dedicated structured source.
	ReliabilityVerified Reliability = "verified"
	// ReliabilityWebSearch marks data from free-text web search.
	ReliabilityWebSearch Reliability = "web-search"
	// ReliabilityUnavailable marks the sentinel result when every source failed.
	ReliabilityUnavailable Reliability = "unavailable"
)

// SearchResult is the request-scoped output of one search.
type SearchResult struct {
	Domain            Domain
	Body              string
	RetrievedAt       time.Time
	SourceReliability Reliability
}

// Page is the parsed form of a fetched web page.
type Page struct {
	URL   string
	Title string
	Text  string
	Links []string
}

// ErrNoData is returned by a source that answered but had nothing for the
// query. It is not a failure of the source.
var ErrNoData = errors.New("no data")
