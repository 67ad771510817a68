package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chat-gateway/internal/domain"
)

// Orchestrator classifies a query, asks the matching source and falls back to
// the general source once when the specialized source fails or has no data.
// It never returns an error: total failure becomes an unavailable result.
type Orchestrator struct {
	classifier *Classifier
	general    Source
	sources    map[domain.Domain]Source
	policy     Policy
	now        func() time.Time
}

// NewOrchestrator wires the classifier and sources. Domains without a
// specialized source go straight to general.
func NewOrchestrator(classifier *Classifier, general Source, specialized map[domain.Domain]Source, policy Policy) (*Orchestrator, error) {
	if classifier == nil {
		return nil, errors.New("search: classifier must not be nil")
	}
	if general.Fetcher == nil {
		return nil, errors.New("search: general source must not be nil")
	}
	sources := make(map[domain.Domain]Source, len(specialized))
	for d, src := range specialized {
		if d == domain.DomainGeneral || src.Fetcher == nil {
			continue
		}
		sources[d] = src
	}
	return &Orchestrator{
		classifier: classifier,
		general:    general,
		sources:    sources,
		policy:     policy,
		now:        time.Now,
	}, nil
}

// Classify exposes the classifier decision for a query.
func (o *Orchestrator) Classify(query string) domain.Domain {
	return o.classifier.Classify(query)
}

// Search returns the best available result for query.
func (o *Orchestrator) Search(ctx context.Context, query string) domain.SearchResult {
	ctx, cancel := context.WithTimeout(ctx, o.policy.deadline())
	defer cancel()

	d := o.classifier.Classify(query)
	if src, ok := o.sources[d]; ok {
		body, err := o.policy.attempt(ctx, src, query, o.policy.primaryTimeout())
		if err == nil {
			return o.result(d, body, src.Reliability)
		}
		logFetchFailure(src, d, err)
	}

	body, err := o.policy.attempt(ctx, o.general, query, o.policy.fetchTimeout())
	if err == nil {
		return o.result(domain.DomainGeneral, body, o.general.Reliability)
	}
	logFetchFailure(o.general, domain.DomainGeneral, err)

	return o.result(d, NoInformationMessage, domain.ReliabilityUnavailable)
}

func (o *Orchestrator) result(d domain.Domain, body string, reliability domain.Reliability) domain.SearchResult {
	return domain.SearchResult{
		Domain:            d,
		Body:              body,
		RetrievedAt:       o.now().UTC(),
		SourceReliability: reliability,
	}
}

func logFetchFailure(src Source, d domain.Domain, err error) {
	if errors.Is(err, domain.ErrNoData) {
		slog.Info("search source returned no data", "source", src.Name, "domain", d)
		return
	}
	slog.Warn("search source failed", "source", src.Name, "domain", d, "err", err)
}
