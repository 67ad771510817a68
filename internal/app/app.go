// Package app builds the gateway's object graph from configuration. Both
// binaries go through Build so the Lambda and HTTP deployments behave the
// same.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"chat-gateway/handler"
	"chat-gateway/internal/config"
	"chat-gateway/internal/domain"
	"chat-gateway/internal/integrations/groq"
	"chat-gateway/internal/integrations/notify"
	"chat-gateway/internal/integrations/paramstore"
	"chat-gateway/internal/integrations/sources"
	"chat-gateway/internal/integrations/webpage"
	"chat-gateway/internal/search"
	"chat-gateway/internal/usecase"
)

// publisher is a status publisher that owns background work.
type publisher interface {
	usecase.StatusPublisher
	Close() error
}

// newParamGetter loads the AWS default config and returns an SSM-backed
// getter. Replaced in tests.
var newParamGetter = func(ctx context.Context) (paramstore.Getter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load aws config: %w", err)
	}
	return paramstore.New(awsssm.NewFromConfig(awsCfg))
}

// Build wires every collaborator once. The returned cleanup func flushes
// pending status events and must be called on shutdown.
func Build(ctx context.Context, cfg config.Config) (*handler.Handler, func(), error) {
	key, err := providerKey(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var llm usecase.LLMClient
	if key != "" {
		client, err := groq.NewClient(key,
			groq.WithBaseURL(cfg.ProviderBaseURL),
			groq.WithHTTPClient(&http.Client{Timeout: cfg.ProviderTimeout}),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("app: provider client: %w", err)
		}
		llm = client
	} else {
		slog.Warn("no provider key configured; chat requests will be refused")
	}
	gateway := usecase.NewGateway(llm, cfg.Policy.Profiles, cfg.ProviderTimeout)

	orchestrator, err := search.NewOrchestrator(
		search.NewClassifier(cfg.Policy.Domains),
		search.Source{Name: "general", Fetcher: sources.NewGeneral(), Reliability: domain.ReliabilityWebSearch},
		specializedSources(cfg),
		search.Policy{FetchTimeout: cfg.FetchTimeout, Deadline: cfg.SearchDeadline},
	)
	if err != nil {
		return nil, nil, err
	}

	pub, err := statusPublisher(cfg)
	if err != nil {
		return nil, nil, err
	}

	svc, err := usecase.NewChatService(
		usecase.NewBrowsingDetector(cfg.Policy.TriggerPhrases),
		orchestrator,
		gateway,
		usecase.ChatOptions{
			Pages:               webpage.New(),
			Publisher:           pub,
			StatusChannel:       cfg.StatusChannel,
			ModelAliases:        cfg.Policy.ModelAliases,
			AutoBrowseURLs:      cfg.AutoBrowseURLs,
			VerifiedMarkerCheck: cfg.VerifiedMarkerCheck,
		},
	)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}

	h, err := handler.NewHandler(svc)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := pub.Close(); err != nil {
			slog.Warn("close status publisher", "err", err)
		}
	}
	return h, cleanup, nil
}

// providerKey prefers the environment and falls back to Parameter Store when
// a prefix is configured. A missing parameter leaves the key empty.
func providerKey(ctx context.Context, cfg config.Config) (string, error) {
	if key := strings.TrimSpace(cfg.ProviderAPIKey); key != "" {
		return key, nil
	}
	if cfg.ParamPrefix == "" {
		return "", nil
	}

	getter, err := newParamGetter(ctx)
	if err != nil {
		return "", err
	}
	key, err := paramstore.ProviderToken(ctx, getter, cfg.ParamPrefix)
	if errors.Is(err, paramstore.ErrNotFound) {
		slog.Warn("provider token not found in parameter store", "prefix", cfg.ParamPrefix, "err", err)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("app: resolve provider token: %w", err)
	}
	return key, nil
}

func specializedSources(cfg config.Config) map[domain.Domain]search.Source {
	verified := func(name string, f search.Fetcher) search.Source {
		return search.Source{Name: name, Fetcher: f, Reliability: domain.ReliabilityVerified}
	}
	return map[domain.Domain]search.Source{
		domain.DomainFinance: verified("finance", sources.NewFinance(cfg.Policy.Tickers)),
		domain.DomainNews:    verified("news", sources.NewNews(cfg.NewsAPIKey)),
		domain.DomainSports:  verified("sports", sources.NewSports(cfg.NewsAPIKey)),
		domain.DomainWeather: verified("weather", sources.NewWeather(cfg.WeatherAPIKey)),
		domain.DomainTech: {
			Name:        "tech",
			Fetcher:     sources.NewTech(),
			Reliability: domain.ReliabilityWebSearch,
		},
	}
}

func statusPublisher(cfg config.Config) (publisher, error) {
	if cfg.RedisURL == "" {
		return notify.Noop{}, nil
	}
	pub, err := notify.Dial(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("app: status publisher: %w", err)
	}
	return pub, nil
}
