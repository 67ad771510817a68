package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chat-gateway/internal/config"
	"chat-gateway/internal/domain"
)

const defaultProviderTimeout = 60 * time.Second

// ErrUnconfigured is the diagnostic shown when no provider credential was
// available at startup.
var ErrUnconfigured = errors.New("provider client not initialized: check API key on the server")

// Mode selects the parameter profile for a provider call.
type Mode int

const (
	ModePlain Mode = iota
	ModeBrowsing
)

func (m Mode) String() string {
	if m == ModeBrowsing {
		return "browsing"
	}
	return "plain"
}

// LLMClient sends one chat completion request.
type LLMClient interface {
	Create(ctx context.Context, model string, messages []domain.ChatMessage, params domain.Parameters) (*domain.ProviderReply, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type providerMessager interface {
	ProviderMessage() string
}

// Gateway wraps the provider client, picks generation parameters and turns
// every outcome into a NormalizedResponse.
type Gateway struct {
	client   LLMClient
	profiles config.Profiles
	timeout  time.Duration
}

// NewGateway creates a Gateway. A nil client is allowed and means the
// provider is not configured; every Send then fails without network I/O.
func NewGateway(client LLMClient, profiles config.Profiles, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Gateway{client: client, profiles: profiles, timeout: timeout}
}

// Configured reports whether a provider client exists.
func (g *Gateway) Configured() bool {
	return g.client != nil
}

// Parameters returns the profile for mode with any per-model override applied.
func (g *Gateway) Parameters(model string, mode Mode) domain.Parameters {
	params := g.profiles.For(model, mode == ModeBrowsing)
	if len(params.Tools) > 0 {
		params.Tools = append([]domain.Tool(nil), params.Tools...)
	}
	return params
}

// Send calls the provider and normalizes the outcome. It never panics and
// never returns an error; failures are reported through ErrorKind.
func (g *Gateway) Send(ctx context.Context, model string, messages []domain.ChatMessage, mode Mode) (resp NormalizedResponse) {
	if g.client == nil {
		return NormalizedResponse{ErrorKind: ErrorKindUnconfigured, RawErrorMessage: ErrUnconfigured.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("provider client panicked", "model", model, "panic", r)
			resp = NormalizedResponse{ErrorKind: ErrorKindProvider, RawErrorMessage: fmt.Sprintf("provider client panicked: %v", r)}
		}
	}()

	reply, err := g.client.Create(ctx, model, messages, g.Parameters(model, mode))
	if err != nil {
		return providerFailure(err)
	}
	return Normalize(reply)
}

func providerFailure(err error) NormalizedResponse {
	resp := NormalizedResponse{ErrorKind: ErrorKindProvider, RawErrorMessage: err.Error()}
	var pm providerMessager
	if errors.As(err, &pm) {
		if msg := pm.ProviderMessage(); msg != "" {
			resp.RawErrorMessage = msg
		}
	}
	if status, ok := upstreamStatusCode(err); ok {
		resp.ProviderStatus = status
	}
	return resp
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
