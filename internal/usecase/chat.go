package usecase

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-gateway/internal/domain"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `]+`)

// Searcher runs the search for a browsing-mode query. It always returns a
// result, falling back to an "unavailable" sentinel.
type Searcher interface {
	Search(ctx context.Context, query string) domain.SearchResult
}

// PageFetcher downloads and parses a single web page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (domain.Page, error)
}

// StatusPublisher delivers progress events. Implementations must not block
// the caller.
type StatusPublisher interface {
	Publish(ctx context.Context, channel string, event domain.StatusEvent)
}

// ChatOptions are the optional collaborators and switches of ChatService.
type ChatOptions struct {
	Pages               PageFetcher
	Publisher           StatusPublisher
	StatusChannel       string
	ModelAliases        map[string]string
	AutoBrowseURLs      bool
	VerifiedMarkerCheck bool
	// Now is the clock used for retrieval stamps; time.Now when nil.
	Now func() time.Time
}

type ChatService struct {
	detector *BrowsingDetector
	searcher Searcher
	gateway  *Gateway
	opts     ChatOptions
}

type ChatInput struct {
	ModelID  string
	Messages []domain.ChatMessage
}

type ChatOutput struct {
	Content   string
	SessionID string
	Browsing  bool
	Domain    domain.Domain
	// Empty is set when the provider answered without text and Content is
	// the neutral fallback phrase.
	Empty bool
}

func NewChatService(detector *BrowsingDetector, searcher Searcher, gateway *Gateway, opts ChatOptions) (*ChatService, error) {
	if detector == nil {
		return nil, errors.New("usecase: browsing detector must not be nil")
	}
	if searcher == nil {
		return nil, errors.New("usecase: searcher must not be nil")
	}
	if gateway == nil {
		return nil, errors.New("usecase: gateway must not be nil")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ChatService{
		detector: detector,
		searcher: searcher,
		gateway:  gateway,
		opts:     opts,
	}, nil
}

// Configured reports whether a provider credential was available at startup.
func (s *ChatService) Configured() bool {
	return s.gateway.Configured()
}

// UnconfiguredError is the error every request gets while Configured is false.
func UnconfiguredError() error {
	return newError(ErrorUnconfigured, "provider_not_configured", ErrUnconfigured)
}

// Chat serves one request: validate, optionally search and augment, call the
// provider and map the outcome.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if !s.gateway.Configured() {
		return ChatOutput{}, UnconfiguredError()
	}
	if err := validateInput(in); err != nil {
		return ChatOutput{}, err
	}

	model := s.resolveModel(in.ModelID)
	out := ChatOutput{SessionID: newUUID()}

	messages := in.Messages
	mode := ModePlain
	var result domain.SearchResult

	browsing, query := s.detector.Detect(in.Messages)
	if browsing {
		mode = ModeBrowsing
		out.Browsing = true
		s.publish(ctx, domain.StatusEvent{Type: domain.EventBrowsingStarted, SessionID: out.SessionID, Model: model})

		result = s.searcher.Search(ctx, query)
		out.Domain = result.Domain
		pages := s.linkedPages(ctx, query)

		s.publish(ctx, domain.StatusEvent{
			Type:        domain.EventSearchCompleted,
			SessionID:   out.SessionID,
			Model:       model,
			Domain:      result.Domain,
			Reliability: result.SourceReliability,
		})

		// Never hand the provider a request whose augmentation was cut short.
		if err := ctx.Err(); err != nil {
			return ChatOutput{}, newError(ErrorCancelled, "cancelled_during_search", err)
		}
		messages = Augment(in.Messages, result, s.opts.Now(), pages...)
	}

	if err := ctx.Err(); err != nil {
		return ChatOutput{}, newError(ErrorCancelled, "cancelled_before_dispatch", err)
	}

	resp := s.gateway.Send(ctx, model, messages, mode)
	s.publish(ctx, domain.StatusEvent{
		Type:      domain.EventProviderCompleted,
		SessionID: out.SessionID,
		Model:     model,
		Domain:    out.Domain,
		Outcome:   outcome(resp),
	})

	switch resp.ErrorKind {
	case ErrorKindUnconfigured:
		return ChatOutput{}, newError(ErrorUnconfigured, "provider_not_configured", errors.New(resp.RawErrorMessage))
	case ErrorKindProvider:
		if err := ctx.Err(); err != nil {
			return ChatOutput{}, newError(ErrorCancelled, "cancelled_during_provider_call", err)
		}
		if resp.ProviderStatus == 429 {
			return ChatOutput{}, newError(ErrorRateLimited, "provider_rate_limited", errors.New(resp.RawErrorMessage))
		}
		return ChatOutput{}, newError(ErrorUpstream, "provider_error", errors.New(resp.RawErrorMessage))
	}

	if resp.Content == nil {
		slog.Warn("provider returned no usable content", "model", model, "session_id", out.SessionID)
		out.Content = EmptyReplyPhrase
		out.Empty = true
		return out, nil
	}

	out.Content = *resp.Content
	if browsing && s.opts.VerifiedMarkerCheck {
		out.Content = withProvenance(out.Content, result)
	}
	return out, nil
}

func validateInput(in ChatInput) error {
	if strings.TrimSpace(in.ModelID) == "" || len(in.Messages) == 0 {
		return newError(ErrorInvalidInput, "missing model or messages in request", nil)
	}
	for _, m := range in.Messages {
		if !domain.ValidRole(m.Role) {
			return newError(ErrorInvalidInput, "invalid message role", errors.New("invalid message role: "+m.Role))
		}
	}
	return nil
}

func (s *ChatService) resolveModel(id string) string {
	id = strings.TrimSpace(id)
	if target, ok := s.opts.ModelAliases[strings.ToLower(id)]; ok {
		return target
	}
	return id
}

// linkedPages fetches the first URL in the query when automatic browsing of
// links is on. Failures are logged and dropped.
func (s *ChatService) linkedPages(ctx context.Context, query string) []domain.Page {
	if !s.opts.AutoBrowseURLs || s.opts.Pages == nil {
		return nil
	}
	link := firstURL(query)
	if link == "" {
		return nil
	}
	page, err := s.opts.Pages.Fetch(ctx, link)
	if err != nil {
		slog.Warn("linked page fetch failed", "url", link, "err", err)
		return nil
	}
	return []domain.Page{page}
}

func firstURL(text string) string {
	return strings.TrimRight(urlPattern.FindString(text), ".,;:!?)]}")
}

func (s *ChatService) publish(ctx context.Context, ev domain.StatusEvent) {
	if s.opts.Publisher == nil {
		return
	}
	ev.At = s.opts.Now().UTC()
	s.opts.Publisher.Publish(ctx, s.opts.StatusChannel, ev)
}

func outcome(resp NormalizedResponse) string {
	switch {
	case resp.ErrorKind != ErrorKindNone:
		return string(resp.ErrorKind)
	case resp.Content == nil:
		return "empty"
	default:
		return "success"
	}
}

var newUUID = func() string {
	return uuid.NewString()
}
