package usecase

import (
	"strings"

	"chat-gateway/internal/domain"
)

// ErrorKind classifies a failed provider exchange.
type ErrorKind string

const (
	ErrorKindNone         ErrorKind = ""
	ErrorKindUnconfigured ErrorKind = "unconfigured"
	ErrorKindProvider     ErrorKind = "provider_error"
)

// NormalizedResponse is the single shape every provider exchange is reduced
// to. Exactly one of three states holds: Content set (success), ErrorKind set
// (failure), or neither (the provider replied without usable text).
type NormalizedResponse struct {
	Content         *string
	ErrorKind       ErrorKind
	RawErrorMessage string
	// ProviderStatus is the upstream HTTP status for provider errors, 0 when
	// the failure happened before a response arrived.
	ProviderStatus int
}

// Empty reports the EmptyReply state.
func (r NormalizedResponse) Empty() bool {
	return r.Content == nil && r.ErrorKind == ErrorKindNone
}

// Normalize extracts the first choice's text, probing every level of the
// reply. Any missing level yields the empty state.
func Normalize(reply *domain.ProviderReply) NormalizedResponse {
	if reply == nil || len(reply.Choices) == 0 {
		return NormalizedResponse{}
	}
	first := reply.Choices[0]
	if first == nil || first.Message == nil || first.Message.Content == nil {
		return NormalizedResponse{}
	}
	text := *first.Message.Content
	if strings.TrimSpace(text) == "" {
		return NormalizedResponse{}
	}
	return NormalizedResponse{Content: &text}
}
