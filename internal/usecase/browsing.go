package usecase

import (
	"strings"

	"chat-gateway/internal/domain"
)

// BrowsingDetector decides whether a conversation asked for real-time data.
// The front-end signals this by putting a trigger phrase into a system
// message.
type BrowsingDetector struct {
	triggers []string
}

func NewBrowsingDetector(triggers []string) *BrowsingDetector {
	lowered := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}
	return &BrowsingDetector{triggers: lowered}
}

// Detect reports whether any system message carries a trigger phrase, and
// returns the content of the last user message ("" when there is none).
func (d *BrowsingDetector) Detect(messages []domain.ChatMessage) (bool, string) {
	browsing := false
	query := ""
	foundQuery := false
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		switch m.Role {
		case domain.RoleUser:
			if !foundQuery {
				query = m.Content
				foundQuery = true
			}
		case domain.RoleSystem:
			if !browsing && d.matches(m.Content) {
				browsing = true
			}
		}
	}
	return browsing, query
}

func (d *BrowsingDetector) matches(content string) bool {
	if content == "" {
		return false
	}
	lower := strings.ToLower(content)
	for _, t := range d.triggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
