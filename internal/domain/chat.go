package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

// Chat roles accepted from callers and sent to the provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content part types sent by multimodal front-ends.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// ChatMessage is the provider-agnostic chat message shape used by the handler
// and LLM integrations. Content is always the message text. Parts is set when
// the caller sent content as an array; it is forwarded to the provider as is.
type ChatMessage struct {
	Role    string
	Content string
	Parts   []ContentPart
}

// ContentPart is one element of array content.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

var errContentShape = errors.New("domain: message content must be a string or an array of parts")

func (m ChatMessage) MarshalJSON() ([]byte, error) {
	var content any = m.Content
	if m.Parts != nil {
		content = m.Parts
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	}{Role: m.Role, Content: content})
}

// UnmarshalJSON accepts string, null or array content. For arrays Content is
// the text parts joined by newlines.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = ChatMessage{Role: w.Role}

	raw := strings.TrimSpace(string(w.Content))
	switch {
	case raw == "" || raw == "null":
		return nil
	case strings.HasPrefix(raw, `"`):
		return json.Unmarshal(w.Content, &m.Content)
	case strings.HasPrefix(raw, "["):
		parts := []ContentPart{}
		if err := json.Unmarshal(w.Content, &parts); err != nil {
			return errContentShape
		}
		m.Parts = parts
		m.Content = partsText(parts)
		return nil
	default:
		return errContentShape
	}
}

func partsText(parts []ContentPart) string {
	var texts []string
	for _, p := range parts {
		if p.Type == PartText && strings.TrimSpace(p.Text) != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// ValidRole reports whether role is one of the accepted chat roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}
