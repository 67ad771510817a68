package domain

import "encoding/json"

// ProviderReply is the decoded body of a chat completion. Every level is
// optional: providers have changed this shape between versions, so callers
// must check each step before reading the next.
type ProviderReply struct {
	ID      string         `json:"id,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []*ReplyChoice `json:"choices,omitempty"`
	Usage   *ReplyUsage    `json:"usage,omitempty"`
}

// ReplyChoice is one candidate answer.
type ReplyChoice struct {
	Index        int           `json:"index"`
	Message      *ReplyMessage `json:"message,omitempty"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// ReplyMessage holds the candidate text.
type ReplyMessage struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// UnmarshalJSON decodes each level on its own. A level whose JSON type is not
// the expected one is left absent instead of failing the whole reply.
func (r *ProviderReply) UnmarshalJSON(data []byte) error {
	*r = ProviderReply{}
	fields, ok := jsonObject(data)
	if !ok {
		return nil
	}
	_ = json.Unmarshal(fields["id"], &r.ID)
	_ = json.Unmarshal(fields["model"], &r.Model)

	var choices []json.RawMessage
	if json.Unmarshal(fields["choices"], &choices) == nil {
		for _, raw := range choices {
			r.Choices = append(r.Choices, decodeChoice(raw))
		}
	}

	if raw, ok := fields["usage"]; ok && string(raw) != "null" {
		var usage ReplyUsage
		if json.Unmarshal(raw, &usage) == nil {
			r.Usage = &usage
		}
	}
	return nil
}

func decodeChoice(raw json.RawMessage) *ReplyChoice {
	fields, ok := jsonObject(raw)
	if !ok {
		return nil
	}
	c := &ReplyChoice{}
	_ = json.Unmarshal(fields["index"], &c.Index)
	_ = json.Unmarshal(fields["finish_reason"], &c.FinishReason)
	c.Message = decodeReplyMessage(fields["message"])
	return c
}

func decodeReplyMessage(raw json.RawMessage) *ReplyMessage {
	fields, ok := jsonObject(raw)
	if !ok {
		return nil
	}
	m := &ReplyMessage{}
	_ = json.Unmarshal(fields["role"], &m.Role)
	var content *string
	if json.Unmarshal(fields["content"], &content) == nil {
		m.Content = content
	}
	return m
}

// jsonObject splits data into its members; ok is false for anything but a
// JSON object.
func jsonObject(data []byte) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// ReplyUsage carries token accounting when the provider reports it.
type ReplyUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Tool is a capability offered to the model (for example a function).
type Tool struct {
	Type     string         `json:"type" yaml:"type"`
	Function map[string]any `json:"function,omitempty" yaml:"function,omitempty"`
}

// Parameters is a generation parameter profile.
type Parameters struct {
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	TopP            float64 `yaml:"top_p"`
	Tools           []Tool  `yaml:"tools"`
	ToolChoice      string  `yaml:"tool_choice"`
}
