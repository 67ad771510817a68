package usecase

import (
	"fmt"
	"strings"
	"time"

	"chat-gateway/internal/domain"
)

const (
	augmentHeader = "--- Real-time information"
	augmentFooter = "--- End of real-time information ---"

	retrievalLayout = "Monday, 2 January 2006 15:04 MST"
)

// Augment returns a copy of messages whose leading system message carries
// the search result and the rules for using it. When there is no system
// message one is prepended. The input slice is never modified.
func Augment(messages []domain.ChatMessage, result domain.SearchResult, now time.Time, pages ...domain.Page) []domain.ChatMessage {
	block := augmentationBlock(result, now, pages)

	out := make([]domain.ChatMessage, 0, len(messages)+1)
	idx := -1
	for i, m := range messages {
		if m.Role == domain.RoleSystem {
			idx = i
			break
		}
	}
	if idx < 0 {
		out = append(out, domain.ChatMessage{Role: domain.RoleSystem, Content: block})
		return append(out, messages...)
	}

	out = append(out, messages...)
	// The rewritten system message is plain text; only its text parts survive.
	out[idx].Parts = nil
	original := strings.TrimRight(out[idx].Content, " \n\t")
	if original == "" {
		out[idx].Content = block
	} else {
		out[idx].Content = original + "\n\n" + block
	}
	return out
}

func augmentationBlock(result domain.SearchResult, now time.Time, pages []domain.Page) string {
	retrieved := result.RetrievedAt
	if retrieved.IsZero() {
		retrieved = now
	}
	stamp := retrieved.UTC().Format(retrievalLayout)

	var b strings.Builder
	fmt.Fprintf(&b, "%s (retrieved %s) ---\n", augmentHeader, stamp)
	fmt.Fprintf(&b, "Current date and time: %s\n", now.UTC().Format(retrievalLayout))
	fmt.Fprintf(&b, "Topic: %s. Reliability: %s.\n\n", result.Domain, result.SourceReliability)
	b.WriteString(strings.TrimSpace(result.Body))
	b.WriteString("\n")

	for _, p := range pages {
		b.WriteString("\nContent of the page the user linked")
		if p.URL != "" {
			fmt.Fprintf(&b, " (%s)", p.URL)
		}
		b.WriteString(":\n")
		if p.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", p.Title)
		}
		if p.Text != "" {
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
	}

	b.WriteString(augmentFooter)
	b.WriteString("\n\nWhen answering:\n")
	b.WriteString("- Use only the real-time information above for current facts, prices, scores and events.\n")
	fmt.Fprintf(&b, "- Say that the information was retrieved on %s.\n", stamp)
	b.WriteString("- Do not invent numbers, names, dates or events that are not in the block.\n")
	if result.SourceReliability == domain.ReliabilityUnavailable {
		b.WriteString("- Real-time information is unavailable for this question. Tell the user so plainly before answering from general knowledge.\n")
	} else {
		b.WriteString("- If the block does not answer the question, say so instead of guessing.\n")
	}
	return b.String()
}

// withProvenance appends a short note naming where a verified answer came
// from, unless the answer already says it.
func withProvenance(content string, result domain.SearchResult) string {
	if result.SourceReliability != domain.ReliabilityVerified {
		return content
	}
	if strings.Contains(strings.ToLower(content), "verified") {
		return content
	}
	return fmt.Sprintf("%s\n\n(Source: verified %s data retrieved %s.)",
		strings.TrimRight(content, " \n"), result.Domain, result.RetrievedAt.UTC().Format(retrievalLayout))
}
