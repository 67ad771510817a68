package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-gateway/internal/domain"
)

var defaultTriggers = []string{"real-time web browsing", "deep research agent"}

// ---------------------------------------------------------------------------
// BrowsingDetector
// ---------------------------------------------------------------------------

func TestDetect_TriggerInSystemMessage(t *testing.T) {
	d := NewBrowsingDetector(defaultTriggers)
	browsing, query := d.Detect([]domain.ChatMessage{
		{Role: "system", Content: "You are a helpful assistant with REAL-TIME WEB BROWSING."},
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "answer"},
		{Role: "user", Content: "current CM of Bihar"},
	})
	require.True(t, browsing)
	require.Equal(t, "current CM of Bihar", query)
}

func TestDetect_TriggerOutsideSystemMessageIsIgnored(t *testing.T) {
	d := NewBrowsingDetector(defaultTriggers)
	browsing, query := d.Detect([]domain.ChatMessage{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: "please use real-time web browsing"},
	})
	require.False(t, browsing)
	require.Equal(t, "please use real-time web browsing", query)
}

func TestDetect_NoUserMessage(t *testing.T) {
	d := NewBrowsingDetector(defaultTriggers)
	browsing, query := d.Detect([]domain.ChatMessage{
		{Role: "system", Content: "Deep Research Agent mode"},
		{Role: "assistant", Content: "hi"},
	})
	require.True(t, browsing)
	require.Equal(t, "", query)

	browsing, query = d.Detect(nil)
	require.False(t, browsing)
	require.Equal(t, "", query)
}

func TestDetect_CustomTriggers(t *testing.T) {
	d := NewBrowsingDetector([]string{"  LIVE SEARCH ", ""})
	browsing, _ := d.Detect([]domain.ChatMessage{{Role: "system", Content: "live search enabled"}})
	require.True(t, browsing)

	browsing, _ = d.Detect([]domain.ChatMessage{{Role: "system", Content: "real-time web browsing"}})
	require.False(t, browsing)
}

// ---------------------------------------------------------------------------
// Augment
// ---------------------------------------------------------------------------

var (
	fixedNow    = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	quoteResult = domain.SearchResult{
		Domain:            domain.DomainFinance,
		Body:              "Stock quote for TSLA (NMS)\nPrice: 250.50 USD",
		RetrievedAt:       fixedNow,
		SourceReliability: domain.ReliabilityVerified,
	}
)

func TestAugment_RewritesLeadingSystemMessageOnly(t *testing.T) {
	in := []domain.ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "system", Content: "You have real-time web browsing."},
		{Role: "system", Content: "second system"},
		{Role: "user", Content: "tesla stock price"},
	}
	snapshot := append([]domain.ChatMessage(nil), in...)

	out := Augment(in, quoteResult, fixedNow)

	require.Equal(t, snapshot, in, "input must not be mutated")
	require.Len(t, out, len(in))
	require.True(t, strings.HasPrefix(out[1].Content, "You have real-time web browsing.\n\n--- Real-time information"))
	require.Contains(t, out[1].Content, "Price: 250.50 USD")
	require.Contains(t, out[1].Content, "Friday, 16 October 2026 09:30 UTC")
	require.Contains(t, out[1].Content, "Do not invent")
	require.Equal(t, "second system", out[2].Content)
	require.Equal(t, in[0], out[0])
	require.Equal(t, in[3], out[3])
}

func TestAugment_PrependsSystemMessageWhenMissing(t *testing.T) {
	in := []domain.ChatMessage{{Role: "user", Content: "tesla stock price"}}
	out := Augment(in, quoteResult, fixedNow)

	require.Len(t, out, 2)
	require.Equal(t, domain.RoleSystem, out[0].Role)
	require.True(t, strings.HasPrefix(out[0].Content, "--- Real-time information"))
	require.Equal(t, in[0], out[1])
}

func TestAugment_UnavailableResultTellsModelToDisclose(t *testing.T) {
	out := Augment([]domain.ChatMessage{{Role: "system", Content: ""}}, domain.SearchResult{
		Domain:            domain.DomainGeneral,
		Body:              "No real-time information is available.",
		SourceReliability: domain.ReliabilityUnavailable,
	}, fixedNow)

	require.Contains(t, out[0].Content, "unavailable for this question")
	require.Contains(t, out[0].Content, "retrieved Friday, 16 October 2026 09:30 UTC")
}

func TestAugment_IncludesLinkedPage(t *testing.T) {
	out := Augment([]domain.ChatMessage{{Role: "user", Content: "summarise https://example.com"}}, quoteResult, fixedNow,
		domain.Page{URL: "https://example.com", Title: "Example Domain", Text: "This domain is for use in examples."})

	require.Contains(t, out[0].Content, "Content of the page the user linked (https://example.com):")
	require.Contains(t, out[0].Content, "Title: Example Domain")
	require.Contains(t, out[0].Content, "This domain is for use in examples.")
	require.Less(t, strings.Index(out[0].Content, "Example Domain"), strings.Index(out[0].Content, augmentFooter))
}

func TestWithProvenance(t *testing.T) {
	got := withProvenance("Tesla trades at 250.50 USD.", quoteResult)
	require.Equal(t, "Tesla trades at 250.50 USD.\n\n(Source: verified finance data retrieved Friday, 16 October 2026 09:30 UTC.)", got)

	require.Equal(t, "Verified: 250.50", withProvenance("Verified: 250.50", quoteResult))

	web := quoteResult
	web.SourceReliability = domain.ReliabilityWebSearch
	require.Equal(t, "answer", withProvenance("answer", web))
}
