package groq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-gateway/internal/domain"
)

// ---------------------------------------------------------------------------
// chatURL helper
// ---------------------------------------------------------------------------

func TestChatURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.groq.com/openai/v1", "https://api.groq.com/openai/v1/chat/completions"},
		{"https://api.groq.com/openai/v1/", "https://api.groq.com/openai/v1/chat/completions"},
		{"http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
		{"", "https://api.groq.com/openai/v1/chat/completions"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, chatURL(tc.base), "base=%q", tc.base)
	}
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_EmptyKey(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient("gsk-test")
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, c.baseURL)
	require.Equal(t, defaultTimeout, c.httpClient.Timeout)
}

// ---------------------------------------------------------------------------
// Client.Create
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		"gsk-test",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func TestClient_Create_HappyPath(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))
		reqBody, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(reqBody, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-123",
			"model": "llama-3.3-70b-versatile",
			"choices": [{
				"index": 0,
				"message": { "role": "assistant", "content": "Hello from mock" },
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	reply, err := c.Create(context.Background(), "llama-3.3-70b-versatile",
		[]domain.ChatMessage{{Role: "user", Content: "hi"}},
		domain.Parameters{Temperature: 0.2, MaxOutputTokens: 2048, TopP: 0.5})
	require.NoError(t, err)

	require.Equal(t, "llama-3.3-70b-versatile", got["model"])
	require.Equal(t, 0.2, got["temperature"])
	require.Equal(t, float64(2048), got["max_tokens"])
	require.Equal(t, 0.5, got["top_p"])
	require.NotContains(t, got, "tools")
	require.NotContains(t, got, "tool_choice")

	require.Len(t, reply.Choices, 1)
	require.NotNil(t, reply.Choices[0].Message)
	require.Equal(t, "Hello from mock", *reply.Choices[0].Message.Content)
	require.Equal(t, 7, reply.Usage.TotalTokens)
}

func TestClient_Create_SendsTools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqBody, _ := io.ReadAll(r.Body)
		require.Contains(t, string(reqBody), `"tools":[{"type":"browser_search"}]`)
		require.Contains(t, string(reqBody), `"tool_choice":"auto"`)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Create(context.Background(), "m", nil, domain.Parameters{
		Tools:      []domain.Tool{{Type: "browser_search"}},
		ToolChoice: "auto",
	})
	require.NoError(t, err)
}

func TestClient_Create_OddShapesDecode(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"choices":[]}`,
		`{"choices":[null]}`,
		`{"choices":[{"index":0}]}`,
		`{"choices":[{"message":{"role":"assistant","content":null}}]}`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := newTestClient(t, srv)
		reply, err := c.Create(context.Background(), "m", nil, domain.Parameters{})
		srv.Close()
		require.NoError(t, err, body)
		require.NotNil(t, reply, body)
	}
}

func TestClient_Create_DriftedShapesDecodeAsAbsent(t *testing.T) {
	bodies := []string{
		`{"choices":[{"message":{"role":"assistant","content":[{"type":"text","text":"hi"}]}}]}`,
		`{"choices":[{"message":"hi"}]}`,
		`{"choices":{"0":{"message":{"content":"hi"}}}}`,
		`{"choices":[7,"x"]}`,
		`{"id":42,"usage":{"total_tokens":"many"},"choices":[]}`,
		`["not","an","object"]`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := newTestClient(t, srv)
		reply, err := c.Create(context.Background(), "m", nil, domain.Parameters{})
		srv.Close()
		require.NoError(t, err, body)
		require.NotNil(t, reply, body)
		for _, choice := range reply.Choices {
			if choice != nil && choice.Message != nil {
				require.Nil(t, choice.Message.Content, body)
			}
		}
	}
}

func TestClient_Create_KeepsGoodLevelsNextToDriftedOnes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":7,"model":"m","usage":"n/a","choices":[{"index":"0","message":{"role":1,"content":"hello"}}]}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv).Create(context.Background(), "m", nil, domain.Parameters{})
	require.NoError(t, err)
	require.Equal(t, "m", reply.Model)
	require.Nil(t, reply.Usage)
	require.Len(t, reply.Choices, 1)
	require.Equal(t, "hello", *reply.Choices[0].Message.Content)
}

func TestClient_Create_ProviderErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"The model ` + "`nope`" + ` does not exist","type":"invalid_request_error","code":"model_not_found"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Create(context.Background(), "nope", nil, domain.Parameters{})
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.HTTPStatusCode())
	require.Equal(t, "The model `nope` does not exist", statusErr.ProviderMessage())
	require.Contains(t, err.Error(), "does not exist")
}

func TestClient_Create_Non200PlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream unavailable`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Create(context.Background(), "m", nil, domain.Parameters{})
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "upstream unavailable", statusErr.ProviderMessage())
	require.Contains(t, err.Error(), "502")
}

func TestClient_Create_429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Create(context.Background(), "m", nil, domain.Parameters{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestClient_Create_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-a-json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Create(context.Background(), "m", nil, domain.Parameters{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestClient_Create_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Create(context.Background(), "m", nil, domain.Parameters{})
	require.Error(t, err)
}

func TestClient_Create_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestClient(t, srv)
	_, err := c.Create(ctx, "m", nil, domain.Parameters{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestClient_Create_NetworkError(t *testing.T) {
	c, err := NewClient("gsk-test")
	require.NoError(t, err)
	c.baseURL = "http://127.0.0.1:1"
	c.httpClient = &http.Client{Timeout: 100 * time.Millisecond}

	_, err = c.Create(context.Background(), "m", nil, domain.Parameters{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestClient_Create_EmptyModel(t *testing.T) {
	c, err := NewClient("gsk-test")
	require.NoError(t, err)
	_, err = c.Create(context.Background(), "", nil, domain.Parameters{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")
}
