package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-gateway/internal/config"
	"chat-gateway/internal/integrations/paramstore"
)

type stubGetter struct {
	values map[string]string
	err    error
	asked  []string
}

func (s *stubGetter) GetParameter(_ context.Context, name string) (string, error) {
	s.asked = append(s.asked, name)
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.values[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", paramstore.ErrNotFound, name)
	}
	return v, nil
}

func useGetter(t *testing.T, g paramstore.Getter, err error) {
	t.Helper()
	prev := newParamGetter
	newParamGetter = func(context.Context) (paramstore.Getter, error) { return g, err }
	t.Cleanup(func() { newParamGetter = prev })
}

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	policy, err := config.DefaultPolicy()
	require.NoError(t, err)
	return config.Config{
		Port:               "5000",
		ProviderBaseURL:    "http://127.0.0.1:1",
		FetchTimeout:       time.Second,
		SearchDeadline:     2 * time.Second,
		ProviderTimeout:    5 * time.Second,
		StatusChannel:      "chat-gateway:status",
		CORSAllowedOrigins: []string{"*"},
		LogFormat:          "text",
		Policy:             policy,
	}
}

const chatBody = `{"model":"atlas","messages":[{"role":"user","content":"hello"}]}`

func TestBuild_WithoutKeyIsUnconfigured(t *testing.T) {
	h, cleanup, err := Build(context.Background(), baseConfig(t))
	require.NoError(t, err)
	defer cleanup()

	status, _ := h.Serve(context.Background(), "corr-1", []byte(chatBody))
	require.Equal(t, http.StatusServiceUnavailable, status)
}

func TestBuild_ServesThroughProvider(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`))
	}))
	defer srv.Close()

	cfg := baseConfig(t)
	cfg.ProviderAPIKey = "gsk-test"
	cfg.ProviderBaseURL = srv.URL
	h, cleanup, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	status, _ := h.Serve(context.Background(), "corr-1", []byte(chatBody))
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "/v1/chat/completions", gotPath)
	require.Equal(t, "Bearer gsk-test", gotAuth)
	require.Contains(t, gotBody, `"model":"openai/gpt-oss-120b"`)
}

func TestBuild_ResolvesTokenFromParameterStore(t *testing.T) {
	getter := &stubGetter{values: map[string]string{"/chat/prod/provider-token": `{"token":"from-ssm"}`}}
	useGetter(t, getter, nil)

	cfg := baseConfig(t)
	cfg.ParamPrefix = "/chat/prod"
	key, err := providerKey(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, "from-ssm", key)
	require.Equal(t, []string{"/chat/prod/provider-token"}, getter.asked)
}

func TestBuild_EnvKeyWinsOverParameterStore(t *testing.T) {
	getter := &stubGetter{}
	useGetter(t, getter, nil)

	cfg := baseConfig(t)
	cfg.ProviderAPIKey = "from-env"
	cfg.ParamPrefix = "/chat/prod"
	key, err := providerKey(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, "from-env", key)
	require.Empty(t, getter.asked)
}

func TestBuild_MissingParameterLeavesUnconfigured(t *testing.T) {
	useGetter(t, &stubGetter{}, nil)

	cfg := baseConfig(t)
	cfg.ParamPrefix = "/chat/prod"
	h, cleanup, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	status, _ := h.Serve(context.Background(), "corr-1", []byte(chatBody))
	require.Equal(t, http.StatusServiceUnavailable, status)
}

func TestBuild_ParameterStoreFailureIsFatal(t *testing.T) {
	useGetter(t, &stubGetter{err: errors.New("throttled")}, nil)

	cfg := baseConfig(t)
	cfg.ParamPrefix = "/chat/prod"
	_, _, err := Build(context.Background(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "resolve provider token")

	useGetter(t, nil, errors.New("no credentials"))
	_, _, err = Build(context.Background(), cfg)
	require.EqualError(t, err, "no credentials")
}

func TestBuild_RedisPublisher(t *testing.T) {
	cfg := baseConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1/0"
	h, cleanup, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, h)
	cleanup()

	cfg.RedisURL = "not-a-url"
	_, _, err = Build(context.Background(), cfg)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "app: status publisher"))
}
