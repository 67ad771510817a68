package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	lastIn *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr(`{"token":"v"}`), Type: types.ParameterTypeSecureString,
	}}}
	client, err := New(api)
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), " p ")
	require.NoError(t, err)
	require.Equal(t, `{"token":"v"}`, v)
	require.Equal(t, "p", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: nil}}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_NotFound(t *testing.T) {
	api := &fakeAPI{getErr: &types.ParameterNotFound{Message: strPtr("nope")}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "/chat-gateway/provider-token")
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "/chat-gateway/provider-token")
}

func TestGetParameter_ApiError(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("boom")}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.ErrorContains(t, err, "boom")
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

// ---------------------------------------------------------------------------
// ProviderToken
// ---------------------------------------------------------------------------

type fakeGetter struct {
	val  string
	err  error
	name string
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	f.name = name
	return f.val, f.err
}

func TestProviderToken_JSONToken(t *testing.T) {
	g := &fakeGetter{val: `{"token":" gsk-from-ssm "}`}
	token, err := ProviderToken(context.Background(), g, "/chat-gateway/")
	require.NoError(t, err)
	require.Equal(t, "gsk-from-ssm", token)
	require.Equal(t, "/chat-gateway/provider-token", g.name)
}

func TestProviderToken_EmptyTokenIsNotConfigured(t *testing.T) {
	_, err := ProviderToken(context.Background(), &fakeGetter{val: `{"other":"value"}`}, "/chat-gateway")
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "empty")
}

func TestProviderToken_MalformedJSON(t *testing.T) {
	_, err := ProviderToken(context.Background(), &fakeGetter{val: `{"broken`}, "/chat-gateway")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmarshal")
}

func TestProviderToken_GetterError(t *testing.T) {
	_, err := ProviderToken(context.Background(), &fakeGetter{err: errors.New("ssm unavailable")}, "/chat-gateway")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm unavailable")
}

func TestProviderToken_BadArguments(t *testing.T) {
	_, err := ProviderToken(context.Background(), nil, "/chat-gateway")
	require.ErrorContains(t, err, "nil")

	_, err = ProviderToken(context.Background(), &fakeGetter{}, " / ")
	require.ErrorContains(t, err, "empty")
}
