package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gradewise/gradewise/internal/adapter/provider"
	"github.com/gradewise/gradewise/internal/domain"
	domainoauth "github.com/gradewise/gradewise/internal/domain/oauth"
	"github.com/gradewise/gradewise/internal/signer"
)

func newTestClient(t *testing.T, baseURL string, forwardVerifier bool) *provider.HTTPClient {
	t.Helper()
	s, err := signer.New(signer.Config{
		Consumer: domain.Credential{Key: "consumer-key", Secret: "consumer-secret"},
	})
	require.NoError(t, err)
	gate := signer.NewGate(s, domain.Credential{Key: "admin-key", Secret: "admin-secret"})
	return provider.NewHTTPClient(provider.Config{
		BaseURL:         baseURL,
		ForwardVerifier: forwardVerifier,
		Timeout:         2 * time.Second,
	}, s, gate, nil)
}

func TestRequestTokenParsesFormResponse(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/request_token", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("oauth_token=req_abc&oauth_token_secret=req_secret"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, true)
	cred, err := client.RequestToken(context.Background(), "https://gradewise.test/auth/callback")
	require.NoError(t, err)
	require.Equal(t, "req_abc", cred.Key)
	require.Equal(t, "req_secret", cred.Secret)

	require.Contains(t, gotAuth, `OAuth oauth_callback="https%3A%2F%2Fgradewise.test%2Fauth%2Fcallback"`)
	require.Contains(t, gotAuth, `oauth_consumer_key="consumer-key"`)
	require.Contains(t, gotAuth, `oauth_signature_method="HMAC-SHA1"`)
	require.NotContains(t, gotAuth, `oauth_token=`)
}

func TestAccessTokenVerifierPolicy(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("oauth_token=acc_abc&oauth_token_secret=acc_secret"))
	}))
	defer srv.Close()

	requestToken := domain.Credential{Key: "req_abc", Secret: "req_secret"}

	client := newTestClient(t, srv.URL, true)
	_, err := client.AccessToken(context.Background(), requestToken, "verif-42")
	require.NoError(t, err)
	require.Contains(t, gotAuth, `oauth_verifier="verif-42"`)
	require.Contains(t, gotAuth, `oauth_token="req_abc"`)

	client = newTestClient(t, srv.URL, false)
	_, err = client.AccessToken(context.Background(), requestToken, "verif-42")
	require.NoError(t, err)
	require.NotContains(t, gotAuth, "oauth_verifier")
}

func TestTokenResponseMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("oauth_token=only_half"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, true)
	_, err := client.RequestToken(context.Background(), "https://gradewise.test/auth/callback")
	require.ErrorIs(t, err, domainoauth.ErrMalformedResponse)
}

func TestNon2xxBecomesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, true)
	_, err := client.RequestToken(context.Background(), "https://gradewise.test/auth/callback")

	var pe *domainoauth.ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, http.StatusUnauthorized, pe.Status)
}

func TestFetchProfileImpersonationHeader(t *testing.T) {
	var gotRunAs, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me", r.URL.Path)
		gotRunAs = r.Header.Get("X-Schoology-Run-As")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"uid":"U2","name_display":"Impersonated User"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, true)
	profile, err := client.FetchProfile(context.Background(), nil, "U2")
	require.NoError(t, err)
	require.Equal(t, "U2", profile.UserID)
	require.Equal(t, "U2", gotRunAs)
	require.Contains(t, gotAuth, `oauth_consumer_key="admin-key"`)
}

func TestListSectionsUnwrapsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/U1/sections", r.URL.Path)
		require.Empty(t, r.Header.Get("X-Schoology-Run-As"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"section":[{"id":"S1","course_title":"Algebra II"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, true)
	token := &domain.Credential{Key: "acc_abc", Secret: "acc_secret"}
	sections, err := client.ListSections(context.Background(), token, "U1", "")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, "S1", sections[0].ID)
}

func TestTimeoutMapsToProviderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, true)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.RequestToken(ctx, "https://gradewise.test/auth/callback")
	require.Error(t, err)
	require.True(t, errors.Is(err, domainoauth.ErrProviderTimeout) || errors.Is(err, context.DeadlineExceeded))
}
