package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gradewise/gradewise/internal/domain"
	domainoauth "github.com/gradewise/gradewise/internal/domain/oauth"
)

func newTestSigner(t *testing.T, nonce string) *Signer {
	t.Helper()
	s, err := New(Config{
		Consumer: domain.Credential{Key: "consumer-key", Secret: "consumer-secret"},
		Now:      func() time.Time { return time.Unix(1700000000, 0) },
		Nonce:    func() string { return nonce },
	})
	require.NoError(t, err)
	return s
}

func TestNew_RequiresConsumerCredential(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, domainoauth.ErrConfiguration)

	_, err = New(Config{Consumer: domain.Credential{Key: "key-only"}})
	require.ErrorIs(t, err, domainoauth.ErrConfiguration)
}

func TestSign_HeaderShape(t *testing.T) {
	s := newTestSigner(t, "fixed-nonce")
	header, err := s.Sign(Request{Method: "GET", URL: "https://api.schoology.com/v1/users/me"}, nil)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(header, "OAuth "))
	require.Contains(t, header, `oauth_consumer_key="consumer-key"`)
	require.Contains(t, header, `oauth_nonce="fixed-nonce"`)
	require.Contains(t, header, `oauth_signature_method="HMAC-SHA1"`)
	require.Contains(t, header, `oauth_timestamp="1700000000"`)
	require.Contains(t, header, `oauth_version="1.0"`)
	require.Contains(t, header, "oauth_signature=")
	require.NotContains(t, header, "oauth_token=")
}

func TestSign_TokenIncluded(t *testing.T) {
	s := newTestSigner(t, "fixed-nonce")
	token := &domain.Credential{Key: "tok", Secret: "tok-secret"}
	header, err := s.Sign(Request{Method: "GET", URL: "https://api.schoology.com/v1/users/me"}, token)
	require.NoError(t, err)
	require.Contains(t, header, `oauth_token="tok"`)
}

func TestSign_SignatureMatchesBaseStringAlgorithm(t *testing.T) {
	s := newTestSigner(t, "abc123")
	header, err := s.Sign(Request{Method: "get", URL: "https://api.schoology.com/v1/oauth/request_token"}, nil)
	require.NoError(t, err)

	// Recompute the expected signature independently.
	base := "GET&" +
		percentEncode("https://api.schoology.com/v1/oauth/request_token") + "&" +
		percentEncode("oauth_consumer_key=consumer-key"+
			"&oauth_nonce=abc123"+
			"&oauth_signature_method=HMAC-SHA1"+
			"&oauth_timestamp=1700000000"+
			"&oauth_version=1.0")
	mac := hmac.New(sha1.New, []byte("consumer-secret&"))
	mac.Write([]byte(base))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	require.Contains(t, header, `oauth_signature="`+percentEncode(want)+`"`)
}

func TestSign_NonceVariesPerCall(t *testing.T) {
	s, err := New(Config{Consumer: domain.Credential{Key: "k", Secret: "s"}})
	require.NoError(t, err)

	req := Request{Method: "GET", URL: "https://api.schoology.com/v1/users/me"}
	first, err := s.Sign(req, nil)
	require.NoError(t, err)
	second, err := s.Sign(req, nil)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestSign_QueryParametersEnterBaseString(t *testing.T) {
	a := newTestSigner(t, "n")
	b := newTestSigner(t, "n")

	withQuery, err := a.Sign(Request{Method: "GET", URL: "https://api.schoology.com/v1/announcements?limit=5"}, nil)
	require.NoError(t, err)
	without, err := b.Sign(Request{Method: "GET", URL: "https://api.schoology.com/v1/announcements"}, nil)
	require.NoError(t, err)
	require.NotEqual(t, withQuery, without)
}

func TestPercentEncode(t *testing.T) {
	require.Equal(t, "https%3A%2F%2Fexample.test%2Fcallback", percentEncode("https://example.test/callback"))
	require.Equal(t, "a-b.c_d~e", percentEncode("a-b.c_d~e"))
	require.Equal(t, "sp%20ace%2Bplus", percentEncode("sp ace+plus"))
}

func TestGate_OwnTokenNoOverrideHeader(t *testing.T) {
	s := newTestSigner(t, "n")
	gate := NewGate(s, domain.Credential{Key: "admin-key", Secret: "admin-secret"})

	token := &domain.Credential{Key: "user-tok", Secret: "user-secret"}
	headers, err := gate.SignAs(Request{Method: "GET", URL: "https://api.schoology.com/v1/users/me"}, token, "")
	require.NoError(t, err)
	require.NotEmpty(t, headers.Get("Authorization"))
	require.Empty(t, headers.Get(RunAsHeader))
	require.Contains(t, headers.Get("Authorization"), `oauth_token="user-tok"`)
}

func TestGate_AdminImpersonation(t *testing.T) {
	s := newTestSigner(t, "n")
	gate := NewGate(s, domain.Credential{Key: "admin-key", Secret: "admin-secret"})

	headers, err := gate.SignAs(Request{Method: "GET", URL: "https://api.schoology.com/v1/users/U1"}, nil, "U1")
	require.NoError(t, err)
	require.Equal(t, "U1", headers.Get(RunAsHeader))
	require.Contains(t, headers.Get("Authorization"), `oauth_consumer_key="admin-key"`)
}

func TestGate_ImpersonationWithoutAdminCredential(t *testing.T) {
	s := newTestSigner(t, "n")
	gate := NewGate(s, domain.Credential{})

	headers, err := gate.SignAs(Request{Method: "GET", URL: "https://api.schoology.com/v1/users/U1"}, nil, "U1")
	require.ErrorIs(t, err, domainoauth.ErrAuthorization)
	require.Equal(t, http.Header(nil), headers)
}
