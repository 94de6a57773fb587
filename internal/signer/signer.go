// Package signer builds OAuth 1.0a HMAC-SHA1 authorization headers for
// outbound requests to the LMS provider.
package signer

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gradewise/gradewise/internal/domain"
	domainoauth "github.com/gradewise/gradewise/internal/domain/oauth"
)

// Request describes one outbound call to be signed. Ephemeral; never persisted.
type Request struct {
	Method string
	URL    string
	// Extra protocol parameters (oauth_callback, oauth_verifier) that must be
	// part of the signature base string.
	Extra map[string]string
}

// Config carries the consumer credential and optional test hooks. Passed in
// explicitly; the signer keeps no process-wide state.
type Config struct {
	Consumer domain.Credential
	// Now and Nonce override the timestamp and nonce sources. Nil means
	// time.Now and a random nonce.
	Now   func() time.Time
	Nonce func() string
}

// Signer produces Authorization headers. Pure with respect to its inputs,
// current time, and nonce.
type Signer struct {
	consumer domain.Credential
	now      func() time.Time
	nonce    func() string
}

// New validates the consumer credential and constructs a signer.
func New(cfg Config) (*Signer, error) {
	if cfg.Consumer.Key == "" || cfg.Consumer.Secret == "" {
		return nil, fmt.Errorf("consumer credential missing: %w", domainoauth.ErrConfiguration)
	}
	s := &Signer{consumer: cfg.Consumer, now: cfg.Now, nonce: cfg.Nonce}
	if s.now == nil {
		s.now = time.Now
	}
	if s.nonce == nil {
		s.nonce = randomNonce
	}
	return s, nil
}

// Sign returns the Authorization header value for req. token is nil for the
// request-token leg; otherwise it is the user's request or access token.
func (s *Signer) Sign(req Request, token *domain.Credential) (string, error) {
	if s == nil {
		return "", fmt.Errorf("signer not configured: %w", domainoauth.ErrConfiguration)
	}
	return s.SignWith(req, s.consumer, token)
}

// SignWith signs using an explicit consumer credential. Used by the
// impersonation gate, which substitutes the administrative credential.
func (s *Signer) SignWith(req Request, consumer domain.Credential, token *domain.Credential) (string, error) {
	if s == nil {
		return "", fmt.Errorf("signer not configured: %w", domainoauth.ErrConfiguration)
	}
	if consumer.Key == "" || consumer.Secret == "" {
		return "", fmt.Errorf("consumer credential missing: %w", domainoauth.ErrConfiguration)
	}

	parsed, err := url.Parse(req.URL)
	if err != nil {
		return "", fmt.Errorf("parse request url: %w", err)
	}

	oauthParams := map[string]string{
		"oauth_consumer_key":     consumer.Key,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fmt.Sprintf("%d", s.now().Unix()),
		"oauth_version":          "1.0",
	}
	if token != nil && token.Key != "" {
		oauthParams["oauth_token"] = token.Key
	}
	for k, v := range req.Extra {
		oauthParams[k] = v
	}

	base := baseString(req.Method, parsed, oauthParams)

	tokenSecret := ""
	if token != nil {
		tokenSecret = token.Secret
	}
	key := percentEncode(consumer.Secret) + "&" + percentEncode(tokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	oauthParams["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return headerValue(oauthParams), nil
}

// baseString builds the OAuth 1.0a signature base: uppercase method, the
// normalized URL, and the sorted, percent-encoded parameter string (query
// parameters included alongside the protocol parameters).
func baseString(method string, u *url.URL, oauthParams map[string]string) string {
	params := make([][2]string, 0, len(oauthParams)+4)
	for k, v := range oauthParams {
		params = append(params, [2]string{percentEncode(k), percentEncode(v)})
	}
	for k, vs := range u.Query() {
		for _, v := range vs {
			params = append(params, [2]string{percentEncode(k), percentEncode(v)})
		}
	}
	sort.Slice(params, func(i, j int) bool {
		if params[i][0] != params[j][0] {
			return params[i][0] < params[j][0]
		}
		return params[i][1] < params[j][1]
	})

	pairs := make([]string, 0, len(params))
	for _, p := range params {
		pairs = append(pairs, p[0]+"="+p[1])
	}

	baseURL := u.Scheme + "://" + u.Host + u.EscapedPath()
	return strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(strings.Join(pairs, "&"))
}

func headerValue(oauthParams map[string]string) string {
	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, percentEncode(oauthParams[k])))
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// percentEncode implements RFC 3986 encoding as OAuth 1.0a requires: only
// ALPHA, DIGIT, '-', '.', '_', '~' pass through.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '.' || c == '_' || c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for signing purposes.
		panic(fmt.Sprintf("signer: nonce source failed: %v", err))
	}
	return hex.EncodeToString(buf)
}
