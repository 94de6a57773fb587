// Package session maps authenticated users to HTTP session cookies. The
// cookie claims carry only the opaque user id; token material never leaves
// the server boundary.
package session

import (
	"fmt"
	"net/http"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	domainoauth "github.com/gradewise/gradewise/internal/domain/oauth"
)

// Cookie names. Both are valid ways into the authenticated area; logout must
// clear whichever was active without the caller knowing which.
const (
	CookieName     = "gw_session"
	DemoCookieName = "gw_demo"
)

// Binder issues and verifies session cookies.
type Binder struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewBinder constructs a binder. secure controls the cookie Secure flag and
// is off only in local development.
func NewBinder(secret []byte, ttl time.Duration, secure bool) *Binder {
	return &Binder{secret: secret, ttl: ttl, secure: secure}
}

// Bind issues the session cookie for userID. The value is an HS256 compact
// JWS so the id is tamper-evident.
func (b *Binder) Bind(userID string) (*http.Cookie, error) {
	signer, err := gojose.NewSigner(gojose.SigningKey{Algorithm: gojose.HS256, Key: b.secret}, (&gojose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return nil, fmt.Errorf("new session signer: %w", err)
	}

	now := time.Now().UTC()
	claims := gojwt.Claims{
		Subject:  userID,
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(b.ttl)),
	}
	value, err := gojwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize session: %w", err)
	}

	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(b.ttl),
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Verify checks the cookie value and returns the bound user id.
func (b *Binder) Verify(value string) (string, error) {
	parsed, err := gojwt.ParseSigned(value, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return "", fmt.Errorf("parse session: %w", domainoauth.ErrSessionInvalid)
	}
	var claims gojwt.Claims
	if err := parsed.Claims(b.secret, &claims); err != nil {
		return "", fmt.Errorf("verify session: %w", domainoauth.ErrSessionInvalid)
	}
	if err := claims.Validate(gojwt.Expected{Time: time.Now()}); err != nil {
		return "", fmt.Errorf("expired session: %w", domainoauth.ErrSessionInvalid)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("session missing subject: %w", domainoauth.ErrSessionInvalid)
	}
	return claims.Subject, nil
}

// BindDemo issues the presence-only demo cookie.
func (b *Binder) BindDemo() *http.Cookie {
	return &http.Cookie{
		Name:     DemoCookieName,
		Value:    "1",
		Path:     "/",
		Expires:  time.Now().Add(b.ttl),
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Unbind returns expired copies of both session cookies. Logout clears only
// the cookies; stored tokens stay for silent re-auth.
func (b *Binder) Unbind() []*http.Cookie {
	expired := func(name string) *http.Cookie {
		return &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   b.secure,
			SameSite: http.SameSiteLaxMode,
		}
	}
	return []*http.Cookie{expired(CookieName), expired(DemoCookieName)}
}
