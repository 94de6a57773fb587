// Package provider encapsulates outbound signed HTTP calls to the LMS.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gradewise/gradewise/internal/domain"
	domainoauth "github.com/gradewise/gradewise/internal/domain/oauth"
	"github.com/gradewise/gradewise/internal/signer"
)

// Client is the surface the auth flow and dashboard service depend on.
type Client interface {
	RequestToken(ctx context.Context, callbackURL string) (domain.Credential, error)
	AccessToken(ctx context.Context, requestToken domain.Credential, verifier string) (domain.Credential, error)
	FetchProfile(ctx context.Context, token *domain.Credential, runAsUserID string) (*domain.Profile, error)
	ListSections(ctx context.Context, token *domain.Credential, userID, runAsUserID string) ([]domain.Section, error)
	ListGrades(ctx context.Context, token *domain.Credential, userID, runAsUserID string) ([]domain.Grade, error)
	ListAnnouncements(ctx context.Context, token *domain.Credential, runAsUserID string) ([]domain.Announcement, error)
}

// HTTPClient is the default implementation against the provider REST base.
type HTTPClient struct {
	baseURL         string
	gate            *signer.Gate
	signer          *signer.Signer
	forwardVerifier bool
	httpClient      *http.Client
}

var _ Client = (*HTTPClient)(nil)

// Config for the HTTP client.
type Config struct {
	BaseURL string
	// ForwardVerifier includes oauth_verifier in the signed access-token
	// exchange. The provider tolerates its absence from the signature, so
	// this is policy rather than protocol here.
	ForwardVerifier bool
	Timeout         time.Duration
}

// NewHTTPClient constructs the client. A nil http.Client gets a bounded
// default; a hung provider call must not block the handling request forever.
func NewHTTPClient(cfg Config, s *signer.Signer, gate *signer.Gate, client *http.Client) *HTTPClient {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		gate:            gate,
		signer:          s,
		forwardVerifier: cfg.ForwardVerifier,
		httpClient:      client,
	}
}

// RequestToken obtains a temporary token pair, signed with the consumer
// credential alone.
func (c *HTTPClient) RequestToken(ctx context.Context, callbackURL string) (domain.Credential, error) {
	endpoint := c.baseURL + "/oauth/request_token"
	auth, err := c.signer.Sign(signer.Request{
		Method: http.MethodGet,
		URL:    endpoint,
		Extra:  map[string]string{"oauth_callback": callbackURL},
	}, nil)
	if err != nil {
		return domain.Credential{}, err
	}
	return c.tokenCall(ctx, endpoint, auth)
}

// AccessToken exchanges the authorized request token for the permanent pair.
// The request is signed with {key: request token, secret: stored temporary
// secret}.
func (c *HTTPClient) AccessToken(ctx context.Context, requestToken domain.Credential, verifier string) (domain.Credential, error) {
	endpoint := c.baseURL + "/oauth/access_token"
	req := signer.Request{Method: http.MethodGet, URL: endpoint}
	if c.forwardVerifier && verifier != "" {
		req.Extra = map[string]string{"oauth_verifier": verifier}
	}
	auth, err := c.signer.Sign(req, &requestToken)
	if err != nil {
		return domain.Credential{}, err
	}
	return c.tokenCall(ctx, endpoint, auth)
}

// tokenCall issues a signed GET against a token endpoint and parses the
// form-encoded oauth_token/oauth_token_secret body.
func (c *HTTPClient) tokenCall(ctx context.Context, endpoint, auth string) (domain.Credential, error) {
	body, err := c.do(ctx, endpoint, http.Header{"Authorization": []string{auth}})
	if err != nil {
		return domain.Credential{}, err
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return domain.Credential{}, fmt.Errorf("parse token response: %w", domainoauth.ErrMalformedResponse)
	}
	key := values.Get("oauth_token")
	secret := values.Get("oauth_token_secret")
	if key == "" || secret == "" {
		return domain.Credential{}, fmt.Errorf("token response missing oauth fields: %w", domainoauth.ErrMalformedResponse)
	}
	return domain.Credential{Key: key, Secret: secret}, nil
}

// FetchProfile loads the identity resource for the signing user, or for
// runAsUserID when the administrative credential impersonates.
func (c *HTTPClient) FetchProfile(ctx context.Context, token *domain.Credential, runAsUserID string) (*domain.Profile, error) {
	var profile domain.Profile
	if err := c.getJSON(ctx, c.baseURL+"/users/me", token, runAsUserID, &profile); err != nil {
		return nil, err
	}
	if profile.UserID == "" {
		return nil, fmt.Errorf("identity response missing uid: %w", domainoauth.ErrMalformedResponse)
	}
	return &profile, nil
}

// ListSections returns the sections the user is enrolled in.
func (c *HTTPClient) ListSections(ctx context.Context, token *domain.Credential, userID, runAsUserID string) ([]domain.Section, error) {
	var payload struct {
		Sections []domain.Section `json:"section"`
	}
	endpoint := fmt.Sprintf("%s/users/%s/sections", c.baseURL, url.PathEscape(userID))
	if err := c.getJSON(ctx, endpoint, token, runAsUserID, &payload); err != nil {
		return nil, err
	}
	return payload.Sections, nil
}

// ListGrades returns the user's graded items.
func (c *HTTPClient) ListGrades(ctx context.Context, token *domain.Credential, userID, runAsUserID string) ([]domain.Grade, error) {
	var payload struct {
		Grades []domain.Grade `json:"grade"`
	}
	endpoint := fmt.Sprintf("%s/users/%s/grades", c.baseURL, url.PathEscape(userID))
	if err := c.getJSON(ctx, endpoint, token, runAsUserID, &payload); err != nil {
		return nil, err
	}
	return payload.Grades, nil
}

// ListAnnouncements returns dashboard announcements.
func (c *HTTPClient) ListAnnouncements(ctx context.Context, token *domain.Credential, runAsUserID string) ([]domain.Announcement, error) {
	var payload struct {
		Announcements []domain.Announcement `json:"announcement"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/announcements", token, runAsUserID, &payload); err != nil {
		return nil, err
	}
	return payload.Announcements, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, token *domain.Credential, runAsUserID string, out any) error {
	headers, err := c.gate.SignAs(signer.Request{Method: http.MethodGet, URL: endpoint}, token, runAsUserID)
	if err != nil {
		return err
	}
	headers.Set("Accept", "application/json")

	body, err := c.do(ctx, endpoint, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, domainoauth.ErrMalformedResponse)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, endpoint string, headers http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return nil, fmt.Errorf("call %s: %w", endpoint, domainoauth.ErrProviderTimeout)
		}
		return nil, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domainoauth.ProviderError{Status: resp.StatusCode, Endpoint: endpoint}
	}
	return body, nil
}

func isClientTimeout(err error) bool {
	var ue interface{ Timeout() bool }
	return errors.As(err, &ue) && ue.Timeout()
}
