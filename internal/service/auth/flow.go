// Package auth orchestrates the three-legged login flow against the LMS
// provider and owns the stored token lifecycle.
package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gradewise/gradewise/internal/adapter/provider"
	"github.com/gradewise/gradewise/internal/config"
	"github.com/gradewise/gradewise/internal/domain"
	domainoauth "github.com/gradewise/gradewise/internal/domain/oauth"
	"github.com/gradewise/gradewise/internal/repository"
)

// Flow drives the login state machine: request token, authorize redirect,
// verifier callback, access token, identity fetch.
type Flow interface {
	Begin(ctx context.Context, next string) (*BeginOutput, error)
	Complete(ctx context.Context, in CallbackInput) (*Login, error)
	Token(ctx context.Context, userID string) (*domain.Credential, error)
	Invalidate(ctx context.Context, userID string) error
}

// BeginOutput carries the provider authorize URL the browser is sent to.
type BeginOutput struct {
	AuthorizeURL string
	CallbackURL  string
}

// CallbackInput captures the provider's redirect-back query parameters.
type CallbackInput struct {
	Token    string
	Verifier string
	Next     string
}

// Login is the completed flow result.
type Login struct {
	Profile domain.Profile
}

// Store key namespaces. REQUESTED records are keyed by the temporary token
// so a later callback correlates to exactly the issuance that produced it.
const (
	requestKeyPrefix = "request:"
	userKeyPrefix    = "user:"
)

type flow struct {
	store  repository.TokenStore
	client provider.Client
	cfg    config.Config
	logger *zap.Logger
}

// NewFlow wires the flow implementation.
func NewFlow(store repository.TokenStore, client provider.Client, cfg config.Config, logger *zap.Logger) Flow {
	return &flow{store: store, client: client, cfg: cfg, logger: logger}
}

// Begin performs the request-token leg and returns the authorize redirect.
func (f *flow) Begin(ctx context.Context, next string) (*BeginOutput, error) {
	callbackURL := f.callbackURL(next)

	temp, err := f.client.RequestToken(ctx, callbackURL)
	if err != nil {
		return nil, fmt.Errorf("request token: %w", err)
	}

	record := domain.TokenRecord{
		TokenKey:    temp.Key,
		TokenSecret: temp.Secret,
		Phase:       domain.PhaseRequested,
		CreatedAt:   time.Now().UTC(),
	}
	if err := f.store.Put(ctx, requestKeyPrefix+temp.Key, record, f.cfg.RequestTokenTTL); err != nil {
		return nil, fmt.Errorf("persist request token: %w", err)
	}

	authorizeURL, err := url.Parse(f.cfg.AuthorizeURL)
	if err != nil {
		return nil, fmt.Errorf("parse authorize url: %w", err)
	}
	params := authorizeURL.Query()
	params.Set("oauth_token", temp.Key)
	params.Set("oauth_callback", callbackURL)
	authorizeURL.RawQuery = params.Encode()

	f.log().Info("login flow started", zap.String("request_token", temp.Key))
	return &BeginOutput{AuthorizeURL: authorizeURL.String(), CallbackURL: callbackURL}, nil
}

// Complete handles the provider redirect-back: exchanges the verifier-bearing
// callback for an access token, fetches identity, and persists the authorized
// pair. Fails closed when no pending record matches the incoming token.
func (f *flow) Complete(ctx context.Context, in CallbackInput) (*Login, error) {
	if strings.TrimSpace(in.Token) == "" {
		return nil, fmt.Errorf("callback missing oauth_token: %w", domainoauth.ErrFlowNotFound)
	}
	// Checked before any network call; a callback without the verifier never
	// reaches the provider.
	if strings.TrimSpace(in.Verifier) == "" {
		return nil, domainoauth.ErrVerifierMissing
	}

	pending, err := f.store.Get(ctx, requestKeyPrefix+in.Token)
	if err != nil {
		return nil, fmt.Errorf("load pending flow: %w", err)
	}
	if pending == nil || pending.Phase != domain.PhaseRequested {
		return nil, fmt.Errorf("token %s: %w", in.Token, domainoauth.ErrFlowNotFound)
	}

	access, err := f.client.AccessToken(ctx, domain.Credential{Key: in.Token, Secret: pending.TokenSecret}, in.Verifier)
	if err != nil {
		return nil, fmt.Errorf("access token exchange: %w", err)
	}

	profile, err := f.client.FetchProfile(ctx, &access, "")
	if err != nil {
		return nil, fmt.Errorf("fetch identity: %w", err)
	}

	now := time.Now().UTC()
	record := domain.TokenRecord{
		UserID:      profile.UserID,
		TokenKey:    access.Key,
		TokenSecret: access.Secret,
		Phase:       domain.PhaseAuthorized,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.store.Put(ctx, userKeyPrefix+profile.UserID, record, 0); err != nil {
		return nil, fmt.Errorf("persist access token: %w", err)
	}

	// One-shot: a replayed callback for the same request token fails closed.
	if err := f.store.Delete(ctx, requestKeyPrefix+in.Token); err != nil {
		f.log().Warn("failed to delete pending flow record", zap.Error(err))
	}

	f.log().Info("login flow completed", zap.String("user_id", profile.UserID))
	return &Login{Profile: *profile}, nil
}

// Token returns the stored access token for userID, or ErrFlowNotFound when
// the user has no authorized token.
func (f *flow) Token(ctx context.Context, userID string) (*domain.Credential, error) {
	record, err := f.store.Get(ctx, userKeyPrefix+userID)
	if err != nil {
		return nil, fmt.Errorf("load user token: %w", err)
	}
	if record == nil || record.Phase != domain.PhaseAuthorized {
		return nil, fmt.Errorf("user %s: %w", userID, domainoauth.ErrFlowNotFound)
	}
	token := record.Token()
	return &token, nil
}

// Invalidate removes the stored token for userID. Administrative cleanup;
// normal logout never calls this.
func (f *flow) Invalidate(ctx context.Context, userID string) error {
	if err := f.store.Delete(ctx, userKeyPrefix+userID); err != nil {
		return fmt.Errorf("invalidate user token: %w", err)
	}
	return nil
}

func (f *flow) callbackURL(next string) string {
	callback := f.cfg.CallbackBaseURL + "/auth/callback"
	if next != "" {
		callback += "?next=" + url.QueryEscape(next)
	}
	return callback
}

func (f *flow) log() *zap.Logger {
	if f != nil && f.logger != nil {
		return f.logger
	}
	return zap.L()
}
