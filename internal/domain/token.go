package domain

import "time"

// Credential is a key/secret pair issued by the LMS provider: either the
// application's fixed consumer identity or a per-user token. Immutable once
// issued.
type Credential struct {
	Key    string
	Secret string
}

// Zero reports whether the credential is unset.
func (c Credential) Zero() bool {
	return c.Key == "" && c.Secret == ""
}

// TokenPhase tracks the lifecycle of a stored token pair.
type TokenPhase string

const (
	// PhaseRequested holds a temporary request token pending user authorization.
	PhaseRequested TokenPhase = "REQUESTED"
	// PhaseAuthorized holds a long-lived access token.
	PhaseAuthorized TokenPhase = "AUTHORIZED"
)

// TokenRecord is the persisted token state for one user (or, while a login
// flow is pending, for one request-token issuance).
type TokenRecord struct {
	UserID      string     `json:"user_id"`
	TokenKey    string     `json:"token_key"`
	TokenSecret string     `json:"token_secret"`
	Phase       TokenPhase `json:"phase"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Token returns the record's token pair as a credential.
func (r TokenRecord) Token() Credential {
	return Credential{Key: r.TokenKey, Secret: r.TokenSecret}
}
