package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals missing or unusable signing credentials.
	ErrConfiguration = errors.New("oauth: configuration invalid")
	// ErrMalformedResponse indicates a 2xx provider body missing required fields.
	ErrMalformedResponse = errors.New("oauth: malformed provider response")
	// ErrVerifierMissing indicates the callback lacked the oauth_verifier parameter.
	ErrVerifierMissing = errors.New("oauth: verifier missing")
	// ErrAuthorization indicates impersonation was attempted without an admin credential.
	ErrAuthorization = errors.New("oauth: not authorized")
	// ErrFlowNotFound signals a callback with no matching pending request token.
	ErrFlowNotFound = errors.New("oauth: no pending flow for token")
	// ErrProviderTimeout indicates an outbound provider call exceeded its deadline.
	ErrProviderTimeout = errors.New("oauth: provider timeout")
	// ErrSessionInvalid indicates the session cookie could not be verified.
	ErrSessionInvalid = errors.New("oauth: session invalid")
)

// ProviderError carries a non-2xx status from the provider. Terminal for the
// current flow; callers never retry.
type ProviderError struct {
	Status   int
	Endpoint string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("oauth: provider returned status %d for %s", e.Status, e.Endpoint)
}
