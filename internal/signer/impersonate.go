package signer

import (
	"fmt"
	"net/http"

	"github.com/gradewise/gradewise/internal/domain"
	domainoauth "github.com/gradewise/gradewise/internal/domain/oauth"
)

// RunAsHeader instructs the provider to execute the request as another user.
// Only honored for administrative credentials.
const RunAsHeader = "X-Schoology-Run-As"

// Gate attaches the run-as header when an elevated credential acts on behalf
// of a target user. Privilege is enforced here, before the signer runs, so a
// rejected attempt never reaches the provider.
type Gate struct {
	signer *Signer
	admin  domain.Credential
}

// NewGate wires the gate. admin may be zero, which disables impersonation.
func NewGate(s *Signer, admin domain.Credential) *Gate {
	return &Gate{signer: s, admin: admin}
}

// Enabled reports whether an administrative credential is configured.
func (g *Gate) Enabled() bool {
	return !g.admin.Zero()
}

// SignAs signs req and returns the headers to attach. With a targetUserID the
// administrative credential signs and the run-as header is set; otherwise the
// user's own token signs and no override header is attached.
func (g *Gate) SignAs(req Request, token *domain.Credential, targetUserID string) (http.Header, error) {
	headers := http.Header{}

	if targetUserID == "" {
		auth, err := g.signer.Sign(req, token)
		if err != nil {
			return nil, err
		}
		headers.Set("Authorization", auth)
		return headers, nil
	}

	if !g.Enabled() {
		return nil, fmt.Errorf("impersonation of user %s: %w", targetUserID, domainoauth.ErrAuthorization)
	}

	auth, err := g.signer.SignWith(req, g.admin, nil)
	if err != nil {
		return nil, err
	}
	headers.Set("Authorization", auth)
	headers.Set(RunAsHeader, targetUserID)
	return headers, nil
}
