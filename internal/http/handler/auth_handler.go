package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gradewise/gradewise/internal/adapter/provider"
	"github.com/gradewise/gradewise/internal/config"
	domainoauth "github.com/gradewise/gradewise/internal/domain/oauth"
	"github.com/gradewise/gradewise/internal/http/middleware"
	"github.com/gradewise/gradewise/internal/service"
	authsvc "github.com/gradewise/gradewise/internal/service/auth"
	"github.com/gradewise/gradewise/internal/session"
)

// AuthHandler serves the login flow endpoints.
type AuthHandler struct {
	Flow     authsvc.Flow
	Client   provider.Client
	Binder   *session.Binder
	Cfg      config.Config
	DemoNode *snowflake.Node
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(flow authsvc.Flow, client provider.Client, binder *session.Binder, cfg config.Config, node *snowflake.Node) *AuthHandler {
	return &AuthHandler{Flow: flow, Client: client, Binder: binder, Cfg: cfg, DemoNode: node}
}

// Login starts the three-legged flow and redirects the browser to the
// provider's authorize page. With demo mode enabled and ?demo=1, a demo
// session is issued with no network at all.
func (h *AuthHandler) Login(c *gin.Context) {
	next := c.Query("next")

	if h.Cfg.DemoMode && c.Query("demo") == "1" {
		h.demoLogin(c, next)
		return
	}

	out, err := h.Flow.Begin(c.Request.Context(), next)
	if err != nil {
		h.redirectLoginError(c, err)
		return
	}
	c.Redirect(http.StatusFound, out.AuthorizeURL)
}

// Callback completes the flow when the provider redirects back with
// oauth_token and oauth_verifier, binds the session, and forwards to next.
func (h *AuthHandler) Callback(c *gin.Context) {
	login, err := h.Flow.Complete(c.Request.Context(), authsvc.CallbackInput{
		Token:    c.Query("oauth_token"),
		Verifier: c.Query("oauth_verifier"),
		Next:     c.Query("next"),
	})
	if err != nil {
		h.redirectLoginError(c, err)
		return
	}

	cookie, err := h.Binder.Bind(login.Profile.UserID)
	if err != nil {
		h.redirectLoginError(c, err)
		return
	}
	http.SetCookie(c.Writer, cookie)

	c.Redirect(http.StatusFound, safeNext(c.Query("next")))
}

// Logout clears both session cookies. The stored token stays so a returning
// user can re-authenticate silently.
func (h *AuthHandler) Logout(c *gin.Context) {
	for _, cookie := range h.Binder.Unbind() {
		http.SetCookie(c.Writer, cookie)
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}

// Me returns the identity bound to the current session.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_session", "error_description": "Sign in to continue."})
		return
	}

	if middleware.IsDemoSession(c) {
		c.JSON(http.StatusOK, service.DemoProfile(userID))
		return
	}

	token, err := h.Flow.Token(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	profile, err := h.Client.FetchProfile(c.Request.Context(), token, "")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *AuthHandler) demoLogin(c *gin.Context, next string) {
	userID := "demo-" + h.DemoNode.Generate().String()

	cookie, err := h.Binder.Bind(userID)
	if err != nil {
		h.redirectLoginError(c, err)
		return
	}
	http.SetCookie(c.Writer, cookie)
	http.SetCookie(c.Writer, h.Binder.BindDemo())

	c.Redirect(http.StatusFound, safeNext(next))
}

// safeNext constrains post-login redirects to same-origin paths. A single
// leading slash only: "//host" and "/\host" are scheme-relative to browsers
// and would send the user off-origin.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") ||
		strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// redirectLoginError sends the browser to the login error state with a
// human-readable reason. Secrets and signatures never appear here.
func (h *AuthHandler) redirectLoginError(c *gin.Context, err error) {
	zap.L().Warn("login flow failed", zap.Error(err))

	reason := "login_failed"
	switch {
	case errors.Is(err, domainoauth.ErrConfiguration):
		reason = "not_configured"
	case errors.Is(err, domainoauth.ErrVerifierMissing):
		reason = "verifier_missing"
	case errors.Is(err, domainoauth.ErrFlowNotFound):
		reason = "session_expired"
	case errors.Is(err, domainoauth.ErrProviderTimeout):
		reason = "provider_timeout"
	case errors.Is(err, domainoauth.ErrMalformedResponse):
		reason = "provider_error"
	default:
		var pe *domainoauth.ProviderError
		if errors.As(err, &pe) {
			reason = "provider_error"
		}
	}

	c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape(reason))
}
