package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradewise/gradewise/internal/session"
)

const (
	userIDKey      = "sessionUserID"
	demoSessionKey = "sessionDemo"
)

// Session authenticates requests from either session cookie: the signed real
// one or, when demo mode is enabled, the presence-only demo one.
type Session struct {
	Binder   *session.Binder
	DemoMode bool
}

// Require rejects requests without a valid session.
func (m *Session) Require(c *gin.Context) {
	if cookie, err := c.Cookie(session.CookieName); err == nil && cookie != "" {
		userID, err := m.Binder.Verify(cookie)
		if err == nil {
			c.Set(userIDKey, userID)
			if m.DemoMode {
				if _, err := c.Cookie(session.DemoCookieName); err == nil {
					c.Set(demoSessionKey, true)
				}
			}
			c.Next()
			return
		}
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             "invalid_session",
		"error_description": "Sign in to continue.",
	})
}

// GetUserID returns the session user id attached by Require.
func GetUserID(c *gin.Context) (string, bool) {
	value, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok && userID != ""
}

// IsDemoSession reports whether the current session came in via demo mode.
func IsDemoSession(c *gin.Context) bool {
	value, ok := c.Get(demoSessionKey)
	if !ok {
		return false
	}
	demo, _ := value.(bool)
	return demo
}
