package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainoauth "github.com/gradewise/gradewise/internal/domain/oauth"
	"github.com/gradewise/gradewise/internal/http/middleware"
	"github.com/gradewise/gradewise/internal/service"
)

// DashboardHandler serves the signed LMS proxy endpoints.
type DashboardHandler struct {
	Dashboard *service.Dashboard
}

// NewDashboardHandler creates the handler.
func NewDashboardHandler(dashboard *service.Dashboard) *DashboardHandler {
	return &DashboardHandler{Dashboard: dashboard}
}

// Sections lists the user's course sections.
func (h *DashboardHandler) Sections(c *gin.Context) {
	h.respondList(c, func(userID, as string) (any, error) {
		if middleware.IsDemoSession(c) {
			return service.DemoOverview().Sections, nil
		}
		return h.Dashboard.Sections(c.Request.Context(), userID, as)
	})
}

// Grades lists the user's graded items.
func (h *DashboardHandler) Grades(c *gin.Context) {
	h.respondList(c, func(userID, as string) (any, error) {
		if middleware.IsDemoSession(c) {
			return service.DemoOverview().Grades, nil
		}
		return h.Dashboard.Grades(c.Request.Context(), userID, as)
	})
}

// Announcements lists dashboard announcements.
func (h *DashboardHandler) Announcements(c *gin.Context) {
	h.respondList(c, func(userID, as string) (any, error) {
		if middleware.IsDemoSession(c) {
			return service.DemoOverview().Announcements, nil
		}
		return h.Dashboard.Announcements(c.Request.Context(), userID, as)
	})
}

// Overview returns the merged dashboard payload.
func (h *DashboardHandler) Overview(c *gin.Context) {
	h.respondList(c, func(userID, as string) (any, error) {
		if middleware.IsDemoSession(c) {
			return service.DemoOverview(), nil
		}
		return h.Dashboard.Load(c.Request.Context(), userID, as)
	})
}

// InvalidateToken removes a user's stored token pair. Admin only.
func (h *DashboardHandler) InvalidateToken(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_session", "error_description": "Sign in to continue."})
		return
	}
	target := c.Param("userId")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "userId is required."})
		return
	}
	if err := h.Dashboard.InvalidateToken(c.Request.Context(), userID, target); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}

func (h *DashboardHandler) respondList(c *gin.Context, load func(userID, as string) (any, error)) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_session", "error_description": "Sign in to continue."})
		return
	}
	payload, err := load(userID, c.Query("as"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// respondServiceError maps domain errors onto HTTP statuses. Messages stay
// generic; token material never appears in responses.
func respondServiceError(c *gin.Context, err error) {
	logger := zap.L()
	switch {
	case errors.Is(err, domainoauth.ErrAuthorization):
		logger.Warn("unauthorized request", zap.Error(err))
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "Not permitted for this account."})
	case errors.Is(err, domainoauth.ErrFlowNotFound):
		logger.Warn("no stored token for session", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token_missing", "error_description": "Reconnect your Schoology account."})
	case errors.Is(err, domainoauth.ErrProviderTimeout):
		logger.Error("provider timeout", zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "provider_timeout", "error_description": "Schoology did not respond in time."})
	case errors.Is(err, domainoauth.ErrMalformedResponse):
		logger.Error("malformed provider response", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider_error", "error_description": "Unexpected response from Schoology."})
	case errors.Is(err, domainoauth.ErrConfiguration):
		logger.Error("signing configuration invalid", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Service is misconfigured."})
	default:
		var pe *domainoauth.ProviderError
		if errors.As(err, &pe) {
			logger.Error("provider rejected request", zap.Int("status", pe.Status), zap.String("endpoint", pe.Endpoint))
			c.JSON(http.StatusBadGateway, gin.H{"error": "provider_error", "error_description": "Schoology rejected the request."})
			return
		}
		logger.Error("service failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
	}
}
