package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gradewise/gradewise/internal/config"
	"github.com/gradewise/gradewise/internal/http/handler"
	httpmiddleware "github.com/gradewise/gradewise/internal/http/middleware"
	"github.com/gradewise/gradewise/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	authHandler *handler.AuthHandler,
	dashboardHandler *handler.DashboardHandler,
	sessionMiddleware *httpmiddleware.Session,
	rateLimiter *middleware.RateLimiter,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/login", authHandler.Login)
		authGroup.GET("/callback", authHandler.Callback)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", sessionMiddleware.Require, authHandler.Me)
	}

	api := r.Group("/api/v1", sessionMiddleware.Require)
	{
		api.GET("/courses", dashboardHandler.Sections)
		api.GET("/grades", dashboardHandler.Grades)
		api.GET("/announcements", dashboardHandler.Announcements)
		api.GET("/dashboard", dashboardHandler.Overview)

		api.DELETE("/admin/tokens/:userId", dashboardHandler.InvalidateToken)
	}

	return r
}
