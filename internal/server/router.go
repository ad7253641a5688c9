// Package server assembles the HTTP API: routes, auth middleware, and health.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authhandler "beacon-attendance/backend/internal/auth/handler"
	"beacon-attendance/backend/internal/security"
	"beacon-attendance/backend/internal/server/middleware"
	sessionhandler "beacon-attendance/backend/internal/session/handler"
)

// Deps are the handlers and providers the router mounts.
type Deps struct {
	Tokens   *security.TokenProvider
	Auth     *authhandler.HTTPHandler
	Sessions *sessionhandler.HTTPHandler
	// Env selects the gin mode; "production" silences debug output.
	Env string
}

// NewRouter builds the gin engine with all routes mounted. Auth routes are
// public; everything else under /v1 requires a valid bearer token.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), clientIP())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/v1")
	deps.Auth.Register(public)

	protected := r.Group("/v1")
	protected.Use(middleware.Auth(deps.Tokens))
	deps.Sessions.Register(protected)

	return r
}

// clientIP stashes gin's trusted-proxy-aware client IP on the request context
// so the audit logger, which only sees a plain context, can record it.
func clientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := middleware.WithClientIP(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
