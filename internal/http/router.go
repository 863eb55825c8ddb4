package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/smallbiznis/fintrack-auth/internal/config"
	"github.com/smallbiznis/fintrack-auth/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/fintrack-auth/internal/http/middleware"
	"github.com/smallbiznis/fintrack-auth/internal/http/response"
	"github.com/smallbiznis/fintrack-auth/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, authMiddleware *httpmiddleware.Auth, rateLimiter *middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if logger != nil {
			logger.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		}
		response.Abort(c, http.StatusInternalServerError, "Internal server error")
	}))
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/health", authHandler.Health)

	api := r.Group("/api", middleware.BodyLimit(cfg.HTTPMaxBodyBytes))
	{
		auth := api.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", authMiddleware.RequireIdentity, authHandler.Me)
	}

	r.NoRoute(authHandler.NotFound)

	return r
}
