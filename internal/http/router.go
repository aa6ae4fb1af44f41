package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ffarras/multi-ad-login/internal/config"
	"github.com/ffarras/multi-ad-login/internal/http/handler"
	httpmiddleware "github.com/ffarras/multi-ad-login/internal/http/middleware"
	"github.com/ffarras/multi-ad-login/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, profileHandler *handler.ProfileHandler, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(otelgin.Middleware(cfg.ServiceName))

	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	admin := r.Group("/admin")
	{
		profiles := admin.Group("/profiles")
		{
			profiles.GET("", profileHandler.List)
			profiles.POST("", profileHandler.Create)
			profiles.GET("/:id", profileHandler.Get)
			profiles.PUT("/:id", profileHandler.Update)
			profiles.DELETE("/:id", profileHandler.Delete)
		}
	}

	return r
}
