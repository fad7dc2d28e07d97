package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sparksclub/walletauth/internal/logging"
	"github.com/sparksclub/walletauth/internal/metrics"
	"github.com/sparksclub/walletauth/service"
)

// RouterConfig carries the router collaborators besides the auth service
type RouterConfig struct {
	Cookie  CookieConfig
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.GinMiddleware())
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	handlers := NewAuthHandlers(authService, cfg.Cookie, cfg.Logger)

	router.GET("/healthz", handlers.Health)

	// Auth routes
	auth := router.Group("/api/auth")
	{
		auth.POST("/wallet/nonce", handlers.Nonce)
		auth.POST("/wallet/verify", handlers.Verify)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected routes
	protected := router.Group("/api/auth")
	protected.Use(AuthMiddleware(authService, cfg.Cookie.Name))
	{
		protected.GET("/me", handlers.Me)
	}

	return router
}
