package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gramsight/gramsight-backend/internal/handlers"
	"github.com/gramsight/gramsight-backend/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigins string

	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	AccountHandler *handlers.AccountHandler
	StoryHandler   *handlers.StoryHandler
	PostHandler    *handlers.PostHandler
	PaymentHandler *handlers.PaymentHandler
	WebhookHandler *handlers.WebhookHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := []string{"http://localhost:3000"}
	if cfg.AllowedOrigins != "" {
		origins = strings.Split(cfg.AllowedOrigins, ",")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")

	// Webhooks authenticate by signature, not by user token.
	api.POST("/payments/webhooks/stripe", cfg.WebhookHandler.Stripe)
	api.POST("/auth/verify", cfg.AuthHandler.Verify)

	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	instagram := protected.Group("/instagram")
	{
		instagram.GET("/users", cfg.AccountHandler.List)
		instagram.POST("/users", cfg.AccountHandler.Create)
		instagram.GET("/users/:uuid", cfg.AccountHandler.Get)
		instagram.GET("/users/:uuid/history", cfg.AccountHandler.History)
		instagram.POST("/users/:uuid/refresh", cfg.AccountHandler.Refresh)

		instagram.GET("/stories", cfg.StoryHandler.List)
		instagram.GET("/stories/:story_id", cfg.StoryHandler.Get)

		instagram.GET("/posts", cfg.PostHandler.List)
		instagram.GET("/posts/search/ai", cfg.PostHandler.SearchAI)
		instagram.GET("/posts/:id", cfg.PostHandler.Get)
		instagram.GET("/posts/:id/similar", cfg.PostHandler.Similar)
	}

	paymentsGroup := protected.Group("/payments")
	{
		paymentsGroup.GET("", cfg.PaymentHandler.List)
		paymentsGroup.POST("", cfg.PaymentHandler.Create)
		paymentsGroup.GET("/gateways", cfg.PaymentHandler.Gateways)
	}

	return router
}
