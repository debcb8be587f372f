package app

import (
	"github.com/gin-gonic/gin"

	"github.com/gramsight/gramsight-backend/internal/handlers"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/middleware"
	"github.com/gramsight/gramsight-backend/internal/server"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Account *handlers.AccountHandler
	Story   *handlers.StoryHandler
	Post    *handlers.PostHandler
	Payment *handlers.PaymentHandler
	Webhook *handlers.WebhookHandler
}

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:    handlers.NewAuthHandler(serviceset.Auth),
		Account: handlers.NewAccountHandler(serviceset.Account),
		Story:   handlers.NewStoryHandler(serviceset.Story),
		Post:    handlers.NewPostHandler(serviceset.Post, serviceset.Embedding),
		Payment: handlers.NewPaymentHandler(serviceset.Payment),
		Webhook: handlers.NewWebhookHandler(log, serviceset.Payment),
	}
}

func wireMiddleware(log *logger.Logger, serviceset Services) Middleware {
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, serviceset.Auth),
	}
}

func wireRouter(cfg Config, handlerset Handlers, middlewareset Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AuthHandler:    handlerset.Auth,
		AuthMiddleware: middlewareset.Auth,
		AccountHandler: handlerset.Account,
		StoryHandler:   handlerset.Story,
		PostHandler:    handlerset.Post,
		PaymentHandler: handlerset.Payment,
		WebhookHandler: handlerset.Webhook,
	})
}
