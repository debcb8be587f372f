package app

import (
	"fmt"

	"github.com/gramsight/gramsight-backend/internal/clients/instagram"
	"github.com/gramsight/gramsight-backend/internal/clients/openai"
	"github.com/gramsight/gramsight-backend/internal/clients/redisx"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/media"
	"github.com/gramsight/gramsight-backend/internal/payments"
	"github.com/gramsight/gramsight-backend/internal/storage"
)

type Clients struct {
	Instagram instagram.Client
	OpenAI    openai.Client
	Redis     *redisx.Service
	Fetcher   *media.Fetcher
	Store     storage.BlobStore
	Gateways  *payments.Registry
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	ig, err := instagram.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init instagram client: %w", err)
	}
	ai, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	redis, err := redisx.NewService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	store, err := storage.NewLocalStore(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init blob store: %w", err)
	}

	gateways := payments.NewRegistry()
	stripe, err := payments.NewStripeGateway(log)
	if err != nil {
		// Payments stay disabled without credentials; the rest of the app
		// runs fine.
		log.Warn("Stripe gateway not configured, payments disabled", "error", err)
	} else {
		gateways.Register(stripe)
	}

	return Clients{
		Instagram: ig,
		OpenAI:    ai,
		Redis:     redis,
		Fetcher:   media.NewFetcher(log),
		Store:     store,
		Gateways:  gateways,
	}, nil
}
