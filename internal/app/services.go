package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Account   services.AccountService
	Post      services.PostService
	Story     services.StoryService
	Insight   services.InsightService
	Embedding services.EmbeddingService
	Credit    services.CreditService
	Payment   services.PaymentService
}

func wireServices(db *gorm.DB, log *logger.Logger, reposet Repos, clients Clients, enqueuer jobs.Enqueuer) (Services, error) {
	log.Info("Wiring services...")

	auth, err := services.NewAuthService(reposet.User, log)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	credit := services.NewCreditService(db, reposet.StoryCredit, reposet.StoryCreditPayment, reposet.Account, log)

	return Services{
		Auth: auth,
		Account: services.NewAccountService(
			db,
			reposet.Account,
			reposet.AccountHistory,
			reposet.StoryUpdateLog,
			reposet.Post,
			reposet.Story,
			clients.Instagram,
			clients.Fetcher,
			clients.Store,
			enqueuer,
			log,
		),
		Post:      services.NewPostService(db, reposet.Post, reposet.PostMedia, clients.Fetcher, clients.Store, enqueuer, log),
		Story:     services.NewStoryService(db, reposet.Story, clients.Fetcher, clients.Store, enqueuer, log),
		Insight:   services.NewInsightService(db, reposet.Post, reposet.Story, clients.Store, clients.OpenAI, enqueuer, log),
		Embedding: services.NewEmbeddingService(db, reposet.Post, reposet.Story, clients.OpenAI, log),
		Credit:    credit,
		Payment: services.NewPaymentService(
			db,
			clients.Gateways,
			reposet.Payment,
			reposet.PaymentHistory,
			reposet.WebhookLog,
			credit,
			enqueuer,
			log,
		),
	}, nil
}
