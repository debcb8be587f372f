package app

import (
	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/repos"
)

type Repos struct {
	User               repos.UserRepo
	Account            repos.AccountRepo
	AccountHistory     repos.AccountHistoryRepo
	StoryUpdateLog     repos.StoryUpdateLogRepo
	Post               repos.PostRepo
	PostMedia          repos.PostMediaRepo
	Story              repos.StoryRepo
	Payment            repos.PaymentRepo
	PaymentHistory     repos.PaymentHistoryRepo
	WebhookLog         repos.WebhookLogRepo
	StoryCredit        repos.StoryCreditRepo
	StoryCreditPayment repos.StoryCreditPaymentRepo
	JobRun             repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:               repos.NewUserRepo(db, log),
		Account:            repos.NewAccountRepo(db, log),
		AccountHistory:     repos.NewAccountHistoryRepo(db, log),
		StoryUpdateLog:     repos.NewStoryUpdateLogRepo(db, log),
		Post:               repos.NewPostRepo(db, log),
		PostMedia:          repos.NewPostMediaRepo(db, log),
		Story:              repos.NewStoryRepo(db, log),
		Payment:            repos.NewPaymentRepo(db, log),
		PaymentHistory:     repos.NewPaymentHistoryRepo(db, log),
		WebhookLog:         repos.NewWebhookLogRepo(db, log),
		StoryCredit:        repos.NewStoryCreditRepo(db, log),
		StoryCreditPayment: repos.NewStoryCreditPaymentRepo(db, log),
		JobRun:             repos.NewJobRunRepo(db, log),
	}
}
