package tasks

import (
	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/repos"
	"github.com/gramsight/gramsight-backend/internal/services"
)

// Deps carries everything the task handlers need.
type Deps struct {
	Accounts   services.AccountService
	Posts      services.PostService
	Stories    services.StoryService
	Insights   services.InsightService
	Embeddings services.EmbeddingService
	Payments   services.PaymentService

	AccountRepo   repos.AccountRepo
	PostRepo      repos.PostRepo
	PostMediaRepo repos.PostMediaRepo
	StoryRepo     repos.StoryRepo

	Enqueuer jobs.Enqueuer
	Log      *logger.Logger
}

// RegisterAll wires every task handler into the registry.
func RegisterAll(registry *jobs.Registry, d Deps) error {
	log := d.Log.With("component", "tasks")
	handlers := []jobs.Handler{
		&accountSyncProfileTask{accounts: d.Accounts},
		&accountSyncProfilePictureTask{accounts: d.Accounts},
		&accountGenerateBlurTask{accounts: d.Accounts},
		&accountSyncPostsTask{accounts: d.Accounts},
		&accountSyncStoriesTask{accounts: d.Accounts},

		&postProcessMediaTask{posts: d.Posts},
		&postSyncThumbnailTask{posts: d.Posts},
		&postGenerateBlurTask{posts: d.Posts},
		&postGenerateInsightTask{insights: d.Insights},
		&postGenerateEmbeddingTask{embeddings: d.Embeddings},
		&postMediaSyncThumbnailTask{posts: d.Posts},
		&postMediaSyncMediaTask{posts: d.Posts},
		&postMediaGenerateBlurTask{posts: d.Posts},

		&storySyncMediaTask{stories: d.Stories},
		&storyGenerateBlurTask{stories: d.Stories},
		&storyGenerateInsightTask{insights: d.Insights},
		&storyGenerateEmbeddingTask{embeddings: d.Embeddings},

		&paymentCheckoutCompletedTask{payments: d.Payments},
		&paymentIntentSucceededTask{payments: d.Payments},

		&sweepAutoUpdateProfilesTask{accountRepo: d.AccountRepo, enqueuer: d.Enqueuer, log: log},
		&sweepAutoUpdateStoriesTask{accountRepo: d.AccountRepo, enqueuer: d.Enqueuer, log: log},
		&sweepAccountBlurTask{accountRepo: d.AccountRepo, enqueuer: d.Enqueuer},
		&sweepPostBlurTask{postRepo: d.PostRepo, enqueuer: d.Enqueuer},
		&sweepPostMediaBlurTask{postMediaRepo: d.PostMediaRepo, enqueuer: d.Enqueuer},
		&sweepStoryBlurTask{storyRepo: d.StoryRepo, enqueuer: d.Enqueuer},
		&sweepPostInsightsTask{postRepo: d.PostRepo, enqueuer: d.Enqueuer},
		&sweepPostEmbeddingsTask{postRepo: d.PostRepo, enqueuer: d.Enqueuer},
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return err
		}
	}
	return nil
}
