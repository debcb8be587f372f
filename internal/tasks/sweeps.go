package tasks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/repos"
	"github.com/gramsight/gramsight-backend/internal/services"
	"github.com/gramsight/gramsight-backend/internal/types"
)

// Sweep job types. Sweeps fan individual jobs out over every eligible row;
// the beat scheduler enqueues them on fixed intervals.
const (
	JobSweepAutoUpdateProfiles = "sweep.auto_update_profiles"
	JobSweepAutoUpdateStories  = "sweep.auto_update_stories"
	JobSweepAccountBlur        = "sweep.account_blur"
	JobSweepPostBlur           = "sweep.post_blur"
	JobSweepPostMediaBlur      = "sweep.postmedia_blur"
	JobSweepStoryBlur          = "sweep.story_blur"
	JobSweepPostInsights       = "sweep.post_insights"
	JobSweepPostEmbeddings     = "sweep.post_embeddings"
)

// Rows considered per sweep run. The sweeps re-run on an interval, so a
// backlog larger than this drains over successive ticks.
const sweepBatchLimit = 200

type dispatchTarget struct {
	JobType  string
	EntityID string
}

// dispatchAll enqueues one job per target, collecting per-item failures
// instead of aborting the batch.
func dispatchAll(ctx context.Context, enqueuer jobs.Enqueuer, targets []dispatchTarget) jobs.Result {
	queued := 0
	taskIDs := make([]string, 0, len(targets))
	errorDetails := []string{}
	for _, target := range targets {
		id, err := enqueuer.Enqueue(ctx, nil, target.JobType, target.EntityID, nil)
		if err != nil {
			errorDetails = append(errorDetails, fmt.Sprintf("%s %s: %v", target.JobType, target.EntityID, err))
			continue
		}
		queued++
		taskIDs = append(taskIDs, id.String())
	}
	result := jobs.Ok(fmt.Sprintf("Dispatched %d of %d jobs", queued, len(targets))).
		With("total", len(targets)).
		With("queued", queued).
		With("errors", len(errorDetails)).
		With("task_ids", taskIDs)
	if len(errorDetails) > 0 {
		result = result.With("error_details", errorDetails)
	}
	return result
}

type sweepAutoUpdateProfilesTask struct {
	accountRepo repos.AccountRepo
	enqueuer    jobs.Enqueuer
	log         *logger.Logger
}

func (t *sweepAutoUpdateProfilesTask) Type() string { return JobSweepAutoUpdateProfiles }

func (t *sweepAutoUpdateProfilesTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	accounts, err := t.accountRepo.ListAutoUpdateProfile(ctx, nil)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	targets := make([]dispatchTarget, 0, len(accounts))
	for _, account := range accounts {
		targets = append(targets, dispatchTarget{services.JobAccountSyncProfile, account.ID.String()})
	}
	return dispatchAll(ctx, t.enqueuer, targets)
}

type sweepAutoUpdateStoriesTask struct {
	accountRepo repos.AccountRepo
	enqueuer    jobs.Enqueuer
	log         *logger.Logger
}

func (t *sweepAutoUpdateStoriesTask) Type() string { return JobSweepAutoUpdateStories }

func (t *sweepAutoUpdateStoriesTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	accounts, err := t.accountRepo.ListAutoUpdateStories(ctx, nil)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	targets := make([]dispatchTarget, 0, len(accounts))
	for _, account := range accounts {
		targets = append(targets, dispatchTarget{services.JobAccountSyncStories, account.ID.String()})
	}
	return dispatchAll(ctx, t.enqueuer, targets)
}

type sweepAccountBlurTask struct {
	accountRepo repos.AccountRepo
	enqueuer    jobs.Enqueuer
}

func (t *sweepAccountBlurTask) Type() string { return JobSweepAccountBlur }

func (t *sweepAccountBlurTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	accounts, err := t.accountRepo.ListMissingBlur(ctx, nil, sweepBatchLimit)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	targets := make([]dispatchTarget, 0, len(accounts))
	for _, account := range accounts {
		targets = append(targets, dispatchTarget{services.JobAccountGenerateBlur, account.ID.String()})
	}
	return dispatchAll(ctx, t.enqueuer, targets)
}

type sweepPostBlurTask struct {
	postRepo repos.PostRepo
	enqueuer jobs.Enqueuer
}

func (t *sweepPostBlurTask) Type() string { return JobSweepPostBlur }

func (t *sweepPostBlurTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	posts, err := t.postRepo.ListMissingBlur(ctx, nil, sweepBatchLimit)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	targets := make([]dispatchTarget, 0, len(posts))
	for _, post := range posts {
		targets = append(targets, dispatchTarget{services.JobPostGenerateBlur, post.ID})
	}
	return dispatchAll(ctx, t.enqueuer, targets)
}

type sweepPostMediaBlurTask struct {
	postMediaRepo repos.PostMediaRepo
	enqueuer      jobs.Enqueuer
}

func (t *sweepPostMediaBlurTask) Type() string { return JobSweepPostMediaBlur }

func (t *sweepPostMediaBlurTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	media, err := t.postMediaRepo.ListMissingBlur(ctx, nil, sweepBatchLimit)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	targets := make([]dispatchTarget, 0, len(media))
	for _, item := range media {
		targets = append(targets, dispatchTarget{services.JobPostMediaGenerateBlur, strconv.FormatUint(uint64(item.ID), 10)})
	}
	return dispatchAll(ctx, t.enqueuer, targets)
}

type sweepStoryBlurTask struct {
	storyRepo repos.StoryRepo
	enqueuer  jobs.Enqueuer
}

func (t *sweepStoryBlurTask) Type() string { return JobSweepStoryBlur }

func (t *sweepStoryBlurTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	stories, err := t.storyRepo.ListMissingBlur(ctx, nil, sweepBatchLimit)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	targets := make([]dispatchTarget, 0, len(stories))
	for _, story := range stories {
		targets = append(targets, dispatchTarget{services.JobStoryGenerateBlur, story.ID})
	}
	return dispatchAll(ctx, t.enqueuer, targets)
}

type sweepPostInsightsTask struct {
	postRepo repos.PostRepo
	enqueuer jobs.Enqueuer
}

func (t *sweepPostInsightsTask) Type() string { return JobSweepPostInsights }

func (t *sweepPostInsightsTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	posts, err := t.postRepo.ListMissingInsight(ctx, nil, sweepBatchLimit)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	targets := make([]dispatchTarget, 0, len(posts))
	for _, post := range posts {
		targets = append(targets, dispatchTarget{services.JobPostGenerateInsight, post.ID})
	}
	return dispatchAll(ctx, t.enqueuer, targets)
}

type sweepPostEmbeddingsTask struct {
	postRepo repos.PostRepo
	enqueuer jobs.Enqueuer
}

func (t *sweepPostEmbeddingsTask) Type() string { return JobSweepPostEmbeddings }

func (t *sweepPostEmbeddingsTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	posts, err := t.postRepo.ListMissingEmbedding(ctx, nil, sweepBatchLimit)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	targets := make([]dispatchTarget, 0, len(posts))
	for _, post := range posts {
		targets = append(targets, dispatchTarget{services.JobPostGenerateEmbedding, post.ID})
	}
	return dispatchAll(ctx, t.enqueuer, targets)
}
