package tasks

import (
	"context"

	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/services"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type storySyncMediaTask struct {
	stories services.StoryService
}

func (t *storySyncMediaTask) Type() string { return services.JobStorySyncMedia }

func (t *storySyncMediaTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	unchanged, err := t.stories.SyncMedia(ctx, job.EntityID)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	if unchanged {
		return jobs.Ok("Story media is unchanged")
	}
	return jobs.Ok("Successfully synced story media")
}

type storyGenerateBlurTask struct {
	stories services.StoryService
}

func (t *storyGenerateBlurTask) Type() string { return services.JobStoryGenerateBlur }

func (t *storyGenerateBlurTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	if err := t.stories.GenerateBlur(ctx, job.EntityID); err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok("Successfully generated blur data URL")
}

type storyGenerateInsightTask struct {
	insights services.InsightService
}

func (t *storyGenerateInsightTask) Type() string { return services.JobStoryGenerateInsight }

func (t *storyGenerateInsightTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	outcome, err := t.insights.GenerateStoryInsight(ctx, job.EntityID)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	if outcome.AlreadyExists {
		return jobs.Ok("Insight already exists")
	}
	return jobs.Ok("Successfully generated insight").With("tokens", outcome.TokenUsage)
}

type storyGenerateEmbeddingTask struct {
	embeddings services.EmbeddingService
}

func (t *storyGenerateEmbeddingTask) Type() string { return services.JobStoryGenerateEmbedding }

func (t *storyGenerateEmbeddingTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	tokens, err := t.embeddings.GenerateStoryEmbedding(ctx, job.EntityID)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok("Successfully generated embedding").With("tokens", tokens)
}
