package tasks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/services"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type postProcessMediaTask struct {
	posts services.PostService
}

func (t *postProcessMediaTask) Type() string { return services.JobPostProcessMedia }

func (t *postProcessMediaTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	count, err := t.posts.ProcessByType(ctx, job.EntityID)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok(fmt.Sprintf("Successfully processed %d media rows", count)).With("count", count)
}

type postSyncThumbnailTask struct {
	posts services.PostService
}

func (t *postSyncThumbnailTask) Type() string { return services.JobPostSyncThumbnail }

func (t *postSyncThumbnailTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	unchanged, err := t.posts.SyncThumbnail(ctx, job.EntityID)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	if unchanged {
		return jobs.Ok("Thumbnail is unchanged")
	}
	return jobs.Ok("Successfully synced thumbnail")
}

type postGenerateBlurTask struct {
	posts services.PostService
}

func (t *postGenerateBlurTask) Type() string { return services.JobPostGenerateBlur }

func (t *postGenerateBlurTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	if err := t.posts.GenerateBlur(ctx, job.EntityID); err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok("Successfully generated blur data URL")
}

type postGenerateInsightTask struct {
	insights services.InsightService
}

func (t *postGenerateInsightTask) Type() string { return services.JobPostGenerateInsight }

func (t *postGenerateInsightTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	outcome, err := t.insights.GeneratePostInsight(ctx, job.EntityID)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	if outcome.AlreadyExists {
		return jobs.Ok("Insight already exists")
	}
	return jobs.Ok("Successfully generated insight").With("tokens", outcome.TokenUsage)
}

type postGenerateEmbeddingTask struct {
	embeddings services.EmbeddingService
}

func (t *postGenerateEmbeddingTask) Type() string { return services.JobPostGenerateEmbedding }

func (t *postGenerateEmbeddingTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	tokens, err := t.embeddings.GeneratePostEmbedding(ctx, job.EntityID)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok("Successfully generated embedding").With("tokens", tokens)
}

func parsePostMediaID(entityID string) (uint, error) {
	id, err := strconv.ParseUint(entityID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid post media id %q", entityID)
	}
	return uint(id), nil
}

type postMediaSyncThumbnailTask struct {
	posts services.PostService
}

func (t *postMediaSyncThumbnailTask) Type() string { return services.JobPostMediaSyncThumbnail }

func (t *postMediaSyncThumbnailTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	id, err := parsePostMediaID(job.EntityID)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	unchanged, err := t.posts.SyncMediaThumbnail(ctx, id)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	if unchanged {
		return jobs.Ok("Thumbnail is unchanged")
	}
	return jobs.Ok("Successfully synced thumbnail")
}

type postMediaSyncMediaTask struct {
	posts services.PostService
}

func (t *postMediaSyncMediaTask) Type() string { return services.JobPostMediaSyncMedia }

func (t *postMediaSyncMediaTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	id, err := parsePostMediaID(job.EntityID)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	unchanged, err := t.posts.SyncMediaFile(ctx, id)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	if unchanged {
		return jobs.Ok("Media file is unchanged")
	}
	return jobs.Ok("Successfully synced media file")
}

type postMediaGenerateBlurTask struct {
	posts services.PostService
}

func (t *postMediaGenerateBlurTask) Type() string { return services.JobPostMediaGenerateBlur }

func (t *postMediaGenerateBlurTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	id, err := parsePostMediaID(job.EntityID)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	if err := t.posts.GenerateMediaBlur(ctx, id); err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok("Successfully generated blur data URL")
}
