package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/services"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type accountSyncProfileTask struct {
	accounts services.AccountService
}

func (t *accountSyncProfileTask) Type() string { return services.JobAccountSyncProfile }

func (t *accountSyncProfileTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	id, err := uuid.Parse(job.EntityID)
	if err != nil {
		return jobs.Fail(fmt.Sprintf("invalid account id %q", job.EntityID))
	}
	if err := t.accounts.SyncProfile(ctx, id); err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok("Successfully updated profile from API")
}

type accountSyncProfilePictureTask struct {
	accounts services.AccountService
}

func (t *accountSyncProfilePictureTask) Type() string { return services.JobAccountSyncProfilePicture }

func (t *accountSyncProfilePictureTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	id, err := uuid.Parse(job.EntityID)
	if err != nil {
		return jobs.Fail(fmt.Sprintf("invalid account id %q", job.EntityID))
	}
	unchanged, err := t.accounts.SyncProfilePicture(ctx, id)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	if unchanged {
		return jobs.Ok("Profile picture is unchanged")
	}
	return jobs.Ok("Successfully synced profile picture")
}

type accountGenerateBlurTask struct {
	accounts services.AccountService
}

func (t *accountGenerateBlurTask) Type() string { return services.JobAccountGenerateBlur }

func (t *accountGenerateBlurTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	id, err := uuid.Parse(job.EntityID)
	if err != nil {
		return jobs.Fail(fmt.Sprintf("invalid account id %q", job.EntityID))
	}
	if err := t.accounts.GenerateProfileBlur(ctx, id); err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok("Successfully generated blur data URL")
}

type accountSyncPostsTask struct {
	accounts services.AccountService
}

func (t *accountSyncPostsTask) Type() string { return services.JobAccountSyncPosts }

func (t *accountSyncPostsTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	id, err := uuid.Parse(job.EntityID)
	if err != nil {
		return jobs.Fail(fmt.Sprintf("invalid account id %q", job.EntityID))
	}
	count, err := t.accounts.SyncPosts(ctx, id)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok(fmt.Sprintf("Successfully updated %d posts", count)).With("count", count)
}

type accountSyncStoriesTask struct {
	accounts services.AccountService
}

func (t *accountSyncStoriesTask) Type() string { return services.JobAccountSyncStories }

func (t *accountSyncStoriesTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	id, err := uuid.Parse(job.EntityID)
	if err != nil {
		return jobs.Fail(fmt.Sprintf("invalid account id %q", job.EntityID))
	}
	count, err := t.accounts.SyncStories(ctx, id)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok(fmt.Sprintf("Successfully updated %d stories", count)).With("count", count)
}
