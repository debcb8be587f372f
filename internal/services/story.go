package services

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/media"
	"github.com/gramsight/gramsight-backend/internal/repos"
	"github.com/gramsight/gramsight-backend/internal/storage"
	"github.com/gramsight/gramsight-backend/internal/types"
)

// Job type identifiers for story work.
const (
	JobStorySyncMedia         = "story.sync_media"
	JobStoryGenerateBlur      = "story.generate_blur"
	JobStoryGenerateInsight   = "story.generate_insight"
	JobStoryGenerateEmbedding = "story.generate_embedding"
)

// StoryService owns story media caching and blur placeholders.
type StoryService interface {
	GetByID(ctx context.Context, id string) (*types.Story, error)
	List(ctx context.Context, accountID *uuid.UUID, limit, offset int) ([]*types.Story, error)

	SyncMedia(ctx context.Context, storyID string) (bool, error)
	GenerateBlur(ctx context.Context, storyID string) error
}

type storyService struct {
	db        *gorm.DB
	storyRepo repos.StoryRepo
	fetcher   *media.Fetcher
	store     storage.BlobStore
	enqueuer  jobs.Enqueuer
	log       *logger.Logger
}

func NewStoryService(
	db *gorm.DB,
	storyRepo repos.StoryRepo,
	fetcher *media.Fetcher,
	store storage.BlobStore,
	enqueuer jobs.Enqueuer,
	baseLog *logger.Logger,
) StoryService {
	return &storyService{
		db:        db,
		storyRepo: storyRepo,
		fetcher:   fetcher,
		store:     store,
		enqueuer:  enqueuer,
		log:       baseLog.With("service", "StoryService"),
	}
}

func (s *storyService) GetByID(ctx context.Context, id string) (*types.Story, error) {
	story, err := s.storyRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if story == nil {
		return nil, &NotFoundError{Msg: fmt.Sprintf("story %s not found", id)}
	}
	return story, nil
}

func (s *storyService) List(ctx context.Context, accountID *uuid.UUID, limit, offset int) ([]*types.Story, error) {
	return s.storyRepo.List(ctx, nil, accountID, limit, offset)
}

// SyncMedia caches the story thumbnail and media file. Returns true when
// both are hash-identical to the stored copies. A thumbnail change chains
// insight and blur generation in the same transaction as the key writes.
func (s *storyService) SyncMedia(ctx context.Context, storyID string) (bool, error) {
	story, err := s.GetByID(ctx, storyID)
	if err != nil {
		return false, err
	}
	if story.ThumbnailURL == "" && story.MediaURL == "" {
		return false, &PreconditionError{Msg: fmt.Sprintf("Story %s has no media URLs", storyID)}
	}

	updates := map[string]interface{}{}
	thumbnailChanged := false

	if story.ThumbnailURL != "" {
		var existing io.ReadCloser
		if story.ThumbnailKey != "" {
			if f, openErr := s.store.Open(story.ThumbnailKey); openErr == nil {
				existing = f
			}
		}
		result, fetchErr := s.fetcher.SyncBinary(ctx, story.ThumbnailURL, existing)
		if fetchErr != nil {
			return false, fetchErr
		}
		if !result.Unchanged {
			key := s.store.BuildKey(result.Extension, "users", story.AccountID.String(), "stories")
			if writeErr := s.store.Write(key, result.Data); writeErr != nil {
				return false, writeErr
			}
			updates["thumbnail_key"] = key
			updates["thumbnail_hash"] = result.Hash
			updates["blur_data_url"] = ""
			thumbnailChanged = true
		}
	}

	if story.MediaURL != "" && story.MediaURL != story.ThumbnailURL {
		var existing io.ReadCloser
		if story.MediaKey != "" {
			if f, openErr := s.store.Open(story.MediaKey); openErr == nil {
				existing = f
			}
		}
		result, fetchErr := s.fetcher.SyncBinary(ctx, story.MediaURL, existing)
		if fetchErr != nil {
			return false, fetchErr
		}
		if !result.Unchanged {
			key := s.store.BuildKey(result.Extension, "users", story.AccountID.String(), "stories")
			if writeErr := s.store.Write(key, result.Data); writeErr != nil {
				return false, writeErr
			}
			updates["media_key"] = key
			updates["media_hash"] = result.Hash
		}
	}

	if len(updates) == 0 {
		return true, nil
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if txErr := s.storyRepo.UpdateFields(ctx, tx, story.ID, updates); txErr != nil {
			return txErr
		}
		if thumbnailChanged {
			if _, txErr := s.enqueuer.Enqueue(ctx, tx, JobStoryGenerateInsight, story.ID, nil); txErr != nil {
				return txErr
			}
			if _, txErr := s.enqueuer.Enqueue(ctx, tx, JobStoryGenerateBlur, story.ID, nil); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *storyService) GenerateBlur(ctx context.Context, storyID string) error {
	story, err := s.GetByID(ctx, storyID)
	if err != nil {
		return err
	}
	if story.ThumbnailKey == "" {
		return &PreconditionError{Msg: "Thumbnail file does not exist"}
	}
	f, err := s.store.Open(story.ThumbnailKey)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	blur, err := media.BlurDataURL(data)
	if err != nil {
		return err
	}
	return s.storyRepo.UpdateFields(ctx, nil, story.ID, map[string]interface{}{
		"blur_data_url": blur,
	})
}
