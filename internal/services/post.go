package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	igclient "github.com/gramsight/gramsight-backend/internal/clients/instagram"
	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/media"
	"github.com/gramsight/gramsight-backend/internal/repos"
	"github.com/gramsight/gramsight-backend/internal/storage"
	"github.com/gramsight/gramsight-backend/internal/types"
)

// Job type identifiers for post work.
const (
	JobPostProcessMedia       = "post.process_media"
	JobPostSyncThumbnail      = "post.sync_thumbnail"
	JobPostGenerateBlur       = "post.generate_blur"
	JobPostGenerateInsight    = "post.generate_insight"
	JobPostGenerateEmbedding  = "post.generate_embedding"
	JobPostMediaSyncThumbnail = "postmedia.sync_thumbnail"
	JobPostMediaSyncMedia     = "postmedia.sync_media"
	JobPostMediaGenerateBlur  = "postmedia.generate_blur"
)

// PostService owns post media materialization, thumbnail caching and blur
// placeholders.
type PostService interface {
	GetByID(ctx context.Context, id string) (*types.Post, error)
	List(ctx context.Context, accountID *uuid.UUID, limit, offset int) ([]*types.Post, error)

	ProcessByType(ctx context.Context, postID string) (int, error)
	SyncThumbnail(ctx context.Context, postID string) (bool, error)
	GenerateBlur(ctx context.Context, postID string) error

	SyncMediaThumbnail(ctx context.Context, postMediaID uint) (bool, error)
	SyncMediaFile(ctx context.Context, postMediaID uint) (bool, error)
	GenerateMediaBlur(ctx context.Context, postMediaID uint) error
}

type postService struct {
	db            *gorm.DB
	postRepo      repos.PostRepo
	postMediaRepo repos.PostMediaRepo
	fetcher       *media.Fetcher
	store         storage.BlobStore
	enqueuer      jobs.Enqueuer
	log           *logger.Logger
}

func NewPostService(
	db *gorm.DB,
	postRepo repos.PostRepo,
	postMediaRepo repos.PostMediaRepo,
	fetcher *media.Fetcher,
	store storage.BlobStore,
	enqueuer jobs.Enqueuer,
	baseLog *logger.Logger,
) PostService {
	return &postService{
		db:            db,
		postRepo:      postRepo,
		postMediaRepo: postMediaRepo,
		fetcher:       fetcher,
		store:         store,
		enqueuer:      enqueuer,
		log:           baseLog.With("service", "PostService"),
	}
}

func (s *postService) GetByID(ctx context.Context, id string) (*types.Post, error) {
	post, err := s.postRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, &NotFoundError{Msg: fmt.Sprintf("post %s not found", id)}
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, accountID *uuid.UUID, limit, offset int) ([]*types.Post, error) {
	return s.postRepo.List(ctx, nil, accountID, limit, offset)
}

// ProcessByType infers the post variant from the raw payload shape and
// materializes PostMedia rows. The (post, reference) uniqueness makes
// repeated runs no-ops; after completion a carousel holds N rows and a
// normal or video post exactly one.
func (s *postService) ProcessByType(ctx context.Context, postID string) (int, error) {
	post, err := s.GetByID(ctx, postID)
	if err != nil {
		return 0, err
	}
	if len(post.RawData) == 0 {
		return 0, &PreconditionError{Msg: fmt.Sprintf("Post %s has no raw data", postID)}
	}

	var raw struct {
		MediaType     int    `json:"media_type"`
		DisplayURI    string `json:"display_uri"`
		VideoURL      string `json:"video_url"`
		CarouselMedia []struct {
			StrongID   string `json:"strong_id__"`
			DisplayURI string `json:"display_uri"`
		} `json:"carousel_media"`
	}
	if err := json.Unmarshal(post.RawData, &raw); err != nil {
		return 0, fmt.Errorf("malformed raw post data: %w", err)
	}

	variant := types.PostVariantNormal
	var rows []*types.PostMedia
	switch {
	case raw.MediaType == igclient.MediaTypeCarousel || len(raw.CarouselMedia) > 0:
		variant = types.PostVariantCarousel
		for _, item := range raw.CarouselMedia {
			if item.StrongID == "" {
				continue
			}
			rows = append(rows, &types.PostMedia{
				PostID:       post.ID,
				Reference:    item.StrongID,
				ThumbnailURL: item.DisplayURI,
				MediaURL:     item.DisplayURI,
			})
		}
	case raw.MediaType == igclient.MediaTypeVideo:
		variant = types.PostVariantVideo
		rows = append(rows, &types.PostMedia{
			PostID:       post.ID,
			Reference:    post.ID,
			ThumbnailURL: raw.DisplayURI,
			MediaURL:     raw.VideoURL,
		})
	default:
		rows = append(rows, &types.PostMedia{
			PostID:       post.ID,
			Reference:    post.ID,
			ThumbnailURL: raw.DisplayURI,
			MediaURL:     raw.DisplayURI,
		})
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if txErr := s.postRepo.UpdateFields(ctx, tx, post.ID, map[string]interface{}{"variant": variant}); txErr != nil {
			return txErr
		}
		if _, txErr := s.postMediaRepo.UpsertByReference(ctx, tx, rows); txErr != nil {
			return txErr
		}
		created, txErr := s.postMediaRepo.ListByPost(ctx, tx, post.ID)
		if txErr != nil {
			return txErr
		}
		for _, row := range created {
			if row.ThumbnailKey != "" {
				continue
			}
			if _, txErr := s.enqueuer.Enqueue(ctx, tx, JobPostMediaSyncThumbnail, strconv.FormatUint(uint64(row.ID), 10), nil); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// SyncThumbnail caches the post thumbnail. Returns true when the remote
// bytes are hash-identical to the stored copy. On change the insight and
// blur stages are chained in the same transaction as the key write.
func (s *postService) SyncThumbnail(ctx context.Context, postID string) (bool, error) {
	post, err := s.GetByID(ctx, postID)
	if err != nil {
		return false, err
	}
	if post.ThumbnailURL == "" {
		return false, &PreconditionError{Msg: fmt.Sprintf("Post %s has no thumbnail URL", postID)}
	}

	var existing io.ReadCloser
	if post.ThumbnailKey != "" {
		if f, openErr := s.store.Open(post.ThumbnailKey); openErr == nil {
			existing = f
		}
	}
	result, err := s.fetcher.SyncBinary(ctx, post.ThumbnailURL, existing)
	if err != nil {
		return false, err
	}
	if result.Unchanged {
		return true, nil
	}

	key := s.store.BuildKey(result.Extension, "posts", post.ID)
	if err := s.store.Write(key, result.Data); err != nil {
		return false, err
	}
	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		txErr := s.postRepo.UpdateFields(ctx, tx, post.ID, map[string]interface{}{
			"thumbnail_key":  key,
			"thumbnail_hash": result.Hash,
			"blur_data_url":  "",
		})
		if txErr != nil {
			return txErr
		}
		if _, txErr = s.enqueuer.Enqueue(ctx, tx, JobPostGenerateInsight, post.ID, nil); txErr != nil {
			return txErr
		}
		_, txErr = s.enqueuer.Enqueue(ctx, tx, JobPostGenerateBlur, post.ID, nil)
		return txErr
	})
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *postService) GenerateBlur(ctx context.Context, postID string) error {
	post, err := s.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.ThumbnailKey == "" {
		return &PreconditionError{Msg: "Thumbnail file does not exist"}
	}
	blur, err := s.blurFromKey(post.ThumbnailKey)
	if err != nil {
		return err
	}
	return s.postRepo.UpdateFields(ctx, nil, post.ID, map[string]interface{}{
		"blur_data_url": blur,
	})
}

func (s *postService) getMedia(ctx context.Context, postMediaID uint) (*types.PostMedia, error) {
	row, err := s.postMediaRepo.GetByID(ctx, nil, postMediaID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &NotFoundError{Msg: fmt.Sprintf("post media %d not found", postMediaID)}
	}
	return row, nil
}

func (s *postService) SyncMediaThumbnail(ctx context.Context, postMediaID uint) (bool, error) {
	row, err := s.getMedia(ctx, postMediaID)
	if err != nil {
		return false, err
	}
	if row.ThumbnailURL == "" {
		return false, &PreconditionError{Msg: fmt.Sprintf("Post media %d has no thumbnail URL", postMediaID)}
	}

	var existing io.ReadCloser
	if row.ThumbnailKey != "" {
		if f, openErr := s.store.Open(row.ThumbnailKey); openErr == nil {
			existing = f
		}
	}
	result, err := s.fetcher.SyncBinary(ctx, row.ThumbnailURL, existing)
	if err != nil {
		return false, err
	}
	if result.Unchanged {
		return true, nil
	}

	key := s.store.BuildKey(result.Extension, "posts", row.PostID)
	if err := s.store.Write(key, result.Data); err != nil {
		return false, err
	}
	mediaID := strconv.FormatUint(uint64(row.ID), 10)
	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		txErr := s.postMediaRepo.UpdateFields(ctx, tx, row.ID, map[string]interface{}{
			"thumbnail_key":  key,
			"thumbnail_hash": result.Hash,
			"blur_data_url":  "",
		})
		if txErr != nil {
			return txErr
		}
		_, txErr = s.enqueuer.Enqueue(ctx, tx, JobPostMediaGenerateBlur, mediaID, nil)
		return txErr
	})
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *postService) SyncMediaFile(ctx context.Context, postMediaID uint) (bool, error) {
	row, err := s.getMedia(ctx, postMediaID)
	if err != nil {
		return false, err
	}
	if row.MediaURL == "" {
		return false, &PreconditionError{Msg: fmt.Sprintf("Post media %d has no media URL", postMediaID)}
	}

	var existing io.ReadCloser
	if row.MediaKey != "" {
		if f, openErr := s.store.Open(row.MediaKey); openErr == nil {
			existing = f
		}
	}
	result, err := s.fetcher.SyncBinary(ctx, row.MediaURL, existing)
	if err != nil {
		return false, err
	}
	if result.Unchanged {
		return true, nil
	}

	key := s.store.BuildKey(result.Extension, "posts", row.PostID)
	if err := s.store.Write(key, result.Data); err != nil {
		return false, err
	}
	err = s.postMediaRepo.UpdateFields(ctx, nil, row.ID, map[string]interface{}{
		"media_key":  key,
		"media_hash": result.Hash,
	})
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *postService) GenerateMediaBlur(ctx context.Context, postMediaID uint) error {
	row, err := s.getMedia(ctx, postMediaID)
	if err != nil {
		return err
	}
	if row.ThumbnailKey == "" {
		return &PreconditionError{Msg: "Thumbnail file does not exist"}
	}
	blur, err := s.blurFromKey(row.ThumbnailKey)
	if err != nil {
		return err
	}
	return s.postMediaRepo.UpdateFields(ctx, nil, row.ID, map[string]interface{}{
		"blur_data_url": blur,
	})
}

func (s *postService) blurFromKey(key string) (string, error) {
	f, err := s.store.Open(key)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return "", err
	}
	return media.BlurDataURL(data)
}
