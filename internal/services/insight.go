package services

import (
	"context"
	"fmt"
	"io"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/clients/openai"
	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/repos"
	"github.com/gramsight/gramsight-backend/internal/storage"
)

// The story prompt asks for embedding-oriented verbosity; the post prompt
// for end-user brevity. The distinction changes downstream embedding
// quality.
const (
	storyInsightPrompt = "Describe this image in detail for semantic search indexing. " +
		"Cover the setting, people, objects, visible text, mood, colors and any " +
		"activity or event taking place. Be thorough and factual; the description " +
		"will be embedded for similarity search, not shown to users."
	postInsightPrompt = "Write a brief, friendly one or two sentence description of " +
		"this image suitable for showing to end users."
)

// InsightOutcome reports one insight generation run.
type InsightOutcome struct {
	AlreadyExists bool
	Insight       string
	TokenUsage    int
}

// InsightService generates vision-model descriptions of cached thumbnails.
// Insights are write-once per content unit.
type InsightService interface {
	GenerateStoryInsight(ctx context.Context, storyID string) (*InsightOutcome, error)
	GeneratePostInsight(ctx context.Context, postID string) (*InsightOutcome, error)
}

type insightService struct {
	db        *gorm.DB
	postRepo  repos.PostRepo
	storyRepo repos.StoryRepo
	store     storage.BlobStore
	ai        openai.Client
	enqueuer  jobs.Enqueuer
	log       *logger.Logger
}

func NewInsightService(
	db *gorm.DB,
	postRepo repos.PostRepo,
	storyRepo repos.StoryRepo,
	store storage.BlobStore,
	ai openai.Client,
	enqueuer jobs.Enqueuer,
	baseLog *logger.Logger,
) InsightService {
	return &insightService{
		db:        db,
		postRepo:  postRepo,
		storyRepo: storyRepo,
		store:     store,
		ai:        ai,
		enqueuer:  enqueuer,
		log:       baseLog.With("service", "InsightService"),
	}
}

func (s *insightService) GenerateStoryInsight(ctx context.Context, storyID string) (*InsightOutcome, error) {
	story, err := s.storyRepo.GetByID(ctx, nil, storyID)
	if err != nil {
		return nil, err
	}
	if story == nil {
		return nil, &NotFoundError{Msg: fmt.Sprintf("story %s not found", storyID)}
	}
	if story.ThumbnailInsight != "" {
		return &InsightOutcome{AlreadyExists: true, Insight: story.ThumbnailInsight}, nil
	}
	if story.ThumbnailKey == "" {
		return nil, &PreconditionError{Msg: "Thumbnail file does not exist"}
	}

	data, err := s.readBlob(story.ThumbnailKey)
	if err != nil {
		return nil, err
	}
	insight, tokens, err := s.ai.GenerateImageInsight(ctx, data, storyInsightPrompt)
	if err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		txErr := s.storyRepo.UpdateFields(ctx, tx, story.ID, map[string]interface{}{
			"thumbnail_insight":        insight,
			"thumbnail_insight_tokens": tokenUsageJSON(tokens),
		})
		if txErr != nil {
			return txErr
		}
		_, txErr = s.enqueuer.Enqueue(ctx, tx, JobStoryGenerateEmbedding, story.ID, nil)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return &InsightOutcome{Insight: insight, TokenUsage: tokens}, nil
}

func (s *insightService) GeneratePostInsight(ctx context.Context, postID string) (*InsightOutcome, error) {
	post, err := s.postRepo.GetByID(ctx, nil, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, &NotFoundError{Msg: fmt.Sprintf("post %s not found", postID)}
	}
	if post.ThumbnailInsight != "" {
		return &InsightOutcome{AlreadyExists: true, Insight: post.ThumbnailInsight}, nil
	}
	if post.ThumbnailKey == "" {
		return nil, &PreconditionError{Msg: "Thumbnail file does not exist"}
	}

	data, err := s.readBlob(post.ThumbnailKey)
	if err != nil {
		return nil, err
	}
	insight, tokens, err := s.ai.GenerateImageInsight(ctx, data, postInsightPrompt)
	if err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		txErr := s.postRepo.UpdateFields(ctx, tx, post.ID, map[string]interface{}{
			"thumbnail_insight":        insight,
			"thumbnail_insight_tokens": tokenUsageJSON(tokens),
		})
		if txErr != nil {
			return txErr
		}
		_, txErr = s.enqueuer.Enqueue(ctx, tx, JobPostGenerateEmbedding, post.ID, nil)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return &InsightOutcome{Insight: insight, TokenUsage: tokens}, nil
}

func (s *insightService) readBlob(key string) ([]byte, error) {
	if !s.store.Exists(key) {
		return nil, &PreconditionError{Msg: "Thumbnail file does not exist"}
	}
	f, err := s.store.Open(key)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func tokenUsageJSON(tokens int) datatypes.JSON {
	return datatypes.JSON(fmt.Sprintf(`{"total_tokens":%d}`, tokens))
}
