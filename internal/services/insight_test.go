package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type fakeStoryRepo struct {
	story *types.Story
}

func (f *fakeStoryRepo) Upsert(_ context.Context, _ *gorm.DB, stories []*types.Story) ([]*types.Story, error) {
	return stories, nil
}

func (f *fakeStoryRepo) GetByID(_ context.Context, _ *gorm.DB, id string) (*types.Story, error) {
	if f.story != nil && f.story.ID == id {
		return f.story, nil
	}
	return nil, nil
}

func (f *fakeStoryRepo) List(_ context.Context, _ *gorm.DB, _ *uuid.UUID, _, _ int) ([]*types.Story, error) {
	return nil, nil
}

func (f *fakeStoryRepo) ListMissingBlur(_ context.Context, _ *gorm.DB, _ int) ([]*types.Story, error) {
	return nil, nil
}

func (f *fakeStoryRepo) UpdateFields(_ context.Context, _ *gorm.DB, id string, updates map[string]interface{}) error {
	return nil
}

type countingAIClient struct {
	insightCalls int
	embedCalls   int
}

func (c *countingAIClient) GenerateImageInsight(_ context.Context, _ []byte, _ string) (string, int, error) {
	c.insightCalls++
	return "a description", 42, nil
}

func (c *countingAIClient) EmbedText(_ context.Context, _ string) ([]float64, int, error) {
	c.embedCalls++
	return []float64{0.1, 0.2}, 7, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func TestGenerateStoryInsight_WriteOnce(t *testing.T) {
	repo := &fakeStoryRepo{story: &types.Story{
		ID:               "story-1",
		ThumbnailKey:     "users/acct/stories/x.jpg",
		ThumbnailInsight: "already written",
	}}
	ai := &countingAIClient{}
	svc := NewInsightService(nil, nil, repo, nil, ai, nil, testLogger(t))

	outcome, err := svc.GenerateStoryInsight(context.Background(), "story-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.AlreadyExists {
		t.Fatalf("expected AlreadyExists for populated insight")
	}
	if outcome.Insight != "already written" {
		t.Fatalf("unexpected insight: %q", outcome.Insight)
	}
	if ai.insightCalls != 0 {
		t.Fatalf("existing insight must not trigger provider calls, got %d", ai.insightCalls)
	}
}

func TestGenerateStoryInsight_MissingThumbnailKey(t *testing.T) {
	repo := &fakeStoryRepo{story: &types.Story{ID: "story-1"}}
	ai := &countingAIClient{}
	svc := NewInsightService(nil, nil, repo, nil, ai, nil, testLogger(t))

	_, err := svc.GenerateStoryInsight(context.Background(), "story-1")
	var precondition *PreconditionError
	if !errors.As(err, &precondition) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if precondition.Msg != "Thumbnail file does not exist" {
		t.Fatalf("unexpected message: %q", precondition.Msg)
	}
	if ai.insightCalls != 0 {
		t.Fatalf("missing thumbnail must not trigger provider calls")
	}
}

func TestGenerateStoryInsight_UnknownStory(t *testing.T) {
	svc := NewInsightService(nil, nil, &fakeStoryRepo{}, nil, &countingAIClient{}, nil, testLogger(t))
	_, err := svc.GenerateStoryInsight(context.Background(), "missing")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestGenerateStoryEmbedding_RequiresInsight(t *testing.T) {
	repo := &fakeStoryRepo{story: &types.Story{ID: "story-1", ThumbnailKey: "k"}}
	ai := &countingAIClient{}
	svc := NewEmbeddingService(nil, nil, repo, ai, testLogger(t))

	_, err := svc.GenerateStoryEmbedding(context.Background(), "story-1")
	var precondition *PreconditionError
	if !errors.As(err, &precondition) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if precondition.Msg != "Thumbnail insight is not available" {
		t.Fatalf("unexpected message: %q", precondition.Msg)
	}
	if ai.embedCalls != 0 {
		t.Fatalf("missing insight must not trigger provider calls")
	}
}

func TestGenerateStoryEmbedding_UsesInsightText(t *testing.T) {
	repo := &fakeStoryRepo{story: &types.Story{
		ID:               "story-1",
		ThumbnailKey:     "k",
		ThumbnailInsight: "a sunset over water",
	}}
	ai := &countingAIClient{}
	svc := NewEmbeddingService(nil, nil, repo, ai, testLogger(t))

	tokens, err := svc.GenerateStoryEmbedding(context.Background(), "story-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens != 7 {
		t.Fatalf("expected token usage 7, got %d", tokens)
	}
	if ai.embedCalls != 1 {
		t.Fatalf("expected exactly one embed call, got %d", ai.embedCalls)
	}
}
