package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/clients/openai"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/repos"
	"github.com/gramsight/gramsight-backend/internal/types"
)

const similarityCandidateLimit = 500

// ScoredPost pairs a post with its distance to a query vector. Lower is
// closer.
type ScoredPost struct {
	Post     *types.Post `json:"post"`
	Distance float64     `json:"distance"`
}

// EmbeddingService turns thumbnail insights into embedding vectors and
// answers similarity queries over them.
type EmbeddingService interface {
	GenerateStoryEmbedding(ctx context.Context, storyID string) (int, error)
	GeneratePostEmbedding(ctx context.Context, postID string) (int, error)
	SimilarPosts(ctx context.Context, postID string, limit int) ([]ScoredPost, error)
	SearchPosts(ctx context.Context, query string, limit int) ([]ScoredPost, error)
}

type embeddingService struct {
	db        *gorm.DB
	postRepo  repos.PostRepo
	storyRepo repos.StoryRepo
	ai        openai.Client
	log       *logger.Logger
}

func NewEmbeddingService(
	db *gorm.DB,
	postRepo repos.PostRepo,
	storyRepo repos.StoryRepo,
	ai openai.Client,
	baseLog *logger.Logger,
) EmbeddingService {
	return &embeddingService{
		db:        db,
		postRepo:  postRepo,
		storyRepo: storyRepo,
		ai:        ai,
		log:       baseLog.With("service", "EmbeddingService"),
	}
}

func (s *embeddingService) GenerateStoryEmbedding(ctx context.Context, storyID string) (int, error) {
	story, err := s.storyRepo.GetByID(ctx, nil, storyID)
	if err != nil {
		return 0, err
	}
	if story == nil {
		return 0, &NotFoundError{Msg: fmt.Sprintf("story %s not found", storyID)}
	}
	if story.ThumbnailInsight == "" {
		return 0, &PreconditionError{Msg: "Thumbnail insight is not available"}
	}

	vector, tokens, err := s.ai.EmbedText(ctx, story.ThumbnailInsight)
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal(vector)
	if err != nil {
		return 0, err
	}
	err = s.storyRepo.UpdateFields(ctx, nil, story.ID, map[string]interface{}{
		"embedding":        datatypes.JSON(raw),
		"embedding_tokens": tokenUsageJSON(tokens),
	})
	if err != nil {
		return 0, err
	}
	return tokens, nil
}

func (s *embeddingService) GeneratePostEmbedding(ctx context.Context, postID string) (int, error) {
	post, err := s.postRepo.GetByID(ctx, nil, postID)
	if err != nil {
		return 0, err
	}
	if post == nil {
		return 0, &NotFoundError{Msg: fmt.Sprintf("post %s not found", postID)}
	}
	if post.ThumbnailInsight == "" {
		return 0, &PreconditionError{Msg: "Thumbnail insight is not available"}
	}

	vector, tokens, err := s.ai.EmbedText(ctx, post.ThumbnailInsight)
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal(vector)
	if err != nil {
		return 0, err
	}
	err = s.postRepo.UpdateFields(ctx, nil, post.ID, map[string]interface{}{
		"embedding":        datatypes.JSON(raw),
		"embedding_tokens": tokenUsageJSON(tokens),
	})
	if err != nil {
		return 0, err
	}
	return tokens, nil
}

func (s *embeddingService) SimilarPosts(ctx context.Context, postID string, limit int) ([]ScoredPost, error) {
	post, err := s.postRepo.GetByID(ctx, nil, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, &NotFoundError{Msg: fmt.Sprintf("post %s not found", postID)}
	}
	if len(post.Embedding) == 0 {
		return nil, &PreconditionError{Msg: "Post has no embedding yet"}
	}
	var query []float64
	if err := json.Unmarshal(post.Embedding, &query); err != nil {
		return nil, err
	}
	scored, err := s.rankPosts(ctx, query, limit+1)
	if err != nil {
		return nil, err
	}
	// The post itself always ranks first; drop it.
	out := scored[:0]
	for _, sp := range scored {
		if sp.Post.ID != post.ID {
			out = append(out, sp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *embeddingService) SearchPosts(ctx context.Context, query string, limit int) ([]ScoredPost, error) {
	vector, _, err := s.ai.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.rankPosts(ctx, vector, limit)
}

func (s *embeddingService) rankPosts(ctx context.Context, query []float64, limit int) ([]ScoredPost, error) {
	candidates, err := s.postRepo.ListWithEmbedding(ctx, nil, similarityCandidateLimit)
	if err != nil {
		return nil, err
	}
	scored := make([]ScoredPost, 0, len(candidates))
	for _, post := range candidates {
		var vec []float64
		if err := json.Unmarshal(post.Embedding, &vec); err != nil {
			s.log.Warn("skipping post with malformed embedding", "post_id", post.ID, "error", err)
			continue
		}
		scored = append(scored, ScoredPost{Post: post, Distance: l2Distance(query, vec)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func l2Distance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	// Dimension mismatch penalizes the remainder as maximal distance.
	if len(a) != len(b) {
		sum += math.Abs(float64(len(a) - len(b)))
	}
	return math.Sqrt(sum)
}
