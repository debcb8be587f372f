package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type StoryRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, stories []*types.Story) ([]*types.Story, error)
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Story, error)
	List(ctx context.Context, tx *gorm.DB, accountID *uuid.UUID, limit, offset int) ([]*types.Story, error)
	ListMissingBlur(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Story, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]interface{}) error
}

type storyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoryRepo(db *gorm.DB, baseLog *logger.Logger) StoryRepo {
	return &storyRepo{db: db, log: baseLog.With("repo", "StoryRepo")}
}

func (r *storyRepo) Upsert(ctx context.Context, tx *gorm.DB, stories []*types.Story) ([]*types.Story, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(stories) == 0 {
		return []*types.Story{}, nil
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"thumbnail_url", "media_url", "raw_api_data", "story_created_at", "updated_at",
			}),
		}).
		Create(&stories).Error
	if err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *storyRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Story, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil, nil
	}
	var story types.Story
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&story).Error
	if err != nil {
		return nil, err
	}
	if story.ID == "" {
		return nil, nil
	}
	return &story, nil
}

func (r *storyRepo) List(ctx context.Context, tx *gorm.DB, accountID *uuid.UUID, limit, offset int) ([]*types.Story, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Story
	q := transaction.WithContext(ctx).Order("story_created_at DESC NULLS LAST")
	if accountID != nil && *accountID != uuid.Nil {
		q = q.Where("account_id = ?", *accountID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *storyRepo) ListMissingBlur(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Story, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Story
	q := transaction.WithContext(ctx).
		Where("thumbnail_key <> '' AND (blur_data_url IS NULL OR blur_data_url = '')")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *storyRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Story{}).
		Where("id = ?", id).
		Updates(updates).Error
}
