package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type PostRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, posts []*types.Post) ([]*types.Post, error)
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Post, error)
	List(ctx context.Context, tx *gorm.DB, accountID *uuid.UUID, limit, offset int) ([]*types.Post, error)
	ListMissingBlur(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Post, error)
	ListMissingInsight(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Post, error)
	ListMissingEmbedding(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Post, error)
	ListWithEmbedding(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Post, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]interface{}) error
}

type postRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostRepo(db *gorm.DB, baseLog *logger.Logger) PostRepo {
	return &postRepo{db: db, log: baseLog.With("repo", "PostRepo")}
}

func (r *postRepo) Upsert(ctx context.Context, tx *gorm.DB, posts []*types.Post) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(posts) == 0 {
		return []*types.Post{}, nil
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"caption", "thumbnail_url", "variant", "raw_data", "post_created_at", "updated_at",
			}),
		}).
		Create(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil, nil
	}
	var post types.Post
	err := transaction.WithContext(ctx).
		Preload("Media").
		Where("id = ?", id).
		Limit(1).
		Find(&post).Error
	if err != nil {
		return nil, err
	}
	if post.ID == "" {
		return nil, nil
	}
	return &post, nil
}

func (r *postRepo) List(ctx context.Context, tx *gorm.DB, accountID *uuid.UUID, limit, offset int) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Post
	q := transaction.WithContext(ctx).Order("post_created_at DESC NULLS LAST")
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

func (r *postRepo) ListMissingBlur(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Post
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

func (r *postRepo) ListMissingInsight(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Post
	q := transaction.WithContext(ctx).
		Where("thumbnail_key <> '' AND (thumbnail_insight IS NULL OR thumbnail_insight = '')")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postRepo) ListMissingEmbedding(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Post
	q := transaction.WithContext(ctx).
		Where("thumbnail_insight <> '' AND embedding IS NULL")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postRepo) ListWithEmbedding(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Post
	q := transaction.WithContext(ctx).
		Where("embedding IS NOT NULL").
		Order("post_created_at DESC NULLS LAST")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id string, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Post{}).
		Where("id = ?", id).
		Updates(updates).Error
}

type PostMediaRepo interface {
	UpsertByReference(ctx context.Context, tx *gorm.DB, rows []*types.PostMedia) ([]*types.PostMedia, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*types.PostMedia, error)
	ListByPost(ctx context.Context, tx *gorm.DB, postID string) ([]*types.PostMedia, error)
	ListMissingBlur(ctx context.Context, tx *gorm.DB, limit int) ([]*types.PostMedia, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error
}

type postMediaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostMediaRepo(db *gorm.DB, baseLog *logger.Logger) PostMediaRepo {
	return &postMediaRepo{db: db, log: baseLog.With("repo", "PostMediaRepo")}
}

// UpsertByReference inserts rows and leaves existing (post_id, reference)
// pairs untouched, so re-materializing a carousel never duplicates items.
func (r *postMediaRepo) UpsertByReference(ctx context.Context, tx *gorm.DB, rows []*types.PostMedia) ([]*types.PostMedia, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.PostMedia{}, nil
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "reference"}},
			DoNothing: true,
		}).
		Create(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *postMediaRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*types.PostMedia, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 {
		return nil, nil
	}
	var row types.PostMedia
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *postMediaRepo) ListByPost(ctx context.Context, tx *gorm.DB, postID string) ([]*types.PostMedia, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PostMedia
	if postID == "" {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postMediaRepo) ListMissingBlur(ctx context.Context, tx *gorm.DB, limit int) ([]*types.PostMedia, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PostMedia
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

func (r *postMediaRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.PostMedia{}).
		Where("id = ?", id).
		Updates(updates).Error
}
