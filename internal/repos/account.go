package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type AccountRepo interface {
	Create(ctx context.Context, tx *gorm.DB, accounts []*types.Account) ([]*types.Account, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Account, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*types.Account, error)
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Account, error)
	ListAutoUpdateProfile(ctx context.Context, tx *gorm.DB) ([]*types.Account, error)
	ListAutoUpdateStories(ctx context.Context, tx *gorm.DB) ([]*types.Account, error)
	ListMissingBlur(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Account, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Account, error)
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	return &accountRepo{db: db, log: baseLog.With("repo", "AccountRepo")}
}

func (r *accountRepo) Create(ctx context.Context, tx *gorm.DB, accounts []*types.Account) ([]*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(accounts) == 0 {
		return []*types.Account{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var account types.Account
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == uuid.Nil {
		return nil, nil
	}
	return &account, nil
}

func (r *accountRepo) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if username == "" {
		return nil, nil
	}
	var account types.Account
	err := transaction.WithContext(ctx).
		Where("username = ?", username).
		Limit(1).
		Find(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == uuid.Nil {
		return nil, nil
	}
	return &account, nil
}

func (r *accountRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Account
	q := transaction.WithContext(ctx).Order("created_at DESC")
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

func (r *accountRepo) ListAutoUpdateProfile(ctx context.Context, tx *gorm.DB) ([]*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Account
	if err := transaction.WithContext(ctx).
		Where("allow_auto_update_profile = ?", true).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *accountRepo) ListAutoUpdateStories(ctx context.Context, tx *gorm.DB) ([]*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Account
	if err := transaction.WithContext(ctx).
		Where("allow_auto_update_stories = ?", true).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *accountRepo) ListMissingBlur(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Account
	q := transaction.WithContext(ctx).
		Where("profile_picture_key <> '' AND (profile_picture_blur IS NULL OR profile_picture_blur = '')")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *accountRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Account{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *accountRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var account types.Account
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == uuid.Nil {
		return nil, nil
	}
	return &account, nil
}

type AccountHistoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.AccountHistory) ([]*types.AccountHistory, error)
	ListByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, limit int) ([]*types.AccountHistory, error)
}

type accountHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountHistoryRepo(db *gorm.DB, baseLog *logger.Logger) AccountHistoryRepo {
	return &accountHistoryRepo{db: db, log: baseLog.With("repo", "AccountHistoryRepo")}
}

func (r *accountHistoryRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.AccountHistory) ([]*types.AccountHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.AccountHistory{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *accountHistoryRepo) ListByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, limit int) ([]*types.AccountHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AccountHistory
	if accountID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type StoryUpdateLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.StoryUpdateLog) ([]*types.StoryUpdateLog, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ListByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, limit int) ([]*types.StoryUpdateLog, error)
}

type storyUpdateLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoryUpdateLogRepo(db *gorm.DB, baseLog *logger.Logger) StoryUpdateLogRepo {
	return &storyUpdateLogRepo{db: db, log: baseLog.With("repo", "StoryUpdateLogRepo")}
}

func (r *storyUpdateLogRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.StoryUpdateLog) ([]*types.StoryUpdateLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.StoryUpdateLog{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *storyUpdateLogRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.StoryUpdateLog{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *storyUpdateLogRepo) ListByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, limit int) ([]*types.StoryUpdateLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StoryUpdateLog
	if accountID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
