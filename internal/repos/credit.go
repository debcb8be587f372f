package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type StoryCreditRepo interface {
	GetOrCreateForAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.StoryCredit, error)
	LockByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.StoryCredit, error)
	AddBalance(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) error
}

type storyCreditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoryCreditRepo(db *gorm.DB, baseLog *logger.Logger) StoryCreditRepo {
	return &storyCreditRepo{db: db, log: baseLog.With("repo", "StoryCreditRepo")}
}

func (r *storyCreditRepo) GetOrCreateForAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.StoryCredit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if accountID == uuid.Nil {
		return nil, nil
	}
	credit := &types.StoryCredit{AccountID: accountID}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoNothing: true,
		}).
		Create(credit).Error
	if err != nil {
		return nil, err
	}
	var out types.StoryCredit
	if err := transaction.WithContext(ctx).
		Where("account_id = ?", accountID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *storyCreditRepo) LockByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.StoryCredit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if accountID == uuid.Nil {
		return nil, nil
	}
	var credit types.StoryCredit
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ?", accountID).
		Limit(1).
		Find(&credit).Error
	if err != nil {
		return nil, err
	}
	if credit.ID == uuid.Nil {
		return nil, nil
	}
	return &credit, nil
}

func (r *storyCreditRepo) AddBalance(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || delta == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.StoryCredit{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

type StoryCreditPaymentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.StoryCreditPayment) ([]*types.StoryCreditPayment, error)
	ExistsForPayment(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (bool, error)
}

type storyCreditPaymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoryCreditPaymentRepo(db *gorm.DB, baseLog *logger.Logger) StoryCreditPaymentRepo {
	return &storyCreditPaymentRepo{db: db, log: baseLog.With("repo", "StoryCreditPaymentRepo")}
}

func (r *storyCreditPaymentRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.StoryCreditPayment) ([]*types.StoryCreditPayment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.StoryCreditPayment{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *storyCreditPaymentRepo) ExistsForPayment(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if paymentID == uuid.Nil {
		return false, nil
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.StoryCreditPayment{}).
		Where("payment_id = ?", paymentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
