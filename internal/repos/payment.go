package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type PaymentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, payments []*types.Payment) ([]*types.Payment, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Payment, error)
	GetByReference(ctx context.Context, tx *gorm.DB, reference string) (*types.Payment, error)
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Payment, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit, offset int) ([]*types.Payment, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type paymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return &paymentRepo{db: db, log: baseLog.With("repo", "PaymentRepo")}
}

func (r *paymentRepo) Create(ctx context.Context, tx *gorm.DB, payments []*types.Payment) ([]*types.Payment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(payments) == 0 {
		return []*types.Payment{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Payment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var payment types.Payment
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == uuid.Nil {
		return nil, nil
	}
	return &payment, nil
}

func (r *paymentRepo) GetByReference(ctx context.Context, tx *gorm.DB, reference string) (*types.Payment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if reference == "" {
		return nil, nil
	}
	var payment types.Payment
	err := transaction.WithContext(ctx).
		Where("reference = ?", reference).
		Limit(1).
		Find(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == uuid.Nil {
		return nil, nil
	}
	return &payment, nil
}

// LockByID takes a FOR UPDATE row lock. Callers must hold an open
// transaction; the lock lives until that transaction ends.
func (r *paymentRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Payment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var payment types.Payment
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == uuid.Nil {
		return nil, nil
	}
	return &payment, nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit, offset int) ([]*types.Payment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Payment
	if userID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
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

func (r *paymentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

type PaymentHistoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.PaymentHistory) ([]*types.PaymentHistory, error)
	ListByPayment(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) ([]*types.PaymentHistory, error)
}

type paymentHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentHistoryRepo(db *gorm.DB, baseLog *logger.Logger) PaymentHistoryRepo {
	return &paymentHistoryRepo{db: db, log: baseLog.With("repo", "PaymentHistoryRepo")}
}

func (r *paymentHistoryRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.PaymentHistory) ([]*types.PaymentHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.PaymentHistory{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *paymentHistoryRepo) ListByPayment(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) ([]*types.PaymentHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PaymentHistory
	if paymentID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type WebhookLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.WebhookLog) ([]*types.WebhookLog, error)
}

type webhookLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWebhookLogRepo(db *gorm.DB, baseLog *logger.Logger) WebhookLogRepo {
	return &webhookLogRepo{db: db, log: baseLog.With("repo", "WebhookLogRepo")}
}

func (r *webhookLogRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.WebhookLog) ([]*types.WebhookLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.WebhookLog{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
