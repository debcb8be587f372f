package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// User is an application user identified by an external identity provider.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FirebaseUID string    `gorm:"column:firebase_uid;uniqueIndex;not null" json:"firebase_uid"`
	Email       string    `gorm:"column:email;index" json:"email"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	PhotoURL    string    `gorm:"column:photo_url" json:"photo_url"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "app_user" }

// Payment statuses mirror the checkout provider's vocabulary.
const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusProcessing        = "processing"
	PaymentStatusFailed            = "failed"
	PaymentStatusCanceled          = "canceled"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// Payment types.
const (
	PaymentTypeStoryCredit   = "add-story-credit"
	PaymentTypeProfileCredit = "add-profile-credit"
)

// Payment reference types (gateway names).
const ReferenceTypeStripe = "STRIPE"

// Payment is one checkout attempt. Reference is the gateway-side session id.
// Status is monotonic once paid; the service layer enforces it under a row
// lock.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	ReferenceType string          `gorm:"column:reference_type;not null" json:"reference_type"`
	Reference     string          `gorm:"column:reference;uniqueIndex;not null" json:"reference"`
	URL           string          `gorm:"column:url" json:"url"`
	Status        string          `gorm:"column:status;not null;default:'unpaid'" json:"status"`
	Type          string          `gorm:"column:type;not null" json:"type"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(10,2);not null;default:0" json:"amount"`
	RawData       datatypes.JSON  `gorm:"column:raw_data;type:jsonb" json:"raw_data,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Payment) TableName() string { return "payment" }

// PaymentHistory is an append-only status snapshot written on every
// status persist.
type PaymentHistory struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PaymentID uuid.UUID      `gorm:"type:uuid;not null;index" json:"payment_id"`
	Payment   *Payment       `gorm:"constraint:OnDelete:CASCADE;foreignKey:PaymentID;references:ID" json:"-"`
	Status    string         `gorm:"column:status;not null" json:"status"`
	RawData   datatypes.JSON `gorm:"column:raw_data;type:jsonb" json:"raw_data,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (PaymentHistory) TableName() string { return "payment_history" }

// WebhookLog is an append-only record of every verified webhook delivery.
type WebhookLog struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReferenceType string         `gorm:"column:reference_type;not null;index" json:"reference_type"`
	EventID       string         `gorm:"column:event_id;index" json:"event_id"`
	EventType     string         `gorm:"column:event_type" json:"event_type"`
	RawData       datatypes.JSON `gorm:"column:raw_data;type:jsonb;not null" json:"raw_data"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (WebhookLog) TableName() string { return "webhook_log" }

// StoryCredit is the per-account credit balance consumed by story syncs.
type StoryCredit struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"account_id"`
	Account   *Account  `gorm:"constraint:OnDelete:CASCADE;foreignKey:AccountID;references:ID" json:"-"`
	Balance   int       `gorm:"column:balance;not null;default:0" json:"balance"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (StoryCredit) TableName() string { return "story_credit" }

// StoryCreditPayment links a credit grant to the payment that funded it.
type StoryCreditPayment struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StoryCreditID uuid.UUID    `gorm:"type:uuid;not null;index" json:"story_credit_id"`
	StoryCredit   *StoryCredit `gorm:"constraint:OnDelete:CASCADE;foreignKey:StoryCreditID;references:ID" json:"-"`
	PaymentID     uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex" json:"payment_id"`
	Payment       *Payment     `gorm:"constraint:OnDelete:CASCADE;foreignKey:PaymentID;references:ID" json:"-"`
	Quantity      int          `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt     time.Time    `gorm:"not null;default:now()" json:"created_at"`
}

func (StoryCreditPayment) TableName() string { return "story_credit_payment" }
