package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Account is a tracked Instagram profile. Binary assets (profile picture)
// are referenced by blob-store key, never stored inline.
type Account struct {
	ID                        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	InstagramID               *string        `gorm:"column:instagram_id;uniqueIndex" json:"instagram_id,omitempty"`
	Username                  string         `gorm:"column:username;uniqueIndex;not null" json:"username"`
	FullName                  string         `gorm:"column:full_name" json:"full_name"`
	Biography                 string         `gorm:"column:biography" json:"biography"`
	IsPrivate                 bool           `gorm:"column:is_private;not null;default:false" json:"is_private"`
	IsVerified                bool           `gorm:"column:is_verified;not null;default:false" json:"is_verified"`
	MediaCount                int            `gorm:"column:media_count;not null;default:0" json:"media_count"`
	FollowerCount             int            `gorm:"column:follower_count;not null;default:0" json:"follower_count"`
	FollowingCount            int            `gorm:"column:following_count;not null;default:0" json:"following_count"`
	OriginalProfilePictureURL string         `gorm:"column:original_profile_picture_url" json:"original_profile_picture_url"`
	ProfilePictureKey         string         `gorm:"column:profile_picture_key" json:"profile_picture_key"`
	ProfilePictureHash        string         `gorm:"column:profile_picture_hash" json:"-"`
	ProfilePictureBlur        string         `gorm:"column:profile_picture_blur" json:"profile_picture_blur"`
	RawAPIData                datatypes.JSON `gorm:"column:raw_api_data;type:jsonb" json:"raw_api_data,omitempty"`
	AllowAutoUpdateStories    bool           `gorm:"column:allow_auto_update_stories;not null;default:false" json:"allow_auto_update_stories"`
	AllowAutoUpdateProfile    bool           `gorm:"column:allow_auto_update_profile;not null;default:false" json:"allow_auto_update_profile"`
	APIUpdatedAt              *time.Time     `gorm:"column:api_updated_at" json:"api_updated_at,omitempty"`
	CreatedAt                 time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                 time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Account) TableName() string { return "account" }

// AccountHistory is an append-only snapshot of an account taken on every
// profile mutation.
type AccountHistory struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AccountID uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
	Account   *Account       `gorm:"constraint:OnDelete:CASCADE;foreignKey:AccountID;references:ID" json:"-"`
	Snapshot  datatypes.JSON `gorm:"column:snapshot;type:jsonb;not null" json:"snapshot"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (AccountHistory) TableName() string { return "account_history" }

// StoryUpdateLog statuses.
const (
	UpdateLogPending    = "PENDING"
	UpdateLogInProgress = "IN_PROGRESS"
	UpdateLogCompleted  = "COMPLETED"
	UpdateLogFailed     = "FAILED"
)

// StoryUpdateLog audits one story-sync run for an account.
type StoryUpdateLog struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	Account   *Account  `gorm:"constraint:OnDelete:CASCADE;foreignKey:AccountID;references:ID" json:"-"`
	Status    string    `gorm:"column:status;not null;default:'PENDING'" json:"status"`
	Message   string    `gorm:"column:message" json:"message"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (StoryUpdateLog) TableName() string { return "story_update_log" }
