package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Post variants.
const (
	PostVariantNormal   = "normal"
	PostVariantCarousel = "carousel"
	PostVariantVideo    = "video"
)

// Post is a feed post keyed by its provider-assigned id.
type Post struct {
	ID                       string         `gorm:"primaryKey;column:id" json:"id"`
	AccountID                uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
	Account                  *Account       `gorm:"constraint:OnDelete:CASCADE;foreignKey:AccountID;references:ID" json:"-"`
	Variant                  string         `gorm:"column:variant;not null;default:'normal'" json:"variant"`
	Caption                  string         `gorm:"column:caption" json:"caption"`
	ThumbnailURL             string         `gorm:"column:thumbnail_url" json:"thumbnail_url"`
	ThumbnailKey             string         `gorm:"column:thumbnail_key" json:"thumbnail_key"`
	ThumbnailHash            string         `gorm:"column:thumbnail_hash" json:"-"`
	BlurDataURL              string         `gorm:"column:blur_data_url" json:"blur_data_url"`
	ThumbnailInsight         string         `gorm:"column:thumbnail_insight" json:"thumbnail_insight"`
	ThumbnailInsightTokens   datatypes.JSON `gorm:"column:thumbnail_insight_tokens;type:jsonb" json:"thumbnail_insight_tokens,omitempty"`
	Embedding                datatypes.JSON `gorm:"column:embedding;type:jsonb" json:"-"`
	EmbeddingTokens          datatypes.JSON `gorm:"column:embedding_tokens;type:jsonb" json:"embedding_tokens,omitempty"`
	RawData                  datatypes.JSON `gorm:"column:raw_data;type:jsonb" json:"raw_data,omitempty"`
	PostCreatedAt            *time.Time     `gorm:"column:post_created_at;index" json:"post_created_at,omitempty"`
	CreatedAt                time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	Media                    []PostMedia    `gorm:"foreignKey:PostID;references:ID" json:"media,omitempty"`
}

func (Post) TableName() string { return "post" }

// PostMedia is one carousel/video item under a post. (PostID, Reference) is
// unique so repeated materialization of the same raw payload is a no-op.
type PostMedia struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID        string    `gorm:"column:post_id;not null;uniqueIndex:idx_post_media_ref" json:"post_id"`
	Post          *Post     `gorm:"constraint:OnDelete:CASCADE;foreignKey:PostID;references:ID" json:"-"`
	Reference     string    `gorm:"column:reference;not null;uniqueIndex:idx_post_media_ref" json:"reference"`
	ThumbnailURL  string    `gorm:"column:thumbnail_url" json:"thumbnail_url"`
	MediaURL      string    `gorm:"column:media_url" json:"media_url"`
	ThumbnailKey  string    `gorm:"column:thumbnail_key" json:"thumbnail_key"`
	ThumbnailHash string    `gorm:"column:thumbnail_hash" json:"-"`
	MediaKey      string    `gorm:"column:media_key" json:"media_key"`
	MediaHash     string    `gorm:"column:media_hash" json:"-"`
	BlurDataURL   string    `gorm:"column:blur_data_url" json:"blur_data_url"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PostMedia) TableName() string { return "post_media" }

// Story is an ephemeral story item keyed by its provider-assigned id.
type Story struct {
	ID                     string         `gorm:"primaryKey;column:id" json:"id"`
	AccountID              uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
	Account                *Account       `gorm:"constraint:OnDelete:CASCADE;foreignKey:AccountID;references:ID" json:"-"`
	ThumbnailURL           string         `gorm:"column:thumbnail_url" json:"thumbnail_url"`
	MediaURL               string         `gorm:"column:media_url" json:"media_url"`
	ThumbnailKey           string         `gorm:"column:thumbnail_key" json:"thumbnail_key"`
	ThumbnailHash          string         `gorm:"column:thumbnail_hash" json:"-"`
	MediaKey               string         `gorm:"column:media_key" json:"media_key"`
	MediaHash              string         `gorm:"column:media_hash" json:"-"`
	BlurDataURL            string         `gorm:"column:blur_data_url" json:"blur_data_url"`
	ThumbnailInsight       string         `gorm:"column:thumbnail_insight" json:"thumbnail_insight"`
	ThumbnailInsightTokens datatypes.JSON `gorm:"column:thumbnail_insight_tokens;type:jsonb" json:"thumbnail_insight_tokens,omitempty"`
	Embedding              datatypes.JSON `gorm:"column:embedding;type:jsonb" json:"-"`
	EmbeddingTokens        datatypes.JSON `gorm:"column:embedding_tokens;type:jsonb" json:"embedding_tokens,omitempty"`
	RawAPIData             datatypes.JSON `gorm:"column:raw_api_data;type:jsonb" json:"raw_api_data,omitempty"`
	StoryCreatedAt         *time.Time     `gorm:"column:story_created_at;index" json:"story_created_at,omitempty"`
	CreatedAt              time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Story) TableName() string { return "story" }
