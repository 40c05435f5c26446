package models

import (
	"time"

	"gorm.io/gorm"
)

// CampaignStatus tracks a campaign through its lifecycle
type CampaignStatus string

const (
	CampaignStatusDraft      CampaignStatus = "draft"
	CampaignStatusGenerating CampaignStatus = "generating"
	CampaignStatusReview     CampaignStatus = "review"
	CampaignStatusApproved   CampaignStatus = "approved"
	CampaignStatusExported   CampaignStatus = "exported"
)

// Campaign is a content calendar of Post rows for one brand
type Campaign struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	BrandID string `gorm:"not null;index" json:"brand_id"`
	Brand   Brand  `gorm:"foreignKey:BrandID" json:"brand,omitempty"`

	Name   string         `gorm:"not null" json:"name"`
	Goal   string         `gorm:"type:text" json:"goal"`
	Status CampaignStatus `gorm:"default:draft;index" json:"status"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	PostCount int       `gorm:"not null" json:"post_count"`

	AspectRatio string  `gorm:"default:1:1" json:"aspect_ratio"`
	StylePreset string  `json:"style_preset"`
	TotalCost   float64 `gorm:"default:0" json:"total_cost"`

	Posts []Post `gorm:"foreignKey:CampaignID" json:"posts,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostStatus tracks a single calendar entry
type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusGenerating PostStatus = "generating"
	PostStatusGenerated  PostStatus = "generated"
	PostStatusApproved   PostStatus = "approved"
	PostStatusRejected   PostStatus = "rejected"
)

// Post is one day of a campaign calendar
type Post struct {
	ID         string   `gorm:"primaryKey;type:uuid" json:"id"`
	CampaignID string   `gorm:"not null;index:idx_posts_campaign_day,unique" json:"campaign_id"`
	Campaign   Campaign `gorm:"foreignKey:CampaignID" json:"-"`

	DayNumber     int       `gorm:"not null;index:idx_posts_campaign_day,unique" json:"day_number"`
	ScheduledDate time.Time `json:"scheduled_date"`

	ContentPillar string `json:"content_pillar"`
	ImageType     string `json:"image_type"`
	Prompt        string `gorm:"type:text" json:"prompt"`
	Caption       string `gorm:"type:text" json:"caption"`
	Hashtags      string `gorm:"type:text" json:"hashtags"`

	Status    PostStatus `gorm:"default:draft;index" json:"status"`
	AssetURL  string     `json:"asset_url"`
	AssetPath string     `json:"asset_path"`

	Generations []Generation `gorm:"foreignKey:PostID" json:"generations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GenerationKind is the media type of a generation job
type GenerationKind string

const (
	GenerationKindImage  GenerationKind = "image"
	GenerationKindVideo  GenerationKind = "video"
	GenerationKindSpeech GenerationKind = "speech"
)

// GenerationStatus tracks a provider job through submit and poll
type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusSuccess    GenerationStatus = "success"
	GenerationStatusError      GenerationStatus = "error"
)

// Generation is the persistent ledger row for one provider job
type Generation struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`

	PostID      *string `gorm:"index" json:"post_id,omitempty"`
	RecipeRunID *string `gorm:"index" json:"recipe_run_id,omitempty"`

	Kind     GenerationKind `gorm:"not null" json:"kind"`
	Model    string         `gorm:"not null;index" json:"model"`
	Provider string         `gorm:"not null" json:"provider"`

	Prompt      string  `gorm:"type:text" json:"prompt"`
	AspectRatio string  `json:"aspect_ratio"`
	Duration    int     `json:"duration"`

	Status       GenerationStatus `gorm:"default:pending;index" json:"status"`
	ErrorMessage string           `gorm:"type:text" json:"error_message,omitempty"`
	ResultURL    string           `json:"result_url"`
	TaskID       string           `json:"task_id"`

	Cost       float64 `gorm:"default:0" json:"cost"`
	RetailCost float64 `gorm:"default:0" json:"retail_cost"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (g *Generation) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = generateUUID()
	}
	return nil
}
