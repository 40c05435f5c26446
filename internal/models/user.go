package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringList is a custom type stored as a JSON text column. It keeps list
// fields portable between SQLite and PostgreSQL without array extensions.
type StringList []string

// Scan implements the sql.Scanner interface for reading from database
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		*l = nil
		return nil
	}

	if len(data) == 0 {
		*l = []string{}
		return nil
	}

	return json.Unmarshal(data, l)
}

// Value implements the driver.Valuer interface for writing to database
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// User represents an agency account
type User struct {
	ID           string  `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	Name         string  `gorm:"not null" json:"name"`
	PasswordHash *string `gorm:"type:text" json:"-"`
	IsAdmin      bool    `gorm:"default:false" json:"is_admin"`

	LastActiveAt *time.Time `json:"last_active_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Brand holds the identity context injected into generation prompts
type Brand struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Name           string `gorm:"not null" json:"name"`
	Description    string `gorm:"type:text" json:"description"`
	Industry       string `json:"industry"`
	Website        string `json:"website"`
	TargetAudience string `gorm:"type:text" json:"target_audience"`

	// Voice and visual identity
	VoiceTone      string     `gorm:"type:text" json:"voice_tone"`
	ContentPillars StringList `gorm:"type:text" json:"content_pillars"`
	Colors         StringList `gorm:"type:text" json:"colors"`
	Hashtags       StringList `gorm:"type:text" json:"hashtags"`
	LogoPath       string     `json:"logo_path"`

	Questionnaire   *BrandQuestionnaire `gorm:"foreignKey:BrandID" json:"questionnaire,omitempty"`
	ReferenceImages []ReferenceImage    `gorm:"foreignKey:BrandID" json:"reference_images,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BrandQuestionnaire captures the deeper brand discovery answers, one per brand
type BrandQuestionnaire struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	BrandID string `gorm:"not null;uniqueIndex" json:"brand_id"`

	Mission         string `gorm:"type:text" json:"mission"`
	Values          string `gorm:"type:text" json:"values"`
	Differentiators string `gorm:"type:text" json:"differentiators"`
	CustomerPains   string `gorm:"type:text" json:"customer_pains"`
	CustomerGains   string `gorm:"type:text" json:"customer_gains"`
	Competitors     string `gorm:"type:text" json:"competitors"`
	Inspirations    string `gorm:"type:text" json:"inspirations"`
	DoLanguage      string `gorm:"type:text" json:"do_language"`
	DontLanguage    string `gorm:"type:text" json:"dont_language"`
	Completed       bool   `gorm:"default:false" json:"completed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReferenceImagePurpose constrains how an uploaded image is used in prompts
type ReferenceImagePurpose string

const (
	ReferencePurposeMood    ReferenceImagePurpose = "mood"
	ReferencePurposeProduct ReferenceImagePurpose = "product"
	ReferencePurposeStyle   ReferenceImagePurpose = "style_reference"
)

// ReferenceImage is a brand-scoped upload used as generation input
type ReferenceImage struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	BrandID string `gorm:"not null;index" json:"brand_id"`
	Brand   Brand  `gorm:"foreignKey:BrandID" json:"-"`

	Path    string                `gorm:"not null" json:"path"`
	URL     string                `json:"url"`
	Purpose ReferenceImagePurpose `gorm:"default:mood" json:"purpose"`
	Caption string                `gorm:"type:text" json:"caption"`

	CreatedAt time.Time `json:"created_at"`
}

// UserPersona describes a target audience member for prompt context
type UserPersona struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Name           string     `gorm:"not null" json:"name"`
	AgeRange       string     `json:"age_range"`
	Occupation     string     `json:"occupation"`
	Goals          string     `gorm:"type:text" json:"goals"`
	PainPoints     string     `gorm:"type:text" json:"pain_points"`
	Platforms      StringList `gorm:"type:text" json:"platforms"`
	TonePreference string     `json:"tone_preference"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hooks for GORM
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = generateUUID()
	}
	return nil
}

func (q *BrandQuestionnaire) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = generateUUID()
	}
	return nil
}

func (r *ReferenceImage) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (p *UserPersona) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

// Helper function for UUID generation
func generateUUID() string {
	return uuid.New().String()
}
