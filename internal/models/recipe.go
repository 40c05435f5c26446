package models

import (
	"time"

	"gorm.io/gorm"
)

// Recipe is a catalog row for a predefined multi-step content workflow
type Recipe struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"index" json:"category"`
	Icon        string `json:"icon"`
	CostLabel   string `json:"cost_label"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecipeRunStatus tracks a workflow execution
type RecipeRunStatus string

const (
	RunStatusPending          RecipeRunStatus = "pending"
	RunStatusRunning          RecipeRunStatus = "running"
	RunStatusAwaitingApproval RecipeRunStatus = "awaiting_approval"
	RunStatusCompleted        RecipeRunStatus = "completed"
	RunStatusFailed           RecipeRunStatus = "failed"
	RunStatusCancelled        RecipeRunStatus = "cancelled"
)

// Terminal reports whether a run can no longer change state.
func (s RecipeRunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// RecipeRun is one execution of a recipe, with progress mirrored to this row
type RecipeRun struct {
	ID         string  `gorm:"primaryKey;type:uuid" json:"id"`
	RecipeSlug string  `gorm:"not null;index" json:"recipe_slug"`
	UserID     string  `gorm:"not null;index" json:"user_id"`
	BrandID    *string `gorm:"index" json:"brand_id,omitempty"`
	PersonaID  *string `gorm:"index" json:"persona_id,omitempty"`

	Status RecipeRunStatus `gorm:"default:pending;index" json:"status"`

	// Inputs and outputs are JSON objects keyed by field name
	Inputs  string `gorm:"type:text" json:"inputs"`
	Outputs string `gorm:"type:text" json:"outputs"`

	CurrentStep int    `gorm:"default:0" json:"current_step"`
	TotalSteps  int    `gorm:"default:0" json:"total_steps"`
	StepLabel   string `json:"step_label"`
	ProgressPct int    `gorm:"default:0" json:"progress_pct"`

	// Cost is what the providers charged us; RetailCost is what the
	// run is billed at.
	Cost       float64 `gorm:"default:0" json:"-"`
	RetailCost float64 `gorm:"default:0" json:"cost"`

	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AgentMemoryKind classifies what a stored memory is used for
type AgentMemoryKind string

const (
	MemoryKindBrandBrief   AgentMemoryKind = "brand_brief"
	MemoryKindPreference   AgentMemoryKind = "preference"
	MemoryKindCampaignPlan AgentMemoryKind = "campaign_plan"
)

// AgentMemory stores learned context the planning agent injects into prompts
type AgentMemory struct {
	ID      string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string  `gorm:"not null;index" json:"user_id"`
	BrandID *string `gorm:"index" json:"brand_id,omitempty"`

	Kind    AgentMemoryKind `gorm:"not null;index" json:"kind"`
	Content string          `gorm:"type:text" json:"content"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (r *RecipeRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (m *AgentMemory) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}
