// Package recipes implements the workflow library: predefined
// multi-step AI content pipelines (image creator, video creator, ad
// video maker, content machine) executed as tracked RecipeRun rows.
//
// Some recipes are two-phase: phase one writes a script and pauses the
// run at awaiting_approval, phase two produces media from the scenes
// the user approved (or edited). The runner owns the lifecycle; each
// recipe only declares its inputs and implements Execute.
package recipes

import (
	"context"
	"strings"

	"github.com/videobuds/backend/internal/agent"
	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/generation"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/storage"
)

// Input field types rendered by the run form.
const (
	FieldText     = "text"
	FieldTextArea = "textarea"
	FieldSelect   = "select"
	FieldFile     = "file"
)

// Execution phases for two-phase recipes. Single-phase recipes ignore
// the phase entirely.
const (
	PhaseScript     = "script"
	PhaseProduction = "production"
)

// Output types surfaced to the client.
const (
	OutputText  = "text"
	OutputImage = "image"
	OutputVideo = "video"
	OutputScene = "scene"
)

// Option is one choice of a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// InputField describes one input of a recipe's run form.
type InputField struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Placeholder string   `json:"placeholder,omitempty"`
	Help        string   `json:"help,omitempty"`
	Default     string   `json:"default,omitempty"`
	Accept      string   `json:"accept,omitempty"`
	Options     []Option `json:"options,omitempty"`
}

// Inputs holds the submitted form values keyed by field name. File
// fields carry the URL of the already-uploaded asset.
type Inputs map[string]string

// Get returns the trimmed value for name, or fallback when empty.
func (in Inputs) Get(name, fallback string) string {
	if v := strings.TrimSpace(in[name]); v != "" {
		return v
	}
	return fallback
}

// Output is one result block of a run: a text card, a generated asset,
// or an editable scene awaiting approval.
type Output struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	Value string `json:"value,omitempty"`
	URL   string `json:"url,omitempty"`

	// Scene fields, set when Type is OutputScene or on produced
	// scene outputs that carry both the image and the clip.
	Index            int    `json:"index,omitempty"`
	SceneDescription string `json:"scene_description,omitempty"`
	VideoMotion      string `json:"video_motion,omitempty"`
	AdCopy           string `json:"ad_copy,omitempty"`
	ImageURL         string `json:"image_url,omitempty"`
}

// SceneDraft is one approved (possibly user-edited) scene submitted to
// start phase two.
type SceneDraft struct {
	SceneDescription string `json:"scene_description"`
	VideoMotion      string `json:"video_motion"`
	AdCopy           string `json:"ad_copy"`
}

// Deps bundles the services recipes execute against.
type Deps struct {
	Agent      *agent.Service
	Dispatcher *generation.Dispatcher
	Store      storage.Storage
}

// Execution carries everything one Execute call needs: the run row,
// decoded inputs, the phase, and for phase two the approved scenes and
// the phase-one outputs to carry forward.
type Execution struct {
	Run     *models.RecipeRun
	Inputs  Inputs
	Phase   string
	Scenes  []SceneDraft
	Prior   []Output
	Brand   *models.Brand
	Persona *models.UserPersona
}

// Result is what Execute returns. Phase set to PhaseScript pauses the
// run at awaiting_approval instead of completing it.
type Result struct {
	Phase      string
	Outputs    []Output
	Cost       float64
	RetailCost float64
}

// ProgressFunc reports that a step began. Step indexes into Steps().
type ProgressFunc func(step int, label string)

// Recipe is one workflow in the library.
type Recipe interface {
	Slug() string
	Name() string
	Description() string
	Category() string
	Icon() string
	CostLabel() string
	InputFields() []InputField
	Steps() []string

	// Validate runs recipe-specific cross-field checks after the
	// generic required/length validation has passed.
	Validate(in Inputs) error

	Execute(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error)
}

func reportProgress(fn ProgressFunc, step int, label string) {
	if fn != nil {
		fn(step, label)
	}
}

// cleanJSON strips markdown code fences from model output.
func cleanJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	var kept []string
	for _, line := range strings.Split(cleaned, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func optionValues(opts []Option) map[string]bool {
	set := make(map[string]bool, len(opts))
	for _, o := range opts {
		set[o.Value] = true
	}
	return set
}

// selectValue validates a select input against the field's options,
// falling back to the default on unknown values.
func selectValue(in Inputs, field InputField) string {
	v := in.Get(field.Name, field.Default)
	if !optionValues(field.Options)[v] {
		return field.Default
	}
	return v
}

func selectValueByName(in Inputs, fields []InputField, name string) string {
	for _, f := range fields {
		if f.Name == name {
			return selectValue(in, f)
		}
	}
	return in.Get(name, "")
}

// brandReferenceURLs pulls up to limit reference image URLs from the
// brand's photo library for a given purpose.
func brandReferenceURLs(brand *models.Brand, purpose models.ReferenceImagePurpose, limit int) []string {
	if brand == nil {
		return nil
	}
	var refs []models.ReferenceImage
	err := database.DB.
		Where("brand_id = ? AND purpose = ?", brand.ID, purpose).
		Order("created_at DESC").
		Limit(limit).
		Find(&refs).Error
	if err != nil {
		return nil
	}
	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.URL != "" {
			urls = append(urls, ref.URL)
		}
	}
	return urls
}

func clipText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
