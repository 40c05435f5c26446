package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/videobuds/backend/internal/config"
	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/metrics"
	"github.com/videobuds/backend/internal/models"
)

// Runner lifecycle errors surfaced to handlers.
var (
	ErrRunNotFound      = errors.New("recipe run not found")
	ErrNotAwaiting      = errors.New("run is not awaiting approval")
	ErrNoScenes         = errors.New("at least one approved scene is required")
	ErrRunNotCancelable = errors.New("run can no longer be cancelled")
)

// Runner creates RecipeRun rows and executes recipes in background
// goroutines, mirroring progress to the row so clients can poll.
type Runner struct {
	registry *Registry
	deps     Deps

	timeout     time.Duration
	maxText     int
	maxTextArea int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewRunner(registry *Registry, deps Deps, cfg *config.Config) *Runner {
	return &Runner{
		registry:    registry,
		deps:        deps,
		timeout:     cfg.RecipeTimeout,
		maxText:     cfg.MaxTextInput,
		maxTextArea: cfg.MaxTextAreaInput,
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Start validates the inputs, creates the run row, and launches phase
// one in the background. The returned row is in pending state.
func (r *Runner) Start(slug, userID string, in Inputs, brandID, personaID *string) (*models.RecipeRun, error) {
	recipe, err := r.registry.Get(slug)
	if err != nil {
		return nil, err
	}
	if in == nil {
		in = Inputs{}
	}

	if err := r.validateInputs(recipe, in); err != nil {
		return nil, err
	}

	rawInputs, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode inputs: %w", err)
	}

	steps := recipe.Steps()
	firstLabel := ""
	if len(steps) > 0 {
		firstLabel = steps[0]
	}
	run := &models.RecipeRun{
		RecipeSlug: slug,
		UserID:     userID,
		BrandID:    brandID,
		PersonaID:  personaID,
		Status:     models.RunStatusPending,
		Inputs:     string(rawInputs),
		TotalSteps: len(steps),
		StepLabel:  firstLabel,
	}
	if err := database.DB.Create(run).Error; err != nil {
		return nil, fmt.Errorf("create recipe run: %w", err)
	}

	go r.execute(recipe, run, &Execution{Run: run, Inputs: in, Phase: PhaseScript})

	logger.Log.Info("recipe run started",
		zap.String("recipe", slug),
		zap.String("run_id", run.ID),
		zap.String("user_id", userID))
	return run, nil
}

// Approve resumes a run paused at awaiting_approval with the user's
// approved (possibly edited) scenes and launches phase two.
func (r *Runner) Approve(runID, userID string, scenes []SceneDraft) (*models.RecipeRun, error) {
	run, err := r.Get(runID, userID)
	if err != nil {
		return nil, err
	}
	if run.Status != models.RunStatusAwaitingApproval {
		return nil, ErrNotAwaiting
	}

	kept := scenes[:0]
	for _, sc := range scenes {
		if sc.SceneDescription != "" {
			kept = append(kept, sc)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoScenes
	}

	recipe, err := r.registry.Get(run.RecipeSlug)
	if err != nil {
		return nil, err
	}

	var in Inputs
	if err := json.Unmarshal([]byte(run.Inputs), &in); err != nil {
		return nil, fmt.Errorf("decode run inputs: %w", err)
	}
	var prior []Output
	if run.Outputs != "" {
		if err := json.Unmarshal([]byte(run.Outputs), &prior); err != nil {
			return nil, fmt.Errorf("decode run outputs: %w", err)
		}
	}

	run.Status = models.RunStatusRunning
	run.StepLabel = "Generating scene images"
	if err := database.DB.Save(run).Error; err != nil {
		return nil, fmt.Errorf("update recipe run: %w", err)
	}

	go r.execute(recipe, run, &Execution{
		Run:    run,
		Inputs: in,
		Phase:  PhaseProduction,
		Scenes: kept,
		Prior:  prior,
	})

	logger.Log.Info("recipe run approved",
		zap.String("recipe", run.RecipeSlug),
		zap.String("run_id", run.ID),
		zap.Int("scenes", len(kept)))
	return run, nil
}

// Cancel stops a pending or running run. Work already submitted to a
// provider is not recalled; the run just stops being tracked.
func (r *Runner) Cancel(runID, userID string) (*models.RecipeRun, error) {
	run, err := r.Get(runID, userID)
	if err != nil {
		return nil, err
	}
	switch run.Status {
	case models.RunStatusPending, models.RunStatusRunning, models.RunStatusAwaitingApproval:
	default:
		return nil, ErrRunNotCancelable
	}

	r.mu.Lock()
	cancel := r.cancels[runID]
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	now := time.Now().UTC()
	run.Status = models.RunStatusCancelled
	run.StepLabel = "Cancelled"
	run.FinishedAt = &now
	if err := database.DB.Save(run).Error; err != nil {
		return nil, fmt.Errorf("update recipe run: %w", err)
	}
	logger.Log.Info("recipe run cancelled", zap.String("run_id", runID))
	return run, nil
}

// Get loads a run scoped to its owner.
func (r *Runner) Get(runID, userID string) (*models.RecipeRun, error) {
	var run models.RecipeRun
	err := database.DB.Where("id = ? AND user_id = ?", runID, userID).First(&run).Error
	if err != nil {
		return nil, ErrRunNotFound
	}
	return &run, nil
}

// History returns the user's past runs, newest first, with optional
// recipe slug and status filters.
func (r *Runner) History(userID string, page, perPage int, slugFilter string, statusFilter models.RecipeRunStatus) ([]models.RecipeRun, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	q := database.DB.Model(&models.RecipeRun{}).Where("user_id = ?", userID)
	if slugFilter != "" {
		q = q.Where("recipe_slug = ?", slugFilter)
	}
	if statusFilter != "" {
		q = q.Where("status = ?", statusFilter)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runs []models.RecipeRun
	err := q.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&runs).Error
	return runs, total, err
}

// ReapStale fails runs stuck in running longer than the timeout. The
// handlers call this opportunistically before listing or polling runs;
// it catches goroutines that died without writing an error state.
func (r *Runner) ReapStale() {
	cutoff := time.Now().UTC().Add(-r.timeout)
	now := time.Now().UTC()
	res := database.DB.Model(&models.RecipeRun{}).
		Where("status = ? AND started_at < ?", models.RunStatusRunning, cutoff).
		Updates(map[string]interface{}{
			"status":        models.RunStatusFailed,
			"error_message": fmt.Sprintf("run timed out after %s", r.timeout),
			"finished_at":   &now,
		})
	if res.Error != nil {
		logger.Log.Warn("stale run reaper failed", zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		logger.Log.Warn("reaped stale recipe runs", zap.Int64("count", res.RowsAffected))
	}
}

// validateInputs applies generic checks shared by all recipes:
// required fields, select option whitelists, and text length caps.
func (r *Runner) validateInputs(recipe Recipe, in Inputs) error {
	for _, field := range recipe.InputFields() {
		val := in.Get(field.Name, "")
		if val == "" && field.Default != "" {
			in[field.Name] = field.Default
			val = field.Default
		}
		if field.Required && val == "" {
			return fmt.Errorf("%s is required", field.Label)
		}

		switch field.Type {
		case FieldSelect:
			if val != "" && !optionValues(field.Options)[val] {
				return fmt.Errorf("%s has an invalid value", field.Label)
			}
		case FieldTextArea:
			if len(val) > r.maxTextArea {
				return fmt.Errorf("%s exceeds the maximum length of %d characters", field.Label, r.maxTextArea)
			}
		case FieldText:
			if len(val) > r.maxText {
				return fmt.Errorf("%s exceeds the maximum length of %d characters", field.Label, r.maxText)
			}
		}
	}
	return recipe.Validate(in)
}

// execute runs one phase of a recipe and persists the outcome.
func (r *Runner) execute(recipe Recipe, run *models.RecipeRun, ex *Execution) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	r.mu.Lock()
	r.cancels[run.ID] = cancel
	r.mu.Unlock()
	defer func() {
		cancel()
		r.mu.Lock()
		delete(r.cancels, run.ID)
		r.mu.Unlock()
	}()

	started := time.Now().UTC()
	run.Status = models.RunStatusRunning
	if run.StartedAt == nil {
		run.StartedAt = &started
	}
	if err := database.DB.Save(run).Error; err != nil {
		logger.Log.Error("recipe run row update failed",
			zap.String("run_id", run.ID), zap.Error(err))
		return
	}

	r.loadContext(ex)

	result, err := recipe.Execute(ctx, ex, r.deps, r.progressFunc(run))
	duration := time.Since(started).Seconds()

	if err != nil {
		r.finishError(recipe, run, err, duration)
		return
	}

	if result.Phase == PhaseScript {
		r.pauseForApproval(recipe, run, result)
		return
	}
	r.finishComplete(recipe, run, result, duration)
}

// loadContext attaches the selected brand and persona, if any. A
// missing row is not fatal; the recipe just runs without the context.
func (r *Runner) loadContext(ex *Execution) {
	if ex.Run.BrandID != nil {
		var brand models.Brand
		if err := database.DB.First(&brand, "id = ?", *ex.Run.BrandID).Error; err == nil {
			ex.Brand = &brand
		}
	}
	if ex.Run.PersonaID != nil {
		var persona models.UserPersona
		if err := database.DB.First(&persona, "id = ?", *ex.Run.PersonaID).Error; err == nil {
			ex.Persona = &persona
		}
	}
}

// progressFunc mirrors step transitions to the run row.
func (r *Runner) progressFunc(run *models.RecipeRun) ProgressFunc {
	return func(step int, label string) {
		pct := 0
		if run.TotalSteps > 0 {
			pct = step * 100 / run.TotalSteps
		}
		err := database.DB.Model(&models.RecipeRun{}).
			Where("id = ? AND status = ?", run.ID, models.RunStatusRunning).
			Updates(map[string]interface{}{
				"current_step": step,
				"step_label":   label,
				"progress_pct": pct,
			}).Error
		if err != nil {
			logger.Log.Warn("recipe progress update failed",
				zap.String("run_id", run.ID), zap.Error(err))
		}
	}
}

func (r *Runner) pauseForApproval(recipe Recipe, run *models.RecipeRun, result *Result) {
	raw, err := json.Marshal(result.Outputs)
	if err != nil {
		r.finishError(recipe, run, fmt.Errorf("encode outputs: %w", err), 0)
		return
	}

	run.Status = models.RunStatusAwaitingApproval
	run.Outputs = string(raw)
	run.StepLabel = "Waiting for your approval"
	run.Cost += result.Cost
	run.RetailCost += result.RetailCost
	if err := database.DB.Save(run).Error; err != nil {
		logger.Log.Error("recipe run row update failed",
			zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	logger.Log.Info("recipe run awaiting approval",
		zap.String("recipe", recipe.Slug()),
		zap.String("run_id", run.ID),
		zap.Int("outputs", len(result.Outputs)))
}

func (r *Runner) finishComplete(recipe Recipe, run *models.RecipeRun, result *Result, duration float64) {
	raw, err := json.Marshal(result.Outputs)
	if err != nil {
		r.finishError(recipe, run, fmt.Errorf("encode outputs: %w", err), duration)
		return
	}

	now := time.Now().UTC()
	run.Status = models.RunStatusCompleted
	run.Outputs = string(raw)
	run.CurrentStep = run.TotalSteps
	run.StepLabel = "Done"
	run.ProgressPct = 100
	run.Cost += result.Cost
	run.RetailCost += result.RetailCost
	run.FinishedAt = &now
	if err := database.DB.Save(run).Error; err != nil {
		logger.Log.Error("recipe run row update failed",
			zap.String("run_id", run.ID), zap.Error(err))
		return
	}

	metrics.RecordRecipeRun(recipe.Slug(), "completed", duration)
	logger.Log.Info("recipe run completed",
		zap.String("recipe", recipe.Slug()),
		zap.String("run_id", run.ID),
		zap.Int("outputs", len(result.Outputs)),
		zap.Float64("retail_cost", result.RetailCost))
}

func (r *Runner) finishError(recipe Recipe, run *models.RecipeRun, execErr error, duration float64) {
	// A run the user cancelled mid-flight already has its terminal
	// state written; do not overwrite it with "context canceled".
	var current models.RecipeRun
	if err := database.DB.First(&current, "id = ?", run.ID).Error; err == nil {
		if current.Status == models.RunStatusCancelled {
			return
		}
	}

	msg := execErr.Error()
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	now := time.Now().UTC()
	run.Status = models.RunStatusFailed
	run.ErrorMessage = msg
	run.FinishedAt = &now
	if err := database.DB.Save(run).Error; err != nil {
		logger.Log.Error("recipe run row update failed",
			zap.String("run_id", run.ID), zap.Error(err))
	}

	metrics.RecordRecipeRun(recipe.Slug(), "failed", duration)
	metrics.RecordError("recipe", recipe.Slug())
	logger.Log.Error("recipe run failed",
		zap.String("recipe", recipe.Slug()),
		zap.String("run_id", run.ID),
		zap.Error(execErr))
}
