package recipes

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/videobuds/backend/internal/config"
	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/models"
)

func setupRecipesDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	database.DB = db
	require.NoError(t, db.AutoMigrate(
		&models.Recipe{}, &models.RecipeRun{}, &models.Generation{},
		&models.Brand{}, &models.UserPersona{}, &models.ReferenceImage{},
	))
	for _, table := range []string{"recipes", "recipe_runs", "generations", "brands", "user_personas", "reference_images"} {
		db.Exec("DELETE FROM " + table)
	}
	return db
}

// stubRecipe lets lifecycle tests script Execute without touching
// providers or the agent.
type stubRecipe struct {
	slug    string
	fields  []InputField
	steps   []string
	execute func(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error)
}

func (s *stubRecipe) Slug() string        { return s.slug }
func (s *stubRecipe) Name() string        { return "Stub " + s.slug }
func (s *stubRecipe) Description() string { return "test workflow" }
func (s *stubRecipe) Category() string    { return "testing" }
func (s *stubRecipe) Icon() string        { return "*" }
func (s *stubRecipe) CostLabel() string   { return "Free" }

func (s *stubRecipe) InputFields() []InputField { return s.fields }

func (s *stubRecipe) Steps() []string {
	if len(s.steps) > 0 {
		return s.steps
	}
	return []string{"Preparing", "Finishing"}
}

func (s *stubRecipe) Validate(in Inputs) error { return nil }

func (s *stubRecipe) Execute(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
	return s.execute(ctx, ex, deps, onProgress)
}

func newTestRunner(rs ...Recipe) *Runner {
	return NewRunner(NewRegistry(rs...), Deps{}, &config.Config{
		RecipeTimeout:    time.Minute,
		MaxTextInput:     100,
		MaxTextAreaInput: 500,
	})
}

func waitForStatus(t *testing.T, runID string, want models.RecipeRunStatus) models.RecipeRun {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var run models.RecipeRun
		require.NoError(t, database.DB.First(&run, "id = ?", runID).Error)
		if run.Status == want {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	var run models.RecipeRun
	database.DB.First(&run, "id = ?", runID)
	t.Fatalf("run %s never reached %s, last status %s (error: %s)", runID, want, run.Status, run.ErrorMessage)
	return models.RecipeRun{}
}

func TestStartUnknownRecipe(t *testing.T) {
	setupRecipesDB(t)
	runner := newTestRunner()

	_, err := runner.Start("no-such-recipe", "u-1", nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownRecipe)
}

func TestStartValidation(t *testing.T) {
	setupRecipesDB(t)
	stub := &stubRecipe{
		slug: "validated",
		fields: []InputField{
			{Name: "subject", Label: "Subject", Type: FieldTextArea, Required: true},
			{Name: "title", Label: "Title", Type: FieldText},
			{Name: "size", Label: "Size", Type: FieldSelect, Default: "medium", Options: []Option{
				{Value: "small", Label: "Small"},
				{Value: "medium", Label: "Medium"},
			}},
		},
		execute: func(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
			return &Result{}, nil
		},
	}
	runner := newTestRunner(stub)

	_, err := runner.Start("validated", "u-1", Inputs{}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Subject is required")

	_, err = runner.Start("validated", "u-1", Inputs{"subject": "a dog", "size": "gigantic"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Size has an invalid value")

	_, err = runner.Start("validated", "u-1", Inputs{"subject": "a dog", "title": strings.Repeat("x", 101)}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum length")

	_, err = runner.Start("validated", "u-1", Inputs{"subject": strings.Repeat("x", 501)}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum length")
}

func TestStartAppliesDefaults(t *testing.T) {
	setupRecipesDB(t)
	stub := &stubRecipe{
		slug: "defaulted",
		fields: []InputField{
			{Name: "subject", Label: "Subject", Type: FieldTextArea, Required: true},
			{Name: "size", Label: "Size", Type: FieldSelect, Default: "medium", Options: []Option{
				{Value: "small", Label: "Small"},
				{Value: "medium", Label: "Medium"},
			}},
		},
		execute: func(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
			return &Result{}, nil
		},
	}
	runner := newTestRunner(stub)

	run, err := runner.Start("defaulted", "u-1", Inputs{"subject": "a dog"}, nil, nil)
	require.NoError(t, err)

	var stored Inputs
	require.NoError(t, json.Unmarshal([]byte(run.Inputs), &stored))
	assert.Equal(t, "medium", stored["size"])
	waitForStatus(t, run.ID, models.RunStatusCompleted)
}

func TestRunCompletes(t *testing.T) {
	db := setupRecipesDB(t)

	brand := models.Brand{UserID: "u-1", Name: "Acme"}
	require.NoError(t, db.Create(&brand).Error)

	gotEx := make(chan *Execution, 1)
	stub := &stubRecipe{
		slug: "simple",
		execute: func(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
			gotEx <- ex
			return &Result{
				Outputs:    []Output{{Type: OutputText, Title: "Card", Value: "done"}},
				Cost:       0.10,
				RetailCost: 0.25,
			}, nil
		},
	}
	runner := newTestRunner(stub)

	run, err := runner.Start("simple", "u-1", Inputs{}, &brand.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPending, run.Status)
	assert.Equal(t, 2, run.TotalSteps)
	assert.Equal(t, "Preparing", run.StepLabel)

	done := waitForStatus(t, run.ID, models.RunStatusCompleted)
	assert.Equal(t, 100, done.ProgressPct)
	assert.Equal(t, done.TotalSteps, done.CurrentStep)
	assert.Equal(t, "Done", done.StepLabel)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.FinishedAt)
	assert.InDelta(t, 0.10, done.Cost, 0.001)
	assert.InDelta(t, 0.25, done.RetailCost, 0.001)

	var outputs []Output
	require.NoError(t, json.Unmarshal([]byte(done.Outputs), &outputs))
	require.Len(t, outputs, 1)
	assert.Equal(t, "Card", outputs[0].Title)

	ex := <-gotEx
	require.NotNil(t, ex.Brand)
	assert.Equal(t, "Acme", ex.Brand.Name)
	assert.Nil(t, ex.Persona)
	assert.Equal(t, PhaseScript, ex.Phase)
}

func TestRunFailure(t *testing.T) {
	setupRecipesDB(t)
	stub := &stubRecipe{
		slug: "broken",
		execute: func(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
			return nil, context.DeadlineExceeded
		},
	}
	runner := newTestRunner(stub)

	run, err := runner.Start("broken", "u-1", Inputs{}, nil, nil)
	require.NoError(t, err)

	failed := waitForStatus(t, run.ID, models.RunStatusFailed)
	assert.Contains(t, failed.ErrorMessage, "deadline exceeded")
	assert.NotNil(t, failed.FinishedAt)
}

func TestTwoPhaseApprove(t *testing.T) {
	setupRecipesDB(t)

	gotEx := make(chan *Execution, 1)
	stub := &stubRecipe{
		slug:  "two-phase",
		steps: []string{"Writing scenes", "Producing media"},
		execute: func(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
			if ex.Phase == PhaseScript {
				return &Result{
					Phase:   PhaseScript,
					Outputs: []Output{{Type: OutputScene, Index: 0, SceneDescription: "draft scene"}},
				}, nil
			}
			gotEx <- ex
			return &Result{
				Outputs:    append(ex.Prior, Output{Type: OutputVideo, URL: "http://cdn.test/clip.mp4"}),
				RetailCost: 0.50,
			}, nil
		},
	}
	runner := newTestRunner(stub)

	run, err := runner.Start("two-phase", "u-1", Inputs{}, nil, nil)
	require.NoError(t, err)

	paused := waitForStatus(t, run.ID, models.RunStatusAwaitingApproval)
	assert.Equal(t, "Waiting for your approval", paused.StepLabel)

	// Approval needs at least one scene with a description.
	_, err = runner.Approve(run.ID, "u-1", []SceneDraft{{VideoMotion: "pan left"}})
	assert.ErrorIs(t, err, ErrNoScenes)

	_, err = runner.Approve(run.ID, "someone-else", []SceneDraft{{SceneDescription: "x"}})
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = runner.Approve(run.ID, "u-1", []SceneDraft{
		{SceneDescription: "edited scene", VideoMotion: "slow zoom"},
		{SceneDescription: ""},
	})
	require.NoError(t, err)

	done := waitForStatus(t, run.ID, models.RunStatusCompleted)
	assert.InDelta(t, 0.50, done.RetailCost, 0.001)

	var outputs []Output
	require.NoError(t, json.Unmarshal([]byte(done.Outputs), &outputs))
	require.Len(t, outputs, 2)
	assert.Equal(t, "draft scene", outputs[0].SceneDescription)
	assert.Equal(t, OutputVideo, outputs[1].Type)

	ex := <-gotEx
	assert.Equal(t, PhaseProduction, ex.Phase)
	require.Len(t, ex.Scenes, 1)
	assert.Equal(t, "edited scene", ex.Scenes[0].SceneDescription)
	require.Len(t, ex.Prior, 1)

	// The run is terminal now.
	_, err = runner.Approve(run.ID, "u-1", []SceneDraft{{SceneDescription: "again"}})
	assert.ErrorIs(t, err, ErrNotAwaiting)
}

func TestCancelRun(t *testing.T) {
	setupRecipesDB(t)

	stub := &stubRecipe{
		slug: "slow",
		execute: func(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
			<-ctx.Done()
			// Give Cancel time to write the terminal state before
			// the error path reads it back.
			time.Sleep(100 * time.Millisecond)
			return nil, ctx.Err()
		},
	}
	runner := newTestRunner(stub)

	run, err := runner.Start("slow", "u-1", Inputs{}, nil, nil)
	require.NoError(t, err)
	waitForStatus(t, run.ID, models.RunStatusRunning)

	cancelled, err := runner.Cancel(run.ID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.FinishedAt)

	// The failing goroutine must not overwrite the cancelled state.
	time.Sleep(300 * time.Millisecond)
	var reloaded models.RecipeRun
	require.NoError(t, database.DB.First(&reloaded, "id = ?", run.ID).Error)
	assert.Equal(t, models.RunStatusCancelled, reloaded.Status)

	_, err = runner.Cancel(run.ID, "u-1")
	assert.ErrorIs(t, err, ErrRunNotCancelable)
}

func TestProgressUpdates(t *testing.T) {
	setupRecipesDB(t)

	release := make(chan struct{})
	stub := &stubRecipe{
		slug:  "progressive",
		steps: []string{"Step one", "Step two"},
		execute: func(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
			onProgress(1, "Half way")
			<-release
			return &Result{}, nil
		},
	}
	runner := newTestRunner(stub)

	run, err := runner.Start("progressive", "u-1", Inputs{}, nil, nil)
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for {
		var mid models.RecipeRun
		require.NoError(t, database.DB.First(&mid, "id = ?", run.ID).Error)
		if mid.CurrentStep == 1 {
			assert.Equal(t, "Half way", mid.StepLabel)
			assert.Equal(t, 50, mid.ProgressPct)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("progress update never landed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	close(release)
	waitForStatus(t, run.ID, models.RunStatusCompleted)
}

func TestReapStale(t *testing.T) {
	db := setupRecipesDB(t)
	runner := newTestRunner()

	staleStart := time.Now().UTC().Add(-2 * time.Hour)
	stale := models.RecipeRun{
		RecipeSlug: "image-creator",
		UserID:     "u-1",
		Status:     models.RunStatusRunning,
		StartedAt:  &staleStart,
	}
	require.NoError(t, db.Create(&stale).Error)

	freshStart := time.Now().UTC()
	fresh := models.RecipeRun{
		RecipeSlug: "image-creator",
		UserID:     "u-1",
		Status:     models.RunStatusRunning,
		StartedAt:  &freshStart,
	}
	require.NoError(t, db.Create(&fresh).Error)

	runner.ReapStale()

	var reloaded models.RecipeRun
	require.NoError(t, db.First(&reloaded, "id = ?", stale.ID).Error)
	assert.Equal(t, models.RunStatusFailed, reloaded.Status)
	assert.Contains(t, reloaded.ErrorMessage, "timed out")
	assert.NotNil(t, reloaded.FinishedAt)

	var freshReloaded models.RecipeRun
	require.NoError(t, db.First(&freshReloaded, "id = ?", fresh.ID).Error)
	assert.Equal(t, models.RunStatusRunning, freshReloaded.Status)
}

func TestHistoryFilters(t *testing.T) {
	db := setupRecipesDB(t)
	runner := newTestRunner()

	rows := []models.RecipeRun{
		{RecipeSlug: "image-creator", UserID: "u-1", Status: models.RunStatusCompleted},
		{RecipeSlug: "image-creator", UserID: "u-1", Status: models.RunStatusFailed},
		{RecipeSlug: "image-creator", UserID: "u-1", Status: models.RunStatusCompleted},
		{RecipeSlug: "video-creator", UserID: "u-1", Status: models.RunStatusCompleted},
		{RecipeSlug: "image-creator", UserID: "u-2", Status: models.RunStatusCompleted},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	runs, total, err := runner.History("u-1", 1, 10, "", "")
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, runs, 4)

	runs, total, err = runner.History("u-1", 1, 10, "image-creator", "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, runs, 3)

	runs, total, err = runner.History("u-1", 1, 10, "", models.RunStatusFailed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)

	runs, total, err = runner.History("u-1", 1, 2, "", "")
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, runs, 2)
}

func TestGetScopedToOwner(t *testing.T) {
	db := setupRecipesDB(t)
	runner := newTestRunner()

	run := models.RecipeRun{RecipeSlug: "image-creator", UserID: "u-1", Status: models.RunStatusCompleted}
	require.NoError(t, db.Create(&run).Error)

	got, err := runner.Get(run.ID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)

	_, err = runner.Get(run.ID, "u-2")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
