// Package generation runs provider jobs and records every attempt in
// the Generation ledger: cost, status, timing, and the stored asset
// URL. Provider-hosted URLs expire, so finished assets are always
// copied into our own storage before the row is marked successful.
package generation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/metrics"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/pricing"
	"github.com/videobuds/backend/internal/providers"
	"github.com/videobuds/backend/internal/storage"
)

// maxAssetBytes caps downloads of finished assets. Veo clips are the
// largest output we handle.
const maxAssetBytes = 256 << 20

// Dispatcher executes generation requests against the provider
// registry and persists results.
type Dispatcher struct {
	registry *providers.Registry
	store    storage.Storage
	http     *http.Client
}

func NewDispatcher(registry *providers.Registry, store storage.Storage) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		store:    store,
		http:     &http.Client{Timeout: 120 * time.Second},
	}
}

// Request describes one generation job. Provider may be empty, in
// which case the model's default provider is used. AudioURL switches a
// video request onto the talking-head path.
type Request struct {
	UserID      string
	PostID      *string
	RecipeRunID *string

	Kind     models.GenerationKind
	Model    string
	Provider string

	Prompt        string
	AspectRatio   string
	Duration      int
	Resolution    string
	ImageURL      string
	AudioURL      string
	Voice         string
	ReferenceURLs []string
}

// Dispatch runs one generation end to end and returns the ledger row.
// The row is persisted in every outcome; the error reports why a
// non-success row ended up that way.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*models.Generation, error) {
	gen, err := d.createLedgerRow(req)
	if err != nil {
		return nil, err
	}
	return gen, d.run(ctx, gen, req)
}

// createLedgerRow resolves the provider and writes the pending row.
// Resolution failures are recorded as error rows so the attempt is
// still visible in history.
func (d *Dispatcher) createLedgerRow(req Request) (*models.Generation, error) {
	provider, resolveErr := d.registry.Resolve(req.Model, req.Provider)

	gen := &models.Generation{
		UserID:      req.UserID,
		PostID:      req.PostID,
		RecipeRunID: req.RecipeRunID,
		Kind:        req.Kind,
		Model:       req.Model,
		Provider:    provider,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Duration:    req.Duration,
		Status:      models.GenerationStatusPending,
		Cost:        pricing.ActualCost(req.Model, provider),
		RetailCost:  pricing.Cost(req.Model, provider),
	}
	if resolveErr != nil {
		gen.Status = models.GenerationStatusError
		gen.ErrorMessage = resolveErr.Error()
	}
	if err := database.DB.Create(gen).Error; err != nil {
		return nil, fmt.Errorf("create generation row: %w", err)
	}
	if resolveErr != nil {
		metrics.RecordGeneration(string(req.Kind), req.Model, provider, "error", 0, 0, 0)
		return gen, nil
	}
	return gen, nil
}

func (d *Dispatcher) run(ctx context.Context, gen *models.Generation, req Request) error {
	if gen.Status == models.GenerationStatusError {
		return fmt.Errorf("%s", gen.ErrorMessage)
	}

	now := time.Now().UTC()
	gen.Status = models.GenerationStatusProcessing
	gen.StartedAt = &now
	if err := database.DB.Save(gen).Error; err != nil {
		return fmt.Errorf("mark generation processing: %w", err)
	}

	result, err := d.execute(ctx, gen, req)
	elapsed := time.Since(now).Seconds()

	if err != nil {
		return d.finishError(gen, err, elapsed)
	}

	url, err := d.persistResult(ctx, gen, result)
	if err != nil {
		return d.finishError(gen, err, elapsed)
	}

	done := time.Now().UTC()
	gen.Status = models.GenerationStatusSuccess
	gen.ResultURL = url
	gen.TaskID = result.TaskID
	gen.CompletedAt = &done
	if err := database.DB.Save(gen).Error; err != nil {
		return fmt.Errorf("save generation result: %w", err)
	}

	d.updatePost(gen)
	metrics.RecordGeneration(string(gen.Kind), gen.Model, gen.Provider, "success",
		elapsed, gen.RetailCost, gen.Cost)

	logger.Log.Info("generation succeeded",
		logger.WithModel(gen.Model),
		logger.WithProvider(gen.Provider),
		zap.String("generation_id", gen.ID),
		zap.Float64("seconds", elapsed))
	return nil
}

func (d *Dispatcher) execute(ctx context.Context, gen *models.Generation, req Request) (*providers.Result, error) {
	switch {
	case gen.Kind == models.GenerationKindImage:
		backend, _, err := d.registry.Image(gen.Model, gen.Provider)
		if err != nil {
			return nil, err
		}
		return backend.GenerateImage(ctx, providers.ImageRequest{
			Prompt:        req.Prompt,
			Model:         gen.Model,
			AspectRatio:   req.AspectRatio,
			Resolution:    req.Resolution,
			ReferenceURLs: req.ReferenceURLs,
		})

	case gen.Kind == models.GenerationKindVideo && req.AudioURL != "":
		backend, _, err := d.registry.TalkingHead(gen.Model, gen.Provider)
		if err != nil {
			return nil, err
		}
		return backend.GenerateTalkingHead(ctx, providers.TalkingHeadRequest{
			Model:    gen.Model,
			ImageURL: req.ImageURL,
			AudioURL: req.AudioURL,
			Prompt:   req.Prompt,
			Duration: req.Duration,
		})

	case gen.Kind == models.GenerationKindVideo:
		backend, _, err := d.registry.Video(gen.Model, gen.Provider)
		if err != nil {
			return nil, err
		}
		return backend.GenerateVideo(ctx, providers.VideoRequest{
			Prompt:      req.Prompt,
			Model:       gen.Model,
			AspectRatio: req.AspectRatio,
			Duration:    req.Duration,
			ImageURL:    req.ImageURL,
		})

	case gen.Kind == models.GenerationKindSpeech:
		backend, _, err := d.registry.Speech(gen.Model, gen.Provider)
		if err != nil {
			return nil, err
		}
		return backend.GenerateSpeech(ctx, providers.SpeechRequest{
			Text:  req.Prompt,
			Voice: req.Voice,
		})

	default:
		return nil, fmt.Errorf("unsupported generation kind %q", gen.Kind)
	}
}

// persistResult copies the finished asset into our storage and returns
// the durable URL.
func (d *Dispatcher) persistResult(ctx context.Context, gen *models.Generation, result *providers.Result) (string, error) {
	data := result.Bytes
	mime := result.MIME

	if len(data) == 0 {
		if result.URL == "" {
			return "", fmt.Errorf("provider returned neither bytes nor a URL")
		}
		var err error
		data, mime, err = d.download(ctx, result.URL)
		if err != nil {
			return "", fmt.Errorf("download asset: %w", err)
		}
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}

	key := storage.AssetKey(string(gen.Kind), gen.UserID, "asset"+storage.ExtForMIME(mime))
	url, err := d.store.Save(ctx, key, data, mime)
	if err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}
	return url, nil
}

func (d *Dispatcher) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("asset fetch returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (d *Dispatcher) finishError(gen *models.Generation, cause error, elapsed float64) error {
	done := time.Now().UTC()
	gen.Status = models.GenerationStatusError
	gen.ErrorMessage = cause.Error()
	gen.CompletedAt = &done
	if err := database.DB.Save(gen).Error; err != nil {
		logger.Log.Error("failed to save generation error state", zap.Error(err))
	}

	d.revertPost(gen)
	metrics.RecordGeneration(string(gen.Kind), gen.Model, gen.Provider, "error", elapsed, 0, 0)
	metrics.RecordError("generation", gen.Provider)

	logger.Log.Warn("generation failed",
		logger.WithModel(gen.Model),
		logger.WithProvider(gen.Provider),
		zap.String("generation_id", gen.ID),
		zap.Error(cause))
	return cause
}

// revertPost puts a failed post back to draft so it can be retried.
func (d *Dispatcher) revertPost(gen *models.Generation) {
	if gen.PostID == nil {
		return
	}
	err := database.DB.Model(&models.Post{}).
		Where("id = ? AND status = ?", *gen.PostID, models.PostStatusGenerating).
		Update("status", models.PostStatusDraft).Error
	if err != nil {
		logger.Log.Error("failed to revert post after failed generation",
			zap.String("post_id", *gen.PostID), zap.Error(err))
	}
}

// updatePost reflects a successful generation onto its calendar post.
func (d *Dispatcher) updatePost(gen *models.Generation) {
	if gen.PostID == nil {
		return
	}
	err := database.DB.Model(&models.Post{}).
		Where("id = ?", *gen.PostID).
		Updates(map[string]interface{}{
			"status":    models.PostStatusGenerated,
			"asset_url": gen.ResultURL,
		}).Error
	if err != nil {
		logger.Log.Error("failed to update post after generation",
			zap.String("post_id", *gen.PostID), zap.Error(err))
	}
}
