// Package queue runs generation batches on a background worker pool so
// HTTP handlers can return immediately and clients poll for progress.
package queue

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/generation"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/models"
)

// Job statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

// A whole campaign batch gets this long before it is abandoned.
const jobTimeout = 30 * time.Minute

// Job is one queued unit of generation work: a single request or a
// whole campaign batch.
type Job struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	CampaignID   string     `json:"campaign_id,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	Result       *JobResult `json:"result,omitempty"`

	requests []generation.Request
}

// JobResult summarizes a finished batch. RetailCost is the price shown
// to the client; Cost is what the providers actually charged.
type JobResult struct {
	Total      int     `json:"total"`
	Succeeded  int     `json:"succeeded"`
	Failed     int     `json:"failed"`
	RetailCost float64 `json:"retail_cost"`
	Cost       float64 `json:"-"`
}

// GenerationQueue manages background generation processing.
type GenerationQueue struct {
	jobs       chan *Job
	results    map[string]*Job
	resultsMux sync.RWMutex
	workers    int
	ctx        context.Context
	cancel     context.CancelFunc

	dispatcher *generation.Dispatcher

	// Callback fired after a campaign batch finishes (protected by
	// callbackMux to prevent data races).
	callbackMux        sync.RWMutex
	onCampaignComplete func(campaignID string)

	// For testing: channel to signal job completion
	jobCompleted chan string
}

// NewGenerationQueue creates the queue around a dispatcher.
func NewGenerationQueue(dispatcher *generation.Dispatcher) *GenerationQueue {
	ctx, cancel := context.WithCancel(context.Background())

	// Workers bound poll-loop concurrency per process.
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}

	return &GenerationQueue{
		jobs:         make(chan *Job, 100),
		results:      make(map[string]*Job),
		workers:      workers,
		ctx:          ctx,
		cancel:       cancel,
		dispatcher:   dispatcher,
		jobCompleted: make(chan string, 100),
	}
}

// SetCampaignCompleteCallback sets a callback invoked when a campaign
// batch finishes.
func (q *GenerationQueue) SetCampaignCompleteCallback(callback func(campaignID string)) {
	q.callbackMux.Lock()
	defer q.callbackMux.Unlock()
	q.onCampaignComplete = callback
}

// Start begins processing jobs with the worker pool.
func (q *GenerationQueue) Start() {
	logger.Log.Info("Starting generation queue", zap.Int("workers", q.workers))
	for i := 0; i < q.workers; i++ {
		go q.worker(i)
	}
}

// Stop gracefully shuts down the queue.
func (q *GenerationQueue) Stop() {
	q.cancel()
	close(q.jobs)
}

// Submit enqueues a batch of generation requests. CampaignID may be
// empty for ad-hoc work.
func (q *GenerationQueue) Submit(userID, campaignID string, requests []generation.Request) (*Job, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("no requests to enqueue")
	}

	job := &Job{
		ID:         uuid.New().String(),
		UserID:     userID,
		CampaignID: campaignID,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
		requests:   requests,
	}

	q.resultsMux.Lock()
	q.results[job.ID] = job
	q.resultsMux.Unlock()

	select {
	case q.jobs <- job:
		return job, nil
	default:
		return nil, fmt.Errorf("generation queue is full")
	}
}

// GetJobStatus returns the current status of a job.
func (q *GenerationQueue) GetJobStatus(jobID string) (*Job, error) {
	q.resultsMux.RLock()
	defer q.resultsMux.RUnlock()

	job, exists := q.results[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found")
	}
	return job, nil
}

// WaitForJobCompletion waits for a specific job to complete (for testing).
func (q *GenerationQueue) WaitForJobCompletion(jobID string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case completedJobID := <-q.jobCompleted:
			if completedJobID == jobID {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for job %s", jobID)
		case <-q.ctx.Done():
			return fmt.Errorf("queue stopped")
		}
	}
}

func (q *GenerationQueue) worker(workerID int) {
	logger.Log.Info("Generation worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case job := <-q.jobs:
			if job == nil {
				logger.Log.Info("Generation worker shutting down", zap.Int("worker_id", workerID))
				return
			}
			q.processJob(workerID, job)

		case <-q.ctx.Done():
			logger.Log.Info("Generation worker shutting down", zap.Int("worker_id", workerID))
			return
		}
	}
}

func (q *GenerationQueue) processJob(workerID int, job *Job) {
	logger.Log.Info("Worker processing generation job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID),
		zap.Int("requests", len(job.requests)))
	startTime := time.Now()

	q.updateJobStatus(job.ID, StatusProcessing, nil, nil)
	q.updateCampaignStatus(job.CampaignID, models.CampaignStatusGenerating)

	ctx, cancel := context.WithTimeout(q.ctx, jobTimeout)
	defer cancel()

	results := q.dispatcher.DispatchBatch(ctx, job.requests)

	result := &JobResult{Total: len(results)}
	for _, r := range results {
		if r.Err == nil && r.Generation != nil && r.Generation.Status == models.GenerationStatusSuccess {
			result.Succeeded++
			result.RetailCost += r.Generation.RetailCost
			result.Cost += r.Generation.Cost
		} else {
			result.Failed++
		}
	}

	if job.CampaignID != "" {
		q.finishCampaign(job.CampaignID, result)
	}

	if result.Succeeded == 0 && result.Total > 0 {
		errMsg := "all generations in the batch failed"
		q.updateJobStatus(job.ID, StatusFailed, result, &errMsg)
	} else {
		q.updateJobStatus(job.ID, StatusComplete, result, nil)
	}

	logger.Log.Info("Worker completed generation job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID),
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	q.callbackMux.RLock()
	callback := q.onCampaignComplete
	q.callbackMux.RUnlock()
	if callback != nil && job.CampaignID != "" {
		go callback(job.CampaignID)
	}

	q.signalCompletion(job.ID)
}

func (q *GenerationQueue) updateJobStatus(jobID, status string, result *JobResult, errorMessage *string) {
	q.resultsMux.Lock()
	defer q.resultsMux.Unlock()

	job, exists := q.results[jobID]
	if !exists {
		return
	}

	job.Status = status
	job.Result = result
	job.ErrorMessage = errorMessage

	if status == StatusComplete || status == StatusFailed {
		now := time.Now()
		job.CompletedAt = &now
	}
}

func (q *GenerationQueue) updateCampaignStatus(campaignID string, status models.CampaignStatus) {
	if campaignID == "" || database.DB == nil {
		return
	}
	database.DB.Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Update("status", status)
}

// finishCampaign moves the campaign into review and accrues the actual
// provider spend. Retail pricing stays on the per-generation ledger rows.
func (q *GenerationQueue) finishCampaign(campaignID string, result *JobResult) {
	if database.DB == nil {
		return
	}
	err := database.DB.Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]interface{}{
			"status":     models.CampaignStatusReview,
			"total_cost": gorm.Expr("total_cost + ?", result.Cost),
		}).Error
	if err != nil {
		logger.Log.Error("Failed to update campaign after batch",
			zap.String("campaign_id", campaignID), zap.Error(err))
	}
}

func (q *GenerationQueue) signalCompletion(jobID string) {
	select {
	case q.jobCompleted <- jobID:
	default:
	}
}
