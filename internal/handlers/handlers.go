// Package handlers exposes the JSON API over gin. Each handler group
// lives in its own file; shared request plumbing is in helpers.go.
package handlers

import (
	"github.com/videobuds/backend/internal/agent"
	"github.com/videobuds/backend/internal/auth"
	"github.com/videobuds/backend/internal/config"
	"github.com/videobuds/backend/internal/export"
	"github.com/videobuds/backend/internal/generation"
	"github.com/videobuds/backend/internal/queue"
	"github.com/videobuds/backend/internal/recipes"
	"github.com/videobuds/backend/internal/storage"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth       *auth.Service
	agent      *agent.Service
	dispatcher *generation.Dispatcher
	queue      *queue.GenerationQueue
	runner     *recipes.Runner
	registry   *recipes.Registry
	exporter   *export.Exporter
	store      storage.Storage
	cfg        *config.Config
}

// NewHandlers creates a new handlers instance
func NewHandlers(authSvc *auth.Service, dispatcher *generation.Dispatcher, cfg *config.Config) *Handlers {
	return &Handlers{
		auth:       authSvc,
		dispatcher: dispatcher,
		exporter:   export.NewExporter(),
		cfg:        cfg,
	}
}

// SetAgent sets the Gemini planning service. The API degrades to
// template prompts and empty captions without it.
func (h *Handlers) SetAgent(svc *agent.Service) {
	h.agent = svc
}

// SetQueue sets the background generation queue
func (h *Handlers) SetQueue(q *queue.GenerationQueue) {
	h.queue = q
}

// SetRecipes sets the recipe registry and runner
func (h *Handlers) SetRecipes(registry *recipes.Registry, runner *recipes.Runner) {
	h.registry = registry
	h.runner = runner
}

// SetStorage sets the asset store used for uploads
func (h *Handlers) SetStorage(store storage.Storage) {
	h.store = store
}
