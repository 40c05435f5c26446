package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Generation metrics
	GenerationsTotal   prometheus.CounterVec
	GenerationDuration prometheus.HistogramVec
	GenerationQueueLen prometheus.GaugeVec

	// Spend metrics (USD)
	SpendRetailTotal prometheus.CounterVec
	SpendActualTotal prometheus.CounterVec

	// Recipe metrics
	RecipeRunsTotal   prometheus.CounterVec
	RecipeRunDuration prometheus.HistogramVec

	// Campaign/export metrics
	CampaignExportsTotal prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of in-flight HTTP requests",
				},
				[]string{"method"},
			),

			GenerationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "generations_total",
					Help: "Total generations by kind, model, provider and status",
				},
				[]string{"kind", "model", "provider", "status"},
			),
			GenerationDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "generation_duration_seconds",
					Help:    "Wall time from dispatch to terminal status",
					Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 900},
				},
				[]string{"kind", "model", "provider"},
			),
			GenerationQueueLen: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "generation_queue_length",
					Help: "Jobs waiting in the generation queue",
				},
				[]string{"queue"},
			),

			SpendRetailTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "spend_retail_usd_total",
					Help: "Retail cost of successful generations in USD",
				},
				[]string{"model", "provider"},
			),
			SpendActualTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "spend_actual_usd_total",
					Help: "Wholesale cost of successful generations in USD",
				},
				[]string{"model", "provider"},
			),

			RecipeRunsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "recipe_runs_total",
					Help: "Recipe runs by slug and terminal status",
				},
				[]string{"recipe", "status"},
			),
			RecipeRunDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "recipe_run_duration_seconds",
					Help:    "Recipe run wall time in seconds",
					Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
				},
				[]string{"recipe"},
			),

			CampaignExportsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "campaign_exports_total",
					Help: "Campaign exports by format",
				},
				[]string{"format"},
			),

			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests rejected by rate limiting",
				},
				[]string{"limit_type", "endpoint"},
			),

			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Application errors by type and component",
				},
				[]string{"type", "component"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it if needed
func Get() *Metrics {
	return Initialize()
}

// RecordGeneration records a terminal generation with its costs.
func RecordGeneration(kind, model, provider, status string, durationSeconds, retail, actual float64) {
	m := Get()
	m.GenerationsTotal.WithLabelValues(kind, model, provider, status).Inc()
	m.GenerationDuration.WithLabelValues(kind, model, provider).Observe(durationSeconds)
	if status == "success" {
		m.SpendRetailTotal.WithLabelValues(model, provider).Add(retail)
		m.SpendActualTotal.WithLabelValues(model, provider).Add(actual)
	}
}

// RecordRecipeRun records a finished recipe run.
func RecordRecipeRun(recipe, status string, durationSeconds float64) {
	m := Get()
	m.RecipeRunsTotal.WithLabelValues(recipe, status).Inc()
	m.RecipeRunDuration.WithLabelValues(recipe).Observe(durationSeconds)
}

// RecordCampaignExport counts a campaign export by output format.
func RecordCampaignExport(format string) {
	Get().CampaignExportsTotal.WithLabelValues(format).Inc()
}

// RecordError increments the error counter for a component.
func RecordError(errorType, component string) {
	Get().ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordRateLimitExceeded increments the rate limit rejection counter.
func RecordRateLimitExceeded(limitType, endpoint string) {
	Get().RateLimitExceededTotal.WithLabelValues(limitType, endpoint).Inc()
}
