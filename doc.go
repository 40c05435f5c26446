// Package backend provides the VideoBuds API server.

// The application entry points live under cmd/. The actual API
// documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication and authorization services
// - internal/providers: Image, video and speech provider clients
// - internal/generation: Provider dispatch and the generation ledger
// - internal/queue: Background job processing for campaign batches
// - internal/recipes: Multi-step content workflows
// - internal/agent: Gemini-backed planning and script writing
// - internal/promptcraft: Prompt assembly and style presets
// - internal/pricing: Model catalog and per-generation pricing
// - internal/export: Campaign export (CSV and asset bundles)
// - internal/storage: File storage (S3 and local disk) operations
// - internal/database: Database connection and migrations
// - internal/middleware: HTTP middleware (rate limiting, metrics, tracing)

// See the individual package documentation for detailed API reference.
package backend
