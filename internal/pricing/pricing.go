// Package pricing holds the model catalog and per-provider cost tables.
// Retail costs are what end users are charged per generation; actual costs
// are what the operator pays, and are only exposed to admins.
package pricing

// ModelProvider keys the cost tables by model slug and provider name.
type ModelProvider struct {
	Model    string
	Provider string
}

// Retail costs shown to regular users, per generation.
var retailCosts = map[ModelProvider]float64{
	// Image models
	{"nano-banana", "google"}:       0.04,
	{"nano-banana", "kie"}:          0.09,
	{"nano-banana", "higgsfield"}:   0.04,
	{"nano-banana-pro", "google"}:   0.13,
	{"nano-banana-pro", "kie"}:      0.09,
	{"nano-banana-pro", "higgsfield"}: 0.13,
	{"gpt-image-1.5", "wavespeed"}:  0.07,
	// Video models
	{"veo-3.1", "google"}:        0.50,
	{"kling-3.0", "kie"}:         0.30,
	{"sora-2-pro", "kie"}:        0.30,
	{"kling-3.0", "wavespeed"}:   0.30,
	{"sora-2", "wavespeed"}:      0.30,
	{"sora-2-pro", "wavespeed"}:  0.30,
	{"seedance", "higgsfield"}:   0.08,
	{"minimax", "higgsfield"}:    0.08,
	// TTS models
	{"gemini-tts", "gemini"}: 0.00,
	// Talking head models
	{"speak-v2", "higgsfield"}:      0.15,
	{"talking-photo", "higgsfield"}: 0.10,
	{"infinitetalk", "wavespeed"}:   0.20,
}

// Actual operator costs. Google AI Studio and the Higgsfield unlimited plan
// make several models effectively free; Higgsfield video is credit-based.
var actualCosts = map[ModelProvider]float64{
	{"nano-banana", "google"}:         0.00,
	{"nano-banana-pro", "google"}:     0.00,
	{"nano-banana", "higgsfield"}:     0.00,
	{"nano-banana-pro", "higgsfield"}: 0.00,
	{"nano-banana", "kie"}:            0.09,
	{"nano-banana-pro", "kie"}:        0.09,
	{"gpt-image-1.5", "wavespeed"}:    0.07,
	{"veo-3.1", "google"}:             0.00,
	{"kling-3.0", "kie"}:              0.30,
	{"sora-2-pro", "kie"}:             0.30,
	{"kling-3.0", "wavespeed"}:        0.30,
	{"sora-2", "wavespeed"}:           0.30,
	{"sora-2-pro", "wavespeed"}:       0.30,
	{"seedance", "higgsfield"}:        0.03,
	{"minimax", "higgsfield"}:         0.03,
	{"gemini-tts", "gemini"}:          0.00,
	{"speak-v2", "higgsfield"}:        0.05,
	{"talking-photo", "higgsfield"}:   0.03,
	{"infinitetalk", "wavespeed"}:     0.20,
}

// Default models used when a request does not name one.
const (
	DefaultImageModel = "nano-banana-pro"
	DefaultVideoModel = "veo-3.1"
)

// Cost returns the retail cost for a model+provider combination.
// An empty provider resolves to the model's default provider.
func Cost(model, provider string) float64 {
	if provider == "" {
		provider = DefaultProvider(model)
	}
	return retailCosts[ModelProvider{model, provider}]
}

// ActualCost returns what the operator pays for a model+provider combination,
// falling back to the retail cost when no actual cost is recorded.
func ActualCost(model, provider string) float64 {
	if provider == "" {
		provider = DefaultProvider(model)
	}
	key := ModelProvider{model, provider}
	if cost, ok := actualCosts[key]; ok {
		return cost
	}
	return retailCosts[key]
}
