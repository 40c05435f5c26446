package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/videobuds/backend/internal/logger"
	"go.uber.org/zap"
)

const (
	higgsfieldBaseURL     = "https://api.higgsfield.ai/v1"
	higgsfieldPlatformURL = "https://platform.higgsfield.ai"
)

var higgsfieldImageModels = map[string]string{
	"nano-banana":     "nano-banana",
	"nano-banana-pro": "nano-banana-pro",
}

var higgsfieldVideoModels = map[string]string{
	"seedance":     "bytedance/seedance/2-0",
	"seedance-i2v": "bytedance/seedance/v1/pro/image-to-video",
	"minimax":      "minimax-ai/video-01-director/general",
}

// higgsfieldDimensions maps an aspect ratio to 1K pixel dimensions. The API
// takes explicit width/height rather than a ratio string.
var higgsfieldDimensions = map[string][2]int{
	"9:16": {576, 1024},
	"16:9": {1024, 576},
	"1:1":  {1024, 1024},
	"4:5":  {896, 1120},
	"5:4":  {1120, 896},
	"2:3":  {768, 1152},
	"3:2":  {1152, 768},
	"3:4":  {768, 1024},
	"4:3":  {1024, 768},
	"21:9": {1344, 576},
}

func higgsfieldSize(aspectRatio string) (int, int) {
	if dims, ok := higgsfieldDimensions[aspectRatio]; ok {
		return dims[0], dims[1]
	}
	return 576, 1024
}

// HiggsfieldClient talks to the Higgsfield diffusion API and, for Speak v2,
// the platform API. Both share the Key ID:SECRET auth scheme.
type HiggsfieldClient struct {
	BaseURL     string
	PlatformURL string
	keyID       string
	keySecret   string
	http        *http.Client
}

func NewHiggsfieldClient(keyID, keySecret string) *HiggsfieldClient {
	return &HiggsfieldClient{
		BaseURL:     higgsfieldBaseURL,
		PlatformURL: higgsfieldPlatformURL,
		keyID:       keyID,
		keySecret:   keySecret,
		http:        newHTTPClient(90 * time.Second),
	}
}

func (c *HiggsfieldClient) headers() map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Key %s:%s", c.keyID, c.keySecret),
	}
}

type higgsfieldGeneration struct {
	ID           string `json:"id"`
	GenerationID string `json:"generation_id"`
	Status       string `json:"status"`
	Error        string `json:"error"`
	Message      string `json:"message"`
	ResultURL    string `json:"result_url"`
	URL          string `json:"url"`
	Images       []struct {
		URL string `json:"url"`
	} `json:"images"`
	Videos []struct {
		URL string `json:"url"`
	} `json:"videos"`
}

func (g *higgsfieldGeneration) taskID() string {
	if g.ID != "" {
		return g.ID
	}
	return g.GenerationID
}

// assetURL returns the first asset URL from whichever field the response
// populated.
func (g *higgsfieldGeneration) assetURL() string {
	if len(g.Images) > 0 {
		return g.Images[0].URL
	}
	if len(g.Videos) > 0 {
		return g.Videos[0].URL
	}
	if g.ResultURL != "" {
		return g.ResultURL
	}
	return g.URL
}

func (c *HiggsfieldClient) submitGeneration(ctx context.Context, payload map[string]any) (*Task, error) {
	status, body, err := doJSON(ctx, c.http, http.MethodPost, c.BaseURL+"/generations", c.headers(), payload)
	if err != nil {
		return nil, fmt.Errorf("higgsfield submit: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted {
		return nil, fmt.Errorf("higgsfield submit error %d: %s", status, snippet(body))
	}

	var gen higgsfieldGeneration
	if err := json.Unmarshal(body, &gen); err != nil || gen.taskID() == "" {
		return nil, fmt.Errorf("higgsfield submit: no generation ID in response: %s", snippet(body))
	}

	logger.Log.Debug("higgsfield generation submitted", zap.String("task_id", gen.taskID()))
	return &Task{ID: gen.taskID()}, nil
}

func (c *HiggsfieldClient) SubmitImage(ctx context.Context, req ImageRequest) (*Task, error) {
	model, ok := higgsfieldImageModels[req.Model]
	if !ok {
		return nil, fmt.Errorf("%w: higgsfield has no image model %q", ErrUnknownModel, req.Model)
	}

	width, height := higgsfieldSize(req.AspectRatio)
	payload := map[string]any{
		"task":   "text-to-image",
		"model":  model,
		"prompt": req.Prompt,
		"width":  width,
		"height": height,
	}
	if len(req.ReferenceURLs) > 0 {
		refs := req.ReferenceURLs
		if len(refs) > 3 {
			refs = refs[:3]
		}
		payload["image_urls"] = refs
	}
	return c.submitGeneration(ctx, payload)
}

func (c *HiggsfieldClient) SubmitVideo(ctx context.Context, req VideoRequest) (*Task, error) {
	slug := req.Model
	// Seedance splits text-to-video and image-to-video across model IDs.
	if slug == "seedance" && req.ImageURL != "" {
		slug = "seedance-i2v"
	}
	model, ok := higgsfieldVideoModels[slug]
	if !ok {
		return nil, fmt.Errorf("%w: higgsfield has no video model %q", ErrUnknownModel, req.Model)
	}

	task := "text-to-video"
	if req.ImageURL != "" {
		task = "image-to-video"
	}

	width, height := higgsfieldSize(req.AspectRatio)
	duration := req.Duration
	if duration <= 0 {
		duration = 5
	}
	payload := map[string]any{
		"task":     task,
		"model":    model,
		"prompt":   req.Prompt,
		"width":    width,
		"height":   height,
		"duration": duration,
	}
	if req.ImageURL != "" {
		payload["image_urls"] = []string{req.ImageURL}
	}
	return c.submitGeneration(ctx, payload)
}

// Await polls a diffusion API generation until it completes. An nsfw status
// surfaces as ErrFiltered so callers can report it distinctly.
func (c *HiggsfieldClient) Await(ctx context.Context, task *Task, pc PollConfig) (*Result, error) {
	pollURL := c.BaseURL + "/generations/" + task.ID
	deadline := time.Now().Add(pc.MaxWait)
	transportErrs := 0

	for time.Now().Before(deadline) {
		status, body, err := doJSON(ctx, c.http, http.MethodGet, pollURL, c.headers(), nil)
		if err != nil || status != http.StatusOK {
			transportErrs++
			if transportErrs > maxTransportRetries {
				if err != nil {
					return nil, fmt.Errorf("higgsfield poll: %w", err)
				}
				return nil, fmt.Errorf("higgsfield poll error %d: %s", status, snippet(body))
			}
			if err := sleep(ctx, pc.Interval); err != nil {
				return nil, err
			}
			continue
		}
		transportErrs = 0

		var gen higgsfieldGeneration
		if err := json.Unmarshal(body, &gen); err != nil {
			return nil, fmt.Errorf("higgsfield poll: decode response: %w", err)
		}

		switch strings.ToLower(gen.Status) {
		case "completed":
			assetURL := gen.assetURL()
			if assetURL == "" {
				return nil, fmt.Errorf("higgsfield task %s: no asset URL in completed response", task.ID)
			}
			return &Result{URL: assetURL, TaskID: task.ID}, nil
		case "nsfw":
			return nil, fmt.Errorf("%w: higgsfield task %s", ErrFiltered, task.ID)
		case "failed", "error":
			reason := gen.Error
			if reason == "" {
				reason = gen.Message
			}
			if reason == "" {
				reason = "generation " + gen.Status
			}
			return nil, &TaskFailedError{Provider: "higgsfield", TaskID: task.ID, Reason: reason}
		}

		if err := sleep(ctx, pc.Interval); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: higgsfield task %s after %s", ErrTimeout, task.ID, pc.MaxWait)
}

func (c *HiggsfieldClient) GenerateImage(ctx context.Context, req ImageRequest) (*Result, error) {
	task, err := c.SubmitImage(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.Await(ctx, task, ImagePoll())
}

func (c *HiggsfieldClient) GenerateVideo(ctx context.Context, req VideoRequest) (*Result, error) {
	task, err := c.SubmitVideo(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.Await(ctx, task, VideoPoll(req.Model, req.Duration))
}

// GenerateTalkingHead runs a talking head job. The speak-v2 model goes
// through the platform API; talking-photo uses the legacy diffusion route.
func (c *HiggsfieldClient) GenerateTalkingHead(ctx context.Context, req TalkingHeadRequest) (*Result, error) {
	if req.Model == "speak-v2" {
		return c.generateSpeakV2(ctx, req)
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = "natural head movement"
	}
	payload := map[string]any{
		"type": "talking_photo",
		"inputs": map[string]any{
			"image_url": req.ImageURL,
			"audio_url": req.AudioURL,
			"prompt":    prompt,
		},
	}
	task, err := c.submitGeneration(ctx, payload)
	if err != nil {
		return nil, err
	}
	return c.Await(ctx, task, ImagePoll())
}

func (c *HiggsfieldClient) generateSpeakV2(ctx context.Context, req TalkingHeadRequest) (*Result, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = "natural conversational gestures"
	}
	duration := req.Duration
	if duration <= 0 {
		duration = 15
	}
	payload := map[string]any{
		"params": map[string]any{
			"input_image": map[string]any{"type": "image_url", "image_url": req.ImageURL},
			"input_audio": map[string]any{"type": "audio_url", "audio_url": req.AudioURL},
			"prompt":      prompt,
			"quality":     "high",
			"duration":    duration,
		},
	}

	status, body, err := doJSON(ctx, c.http, http.MethodPost, c.PlatformURL+"/v1/speak/higgsfield", c.headers(), payload)
	if err != nil {
		return nil, fmt.Errorf("higgsfield speak submit: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted {
		return nil, fmt.Errorf("higgsfield speak submit error %d: %s", status, snippet(body))
	}

	var submitted struct {
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(body, &submitted); err != nil || submitted.RequestID == "" {
		return nil, fmt.Errorf("higgsfield speak submit: no request ID in response: %s", snippet(body))
	}

	return c.awaitSpeakV2(ctx, submitted.RequestID, VideoPoll(req.Model, duration))
}

func (c *HiggsfieldClient) awaitSpeakV2(ctx context.Context, requestID string, pc PollConfig) (*Result, error) {
	pollURL := c.PlatformURL + "/requests/" + requestID + "/status"
	deadline := time.Now().Add(pc.MaxWait)
	transportErrs := 0

	for time.Now().Before(deadline) {
		status, body, err := doJSON(ctx, c.http, http.MethodGet, pollURL, c.headers(), nil)
		if err != nil || status != http.StatusOK {
			transportErrs++
			if transportErrs > maxTransportRetries {
				if err != nil {
					return nil, fmt.Errorf("higgsfield speak poll: %w", err)
				}
				return nil, fmt.Errorf("higgsfield speak poll error %d: %s", status, snippet(body))
			}
			if err := sleep(ctx, pc.Interval); err != nil {
				return nil, err
			}
			continue
		}
		transportErrs = 0

		var state struct {
			Status  string `json:"status"`
			Error   string `json:"error"`
			Message string `json:"message"`
			Output  struct {
				URL   string `json:"url"`
				Video struct {
					URL string `json:"url"`
				} `json:"video"`
			} `json:"output"`
		}
		if err := json.Unmarshal(body, &state); err != nil {
			return nil, fmt.Errorf("higgsfield speak poll: decode response: %w", err)
		}

		switch strings.ToUpper(state.Status) {
		case "COMPLETED":
			videoURL := state.Output.Video.URL
			if videoURL == "" {
				videoURL = state.Output.URL
			}
			if videoURL == "" {
				return nil, fmt.Errorf("higgsfield speak %s: no video URL in completed response", requestID)
			}
			return &Result{URL: videoURL, TaskID: requestID}, nil
		case "NSFW":
			return nil, fmt.Errorf("%w: higgsfield speak %s", ErrFiltered, requestID)
		case "FAILED", "CANCELED":
			reason := state.Error
			if reason == "" {
				reason = state.Message
			}
			if reason == "" {
				reason = "speak " + state.Status
			}
			return nil, &TaskFailedError{Provider: "higgsfield", TaskID: requestID, Reason: reason}
		}

		if err := sleep(ctx, pc.Interval); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: higgsfield speak %s after %s", ErrTimeout, requestID, pc.MaxWait)
}
