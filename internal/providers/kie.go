package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/videobuds/backend/internal/logger"
	"go.uber.org/zap"
)

const kieBaseURL = "https://api.kie.ai/api/v1"

// Kie model IDs keyed by catalog slug. Kie only carries the Pro variant of
// Nano Banana, so both slugs map to it.
var kieImageModels = map[string]string{
	"nano-banana":     "nano-banana-pro",
	"nano-banana-pro": "nano-banana-pro",
}

var kieVideoModels = map[string]string{
	"kling-3.0":  "kling-3.0/video",
	"sora-2-pro": "sora-2-pro-image-to-video",
}

// KieClient talks to the Kie AI jobs API. All Kie generation is asynchronous.
type KieClient struct {
	BaseURL string
	apiKey  string
	http    *http.Client
}

func NewKieClient(apiKey string) *KieClient {
	return &KieClient{
		BaseURL: kieBaseURL,
		apiKey:  apiKey,
		http:    newHTTPClient(90 * time.Second),
	}
}

func (c *KieClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// kieEnvelope wraps every Kie API response.
type kieEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type kieTaskData struct {
	TaskID     string `json:"taskId"`
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailMsg    string `json:"failMsg"`
}

func (c *KieClient) createTask(ctx context.Context, model string, input map[string]any) (*Task, error) {
	payload := map[string]any{"model": model, "input": input}
	status, body, err := doJSON(ctx, c.http, http.MethodPost, c.BaseURL+"/jobs/createTask", c.headers(), payload)
	if err != nil {
		return nil, fmt.Errorf("kie submit: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("kie submit error %d: %s", status, snippet(body))
	}

	var env kieEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("kie submit: decode response: %w", err)
	}
	if env.Code != 200 {
		return nil, fmt.Errorf("kie submit rejected (code %d): %s", env.Code, env.Msg)
	}

	var data kieTaskData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.TaskID == "" {
		return nil, fmt.Errorf("kie submit: no task ID in response: %s", snippet(body))
	}

	logger.Log.Debug("kie task submitted",
		zap.String("model", model),
		zap.String("task_id", data.TaskID))
	return &Task{ID: data.TaskID}, nil
}

// SubmitImage submits an image task. Reference image URLs must already be
// hosted somewhere the Kie backend can fetch.
func (c *KieClient) SubmitImage(ctx context.Context, req ImageRequest) (*Task, error) {
	model, ok := kieImageModels[req.Model]
	if !ok {
		return nil, fmt.Errorf("%w: kie has no image model %q", ErrUnknownModel, req.Model)
	}

	refs := req.ReferenceURLs
	if refs == nil {
		refs = []string{}
	}
	input := map[string]any{
		"prompt":        req.Prompt,
		"aspect_ratio":  req.AspectRatio,
		"resolution":    req.Resolution,
		"output_format": "png",
		"image_input":   refs,
	}
	return c.createTask(ctx, model, input)
}

// SubmitVideo submits a video task for kling-3.0 or sora-2-pro.
func (c *KieClient) SubmitVideo(ctx context.Context, req VideoRequest) (*Task, error) {
	model, ok := kieVideoModels[req.Model]
	if !ok {
		return nil, fmt.Errorf("%w: kie has no video model %q", ErrUnknownModel, req.Model)
	}

	var input map[string]any
	switch req.Model {
	case "kling-3.0":
		input = map[string]any{
			"mode":        "pro",
			"prompt":      req.Prompt,
			"duration":    strconv.Itoa(req.Duration),
			"multi_shots": false,
			"sound":       true,
		}
		if req.ImageURL != "" {
			input["image_urls"] = []string{req.ImageURL}
		} else {
			input["aspect_ratio"] = req.AspectRatio
		}
	default: // sora-2-pro
		input = map[string]any{
			"prompt":           req.Prompt,
			"aspect_ratio":     soraOrientation(req.AspectRatio),
			"n_frames":         soraFrames(req.Duration),
			"size":             "high",
			"remove_watermark": true,
			"upload_method":    "s3",
		}
		if req.ImageURL != "" {
			input["image_urls"] = []string{req.ImageURL}
		}
	}
	return c.createTask(ctx, model, input)
}

// soraOrientation maps a standard aspect ratio to Sora's portrait/landscape
// vocabulary. Square falls back to landscape.
func soraOrientation(aspectRatio string) string {
	if aspectRatio == "9:16" {
		return "portrait"
	}
	return "landscape"
}

// soraFrames snaps a duration to the n_frames buckets Sora accepts.
func soraFrames(duration int) string {
	switch {
	case duration <= 10:
		return "10"
	case duration <= 15:
		return "15"
	default:
		return "20"
	}
}

// Await polls the task until it reaches a terminal state or the poll budget
// runs out. Transport failures and error envelopes are retried within their
// budgets; a clean poll resets both counters.
func (c *KieClient) Await(ctx context.Context, task *Task, pc PollConfig) (*Result, error) {
	pollURL := c.BaseURL + "/jobs/recordInfo?taskId=" + url.QueryEscape(task.ID)
	deadline := time.Now().Add(pc.MaxWait)
	transportErrs, apiErrs := 0, 0

	for time.Now().Before(deadline) {
		status, body, err := doJSON(ctx, c.http, http.MethodGet, pollURL, c.headers(), nil)
		if err != nil || status != http.StatusOK {
			transportErrs++
			if transportErrs > maxTransportRetries {
				if err != nil {
					return nil, fmt.Errorf("kie poll: %w", err)
				}
				return nil, fmt.Errorf("kie poll error %d: %s", status, snippet(body))
			}
			if err := sleep(ctx, pc.Interval); err != nil {
				return nil, err
			}
			continue
		}

		var env kieEnvelope
		if err := json.Unmarshal(body, &env); err != nil || env.Code != 200 {
			apiErrs++
			if apiErrs > maxAPIErrorRetries {
				return nil, fmt.Errorf("kie poll rejected (code %d): %s", env.Code, env.Msg)
			}
			if err := sleep(ctx, pc.Interval); err != nil {
				return nil, err
			}
			continue
		}
		transportErrs, apiErrs = 0, 0

		var data kieTaskData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("kie poll: decode task data: %w", err)
		}

		switch data.State {
		case "success":
			resultURL, err := parseKieResult(data.ResultJSON)
			if err != nil {
				return nil, fmt.Errorf("kie task %s: %w", task.ID, err)
			}
			return &Result{URL: resultURL, TaskID: task.ID}, nil
		case "fail":
			reason := data.FailMsg
			if reason == "" {
				reason = "task failed"
			}
			return nil, &TaskFailedError{Provider: "kie", TaskID: task.ID, Reason: reason}
		}

		if err := sleep(ctx, pc.Interval); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: kie task %s after %s", ErrTimeout, task.ID, pc.MaxWait)
}

// parseKieResult extracts the first asset URL from the resultJson string Kie
// embeds in a successful record.
func parseKieResult(resultJSON string) (string, error) {
	var parsed struct {
		ResultURLs []string `json:"resultUrls"`
	}
	if err := json.Unmarshal([]byte(resultJSON), &parsed); err != nil {
		return "", fmt.Errorf("decode resultJson: %w", err)
	}
	if len(parsed.ResultURLs) == 0 {
		return "", fmt.Errorf("no result URLs in completed task")
	}
	return parsed.ResultURLs[0], nil
}

// GenerateImage submits and waits with the default image poll budget.
func (c *KieClient) GenerateImage(ctx context.Context, req ImageRequest) (*Result, error) {
	task, err := c.SubmitImage(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.Await(ctx, task, ImagePoll())
}

// GenerateVideo submits and waits with a model-scaled poll budget.
func (c *KieClient) GenerateVideo(ctx context.Context, req VideoRequest) (*Result, error) {
	task, err := c.SubmitVideo(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.Await(ctx, task, VideoPoll(req.Model, req.Duration))
}
