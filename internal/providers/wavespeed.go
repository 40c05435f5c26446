package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/videobuds/backend/internal/logger"
	"go.uber.org/zap"
)

const wavespeedBaseURL = "https://api.wavespeed.ai/api/v3"

var wavespeedImageModels = map[string]string{
	"gpt-image-1.5": "openai/gpt-image-1.5/edit",
}

var wavespeedVideoModels = map[string]string{
	"kling-3.0":  "kwaivgi/kling-v3.0-pro/image-to-video",
	"sora-2":     "openai/sora-2/image-to-video",
	"sora-2-pro": "openai/sora-2/image-to-video-pro",
}

const wavespeedTalkingModel = "wavespeed-ai/infinitetalk"

// WaveSpeedClient talks to the WaveSpeed v3 API. Submissions return a
// dynamic poll URL which Await follows instead of building one from the ID.
type WaveSpeedClient struct {
	BaseURL string
	apiKey  string
	http    *http.Client
}

func NewWaveSpeedClient(apiKey string) *WaveSpeedClient {
	return &WaveSpeedClient{
		BaseURL: wavespeedBaseURL,
		apiKey:  apiKey,
		http:    newHTTPClient(90 * time.Second),
	}
}

func (c *WaveSpeedClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

type wavespeedTask struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Outputs []string `json:"outputs"`
	Error   string `json:"error"`
	URLs    struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// unwrapWavespeed tolerates both bare task objects and {"data": {...}}
// envelopes, which the API mixes across endpoints.
func unwrapWavespeed(body []byte) (*wavespeedTask, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	raw := body
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 {
		raw = envelope.Data
	}
	var task wavespeedTask
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("decode wavespeed response: %w", err)
	}
	return &task, nil
}

func (c *WaveSpeedClient) submit(ctx context.Context, modelID string, payload map[string]any) (*Task, error) {
	status, body, err := doJSON(ctx, c.http, http.MethodPost, c.BaseURL+"/"+modelID, c.headers(), payload)
	if err != nil {
		return nil, fmt.Errorf("wavespeed submit: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("wavespeed submit error %d: %s", status, snippet(body))
	}

	task, err := unwrapWavespeed(body)
	if err != nil {
		return nil, err
	}
	if task.ID == "" || task.URLs.Get == "" {
		return nil, fmt.Errorf("wavespeed submit: missing task ID or poll URL: %s", snippet(body))
	}

	logger.Log.Debug("wavespeed task submitted",
		zap.String("model", modelID),
		zap.String("task_id", task.ID))
	return &Task{ID: task.ID, PollURL: task.URLs.Get}, nil
}

// wavespeedImageSize maps an aspect ratio to the pixel size strings the
// gpt-image endpoint accepts.
func wavespeedImageSize(aspectRatio string) string {
	switch aspectRatio {
	case "9:16", "2:3":
		return "1024*1536"
	case "16:9", "3:2":
		return "1536*1024"
	case "1:1":
		return "1024*1024"
	default:
		return "auto"
	}
}

func wavespeedImageQuality(resolution string) string {
	if resolution == "2K" || resolution == "4K" {
		return "high"
	}
	return "medium"
}

func (c *WaveSpeedClient) SubmitImage(ctx context.Context, req ImageRequest) (*Task, error) {
	modelID, ok := wavespeedImageModels[req.Model]
	if !ok {
		return nil, fmt.Errorf("%w: wavespeed has no image model %q", ErrUnknownModel, req.Model)
	}

	payload := map[string]any{
		"prompt":         req.Prompt,
		"size":           wavespeedImageSize(req.AspectRatio),
		"quality":        wavespeedImageQuality(req.Resolution),
		"input_fidelity": "high",
		"output_format":  "jpeg",
	}
	if len(req.ReferenceURLs) > 0 {
		payload["images"] = req.ReferenceURLs
	}
	return c.submit(ctx, modelID, payload)
}

// wavespeedSoraDuration snaps a requested duration to the buckets the Sora
// endpoints accept.
func wavespeedSoraDuration(duration int) int {
	switch {
	case duration <= 5:
		return 4
	case duration <= 10:
		return 8
	case duration <= 14:
		return 12
	case duration <= 18:
		return 16
	default:
		return 20
	}
}

func (c *WaveSpeedClient) SubmitVideo(ctx context.Context, req VideoRequest) (*Task, error) {
	modelID, ok := wavespeedVideoModels[req.Model]
	if !ok {
		return nil, fmt.Errorf("%w: wavespeed has no video model %q", ErrUnknownModel, req.Model)
	}

	var payload map[string]any
	switch req.Model {
	case "kling-3.0":
		payload = map[string]any{
			"prompt":    req.Prompt,
			"duration":  req.Duration,
			"cfg_scale": 0.5,
			"sound":     true,
		}
	default: // sora-2, sora-2-pro
		payload = map[string]any{
			"prompt":   req.Prompt,
			"duration": wavespeedSoraDuration(req.Duration),
		}
		if req.Model == "sora-2-pro" {
			payload["resolution"] = "1080p"
		}
	}
	if req.ImageURL != "" {
		payload["image"] = req.ImageURL
	}
	return c.submit(ctx, modelID, payload)
}

// GenerateTalkingHead runs an InfiniteTalk job from a hosted image and audio.
func (c *WaveSpeedClient) GenerateTalkingHead(ctx context.Context, req TalkingHeadRequest) (*Result, error) {
	payload := map[string]any{
		"audio":      req.AudioURL,
		"image":      req.ImageURL,
		"resolution": "720p",
	}
	if req.Prompt != "" {
		payload["prompt"] = req.Prompt
	}
	task, err := c.submit(ctx, wavespeedTalkingModel, payload)
	if err != nil {
		return nil, err
	}
	return c.Await(ctx, task, VideoPoll(req.Model, req.Duration))
}

// Await polls the task's dynamic status URL until it completes or fails.
func (c *WaveSpeedClient) Await(ctx context.Context, task *Task, pc PollConfig) (*Result, error) {
	deadline := time.Now().Add(pc.MaxWait)
	transportErrs := 0

	for time.Now().Before(deadline) {
		status, body, err := doJSON(ctx, c.http, http.MethodGet, task.PollURL, c.headers(), nil)
		if err != nil || status != http.StatusOK {
			transportErrs++
			if transportErrs > maxTransportRetries {
				if err != nil {
					return nil, fmt.Errorf("wavespeed poll: %w", err)
				}
				return nil, fmt.Errorf("wavespeed poll error %d: %s", status, snippet(body))
			}
			if err := sleep(ctx, pc.Interval); err != nil {
				return nil, err
			}
			continue
		}
		transportErrs = 0

		state, err := unwrapWavespeed(body)
		if err != nil {
			return nil, err
		}

		switch state.Status {
		case "completed":
			if len(state.Outputs) == 0 {
				return nil, fmt.Errorf("wavespeed task %s: no outputs in completed response", task.ID)
			}
			return &Result{URL: state.Outputs[0], TaskID: task.ID}, nil
		case "failed":
			reason := state.Error
			if reason == "" {
				reason = "task failed"
			}
			return nil, &TaskFailedError{Provider: "wavespeed", TaskID: task.ID, Reason: reason}
		}

		if err := sleep(ctx, pc.Interval); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: wavespeed task %s after %s", ErrTimeout, task.ID, pc.MaxWait)
}

func (c *WaveSpeedClient) GenerateImage(ctx context.Context, req ImageRequest) (*Result, error) {
	task, err := c.SubmitImage(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.Await(ctx, task, ImagePoll())
}

func (c *WaveSpeedClient) GenerateVideo(ctx context.Context, req VideoRequest) (*Result, error) {
	task, err := c.SubmitVideo(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.Await(ctx, task, VideoPoll(req.Model, req.Duration))
}

// UploadMedia uploads a local asset by multipart binary and returns the
// hosted URL. Used to stage start frames and audio for WaveSpeed models.
func (c *WaveSpeedClient) UploadMedia(ctx context.Context, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/media/upload/binary", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("wavespeed upload: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wavespeed upload error %d: %s", resp.StatusCode, snippet(body))
	}

	var uploaded struct {
		Data struct {
			DownloadURL string `json:"download_url"`
			FileURL     string `json:"file_url"`
			URL         string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return "", fmt.Errorf("decode wavespeed upload response: %w", err)
	}
	for _, u := range []string{uploaded.Data.DownloadURL, uploaded.Data.FileURL, uploaded.Data.URL} {
		if u != "" {
			return u, nil
		}
	}
	return "", fmt.Errorf("wavespeed upload: no URL in response: %s", snippet(body))
}
