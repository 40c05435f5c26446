package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPoll() PollConfig {
	return PollConfig{MaxWait: 2 * time.Second, Interval: time.Millisecond}
}

func TestKieImageRoundTrip(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jobs/createTask":
			require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var payload struct {
				Model string         `json:"model"`
				Input map[string]any `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "nano-banana-pro", payload.Model)
			assert.Equal(t, "sunset over mountains", payload.Input["prompt"])
			assert.Equal(t, "9:16", payload.Input["aspect_ratio"])
			assert.Equal(t, "png", payload.Input["output_format"])

			json.NewEncoder(w).Encode(map[string]any{
				"code": 200, "msg": "ok",
				"data": map[string]any{"taskId": "task-123"},
			})
		case "/jobs/recordInfo":
			require.Equal(t, "task-123", r.URL.Query().Get("taskId"))
			if atomic.AddInt32(&polls, 1) < 3 {
				json.NewEncoder(w).Encode(map[string]any{
					"code": 200,
					"data": map[string]any{"taskId": "task-123", "state": "generating"},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{
					"taskId":     "task-123",
					"state":      "success",
					"resultJson": `{"resultUrls":["https://cdn.example.com/out.png"]}`,
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewKieClient("test-key")
	client.BaseURL = server.URL

	task, err := client.SubmitImage(context.Background(), ImageRequest{
		Prompt:      "sunset over mountains",
		Model:       "nano-banana-pro",
		AspectRatio: "9:16",
		Resolution:  "1K",
	})
	require.NoError(t, err)
	require.Equal(t, "task-123", task.ID)

	result, err := client.Await(context.Background(), task, fastPoll())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/out.png", result.URL)
	assert.Equal(t, "task-123", result.TaskID)
}

func TestKieTaskFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{
				"taskId":  "task-9",
				"state":   "fail",
				"failMsg": "prompt rejected",
			},
		})
	}))
	defer server.Close()

	client := NewKieClient("test-key")
	client.BaseURL = server.URL

	_, err := client.Await(context.Background(), &Task{ID: "task-9"}, fastPoll())
	require.Error(t, err)

	var failed *TaskFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "kie", failed.Provider)
	assert.Equal(t, "prompt rejected", failed.Reason)
}

func TestKieAwaitTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{"taskId": "task-1", "state": "generating"},
		})
	}))
	defer server.Close()

	client := NewKieClient("test-key")
	client.BaseURL = server.URL

	_, err := client.Await(context.Background(), &Task{ID: "task-1"},
		PollConfig{MaxWait: 20 * time.Millisecond, Interval: time.Millisecond})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestKieVideoPayloads(t *testing.T) {
	var lastPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastPayload))
		json.NewEncoder(w).Encode(map[string]any{
			"code": 200, "data": map[string]any{"taskId": "t"},
		})
	}))
	defer server.Close()

	client := NewKieClient("test-key")
	client.BaseURL = server.URL

	_, err := client.SubmitVideo(context.Background(), VideoRequest{
		Prompt: "product spin", Model: "kling-3.0", AspectRatio: "16:9", Duration: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "kling-3.0/video", lastPayload["model"])
	input := lastPayload["input"].(map[string]any)
	assert.Equal(t, "pro", input["mode"])
	assert.Equal(t, "5", input["duration"])
	assert.Equal(t, "16:9", input["aspect_ratio"])

	_, err = client.SubmitVideo(context.Background(), VideoRequest{
		Prompt: "walkthrough", Model: "sora-2-pro", AspectRatio: "9:16", Duration: 12,
		ImageURL: "https://cdn.example.com/frame.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "sora-2-pro-image-to-video", lastPayload["model"])
	input = lastPayload["input"].(map[string]any)
	assert.Equal(t, "portrait", input["aspect_ratio"])
	assert.Equal(t, "15", input["n_frames"])
	assert.Equal(t, []any{"https://cdn.example.com/frame.png"}, input["image_urls"])

	_, err = client.SubmitVideo(context.Background(), VideoRequest{Model: "minimax"})
	require.ErrorIs(t, err, ErrUnknownModel)
}

func TestWaveSpeedImageRoundTrip(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/openai/gpt-image-1.5/edit":
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "1024*1536", payload["size"])
			assert.Equal(t, "high", payload["quality"])
			assert.Equal(t, "jpeg", payload["output_format"])

			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"id":   "ws-1",
					"urls": map[string]any{"get": server.URL + "/poll/ws-1"},
				},
			})
		case "/poll/ws-1":
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"id":      "ws-1",
					"status":  "completed",
					"outputs": []string{"https://cdn.example.com/ws.jpg"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewWaveSpeedClient("ws-key")
	client.BaseURL = server.URL

	result, err := client.GenerateImage(context.Background(), ImageRequest{
		Prompt: "studio product shot", Model: "gpt-image-1.5",
		AspectRatio: "9:16", Resolution: "2K",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/ws.jpg", result.URL)
	assert.Equal(t, "ws-1", result.TaskID)
}

func TestWaveSpeedFailedTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id": "ws-2", "status": "failed", "error": "content policy",
			},
		})
	}))
	defer server.Close()

	client := NewWaveSpeedClient("ws-key")
	client.BaseURL = server.URL

	_, err := client.Await(context.Background(),
		&Task{ID: "ws-2", PollURL: server.URL + "/poll"}, fastPoll())

	var failed *TaskFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "wavespeed", failed.Provider)
	assert.Equal(t, "content policy", failed.Reason)
}

func TestWaveSpeedSoraDuration(t *testing.T) {
	cases := map[int]int{3: 4, 5: 4, 8: 8, 10: 8, 12: 12, 15: 16, 18: 16, 25: 20}
	for in, want := range cases {
		assert.Equal(t, want, wavespeedSoraDuration(in), "duration %d", in)
	}
}

func TestWaveSpeedImageSize(t *testing.T) {
	assert.Equal(t, "1024*1536", wavespeedImageSize("2:3"))
	assert.Equal(t, "1536*1024", wavespeedImageSize("16:9"))
	assert.Equal(t, "1024*1024", wavespeedImageSize("1:1"))
	assert.Equal(t, "auto", wavespeedImageSize("21:9"))
}

func TestHiggsfieldImageRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Key kid:secret", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/generations":
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "text-to-image", payload["task"])
			assert.Equal(t, "nano-banana", payload["model"])
			assert.Equal(t, float64(1024), payload["width"])
			assert.Equal(t, float64(576), payload["height"])

			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"id": "hf-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/generations/hf-1":
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "hf-1",
				"status": "completed",
				"images": []map[string]any{{"url": "https://cdn.example.com/hf.png"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewHiggsfieldClient("kid", "secret")
	client.BaseURL = server.URL

	task, err := client.SubmitImage(context.Background(), ImageRequest{
		Prompt: "brand hero shot", Model: "nano-banana", AspectRatio: "16:9",
	})
	require.NoError(t, err)

	result, err := client.Await(context.Background(), task, fastPoll())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/hf.png", result.URL)
}

func TestHiggsfieldNSFWFiltered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "hf-2", "status": "nsfw"})
	}))
	defer server.Close()

	client := NewHiggsfieldClient("kid", "secret")
	client.BaseURL = server.URL

	_, err := client.Await(context.Background(), &Task{ID: "hf-2"}, fastPoll())
	require.ErrorIs(t, err, ErrFiltered)
}

func TestHiggsfieldSeedanceImageToVideo(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(map[string]any{"id": "hf-3"})
	}))
	defer server.Close()

	client := NewHiggsfieldClient("kid", "secret")
	client.BaseURL = server.URL

	_, err := client.SubmitVideo(context.Background(), VideoRequest{
		Prompt: "slow dolly in", Model: "seedance", AspectRatio: "9:16",
		Duration: 5, ImageURL: "https://cdn.example.com/start.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "image-to-video", payload["task"])
	assert.Equal(t, "bytedance/seedance/v1/pro/image-to-video", payload["model"])
	assert.Equal(t, []any{"https://cdn.example.com/start.png"}, payload["image_urls"])

	_, err = client.SubmitVideo(context.Background(), VideoRequest{
		Prompt: "city timelapse", Model: "seedance", AspectRatio: "9:16", Duration: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "text-to-video", payload["task"])
	assert.Equal(t, "bytedance/seedance/2-0", payload["model"])
}

func TestVideoPollScaling(t *testing.T) {
	assert.Equal(t, 600*time.Second, VideoPoll("kling-3.0", 5).MaxWait)
	assert.Equal(t, 900*time.Second, VideoPoll("sora-2-pro", 10).MaxWait)
	assert.Equal(t, 900*time.Second, VideoPoll("veo-3.1", 8).MaxWait)
	// 20s clip adds 10 extra seconds at 12s of budget each.
	assert.Equal(t, 720*time.Second, VideoPoll("kling-3.0", 20).MaxWait)
}

func TestVeoDurationSnap(t *testing.T) {
	assert.Equal(t, int32(4), veoDuration(3))
	assert.Equal(t, int32(6), veoDuration(6))
	assert.Equal(t, int32(8), veoDuration(7))
	assert.Equal(t, int32(8), veoDuration(30))
}

func TestPCMToWAVHeader(t *testing.T) {
	pcm := make([]byte, 48000) // one second at 24kHz 16-bit mono
	wav := pcmToWAV(pcm)

	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, len(pcm)+44, len(wav))
}

func TestSleepRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleep(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTaskFailedErrorMessage(t *testing.T) {
	err := &TaskFailedError{Provider: "kie", TaskID: "t1", Reason: "boom"}
	assert.Equal(t, "kie task t1 failed: boom", err.Error())
	assert.False(t, errors.Is(err, ErrTimeout))
}
