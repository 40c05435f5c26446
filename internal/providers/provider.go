// Package providers contains the generation backends (Google, Kie AI,
// WaveSpeed, Higgsfield) behind a common submit/poll interface. Synchronous
// backends return inline bytes; asynchronous backends return a Task that is
// polled until the hosted asset URL is available.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownModel is returned when a model slug has no backing provider.
	ErrUnknownModel = errors.New("unknown model")
	// ErrTimeout is returned when polling exceeds the configured max wait.
	ErrTimeout = errors.New("generation timed out")
	// ErrFiltered is returned when a provider's safety filter blocks the output.
	ErrFiltered = errors.New("content blocked by safety filter")
)

// TaskFailedError carries the provider's failure message for a submitted task.
type TaskFailedError struct {
	Provider string
	TaskID   string
	Reason   string
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("%s task %s failed: %s", e.Provider, e.TaskID, e.Reason)
}

// ImageRequest describes a single image generation.
type ImageRequest struct {
	Prompt        string
	Model         string
	AspectRatio   string
	Resolution    string
	ReferenceURLs []string
}

// VideoRequest describes a single video generation. ImageURL, when set,
// supplies the start frame for image-to-video models.
type VideoRequest struct {
	Prompt      string
	Model       string
	AspectRatio string
	Duration    int
	ImageURL    string
}

// SpeechRequest describes a text-to-speech generation.
type SpeechRequest struct {
	Text  string
	Voice string
}

// TalkingHeadRequest describes an image+audio talking head generation.
type TalkingHeadRequest struct {
	Model    string
	ImageURL string
	AudioURL string
	Prompt   string
	Duration int
}

// Result is a finished generation. Asynchronous providers set URL;
// synchronous ones return the asset inline as Bytes with its MIME type.
type Result struct {
	URL    string
	Bytes  []byte
	MIME   string
	TaskID string
}

// Task identifies a submitted asynchronous job. PollURL is set when the
// provider hands back a dynamic status endpoint instead of a stable ID route.
type Task struct {
	ID      string
	PollURL string
}

// ImageGenerator produces an image end to end.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*Result, error)
}

// VideoGenerator produces a video end to end.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req VideoRequest) (*Result, error)
}

// SpeechGenerator produces speech audio from text.
type SpeechGenerator interface {
	GenerateSpeech(ctx context.Context, req SpeechRequest) (*Result, error)
}

// TalkingHeadGenerator animates a still image with speech audio.
type TalkingHeadGenerator interface {
	GenerateTalkingHead(ctx context.Context, req TalkingHeadRequest) (*Result, error)
}

// AsyncImageGenerator exposes the submit/poll halves so callers can fan out
// many submissions before polling them as a group.
type AsyncImageGenerator interface {
	ImageGenerator
	SubmitImage(ctx context.Context, req ImageRequest) (*Task, error)
	Await(ctx context.Context, task *Task, pc PollConfig) (*Result, error)
}

// AsyncVideoGenerator is the video counterpart of AsyncImageGenerator.
type AsyncVideoGenerator interface {
	VideoGenerator
	SubmitVideo(ctx context.Context, req VideoRequest) (*Task, error)
	Await(ctx context.Context, task *Task, pc PollConfig) (*Result, error)
}

// PollConfig bounds a poll loop.
type PollConfig struct {
	MaxWait  time.Duration
	Interval time.Duration
}

// Poll loop retry budgets. Transport failures and non-success API envelopes
// are tolerated up to these counts before the task is declared failed; a
// successful poll resets the budget.
const (
	maxTransportRetries = 10
	maxAPIErrorRetries  = 20
)

// ImagePoll is the default poll cadence for image tasks.
func ImagePoll() PollConfig {
	return PollConfig{MaxWait: 300 * time.Second, Interval: 5 * time.Second}
}

// VideoPoll scales the poll budget to the model class and clip length.
// Sora and Veo renders routinely take longer than the rest, and every
// second of output past ten adds wall time.
func VideoPoll(model string, duration int) PollConfig {
	base := 600
	if strings.HasPrefix(model, "sora") || strings.HasPrefix(model, "veo") {
		base = 900
	}
	if duration > 10 {
		base += (duration - 10) * 12
	}
	return PollConfig{MaxWait: time.Duration(base) * time.Second, Interval: 10 * time.Second}
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
