package providers

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/videobuds/backend/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var googleImageModels = map[string]string{
	"nano-banana":     "gemini-2.5-flash-image",
	"nano-banana-pro": "gemini-3-pro-image-preview",
}

var googleVideoModels = map[string]string{
	"veo-3.1": "veo-3.1-generate-preview",
}

const googleTTSModel = "gemini-2.5-flash-preview-tts"

// Voices available for Gemini TTS.
var AvailableVoices = []string{
	"Kore", "Charon", "Fenrir", "Aoede", "Puck",
	"Leda", "Orus", "Zephyr",
}

const DefaultVoice = "Kore"

// MaxSpeechLength caps TTS input. Gemini degrades well before its hard limit.
const MaxSpeechLength = 8000

// GoogleClient generates through the Gemini API. Images and speech are
// synchronous and return inline bytes; Veo video runs as a long-running
// operation polled until done.
type GoogleClient struct {
	client *genai.Client
	apiKey string
	http   *http.Client
}

func NewGoogleClient(ctx context.Context, apiKey string) (*GoogleClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GoogleClient{
		client: client,
		apiKey: apiKey,
		http:   newHTTPClient(120 * time.Second),
	}, nil
}

// fetchBytes downloads a hosted asset so it can be inlined into a request.
func (c *GoogleClient) fetchBytes(ctx context.Context, assetURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: status %d", assetURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, "", err
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}

// GenerateImage runs a synchronous Gemini image generation. Reference images
// are downloaded and inlined alongside the prompt.
func (c *GoogleClient) GenerateImage(ctx context.Context, req ImageRequest) (*Result, error) {
	model, ok := googleImageModels[req.Model]
	if !ok {
		return nil, fmt.Errorf("%w: google has no image model %q", ErrUnknownModel, req.Model)
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, ref := range req.ReferenceURLs {
		data, mime, err := c.fetchBytes(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("fetch reference image: %w", err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, mime))
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini image: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini image: no candidates in response")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &Result{Bytes: part.InlineData.Data, MIME: mime}, nil
		}
	}
	return nil, fmt.Errorf("%w: gemini returned no image data", ErrFiltered)
}

// veoDuration snaps a requested duration to the 4/6/8 second values Veo
// accepts.
func veoDuration(duration int) int32 {
	valid := []int32{4, 6, 8}
	best := valid[0]
	for _, v := range valid {
		if abs32(v-int32(duration)) < abs32(best-int32(duration)) {
			best = v
		}
	}
	return best
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// GenerateVideo submits a Veo operation and polls it to completion.
func (c *GoogleClient) GenerateVideo(ctx context.Context, req VideoRequest) (*Result, error) {
	model, ok := googleVideoModels[req.Model]
	if !ok {
		return nil, fmt.Errorf("%w: google has no video model %q", ErrUnknownModel, req.Model)
	}

	var image *genai.Image
	if req.ImageURL != "" {
		data, mime, err := c.fetchBytes(ctx, req.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("fetch start frame: %w", err)
		}
		image = &genai.Image{ImageBytes: data, MIMEType: mime}
	}

	cfg := &genai.GenerateVideosConfig{
		AspectRatio:      req.AspectRatio,
		DurationSeconds:  genai.Ptr(veoDuration(req.Duration)),
		NumberOfVideos:   1,
		PersonGeneration: "allow_adult",
	}

	op, err := c.client.Models.GenerateVideos(ctx, model, req.Prompt, image, cfg)
	if err != nil {
		return nil, fmt.Errorf("veo submit: %w", err)
	}
	logger.Log.Debug("veo operation started", zap.String("operation", op.Name))

	pc := VideoPoll(req.Model, req.Duration)
	deadline := time.Now().Add(pc.MaxWait)

	for time.Now().Before(deadline) {
		if err := sleep(ctx, pc.Interval); err != nil {
			return nil, err
		}
		op, err = c.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, fmt.Errorf("veo poll: %w", err)
		}
		if !op.Done {
			continue
		}
		if op.Error != nil {
			return nil, &TaskFailedError{Provider: "google", TaskID: op.Name, Reason: fmt.Sprintf("%v", op.Error)}
		}
		if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
			if op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
				return nil, fmt.Errorf("%w: %v", ErrFiltered, op.Response.RAIMediaFilteredReasons)
			}
			return nil, fmt.Errorf("%w: veo returned no video", ErrFiltered)
		}

		video := op.Response.GeneratedVideos[0].Video
		if video == nil {
			return nil, fmt.Errorf("veo operation %s: nil video in response", op.Name)
		}
		if len(video.VideoBytes) > 0 {
			return &Result{Bytes: video.VideoBytes, MIME: "video/mp4", TaskID: op.Name}, nil
		}
		data, err := c.downloadVideo(ctx, video.URI)
		if err != nil {
			return nil, err
		}
		return &Result{Bytes: data, MIME: "video/mp4", TaskID: op.Name}, nil
	}
	return nil, fmt.Errorf("%w: veo operation %s after %s", ErrTimeout, op.Name, pc.MaxWait)
}

// downloadVideo fetches a Veo result URI, which requires API key auth.
func (c *GoogleClient) downloadVideo(ctx context.Context, uri string) ([]byte, error) {
	if uri == "" {
		return nil, fmt.Errorf("veo video has no bytes or URI")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download veo video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download veo video: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 256<<20))
}

// GenerateSpeech converts text to WAV audio through Gemini TTS. Unknown
// voices fall back to the default rather than failing the run.
func (c *GoogleClient) GenerateSpeech(ctx context.Context, req SpeechRequest) (*Result, error) {
	if len(req.Text) == 0 {
		return nil, fmt.Errorf("speech text cannot be empty")
	}
	if len(req.Text) > MaxSpeechLength {
		return nil, fmt.Errorf("speech text too long (%d chars, max %d)", len(req.Text), MaxSpeechLength)
	}

	voice := req.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	if !validVoice(voice) {
		logger.Log.Warn("unknown tts voice, using default",
			zap.String("voice", voice),
			zap.String("default", DefaultVoice))
		voice = DefaultVoice
	}

	contents := genai.Text(req.Text)
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, googleTTSModel, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini tts: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini tts: no candidates in response")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			// Gemini returns raw PCM (16-bit, 24kHz mono); wrap it as WAV.
			return &Result{Bytes: pcmToWAV(part.InlineData.Data), MIME: "audio/wav"}, nil
		}
	}
	return nil, fmt.Errorf("gemini tts: no audio data in response")
}

func validVoice(voice string) bool {
	for _, v := range AvailableVoices {
		if v == voice {
			return true
		}
	}
	return false
}

// pcmToWAV wraps raw 16-bit 24kHz mono PCM in a WAV container.
func pcmToWAV(pcm []byte) []byte {
	const (
		sampleRate  = 24000
		numChannels = 1
		sampleWidth = 2
	)
	var buf bytes.Buffer
	dataSize := uint32(len(pcm))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36)+dataSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*numChannels*sampleWidth))
	binary.Write(&buf, binary.LittleEndian, uint16(numChannels*sampleWidth))
	binary.Write(&buf, binary.LittleEndian, uint16(sampleWidth*8))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)
	return buf.Bytes()
}
