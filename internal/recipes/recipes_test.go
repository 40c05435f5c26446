package recipes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videobuds/backend/internal/agent"
	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/generation"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/providers"
	"github.com/videobuds/backend/internal/storage"
)

// scriptedCompleter routes prompts to canned responses so recipe
// logic can run without a real model.
type scriptedCompleter struct {
	complete     func(prompt string) (string, error)
	completeJSON func(prompt string) (string, error)
}

func (c *scriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.complete == nil {
		return "", errors.New("no completion scripted")
	}
	return c.complete(prompt)
}

func (c *scriptedCompleter) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	if c.completeJSON == nil {
		return "", errors.New("no completion scripted")
	}
	return c.completeJSON(prompt)
}

// fakeWaveSpeed serves the submit/poll lifecycle plus the finished
// asset. Submissions POST to the model path, polls GET /poll.
func newFakeWaveSpeed(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/poll", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"id":"ws-1","status":"completed","outputs":["%s/asset.bin"]}}`, server.URL)
	})
	mux.HandleFunc("/asset.bin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"id":"ws-1","status":"created","urls":{"get":"%s/poll"}}`, server.URL)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func wavespeedDeps(t *testing.T, completer agent.Completer) Deps {
	server := newFakeWaveSpeed(t)
	ws := providers.NewWaveSpeedClient("key")
	ws.BaseURL = server.URL

	store, err := storage.NewLocalStorage(t.TempDir(), "http://cdn.test")
	require.NoError(t, err)

	return Deps{
		Agent:      agent.NewServiceWithCompleter(completer),
		Dispatcher: generation.NewDispatcher(providers.NewRegistryWithClients(nil, nil, ws, nil), store),
		Store:      store,
	}
}

func newRun(t *testing.T, slug string) *models.RecipeRun {
	run := &models.RecipeRun{
		RecipeSlug: slug,
		UserID:     "u-1",
		Status:     models.RunStatusRunning,
		TotalSteps: 4,
	}
	require.NoError(t, database.DB.Create(run).Error)
	return run
}

func TestCleanJSON(t *testing.T) {
	fenced := "```json\n[{\"a\":1}]\n```"
	assert.Equal(t, `[{"a":1}]`, cleanJSON(fenced))
	assert.Equal(t, `{"a":1}`, cleanJSON("  {\"a\":1}  "))
}

func TestSelectValue(t *testing.T) {
	field := InputField{Name: "size", Default: "medium", Options: []Option{
		{Value: "small"}, {Value: "medium"}, {Value: "large"},
	}}

	assert.Equal(t, "large", selectValue(Inputs{"size": "large"}, field))
	assert.Equal(t, "medium", selectValue(Inputs{}, field))
	assert.Equal(t, "medium", selectValue(Inputs{"size": "gigantic"}, field))

	fields := []InputField{field}
	assert.Equal(t, "medium", selectValueByName(Inputs{"size": "huge"}, fields, "size"))
	assert.Equal(t, "free-form", selectValueByName(Inputs{"other": "free-form"}, fields, "other"))
}

func TestClipText(t *testing.T) {
	assert.Equal(t, "short", clipText("short", 10))
	assert.Equal(t, "abc", clipText("abcdef", 3))
}

func TestBrandReferenceURLs(t *testing.T) {
	db := setupRecipesDB(t)

	brand := models.Brand{UserID: "u-1", Name: "Acme"}
	require.NoError(t, db.Create(&brand).Error)
	refs := []models.ReferenceImage{
		{BrandID: brand.ID, Path: "refs/style-1.png", Purpose: models.ReferencePurposeStyle, URL: "http://cdn.test/style-1.png"},
		{BrandID: brand.ID, Path: "refs/style-2.png", Purpose: models.ReferencePurposeStyle, URL: "http://cdn.test/style-2.png"},
		{BrandID: brand.ID, Path: "refs/product.png", Purpose: models.ReferencePurposeProduct, URL: "http://cdn.test/product.png"},
		{BrandID: brand.ID, Path: "refs/broken.png", Purpose: models.ReferencePurposeStyle},
	}
	for i := range refs {
		require.NoError(t, db.Create(&refs[i]).Error)
	}

	urls := brandReferenceURLs(&brand, models.ReferencePurposeStyle, 5)
	assert.Len(t, urls, 2)
	for _, u := range urls {
		assert.Contains(t, u, "style-")
	}

	assert.Nil(t, brandReferenceURLs(nil, models.ReferencePurposeStyle, 5))
}

func TestImageCreatorManualPrompt(t *testing.T) {
	c := NewImageCreator()
	p := c.manualPrompt("a red ceramic mug", imageStylePresets["product_shot"], imagePlatforms["instagram_story"],
		"no text, no watermarks", "BRAND CONTEXT:\nAcme sells mugs.", "")

	assert.True(t, strings.HasPrefix(p, "a red ceramic mug"))
	assert.Contains(t, p, "Style direction: Professional product photography")
	assert.Contains(t, p, "Platform: Full-screen vertical format")
	assert.Contains(t, p, "STYLE CONTEXT")
	assert.Contains(t, p, "Acme sells mugs.")
	assert.Contains(t, p, "Do NOT include: no text, no watermarks")
}

func TestImageCreatorAssistedPrompt(t *testing.T) {
	c := NewImageCreator()
	in := assistedPromptInput{
		Description: "a red ceramic mug",
		Style:       imageStylePresets["product_shot"],
		Negative:    "no text",
		AspectRatio: "1:1",
	}

	var seenPrompt string
	deps := Deps{Agent: agent.NewServiceWithCompleter(&scriptedCompleter{
		complete: func(prompt string) (string, error) {
			seenPrompt = prompt
			return `"A crafted studio prompt."`, nil
		},
	})}
	got := c.assistedPrompt(context.Background(), deps, in)
	assert.Equal(t, "A crafted studio prompt.", got)
	assert.Contains(t, seenPrompt, "a red ceramic mug")
	assert.Contains(t, seenPrompt, "Professional product photography")
	assert.Contains(t, seenPrompt, "MUST EXCLUDE (negative prompt): no text")

	// A dead model falls back to the enriched manual prompt.
	deps = Deps{Agent: agent.NewServiceWithCompleter(&scriptedCompleter{
		complete: func(prompt string) (string, error) { return "", errors.New("model offline") },
	})}
	got = c.assistedPrompt(context.Background(), deps, in)
	assert.True(t, strings.HasPrefix(got, "a red ceramic mug"))
	assert.Contains(t, got, "Style direction:")
}

func TestImageCreatorExecute(t *testing.T) {
	setupRecipesDB(t)
	deps := wavespeedDeps(t, &scriptedCompleter{})
	run := newRun(t, "image-creator")

	c := NewImageCreator()
	result, err := c.Execute(context.Background(), &Execution{
		Run: run,
		Inputs: Inputs{
			"creation_mode": "manual",
			"prompt":        "a red ceramic mug on a wooden table",
			"model":         "gpt-image-1.5",
			"aspect_ratio":  "1:1",
			"image_count":   "2",
		},
		Phase: PhaseScript,
	}, deps, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Phase)

	var images []Output
	for _, out := range result.Outputs {
		if out.Type == OutputImage {
			images = append(images, out)
		}
	}
	require.Len(t, images, 2)
	for _, img := range images {
		assert.True(t, strings.HasPrefix(img.URL, "http://cdn.test/"))
	}

	assert.Equal(t, "Generation Summary", result.Outputs[0].Title)
	assert.Contains(t, result.Outputs[0].Value, "Mode: Manual")
	assert.Contains(t, result.Outputs[0].Value, "Generated: 2 image(s)")
	assert.InDelta(t, 0.14, result.Cost, 0.001)
	assert.Greater(t, result.RetailCost, 0.0)

	var gens []models.Generation
	require.NoError(t, database.DB.Where("recipe_run_id = ?", run.ID).Find(&gens).Error)
	assert.Len(t, gens, 2)
	for _, gen := range gens {
		assert.Equal(t, models.GenerationStatusSuccess, gen.Status)
		assert.Equal(t, "gpt-image-1.5", gen.Model)
		assert.Equal(t, "wavespeed", gen.Provider)
	}
}

func TestVideoCreatorDurationClamp(t *testing.T) {
	setupRecipesDB(t)
	deps := wavespeedDeps(t, &scriptedCompleter{})
	run := newRun(t, "video-creator")

	c := NewVideoCreator()
	result, err := c.Execute(context.Background(), &Execution{
		Run: run,
		Inputs: Inputs{
			"creation_mode": "manual",
			"motion_prompt": "slow pan across a mountain lake",
			"model":         "kling-3.0",
			"duration":      "15",
			"aspect_ratio":  "9:16",
		},
		Phase: PhaseScript,
	}, deps, nil)
	require.NoError(t, err)

	titles := map[string]Output{}
	for _, out := range result.Outputs {
		titles[out.Title] = out
	}
	adjusted, ok := titles["Duration Adjusted"]
	require.True(t, ok)
	assert.Contains(t, adjusted.Value, "requested 15s")
	assert.Contains(t, adjusted.Value, "maximum of 10s")

	video, ok := titles["Generated Video"]
	require.True(t, ok)
	assert.Equal(t, OutputVideo, video.Type)
	assert.True(t, strings.HasPrefix(video.URL, "http://cdn.test/"))

	summary, ok := titles["Generation Summary"]
	require.True(t, ok)
	assert.Contains(t, summary.Value, "Duration: 10s")
	assert.Contains(t, summary.Value, "Generation: text-to-video")
}

func TestAdVideoMakerWriteScenes(t *testing.T) {
	maker := NewAdVideoMaker()

	var seenPrompt string
	deps := Deps{Agent: agent.NewServiceWithCompleter(&scriptedCompleter{
		completeJSON: func(prompt string) (string, error) {
			seenPrompt = prompt
			return "```json\n[" +
				`{"scene_description":"Mug on desk","video_motion":"slow zoom","ad_copy":"Morning fuel"},` +
				`{"scene_description":"Mug in hand","video_motion":"pan","ad_copy":"Take it anywhere"},` +
				`{"scene_description":"Extra scene","video_motion":"tilt","ad_copy":"Bonus"}` +
				"]\n```", nil
		},
	})}

	scenes, err := maker.writeScenes(context.Background(), deps, sceneInput{
		Count:       2,
		AspectRatio: "9:16",
		Description: "A red ceramic mug with a cork base",
	})
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Equal(t, "Mug on desk", scenes[0].SceneDescription)
	assert.Contains(t, seenPrompt, "A red ceramic mug with a cork base")
	assert.Contains(t, seenPrompt, "exactly 2")

	deps = Deps{Agent: agent.NewServiceWithCompleter(&scriptedCompleter{
		completeJSON: func(prompt string) (string, error) { return "not json at all", nil },
	})}
	_, err = maker.writeScenes(context.Background(), deps, sceneInput{Count: 1, Description: "mug"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse scene response")

	deps = Deps{Agent: agent.NewServiceWithCompleter(&scriptedCompleter{
		completeJSON: func(prompt string) (string, error) { return "[]", nil },
	})}
	_, err = maker.writeScenes(context.Background(), deps, sceneInput{Count: 1, Description: "mug"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenes")
}

func TestAdVideoMakerScriptPhase(t *testing.T) {
	setupRecipesDB(t)
	run := newRun(t, "ad-video-maker")

	deps := Deps{Agent: agent.NewServiceWithCompleter(&scriptedCompleter{
		completeJSON: func(prompt string) (string, error) {
			if strings.Contains(prompt, "research assistant") {
				return `{"summary":"A sturdy mug with a cork base.","key_points":["holds 350ml"],"angles":["morning ritual"]}`, nil
			}
			return `[{"scene_description":"Mug on desk","video_motion":"slow zoom","ad_copy":"Morning fuel"},` +
				`{"scene_description":"Mug in hand","video_motion":"pan","ad_copy":"Take it anywhere"}]`, nil
		},
	})}

	maker := NewAdVideoMaker()
	result, err := maker.Execute(context.Background(), &Execution{
		Run: run,
		Inputs: Inputs{
			"reference_image":     "http://cdn.test/uploads/ref.png",
			"product_description": "A red ceramic mug with a cork base",
			"video_count":         "1",
			"aspect_ratio":        "9:16",
		},
		Phase: PhaseScript,
	}, deps, nil)
	require.NoError(t, err)

	assert.Equal(t, PhaseScript, result.Phase)
	assert.Zero(t, result.Cost)

	require.NotEmpty(t, result.Outputs)
	assert.Equal(t, "Product Research", result.Outputs[0].Title)
	assert.Contains(t, result.Outputs[0].Value, "sturdy mug")

	var scenes []Output
	for _, out := range result.Outputs {
		if out.Type == OutputScene {
			scenes = append(scenes, out)
		}
	}
	// The model over-generated; the count input wins.
	require.Len(t, scenes, 1)
	assert.Equal(t, "Mug on desk", scenes[0].SceneDescription)
	assert.Equal(t, "slow zoom", scenes[0].VideoMotion)
	assert.Equal(t, "Morning fuel", scenes[0].AdCopy)
}

func TestAdVideoMakerValidate(t *testing.T) {
	maker := NewAdVideoMaker()

	err := maker.Validate(Inputs{"product_description": "a mug"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product photo")

	err = maker.Validate(Inputs{"reference_image": "http://cdn.test/ref.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product description")

	assert.NoError(t, maker.Validate(Inputs{
		"reference_image":     "http://cdn.test/ref.png",
		"product_description": "a mug",
	}))
}

func TestStitchPlan(t *testing.T) {
	maker := NewAdVideoMaker()
	plan := maker.stitchPlan(
		[]SceneDraft{
			{SceneDescription: "desk", AdCopy: "Morning fuel"},
			{SceneDescription: "hand"},
			{SceneDescription: "shelf", AdCopy: "Built to last"},
		},
		[]string{"http://cdn.test/a.mp4", "", "http://cdn.test/c.mp4"},
	)

	assert.Contains(t, plan, "1. [00:00-00:08] Scene 1 - overlay: Morning fuel")
	assert.NotContains(t, plan, "Scene 2")
	assert.Contains(t, plan, "3. [00:08-00:16] Scene 3 - overlay: Built to last")
	assert.Contains(t, plan, "Total runtime: 16s")
}

func TestContentMachineScriptOnly(t *testing.T) {
	setupRecipesDB(t)
	run := newRun(t, "content-machine")

	deps := Deps{Agent: agent.NewServiceWithCompleter(&scriptedCompleter{
		completeJSON: func(prompt string) (string, error) {
			switch {
			case strings.Contains(prompt, "research assistant"):
				return `{"summary":"Cold brew is steeped for 12-24 hours.","key_points":["less acidic","served cold"],"angles":["myth-busting"]}`, nil
			case strings.Contains(prompt, "storyboard artist"):
				return `[{"scene_number":1,"timestamp":"0-5s","script_line":"Stop scrolling","visual_prompt":"Close-up of coffee dripping"},` +
					`{"scene_number":2,"timestamp":"5-15s","script_line":"Here is why","visual_prompt":"Glass jar steeping on a counter"},` +
					`{"scene_number":3,"timestamp":"15-30s","script_line":"Try it","visual_prompt":"Pouring cold brew over ice"}]`, nil
			default:
				return `[{"hook":"Stop scrolling","body":"Stop scrolling\nCold brew changes everything.","estimated_seconds":30,"notes":"keep it fast"}]`, nil
			}
		},
	})}

	machine := NewContentMachine()
	result, err := machine.Execute(context.Background(), &Execution{
		Run: run,
		Inputs: Inputs{
			"topic":           "Cold brew coffee at home",
			"script_type":     "tiktok_full",
			"num_scenes":      "3",
			"aspect_ratio":    "9:16",
			"generate_images": "no",
		},
		Phase: PhaseScript,
	}, deps, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Phase)
	assert.Zero(t, result.Cost)

	require.NotEmpty(t, result.Outputs)
	assert.Equal(t, "Run Summary", result.Outputs[0].Title)
	assert.Contains(t, result.Outputs[0].Value, "Topic: Cold brew coffee at home")
	assert.Contains(t, result.Outputs[0].Value, "Scenes: 3")

	var sceneCount int
	var sawResearch, sawScript bool
	for _, out := range result.Outputs {
		switch {
		case out.Type == OutputScene:
			sceneCount++
			assert.NotEmpty(t, out.SceneDescription)
			assert.NotEmpty(t, out.AdCopy)
		case out.Title == "Research Summary":
			sawResearch = true
			assert.Contains(t, out.Value, "steeped for 12-24 hours")
		case strings.HasPrefix(out.Title, "Script ("):
			sawScript = true
			assert.Contains(t, out.Value, "Cold brew changes everything.")
		}
	}
	assert.Equal(t, 3, sceneCount)
	assert.True(t, sawResearch)
	assert.True(t, sawScript)
}
