package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videobuds/backend/internal/models"
)

func TestWriteScriptParsesVariants(t *testing.T) {
	stub := &stubCompleter{response: `[
		{"hook":"Stop scrolling.","body":"Stop scrolling.\nHere is why.","estimated_seconds":12,"notes":"Punch the first word."},
		{"hook":"I tried it.","body":"I tried it.\nIt worked.","estimated_seconds":14,"notes":"Keep it casual."}
	]`}
	svc := NewServiceWithCompleter(stub)

	batch, err := svc.WriteScript(context.Background(), WriteScriptInput{
		Topic:       "protein bar launch",
		ScriptType:  "tiktok_hook",
		NumVariants: 2,
	})
	require.NoError(t, err)
	require.Len(t, batch.Scripts, 2)
	assert.Equal(t, "Stop scrolling.", batch.Scripts[0].Hook)
	assert.Equal(t, 12, batch.Scripts[0].EstimatedSeconds)
	assert.Equal(t, 5, batch.Scripts[0].WordCount)
	assert.Equal(t, "Default", batch.PersonaName)

	assert.Contains(t, stub.prompts[0], "TOPIC: protein bar launch")
	assert.Contains(t, stub.prompts[0], "Variant 2: Story-driven")
	assert.NotContains(t, stub.prompts[0], "Variant 3")
}

func TestWriteScriptRecoversArrayFromProse(t *testing.T) {
	svc := NewServiceWithCompleter(&stubCompleter{
		response: `Here are your scripts: [{"hook":"H","body":"H\nB","estimated_seconds":10,"notes":""}] Enjoy!`,
	})
	batch, err := svc.WriteScript(context.Background(), WriteScriptInput{
		Topic: "anything", ScriptType: "ad_script", NumVariants: 1,
	})
	require.NoError(t, err)
	require.Len(t, batch.Scripts, 1)
	assert.Equal(t, "H", batch.Scripts[0].Hook)
	assert.Equal(t, "Ad / UGC Script", batch.Scripts[0].Label)
}

func TestWriteScriptFallbackOnGarbage(t *testing.T) {
	svc := NewServiceWithCompleter(&stubCompleter{response: "no json here"})
	batch, err := svc.WriteScript(context.Background(), WriteScriptInput{
		Topic: "anything", ScriptType: "unknown-type", NumVariants: 3,
	})
	require.NoError(t, err)
	require.Len(t, batch.Scripts, 1)
	assert.Equal(t, defaultScriptType, batch.Scripts[0].ScriptType)
	assert.Contains(t, batch.Scripts[0].Body, "generation failed")
}

func TestWriteScriptClampsVariants(t *testing.T) {
	stub := &stubCompleter{response: `[]`}
	svc := NewServiceWithCompleter(stub)
	_, err := svc.WriteScript(context.Background(), WriteScriptInput{
		Topic: "t", ScriptType: "tiktok_full", NumVariants: 99,
	})
	require.NoError(t, err)
	assert.Contains(t, stub.prompts[0], "Write 5 different script variant(s)")
}

func TestWriteScriptUsesPersonaVoice(t *testing.T) {
	stub := &stubCompleter{response: `[{"hook":"h","body":"b"}]`}
	svc := NewServiceWithCompleter(stub)

	persona := &models.UserPersona{
		Name:           "Maya",
		TonePreference: "playful",
		Occupation:     "fitness coach",
	}
	batch, err := svc.WriteScript(context.Background(), WriteScriptInput{
		Topic: "t", ScriptType: "tiktok_hook", NumVariants: 1, Persona: persona,
	})
	require.NoError(t, err)
	assert.Equal(t, "Maya", batch.PersonaName)
	assert.Contains(t, stub.prompts[0], "VOICE & PERSONALITY")
}

func TestRewriteScriptKeepsOriginalOnFailure(t *testing.T) {
	svc := NewServiceWithCompleter(&stubCompleter{response: "not json"})
	result := svc.RewriteScript(context.Background(), "original body", "make it shorter", "tiktok_hook", nil, nil)
	assert.Equal(t, "original body", result.Body)
	assert.Contains(t, result.Notes, "Rewrite failed")
}

func TestRewriteScriptAppliesImprovement(t *testing.T) {
	stub := &stubCompleter{response: `{"hook":"Better hook","body":"Better hook\nBetter body","estimated_seconds":20,"notes":"Tightened pacing."}`}
	svc := NewServiceWithCompleter(stub)

	result := svc.RewriteScript(context.Background(), "old", "punchier", "talking_head", nil, nil)
	assert.Equal(t, "Better hook", result.Hook)
	assert.Equal(t, 20, result.EstimatedSeconds)
	assert.Contains(t, stub.prompts[0], "USER FEEDBACK: punchier")
}

func TestScriptToScenesParsesModelOutput(t *testing.T) {
	svc := NewServiceWithCompleter(&stubCompleter{response: `[
		{"scene_number":1,"timestamp":"0-5s","script_line":"Stop scrolling.","visual_prompt":"close-up of hands"},
		{"scene_number":2,"timestamp":"5-10s","script_line":"Here is why.","visual_prompt":"wide shot of kitchen"}
	]`})
	scenes := svc.ScriptToScenes(context.Background(), "Stop scrolling.\nHere is why.", 2, "9:16", nil, nil)
	require.Len(t, scenes, 2)
	assert.Equal(t, "close-up of hands", scenes[0].VisualPrompt)
}

func TestScriptToScenesFallbackSplitsScript(t *testing.T) {
	svc := NewServiceWithCompleter(&stubCompleter{response: "garbage"})
	scenes := svc.ScriptToScenes(context.Background(), "line one\nline two\nline three", 3, "16:9", nil, nil)
	require.Len(t, scenes, 3)
	assert.Equal(t, 1, scenes[0].SceneNumber)
	assert.Equal(t, "0-5s", scenes[0].Timestamp)
	assert.Contains(t, scenes[0].VisualPrompt, "line one")
}

func TestResearchTopicFallback(t *testing.T) {
	svc := NewServiceWithCompleter(&stubCompleter{response: "not json"})
	research := svc.ResearchTopic(context.Background(), "", "our new flavor drop", "")
	assert.Equal(t, "our new flavor drop", research.Summary)
	assert.Empty(t, research.KeyPoints)
}

func TestResearchTopicParsesJSON(t *testing.T) {
	svc := NewServiceWithCompleter(&stubCompleter{
		response: `{"summary":"A summary.","key_points":["p1","p2"],"angles":["contrarian take"]}`,
	})
	research := svc.ResearchTopic(context.Background(), "", "topic", "")
	assert.Equal(t, "A summary.", research.Summary)
	assert.Len(t, research.KeyPoints, 2)
	assert.Equal(t, []string{"contrarian take"}, research.Angles)
}

func TestScriptTypeChoicesStableOrder(t *testing.T) {
	choices := ScriptTypeChoices()
	require.Len(t, choices, len(ScriptTypes))
	assert.Equal(t, "tiktok_hook", choices[0].Value)
	assert.Equal(t, "Newsletter / Email", choices[len(choices)-1].Label)
}
