package channel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

func TestGet_UnknownFormat(t *testing.T) {
	_, err := Get("bogus")
	assert.Error(t, err)
}

func TestGet_AllSpecDialectsRegistered(t *testing.T) {
	for _, f := range []types.APIFormat{
		types.FormatOpenAI, types.FormatOpenAIResponse, types.FormatAnthropic,
		types.FormatGemini, types.FormatAzureOpenAI,
	} {
		a, err := Get(f)
		require.NoError(t, err)
		assert.Equal(t, f, a.Format())
	}
}

func TestOpenAI_BuildRequest_PassesSamplingThrough(t *testing.T) {
	a, _ := Get(types.FormatOpenAI)
	temp := 0.5
	req := types.CanonicalRequest{
		Model:    "gpt-4",
		Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}},
		Stream:   true,
		Sampling: types.LLMParams{Temperature: &temp},
	}
	path, body, err := a.BuildRequest(req, nil)
	require.NoError(t, err)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Contains(t, string(body), `"temperature":0.5`)
	assert.Contains(t, string(body), `"model":"gpt-4"`)
}

func TestOpenAI_ParseStream_ScenarioE(t *testing.T) {
	a, _ := Get(types.FormatOpenAI)
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"},\"index\":0}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"},\"index\":0}]}\n\n" +
		"data: [DONE]\n\n"
	var events []types.CanonicalStreamEvent
	err := a.ParseStream(strings.NewReader(stream), func(e types.CanonicalStreamEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Hel", events[0].Content)
	assert.Equal(t, "lo", events[1].Content)
	assert.Equal(t, types.EventDone, events[2].Kind)
}

func TestAnthropic_BuildRequest_HoistsSystemMessage(t *testing.T) {
	a, _ := Get(types.FormatAnthropic)
	req := types.CanonicalRequest{
		Model: "claude-sonnet",
		Messages: []types.Message{
			{Role: types.RoleSystem, Content: "be nice"},
			{Role: types.RoleUser, Content: "hi"},
		},
	}
	path, body, err := a.BuildRequest(req, nil)
	require.NoError(t, err)
	assert.Equal(t, "/v1/messages", path)
	s := string(body)
	assert.Contains(t, s, `"system":"be nice"`)
	assert.Contains(t, s, `"max_tokens":4096`)
	assert.NotContains(t, s, "be nice\",\"role\":\"system\"")
}

// Thinking deltas must be distinguished from text deltas on the
// Anthropic dialect.
func TestAnthropic_ParseStream_ScenarioF(t *testing.T) {
	a, _ := Get(types.FormatAnthropic)
	stream := "event: content_block_delta\n" +
		"data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"thinking_delta\",\"thinking\":\"I think\"}}\n\n" +
		"event: content_block_delta\n" +
		"data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"OK\"}}\n\n" +
		"event: message_stop\n" +
		"data: {\"type\":\"message_stop\"}\n\n"

	var events []types.CanonicalStreamEvent
	err := a.ParseStream(strings.NewReader(stream), func(e types.CanonicalStreamEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "I think", events[0].ReasoningContent)
	assert.Equal(t, "", events[0].Content)
	assert.Equal(t, "OK", events[1].Content)
	assert.Equal(t, types.EventDone, events[2].Kind)
}

func TestAnthropic_ParseNonStream_MapsStopReason(t *testing.T) {
	a, _ := Get(types.FormatAnthropic)
	body := []byte(`{"model":"claude-sonnet","content":[{"type":"text","text":"hi there"}],"stop_reason":"max_tokens"}`)
	ev, err := a.ParseNonStream(body)
	require.NoError(t, err)
	assert.Equal(t, "hi there", ev.Content)
	assert.Equal(t, "length", ev.FinishReason)
}

func TestGemini_BuildRequest_SystemInstructionAndPath(t *testing.T) {
	a, _ := Get(types.FormatGemini)
	req := types.CanonicalRequest{
		Model:  "gemini-2.5-pro",
		Stream: true,
		Messages: []types.Message{
			{Role: types.RoleSystem, Content: "be terse"},
			{Role: types.RoleAssistant, Content: "ok"},
			{Role: types.RoleUser, Content: "hi"},
		},
	}
	path, body, err := a.BuildRequest(req, nil)
	require.NoError(t, err)
	assert.Equal(t, "/v1beta/models/gemini-2.5-pro:streamGenerateContent", path)
	s := string(body)
	assert.Contains(t, s, `"systemInstruction"`)
	assert.Contains(t, s, `"role":"model"`)
}

func TestGemini_ParseStream_NDJSON(t *testing.T) {
	a, _ := Get(types.FormatGemini)
	stream := `{"candidates":[{"content":{"parts":[{"text":"Hel"}]}}]}` + "\n" +
		`{"candidates":[{"content":{"parts":[{"text":"lo"}]},"finishReason":"STOP"}]}` + "\n"
	var events []types.CanonicalStreamEvent
	err := a.ParseStream(strings.NewReader(stream), func(e types.CanonicalStreamEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Hel", events[0].Content)
	assert.Equal(t, "lo", events[1].Content)
	assert.Equal(t, "stop", events[1].FinishReason)
	assert.Equal(t, types.EventDone, events[2].Kind)
}

func TestAzure_BuildRequest_DeploymentPath(t *testing.T) {
	a, _ := Get(types.FormatAzureOpenAI)
	req := types.CanonicalRequest{Model: "gpt-4o", Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}}}
	path, _, err := a.BuildRequest(req, nil)
	require.NoError(t, err)
	assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions?api-version=2024-06-01", path)
}

func TestMergeFragment_DeepMergesObjectKeys(t *testing.T) {
	raw := []byte(`{"model":"m","thinking":{"type":"enabled"}}`)
	out, err := mergeFragment(raw, map[string]any{
		"thinking": map[string]any{"budget_tokens": 4096},
	})
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `"type":"enabled"`)
	assert.Contains(t, s, `"budget_tokens":4096`)
}
