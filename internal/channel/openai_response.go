package channel

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

func init() {
	Register(types.FormatOpenAIResponse, func() Adapter { return &openaiResponseAdapter{} })
}

// openaiResponseAdapter implements the OpenAI Response API shape:
// messages become an input array of input_text blocks, and
// max_tokens becomes max_output_tokens.
type openaiResponseAdapter struct{}

func (a *openaiResponseAdapter) Format() types.APIFormat { return types.FormatOpenAIResponse }

func (a *openaiResponseAdapter) BuildRequest(req types.CanonicalRequest, reasoning map[string]any) (string, []byte, error) {
	input := make([]map[string]any, len(req.Messages))
	for i, m := range req.Messages {
		input[i] = map[string]any{
			"role": string(m.Role),
			"content": []map[string]any{
				{"type": "input_text", "text": m.Content},
			},
		}
	}
	body := map[string]any{
		"model":  req.Model,
		"input":  input,
		"stream": req.Stream,
	}
	if req.Sampling.MaxTokens != nil {
		body["max_output_tokens"] = *req.Sampling.MaxTokens
	}
	if req.Sampling.Temperature != nil {
		body["temperature"] = *req.Sampling.Temperature
	}
	if req.Sampling.TopP != nil {
		body["top_p"] = *req.Sampling.TopP
	}
	for k, v := range reasoning {
		body[k] = v
	}
	raw, err := json.Marshal(body)
	return "/v1/responses", raw, err
}

func (a *openaiResponseAdapter) Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+apiKey)
	h.Set("Content-Type", "application/json")
	return h
}

func (a *openaiResponseAdapter) ParseStream(r io.Reader, emit func(types.CanonicalStreamEvent)) error {
	return scanSSE(r, func(data string) bool {
		if data == "[DONE]" {
			emit(types.CanonicalStreamEvent{Kind: types.EventDone})
			return false
		}
		var ev struct {
			Type  string `json:"type"`
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return true
		}
		if ev.Type == "response.output_text.delta" {
			emit(types.CanonicalStreamEvent{Kind: types.EventDelta, Content: ev.Delta})
		}
		if ev.Type == "response.completed" {
			emit(types.CanonicalStreamEvent{Kind: types.EventDone})
			return false
		}
		return true
	})
}

func (a *openaiResponseAdapter) ParseNonStream(body []byte) (types.CanonicalStreamEvent, error) {
	var resp struct {
		Model  string `json:"model"`
		Output string `json:"output"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.CanonicalStreamEvent{}, err
	}
	return types.CanonicalStreamEvent{Kind: types.EventDelta, Model: resp.Model, Content: resp.Output}, nil
}
