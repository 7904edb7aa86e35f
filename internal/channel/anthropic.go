package channel

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

func init() {
	Register(types.FormatAnthropic, func() Adapter { return &anthropicAdapter{} })
}

// anthropicAdapter implements the Anthropic Messages dialect: every
// system message is hoisted into the top-level system field (joined
// with newlines, in order), max_tokens is required (default 4096), and
// stop becomes stop_sequences.
type anthropicAdapter struct{}

func (a *anthropicAdapter) Format() types.APIFormat { return types.FormatAnthropic }

func (a *anthropicAdapter) BuildRequest(req types.CanonicalRequest, reasoning map[string]any) (string, []byte, error) {
	var system string
	messages := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == types.RoleSystem {
			if system != "" {
				system += "\n"
			}
			system += m.Content
			continue
		}
		messages = append(messages, map[string]any{
			"role": string(m.Role),
			"content": []map[string]any{
				{"type": "text", "text": m.Content},
			},
		})
	}

	maxTokens := 4096
	if req.Sampling.MaxTokens != nil {
		maxTokens = *req.Sampling.MaxTokens
	}

	body := map[string]any{
		"model":      req.Model,
		"messages":   messages,
		"max_tokens": maxTokens,
		"stream":     req.Stream,
	}
	if system != "" {
		body["system"] = system
	}
	if req.Sampling.Temperature != nil {
		body["temperature"] = *req.Sampling.Temperature
	}
	if req.Sampling.TopP != nil {
		body["top_p"] = *req.Sampling.TopP
	}
	if req.Sampling.TopK != nil {
		body["top_k"] = *req.Sampling.TopK
	}
	if len(req.Sampling.Stop) > 0 {
		body["stop_sequences"] = req.Sampling.Stop
	}
	for k, v := range reasoning {
		body[k] = v
	}

	raw, err := json.Marshal(body)
	return "/v1/messages", raw, err
}

func (a *anthropicAdapter) Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("x-api-key", apiKey)
	h.Set("anthropic-version", "2023-06-01")
	h.Set("Content-Type", "application/json")
	return h
}

// ParseStream decodes Anthropic's named-event SSE stream:
// content_block_delta carries either a text_delta (canonical content)
// or a thinking_delta (canonical reasoning_content); message_stop ends
// the stream. Mirrors gpt-load's event/data line-pairing in
// internal/proxy/response_handlers.go.
func (a *anthropicAdapter) ParseStream(r io.Reader, emit func(types.CanonicalStreamEvent)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if !a.dispatch(eventType, data, emit) {
				return nil
			}
			eventType = ""
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (a *anthropicAdapter) dispatch(eventType, data string, emit func(types.CanonicalStreamEvent)) bool {
	var payload struct {
		Type  string `json:"type"`
		Delta struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			Thinking string `json:"thinking"`
		} `json:"delta"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return true
	}
	t := payload.Type
	if t == "" {
		t = eventType
	}
	switch t {
	case "content_block_delta":
		switch payload.Delta.Type {
		case "text_delta":
			emit(types.CanonicalStreamEvent{Kind: types.EventDelta, Content: payload.Delta.Text})
		case "thinking_delta":
			emit(types.CanonicalStreamEvent{Kind: types.EventDelta, ReasoningContent: payload.Delta.Thinking})
		}
	case "message_stop":
		emit(types.CanonicalStreamEvent{Kind: types.EventDone})
		return false
	}
	return true
}

func (a *anthropicAdapter) ParseNonStream(body []byte) (types.CanonicalStreamEvent, error) {
	var resp struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.CanonicalStreamEvent{}, err
	}
	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	return types.CanonicalStreamEvent{
		Kind:         types.EventDelta,
		Model:        resp.Model,
		Content:      content,
		FinishReason: mapAnthropicStopReason(resp.StopReason),
	}, nil
}

// mapAnthropicStopReason mirrors original_source/api_format_adapter.py's
// _map_stop_reason.
func mapAnthropicStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return "stop"
	}
}
