package channel

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

func init() {
	Register(types.FormatOpenAI, func() Adapter { return &openaiAdapter{} })
}

// openaiAdapter is the identity dialect: canonical request/response and
// OpenAI's chat-completion shape coincide.
type openaiAdapter struct{}

func (a *openaiAdapter) Format() types.APIFormat { return types.FormatOpenAI }

func (a *openaiAdapter) BuildRequest(req types.CanonicalRequest, reasoning map[string]any) (string, []byte, error) {
	body, err := buildChatBody(req)
	if err != nil {
		return "", nil, err
	}
	body, err = mergeFragment(body, reasoning)
	if err != nil {
		return "", nil, err
	}
	return "/v1/chat/completions", body, nil
}

func (a *openaiAdapter) Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+apiKey)
	h.Set("Content-Type", "application/json")
	return h
}

func (a *openaiAdapter) ParseStream(r io.Reader, emit func(types.CanonicalStreamEvent)) error {
	return scanSSE(r, func(data string) bool {
		if data == "[DONE]" {
			emit(types.CanonicalStreamEvent{Kind: types.EventDone})
			return false
		}
		var chunk openaiChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return true
		}
		ev := types.CanonicalStreamEvent{Kind: types.EventDelta, Model: chunk.Model}
		if len(chunk.Choices) > 0 {
			ev.Content = chunk.Choices[0].Delta.Content
			ev.ReasoningContent = chunk.Choices[0].Delta.ReasoningContent
			if chunk.Choices[0].FinishReason != nil {
				ev.FinishReason = *chunk.Choices[0].FinishReason
			}
		}
		emit(ev)
		return true
	})
}

func (a *openaiAdapter) ParseNonStream(body []byte) (types.CanonicalStreamEvent, error) {
	var resp openaiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.CanonicalStreamEvent{}, err
	}
	ev := types.CanonicalStreamEvent{Kind: types.EventDelta, Model: resp.Model}
	if len(resp.Choices) > 0 {
		ev.Content = resp.Choices[0].Message.Content
		ev.FinishReason = resp.Choices[0].FinishReason
	}
	return ev, nil
}

type openaiChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// buildChatBody renders the canonical request into the baseline
// OpenAI-shaped JSON body (messages + sampling passthrough), shared by
// the openai and azure-openai adapters.
func buildChatBody(req types.CanonicalRequest) ([]byte, error) {
	body := map[string]any{
		"model":  req.Model,
		"stream": req.Stream,
	}
	msgs := make([]map[string]any, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = map[string]any{"role": string(m.Role), "content": m.Content}
	}
	body["messages"] = msgs
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return applySampling(raw, req.Sampling)
}

// applySampling merges the non-nil LLMParams fields into raw using
// sjson, matching gpt-load's tidwall/sjson-based JSON patching idiom
// for partial request-body rewrites.
func applySampling(raw []byte, s types.LLMParams) ([]byte, error) {
	var err error
	set := func(path string, v any) {
		if err != nil {
			return
		}
		raw, err = sjson.SetBytes(raw, path, v)
	}
	if s.Temperature != nil {
		set("temperature", *s.Temperature)
	}
	if s.TopP != nil {
		set("top_p", *s.TopP)
	}
	if s.TopK != nil {
		set("top_k", *s.TopK)
	}
	if s.MaxTokens != nil {
		set("max_tokens", *s.MaxTokens)
	}
	if s.PresencePenalty != nil {
		set("presence_penalty", *s.PresencePenalty)
	}
	if s.FrequencyPenalty != nil {
		set("frequency_penalty", *s.FrequencyPenalty)
	}
	if s.Seed != nil {
		set("seed", *s.Seed)
	}
	if len(s.Stop) > 0 {
		set("stop", s.Stop)
	}
	return raw, err
}

// mergeFragment shallow-merges fragment into raw at the top level,
// except that a key whose value is itself an object is deep-merged,
// matching ReasoningBuilder's merge policy.
func mergeFragment(raw []byte, fragment map[string]any) ([]byte, error) {
	if len(fragment) == 0 {
		return raw, nil
	}
	var err error
	for k, v := range fragment {
		if m, ok := v.(map[string]any); ok {
			existing := map[string]any{}
			// gjson/sjson don't expose a typed deep-merge; decode the
			// existing object (if any) and merge in Go before writing
			// back, reading with gjson and writing with sjson rather
			// than a full unmarshal/remarshal of the whole body.
			if res := gjson.GetBytes(raw, k); res.IsObject() {
				_ = json.Unmarshal([]byte(res.Raw), &existing)
			}
			merged := deepMergeAny(existing, m)
			raw, err = sjson.SetBytes(raw, k, merged)
			if err != nil {
				return nil, err
			}
			continue
		}
		raw, err = sjson.SetBytes(raw, k, v)
		if err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func deepMergeAny(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if bv, ok := out[k].(map[string]any); ok {
			if ov, ok := v.(map[string]any); ok {
				out[k] = deepMergeAny(bv, ov)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// scanSSE reads an SSE byte stream line by line and invokes onData for
// each "data: ..." payload. onData returns false to stop scanning
// early (e.g. on a [DONE] sentinel).
func scanSSE(r io.Reader, onData func(data string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if !onData(data) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}
