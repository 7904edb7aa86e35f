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
	Register(types.FormatGemini, func() Adapter { return &geminiAdapter{} })
}

// geminiAdapter implements Google's generateContent/streamGenerateContent
// dialect: messages become contents, system messages are concatenated
// into systemInstruction, and sampling moves under generationConfig.
type geminiAdapter struct{}

func (a *geminiAdapter) Format() types.APIFormat { return types.FormatGemini }

func (a *geminiAdapter) BuildRequest(req types.CanonicalRequest, reasoning map[string]any) (string, []byte, error) {
	var systemParts []string
	contents := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == types.RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}
		role := "user"
		if m.Role == types.RoleAssistant {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]any{{"text": m.Content}},
		})
	}

	body := map[string]any{"contents": contents}
	if len(systemParts) > 0 {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": strings.Join(systemParts, "\n")}},
		}
	}

	gc := map[string]any{}
	if req.Sampling.Temperature != nil {
		gc["temperature"] = *req.Sampling.Temperature
	}
	if req.Sampling.TopP != nil {
		gc["topP"] = *req.Sampling.TopP
	}
	if req.Sampling.TopK != nil {
		gc["topK"] = *req.Sampling.TopK
	}
	if req.Sampling.MaxTokens != nil {
		gc["maxOutputTokens"] = *req.Sampling.MaxTokens
	}
	if len(req.Sampling.Stop) > 0 {
		gc["stopSequences"] = req.Sampling.Stop
	}
	for k, v := range reasoning {
		gc[k] = v
	}
	if len(gc) > 0 {
		body["generationConfig"] = gc
	}

	method := "generateContent"
	if req.Stream {
		method = "streamGenerateContent"
	}
	path := "/v1beta/models/" + req.Model + ":" + method

	raw, err := json.Marshal(body)
	return path, raw, err
}

func (a *geminiAdapter) Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	// Gemini is authenticated via a ?key= query parameter; the router
	// appends it to the URL rather than a header. The header set here
	// is intentionally credential-free.
	return h
}

// ParseStream decodes Gemini's newline-delimited JSON response. Each
// line (after stripping the enclosing-array decoration some upstreams
// add) is one candidate object; finishReason is carried through and a
// [DONE] sentinel is synthesized at EOF.
func (a *geminiAdapter) ParseStream(r io.Reader, emit func(types.CanonicalStreamEvent)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "data:")
		line = strings.TrimSpace(line)
		line = strings.Trim(line, ",")
		line = strings.TrimPrefix(line, "[")
		line = strings.TrimSuffix(line, "]")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ev, err := a.decodeChunk(line)
		if err != nil {
			continue
		}
		emit(ev)
	}
	emit(types.CanonicalStreamEvent{Kind: types.EventDone})
	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (a *geminiAdapter) decodeChunk(line string) (types.CanonicalStreamEvent, error) {
	var chunk geminiChunk
	if err := json.Unmarshal([]byte(line), &chunk); err != nil {
		return types.CanonicalStreamEvent{}, err
	}
	ev := types.CanonicalStreamEvent{Kind: types.EventDelta, Model: chunk.ModelVersion}
	if len(chunk.Candidates) > 0 {
		cand := chunk.Candidates[0]
		for _, p := range cand.Content.Parts {
			if p.Thought {
				ev.ReasoningContent += p.Text
			} else {
				ev.Content += p.Text
			}
		}
		if cand.FinishReason == "MAX_TOKENS" {
			ev.FinishReason = "length"
		} else if cand.FinishReason != "" {
			ev.FinishReason = "stop"
		}
	}
	return ev, nil
}

func (a *geminiAdapter) ParseNonStream(body []byte) (types.CanonicalStreamEvent, error) {
	var chunk geminiChunk
	if err := json.Unmarshal(body, &chunk); err != nil {
		return types.CanonicalStreamEvent{}, err
	}
	ev := types.CanonicalStreamEvent{Kind: types.EventDelta, Model: chunk.ModelVersion}
	if len(chunk.Candidates) > 0 {
		cand := chunk.Candidates[0]
		for _, p := range cand.Content.Parts {
			ev.Content += p.Text
		}
		if cand.FinishReason == "MAX_TOKENS" {
			ev.FinishReason = "length"
		} else {
			ev.FinishReason = "stop"
		}
	}
	return ev, nil
}

type geminiChunk struct {
	ModelVersion string `json:"modelVersion"`
	Candidates   []struct {
		Content struct {
			Parts []struct {
				Text    string `json:"text"`
				Thought bool   `json:"thought"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}
