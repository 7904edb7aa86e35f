package proxy

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/streamfilter"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

// openAICompletion is the canonical outbound non-streaming shape,
// mirroring the single "choices[0].message.content" body OpenAI-style
// clients expect regardless of upstream dialect.
type openAICompletion struct {
	Choices []openAIChoiceFull `json:"choices"`
	Model   string             `json:"model,omitempty"`
}

type openAIChoiceFull struct {
	Message      openAIMessage `json:"message"`
	Index        int           `json:"index"`
	FinishReason string        `json:"finish_reason"`
}

type openAIMessage struct {
	Role    types.Role `json:"role"`
	Content string     `json:"content"`
}

// bufferedResponse decodes resp's full body through the dialect
// adapter, strips <think> tags when the resolved profile asks for it,
// publishes any stripped thinking to the ThinkingBus, and writes back
// a single canonical JSON body. Mirrors gpt-load's handleNormalResponse
// (io.ReadAll then one write) generalized to decode/re-encode through
// the canonical shape instead of copying bytes through.
func (rt *Router) bufferedResponse(c *gin.Context, res resolved, resp *http.Response) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.WithError(err).Warn("failed to read buffered upstream response")
		c.Status(http.StatusBadGateway)
		return
	}

	ev, err := res.adapter.ParseNonStream(body)
	if err != nil {
		logrus.WithError(err).Warn("failed to parse buffered upstream response")
		c.Status(http.StatusBadGateway)
		return
	}

	model := c.GetString("resolved_model")
	content := ev.Content
	if res.reasoning.FilterThinkingTags {
		if ev.ReasoningContent != "" {
			rt.publishThinking(ev.ReasoningContent, model)
		}
		filter := streamfilter.New()
		clean, thinking := filter.Write([]byte(content))
		tailClean, tailThinking := filter.Flush()
		content = string(clean) + string(tailClean)
		if t := string(thinking) + string(tailThinking); t != "" {
			rt.publishThinking(t, model)
		}
	}

	reason := ev.FinishReason
	if reason == "" {
		reason = "stop"
	}

	out := openAICompletion{
		Model: model,
		Choices: []openAIChoiceFull{{
			Message:      openAIMessage{Role: types.RoleAssistant, Content: content},
			Index:        0,
			FinishReason: reason,
		}},
	}
	c.JSON(http.StatusOK, out)
}

func marshalChunk(chunk openAIChunk) ([]byte, error) {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(payload)+8)
	out = append(out, "data: "...)
	out = append(out, payload...)
	out = append(out, '\n', '\n')
	return out, nil
}
