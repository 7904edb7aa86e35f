package proxy

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/streamfilter"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

// openAIChunk is the canonical outbound SSE chunk shape this proxy
// emits to clients regardless of upstream dialect: one OpenAI-style
// delta per event, followed by a literal [DONE].
type openAIChunk struct {
	Choices []openAIChoice `json:"choices"`
	Model   string         `json:"model,omitempty"`
}

type openAIChoice struct {
	Delta        openAIDelta `json:"delta"`
	Index        int         `json:"index"`
	FinishReason *string     `json:"finish_reason"`
}

type openAIDelta struct {
	Content string `json:"content,omitempty"`
}

// streamResponse relays resp's body to c as normalized OpenAI-shaped
// SSE, filtering <think> tags and publishing them to the ThinkingBus
// when the resolved profile asks for it. It mirrors gpt-load's
// handleStreamingResponse (header setup, flusher check, read/flush
// loop) but decodes through the dialect adapter and re-encodes into
// the canonical chunk shape instead of copying bytes through.
func (rt *Router) streamResponse(c *gin.Context, res resolved, resp *http.Response) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		logrus.Error("streaming unsupported by the response writer, falling back to buffered response")
		rt.bufferedResponse(c, res, resp)
		return
	}

	var filter *streamfilter.Filter
	if res.reasoning.FilterThinkingTags {
		filter = streamfilter.New()
	}

	write := func(ev types.CanonicalStreamEvent) bool {
		return writeChunk(c, flusher, res, ev)
	}

	emitErr := res.adapter.ParseStream(resp.Body, func(ev types.CanonicalStreamEvent) {
		ev.Model = c.GetString("resolved_model")
		if filter != nil && ev.Kind == types.EventDelta {
			if ev.ReasoningContent != "" {
				rt.publishThinking(ev.ReasoningContent, ev.Model)
			}
			clean, thinking := filter.Write([]byte(ev.Content))
			if len(thinking) > 0 {
				rt.publishThinking(string(thinking), ev.Model)
			}
			ev.Content = string(clean)
		}
		write(ev)
	})

	if filter != nil {
		clean, thinking := filter.Flush()
		if len(thinking) > 0 {
			rt.publishThinking(string(thinking), c.GetString("resolved_model"))
		}
		if len(clean) > 0 {
			write(types.CanonicalStreamEvent{Kind: types.EventDelta, Content: string(clean)})
		}
	}

	if emitErr != nil {
		if c.Request.Context().Err() != nil {
			// Client disconnected mid-stream: stay silent, not a failure.
			return
		}
		write(types.CanonicalStreamEvent{Kind: types.EventError, Err: emitErr.Error()})
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	flusher.Flush()
}

// publishThinking is a no-op when rt.Bus is nil, so Router can be used
// without a ThinkingBus in tests that don't exercise it.
func (rt *Router) publishThinking(content, model string) {
	if rt.Bus == nil || content == "" {
		return
	}
	rt.Bus.Publish(types.ThinkingFragment{Content: content, Model: model, Timestamp: time.Now()})
}

// writeChunk renders one canonical event as a single SSE "data:" frame
// in this proxy's canonical outbound shape. It reports whether the
// write succeeded; streamResponse does not act on the result, since a
// client disconnect already cancels the upstream request's context.
func writeChunk(c *gin.Context, flusher http.Flusher, res resolved, ev types.CanonicalStreamEvent) bool {
	switch ev.Kind {
	case types.EventDelta:
		if ev.Content == "" {
			return true
		}
		chunk := openAIChunk{
			Model: ev.Model,
			Choices: []openAIChoice{{
				Delta: openAIDelta{Content: ev.Content},
				Index: 0,
			}},
		}
		return writeSSE(c, flusher, chunk)
	case types.EventDone:
		reason := ev.FinishReason
		if reason == "" {
			reason = "stop"
		}
		chunk := openAIChunk{
			Model: ev.Model,
			Choices: []openAIChoice{{
				Delta:        openAIDelta{},
				Index:        0,
				FinishReason: &reason,
			}},
		}
		return writeSSE(c, flusher, chunk)
	case types.EventError:
		_, err := fmt.Fprintf(c.Writer, "data: {\"error\":{\"message\":%q,\"type\":\"upstream_error\"}}\n\n", ev.Err)
		if err != nil {
			return false
		}
		flusher.Flush()
		return true
	}
	return true
}

func writeSSE(c *gin.Context, flusher http.Flusher, chunk openAIChunk) bool {
	data, err := marshalChunk(chunk)
	if err != nil {
		logrus.WithError(err).Warn("failed to marshal outbound SSE chunk")
		return true
	}
	if _, err := c.Writer.Write(data); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
