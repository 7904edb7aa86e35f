package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// thinkingKeepAlive is the ping interval for the diagnostic stream;
// absent any other traffic, a keep-alive comment line is sent on this
// cadence so intermediaries don't time the connection out.
const thinkingKeepAlive = 15 * time.Second

// thinkingEvent is one frame on /v1/thinking/stream.
type thinkingEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Model   string `json:"model,omitempty"`
}

// ThinkingStream implements GET /v1/thinking/stream: an SSE feed of
// every thinking fragment published to the ThinkingBus after this
// client subscribes, until it disconnects. There is no idle timeout:
// a subscriber that receives no fragments stays attached and gets only
// keep-alive comments.
func (h *Handler) ThinkingStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		logrus.Error("thinking stream: response writer does not support flushing")
		c.Status(http.StatusInternalServerError)
		return
	}

	sub := h.Bus.Subscribe()
	defer h.Bus.Unsubscribe(sub)

	ctx := c.Request.Context()
	for {
		fragments, isKeepAlive, ok := sub.Next(ctx, thinkingKeepAlive)
		if !ok {
			if err := sse.Encode(c.Writer, sse.Event{Data: thinkingEvent{Type: "done"}}); err != nil {
				return
			}
			flusher.Flush()
			return
		}
		if isKeepAlive {
			if _, err := c.Writer.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
			continue
		}
		for _, f := range fragments {
			ev := thinkingEvent{Type: "thinking", Content: f.Content, Model: f.Model}
			if err := sse.Encode(c.Writer, sse.Event{Data: ev}); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}
