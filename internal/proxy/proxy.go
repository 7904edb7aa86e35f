// Package proxy resolves a profile, translates the canonical request
// into an upstream dialect, forwards it, and translates the response
// back. It mirrors the shape of gpt-load's internal/proxy (a server
// struct holding its collaborators, one HandleX method per external
// verb, request/response helpers split into their own files)
// generalized from gpt-load's group/key-pool model to this proxy's
// single profile-per-request resolution.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/channel"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/configstore"
	apperrors "github.com/Silver-Larry/droid-byok-unleashed/internal/errors"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/profile"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/reasoning"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/response"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/thinkingbus"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/utils"
)

// DefaultUpstreamTimeout is the configurable overall timeout (default
// 10 min) that aborts long-idle upstreams.
const DefaultUpstreamTimeout = 10 * time.Minute

// maxUpstreamErrorBody caps how much of a non-2xx upstream body is
// relayed verbatim, mirroring gpt-load's maxUpstreamErrorBodySize.
const maxUpstreamErrorBody = 64 * 1024

// Router owns the request pipeline: profile resolution, dialect
// translation, upstream dispatch, and response streaming.
type Router struct {
	Config          *configstore.Service
	Bus             *thinkingbus.Bus
	Client          *http.Client
	UpstreamTimeout time.Duration
}

// New constructs a Router. client may be nil, in which case a client
// with DefaultUpstreamTimeout is created.
func New(config *configstore.Service, bus *thinkingbus.Bus, client *http.Client) *Router {
	if client == nil {
		client = &http.Client{Timeout: DefaultUpstreamTimeout}
	}
	return &Router{Config: config, Bus: bus, Client: client, UpstreamTimeout: DefaultUpstreamTimeout}
}

// chatCompletionRequest is the client-facing OpenAI chat-completions
// request body this proxy accepts on POST /v1/chat/completions.
type chatCompletionRequest struct {
	Model            string     `json:"model"`
	Messages         []rawMsg   `json:"messages"`
	Stream           bool       `json:"stream"`
	Temperature      *float64   `json:"temperature"`
	TopP             *float64   `json:"top_p"`
	TopK             *int       `json:"top_k"`
	MaxTokens        *int       `json:"max_tokens"`
	PresencePenalty  *float64   `json:"presence_penalty"`
	FrequencyPenalty *float64   `json:"frequency_penalty"`
	Seed             *int       `json:"seed"`
	Stop             []string   `json:"stop"`
}

type rawMsg struct {
	Role    types.Role `json:"role"`
	Content string     `json:"content"`
}

func (r chatCompletionRequest) toCanonical() types.CanonicalRequest {
	messages := make([]types.Message, len(r.Messages))
	for i, m := range r.Messages {
		messages[i] = types.Message{Role: m.Role, Content: m.Content}
	}
	return types.CanonicalRequest{
		Model:    r.Model,
		Messages: messages,
		Stream:   r.Stream,
		Sampling: types.LLMParams{
			Temperature:      r.Temperature,
			TopP:             r.TopP,
			TopK:             r.TopK,
			MaxTokens:        r.MaxTokens,
			PresencePenalty:  r.PresencePenalty,
			FrequencyPenalty: r.FrequencyPenalty,
			Seed:             r.Seed,
			Stop:             r.Stop,
		},
	}
}

// resolved bundles everything profile resolution and target override
// produce, so the streaming and non-streaming paths don't repeat it.
type resolved struct {
	adapter   channel.Adapter
	baseURL   string
	apiKey    string
	format    types.APIFormat
	reasoning types.ReasoningSpec
}

// HandleChatCompletions implements POST /v1/chat/completions.
func (rt *Router) HandleChatCompletions(c *gin.Context) {
	buf := utils.GetBuffer()
	defer utils.PutBuffer(buf)
	if _, err := buf.ReadFrom(c.Request.Body); err != nil {
		response.Error(c, apperrors.NewValidationError("failed to read request body"))
		return
	}

	var raw chatCompletionRequest
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		response.Error(c, apperrors.NewValidationError("invalid JSON: "+err.Error()))
		return
	}
	if raw.Model == "" {
		response.Error(c, apperrors.NewValidationError("model is required"))
		return
	}

	canonical := raw.toCanonical()

	profiles := rt.Config.Profiles()
	p, err := profiles.Resolve(canonical.Model)
	if err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrNoProfileMatch, err.Error()))
		return
	}
	c.Set("resolved_model", canonical.Model)
	c.Set("resolved_profile_id", p.ID)

	res, err := rt.resolveTarget(c, p)
	if err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrConfigInvalid, err.Error()))
		return
	}

	canonical.Sampling = types.LLMParams{}.Merge(p.LLMParams).Merge(canonical.Sampling)
	canonical.Reasoning = &res.reasoning

	reasoningFragment := reasoning.Build(&res.reasoning)
	path, body, err := res.adapter.BuildRequest(canonical, reasoningFragment)
	if err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrInternal, "failed to build upstream request: "+err.Error()))
		return
	}

	upstreamURL, err := buildUpstreamURL(res.baseURL, path, res.format, res.apiKey)
	if err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrConfigInvalid, err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), rt.UpstreamTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(body))
	if err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrInternal, "failed to build upstream HTTP request"))
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, vv := range res.adapter.Headers(res.apiKey) {
		for _, v := range vv {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := rt.Client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil && c.Request.Context().Err() != nil {
			// Client disconnected mid-dispatch: stay silent, no error
			// response, no failure log.
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			response.Error(c, apperrors.ErrUpstreamTimeout)
			return
		}
		response.Error(c, apperrors.NewAPIError(apperrors.ErrUpstreamConnection, err.Error()))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		relayUpstreamError(c, resp)
		return
	}

	if canonical.Stream {
		rt.streamResponse(c, res, resp)
	} else {
		rt.bufferedResponse(c, res, resp)
	}
}

// resolveTarget applies the per-request header overrides
// (X-Upstream-Base-URL, X-API-Format) on top of p's own upstream.
func (rt *Router) resolveTarget(c *gin.Context, p *profile.Profile) (resolved, error) {
	format := p.Upstream.APIFormat
	if override := c.GetHeader("X-API-Format"); override != "" {
		format = types.APIFormat(override)
	}
	if !format.IsValid() {
		return resolved{}, fmt.Errorf("unsupported api_format %q", format)
	}
	adapter, err := channel.Get(format)
	if err != nil {
		return resolved{}, err
	}

	baseURL := p.Upstream.BaseURL
	if override := c.GetHeader("X-Upstream-Base-URL"); override != "" {
		if err := profile.ValidateBaseURL(override); err != nil {
			return resolved{}, err
		}
		baseURL = override
	}

	return resolved{
		adapter:   adapter,
		baseURL:   baseURL,
		apiKey:    p.Upstream.APIKey,
		format:    format,
		reasoning: p.Reasoning,
	}, nil
}

// buildUpstreamURL joins base and path, appending the Gemini-style
// ?key=<key> query for the gemini dialect (its own Headers() is
// intentionally credential-free).
func buildUpstreamURL(base, path string, format types.APIFormat, apiKey string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base_url: %w", err)
	}
	p, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid upstream path: %w", err)
	}
	u.Path = u.Path + p.Path
	u.RawQuery = p.RawQuery

	if format == types.FormatGemini && apiKey != "" {
		q := u.Query()
		q.Set("key", apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// relayUpstreamError surfaces a non-2xx upstream response to the
// client verbatim: upstream status and body relayed unchanged.
func relayUpstreamError(c *gin.Context, resp *http.Response) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamErrorBody))
	if err != nil {
		logrus.WithError(err).Warn("failed to read upstream error body")
	}
	c.Data(resp.StatusCode, "application/json", body)
}
