// Package handler implements ConfigService's REST surface: /health,
// /v1/models, /v1/thinking/stream, plus the profile/proxy-settings CRUD
// endpoints, mirroring gpt-load's internal/handler package (one file
// per resource, a thin Handler struct holding its collaborators,
// c.ShouldBindJSON + response.Success / response.Error for every verb).
package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/channel"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/configstore"
	apperrors "github.com/Silver-Larry/droid-byok-unleashed/internal/errors"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/response"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/thinkingbus"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

// Handler owns the config/diagnostic REST surface. The chat-completion
// pipeline itself lives in internal/proxy.Router; Handler is everything
// else this proxy exposes over HTTP.
type Handler struct {
	Config *configstore.Service
	Bus    *thinkingbus.Bus
	Client *http.Client
}

// New constructs a Handler. client may be nil, in which case a
// short-timeout client suitable for metadata calls is created.
func New(config *configstore.Service, bus *thinkingbus.Bus, client *http.Client) *Handler {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Handler{Config: config, Bus: bus, Client: client}
}

// Health implements GET /health.
func (h *Handler) Health(c *gin.Context) {
	upstream := ""
	if profiles, defaultID := h.Config.Profiles().Snapshot(); defaultID != "" {
		for _, p := range profiles {
			if p.ID == defaultID {
				upstream = p.Upstream.BaseURL
				break
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "upstream": upstream})
}

// ListModels implements GET /v1/models: a pass-through model list from
// the resolved or default profile's upstream, reshaped into OpenAI's
// {data:[{id,object:"model"}]}.
func (h *Handler) ListModels(c *gin.Context) {
	model := c.Query("model")

	var p *profileRef
	if model != "" {
		if resolved, err := h.Config.Profiles().Resolve(model); err == nil {
			p = &profileRef{resolved.Upstream.BaseURL, resolved.Upstream.APIKey, resolved.Upstream.APIFormat}
		}
	}
	if p == nil {
		profiles, defaultID := h.Config.Profiles().Snapshot()
		for _, pr := range profiles {
			if pr.ID == defaultID {
				p = &profileRef{pr.Upstream.BaseURL, pr.Upstream.APIKey, pr.Upstream.APIFormat}
				break
			}
		}
	}
	if p == nil {
		response.Error(c, apperrors.ErrNoProfileMatch)
		return
	}

	adapter, err := channel.Get(p.format)
	if err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrConfigInvalid, err.Error()))
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, p.baseURL+"/v1/models", nil)
	if err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrInternal, "failed to build models request"))
		return
	}
	for k, vv := range adapter.Headers(p.apiKey) {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrUpstreamConnection, err.Error()))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrUpstreamConnection, "failed to read upstream response"))
		return
	}
	if resp.StatusCode >= 300 {
		c.Data(resp.StatusCode, "application/json", body)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reshapeModelList(body)})
}

type profileRef struct {
	baseURL string
	apiKey  string
	format  types.APIFormat
}

// reshapeModelList extracts an {id, object:"model"} entry per element
// of whatever array-shaped model list the upstream returned (OpenAI's
// own {data:[...]}, Gemini's {models:[...]}, or a bare array), logging
// and returning an empty list rather than failing the request when the
// shape is unrecognized.
func reshapeModelList(body []byte) []gin.H {
	candidates := []string{"data", "models", "@this"}
	for _, path := range candidates {
		arr := gjson.GetBytes(body, path)
		if !arr.IsArray() {
			continue
		}
		out := make([]gin.H, 0, len(arr.Array()))
		for _, item := range arr.Array() {
			id := item.Get("id").String()
			if id == "" {
				id = item.Get("name").String()
			}
			if id == "" {
				continue
			}
			out = append(out, gin.H{"id": id, "object": "model"})
		}
		if len(out) > 0 {
			return out
		}
	}
	logrus.Debug("handler: unrecognized upstream model-list shape, returning empty list")
	return []gin.H{}
}
