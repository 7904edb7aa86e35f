package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/configstore"
	apperrors "github.com/Silver-Larry/droid-byok-unleashed/internal/errors"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/profile"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/response"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

func nowUTC() time.Time { return time.Now().UTC() }

// GetProxySettings implements GET /v1/config/proxy.
func (h *Handler) GetProxySettings(c *gin.Context) {
	response.Success(c, h.Config.GetProxySettings())
}

// PutProxySettings implements PUT /v1/config/proxy, returning
// {success, restart_required}.
func (h *Handler) PutProxySettings(c *gin.Context) {
	var next configstore.ProxySettings
	if err := c.ShouldBindJSON(&next); err != nil {
		response.Error(c, apperrors.NewValidationError(err.Error()))
		return
	}
	if next.Port < 1 || next.Port > 65535 {
		response.Error(c, apperrors.NewValidationError("port must be between 1 and 65535"))
		return
	}
	restartRequired, err := h.Config.SetProxySettings(next)
	if err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "restart_required": restartRequired})
}

// ListProfiles implements GET /v1/config/profiles.
func (h *Handler) ListProfiles(c *gin.Context) {
	profiles, defaultID := h.Config.Profiles().Snapshot()
	response.Success(c, gin.H{"profiles": profiles, "default_profile": defaultID})
}

// profileInput is the client-facing shape accepted by create/update, a
// subset of profile.Profile without server-managed timestamps.
type profileInput struct {
	ID            string              `json:"id"`
	Name          string              `json:"name" binding:"required"`
	ModelPatterns []string            `json:"model_patterns"`
	MatchType     profile.MatchType   `json:"match_type" binding:"required"`
	Priority      int                 `json:"priority"`
	Enabled       bool                `json:"enabled"`
	Upstream      profile.Upstream    `json:"upstream"`
	LLMParams     types.LLMParams     `json:"llm_params"`
	Reasoning     types.ReasoningSpec `json:"reasoning"`
}

// CreateProfile implements POST /v1/config/profiles.
func (h *Handler) CreateProfile(c *gin.Context) {
	var in profileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, apperrors.NewValidationError(err.Error()))
		return
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	p := &profile.Profile{
		ID:            in.ID,
		Name:          in.Name,
		ModelPatterns: in.ModelPatterns,
		MatchType:     in.MatchType,
		Priority:      in.Priority,
		Enabled:       in.Enabled,
		Upstream:      in.Upstream,
		LLMParams:     in.LLMParams,
		Reasoning:     in.Reasoning,
		CreatedAt:     nowUTC(),
		UpdatedAt:     nowUTC(),
	}
	if err := h.Config.Profiles().Create(p); err != nil {
		response.Error(c, apperrors.NewConfigInvalidError(err.Error()))
		return
	}
	if err := h.Config.Save(); err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrInternal, err.Error()))
		return
	}
	response.Success(c, p)
}

// GetProfile implements GET /v1/config/profiles/{id}.
func (h *Handler) GetProfile(c *gin.Context) {
	p, ok := h.Config.Profiles().Get(c.Param("id"))
	if !ok {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrNoProfileMatch, "profile not found"))
		return
	}
	response.Success(c, p)
}

// PutProfile implements PUT /v1/config/profiles/{id}.
func (h *Handler) PutProfile(c *gin.Context) {
	id := c.Param("id")
	existing, ok := h.Config.Profiles().Get(id)
	if !ok {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrNoProfileMatch, "profile not found"))
		return
	}

	var in profileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, apperrors.NewValidationError(err.Error()))
		return
	}

	p := &profile.Profile{
		ID:            id,
		Name:          in.Name,
		ModelPatterns: in.ModelPatterns,
		MatchType:     in.MatchType,
		Priority:      in.Priority,
		Enabled:       in.Enabled,
		Upstream:      in.Upstream,
		LLMParams:     in.LLMParams,
		Reasoning:     in.Reasoning,
		CreatedAt:     existing.CreatedAt,
		UpdatedAt:     nowUTC(),
	}
	if err := h.Config.Profiles().Update(id, p); err != nil {
		response.Error(c, apperrors.NewConfigInvalidError(err.Error()))
		return
	}
	if err := h.Config.Save(); err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrInternal, err.Error()))
		return
	}
	response.Success(c, p)
}

// DeleteProfile implements DELETE /v1/config/profiles/{id}.
func (h *Handler) DeleteProfile(c *gin.Context) {
	if err := h.Config.Profiles().Delete(c.Param("id")); err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrNoProfileMatch, err.Error()))
		return
	}
	if err := h.Config.Save(); err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrInternal, err.Error()))
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// TestProfile implements POST /v1/config/profiles/test, a resolution
// dry-run returning {matched, all_matches[]}.
func (h *Handler) TestProfile(c *gin.Context) {
	var in struct {
		Model string `json:"model" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, apperrors.NewValidationError(err.Error()))
		return
	}
	matched, all := h.Config.Profiles().Test(in.Model)
	response.Success(c, gin.H{"matched": matched, "all_matches": all})
}

// PutDefaultProfile implements PUT /v1/config/default-profile.
func (h *Handler) PutDefaultProfile(c *gin.Context) {
	var in struct {
		ProfileID string `json:"profile_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, apperrors.NewValidationError(err.Error()))
		return
	}
	if err := h.Config.Profiles().SetDefault(in.ProfileID); err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrNoProfileMatch, err.Error()))
		return
	}
	if err := h.Config.Save(); err != nil {
		response.Error(c, apperrors.NewAPIError(apperrors.ErrInternal, err.Error()))
		return
	}
	response.Success(c, gin.H{"default_profile": in.ProfileID})
}

// Export implements GET /v1/config/export.
func (h *Handler) Export(c *gin.Context) {
	response.Success(c, h.Config.Export())
}

// Import implements POST /v1/config/import?merge=true|false.
func (h *Handler) Import(c *gin.Context) {
	merge := c.Query("merge") == "true"

	var doc configstore.ExportDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		response.Error(c, apperrors.NewValidationError(err.Error()))
		return
	}
	if err := h.Config.Import(doc, merge); err != nil {
		response.Error(c, apperrors.NewConfigInvalidError(err.Error()))
		return
	}
	response.Success(c, gin.H{"imported": true})
}

// ReasoningTypeInfo describes one reasoning dialect's supported efforts
// for the /v1/config/reasoning/types catalog.
type ReasoningTypeInfo struct {
	Type             types.ReasoningType     `json:"type"`
	Label            string                  `json:"label"`
	SupportedEfforts []types.ReasoningEffort `json:"supported_efforts"`
}

var reasoningLabels = map[types.ReasoningType]string{
	types.ReasoningDeepSeek:   "DeepSeek",
	types.ReasoningOpenAI:     "OpenAI",
	types.ReasoningAnthropic:  "Anthropic",
	types.ReasoningGemini:     "Gemini",
	types.ReasoningQwen:       "Qwen",
	types.ReasoningOpenRouter: "OpenRouter",
	types.ReasoningCustom:     "Custom",
}

var reasoningTypeOrder = []types.ReasoningType{
	types.ReasoningDeepSeek, types.ReasoningOpenAI, types.ReasoningAnthropic,
	types.ReasoningGemini, types.ReasoningQwen, types.ReasoningOpenRouter, types.ReasoningCustom,
}

// ReasoningTypes implements GET /v1/config/reasoning/types.
func (h *Handler) ReasoningTypes(c *gin.Context) {
	out := make([]ReasoningTypeInfo, 0, len(reasoningTypeOrder))
	for _, t := range reasoningTypeOrder {
		info := ReasoningTypeInfo{Type: t, Label: reasoningLabels[t]}
		for effort := range types.SupportedEfforts[t] {
			info.SupportedEfforts = append(info.SupportedEfforts, effort)
		}
		out = append(out, info)
	}
	response.Success(c, out)
}
