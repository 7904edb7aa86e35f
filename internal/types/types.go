// Package types defines the canonical request/response shapes shared
// across the profile store, format adapters and the router.
package types

import "time"

// Role identifies the speaker of a canonical message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// APIFormat is the wire-protocol dialect of an upstream.
type APIFormat string

const (
	FormatOpenAI         APIFormat = "openai"
	FormatOpenAIResponse APIFormat = "openai-response"
	FormatAnthropic      APIFormat = "anthropic"
	FormatGemini         APIFormat = "gemini"
	FormatAzureOpenAI    APIFormat = "azure-openai"
)

// IsValid reports whether f is one of the known dialects.
func (f APIFormat) IsValid() bool {
	switch f {
	case FormatOpenAI, FormatOpenAIResponse, FormatAnthropic, FormatGemini, FormatAzureOpenAI:
		return true
	default:
		return false
	}
}

// ReasoningType selects the upstream dialect's reasoning knob.
type ReasoningType string

const (
	ReasoningDeepSeek   ReasoningType = "deepseek"
	ReasoningOpenAI     ReasoningType = "openai"
	ReasoningAnthropic  ReasoningType = "anthropic"
	ReasoningGemini     ReasoningType = "gemini"
	ReasoningQwen       ReasoningType = "qwen"
	ReasoningOpenRouter ReasoningType = "openrouter"
	ReasoningCustom     ReasoningType = "custom"
)

// ReasoningEffort is the coarse reasoning-budget knob.
type ReasoningEffort string

const (
	EffortNone    ReasoningEffort = "none"
	EffortMinimal ReasoningEffort = "minimal"
	EffortLow     ReasoningEffort = "low"
	EffortMedium  ReasoningEffort = "medium"
	EffortHigh    ReasoningEffort = "high"
	EffortAuto    ReasoningEffort = "auto"
)

// SupportedEfforts lists the efforts legal for each reasoning type.
// Config writes are rejected outright if the chosen effort isn't in
// this set; request-time resolution instead downgrades (see
// reasoning.Build).
var SupportedEfforts = map[ReasoningType]map[ReasoningEffort]bool{
	ReasoningDeepSeek: {EffortNone: true, EffortAuto: true},
	ReasoningOpenAI: {
		EffortMinimal: true, EffortLow: true, EffortMedium: true, EffortHigh: true,
	},
	ReasoningAnthropic: {
		EffortNone: true, EffortLow: true, EffortMedium: true, EffortHigh: true,
	},
	ReasoningGemini: {
		EffortNone: true, EffortLow: true, EffortMedium: true, EffortHigh: true, EffortAuto: true,
	},
	ReasoningQwen: {
		EffortNone: true, EffortLow: true, EffortMedium: true, EffortHigh: true,
	},
	ReasoningOpenRouter: {
		EffortNone: true, EffortLow: true, EffortMedium: true, EffortHigh: true,
	},
	// custom accepts any effort; the dialect has no fixed vocabulary.
}

// EffortIsSupported reports whether effort is legal for the given type.
// The custom type has no effort vocabulary of its own and always accepts.
func EffortIsSupported(t ReasoningType, e ReasoningEffort) bool {
	if t == ReasoningCustom {
		return true
	}
	set, ok := SupportedEfforts[t]
	if !ok {
		return false
	}
	return set[e]
}

// EffortBudgets maps effort to a token budget when budget_tokens is
// absent. auto has no fixed entry — callers must use the dialect's own
// default/sentinel instead.
var EffortBudgets = map[ReasoningEffort]int{
	EffortMinimal: 1024,
	EffortLow:     4096,
	EffortMedium:  16384,
	EffortHigh:    32768,
}

// ReasoningSpec is the canonical reasoning configuration for a request.
type ReasoningSpec struct {
	Enabled            bool            `json:"enabled"`
	Type               ReasoningType   `json:"type"`
	Effort             ReasoningEffort `json:"effort"`
	BudgetTokens       *int            `json:"budget_tokens,omitempty"`
	CustomParams       map[string]any  `json:"custom_params,omitempty"`
	FilterThinkingTags bool            `json:"filter_thinking_tags"`
}

// LLMParams holds the sampling options this proxy recognizes and
// forwards to upstream dialects.
type LLMParams struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	TopK             *int     `json:"top_k,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	Seed             *int     `json:"seed,omitempty"`
	Stop             []string `json:"stop,omitempty"`
}

// Merge overlays non-nil fields of override onto base, returning a new
// value. Callers chain this to implement request > profile.llm_params
// > proxy defaults precedence.
func (base LLMParams) Merge(override LLMParams) LLMParams {
	out := base
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.TopK != nil {
		out.TopK = override.TopK
	}
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	if override.PresencePenalty != nil {
		out.PresencePenalty = override.PresencePenalty
	}
	if override.FrequencyPenalty != nil {
		out.FrequencyPenalty = override.FrequencyPenalty
	}
	if override.Seed != nil {
		out.Seed = override.Seed
	}
	if len(override.Stop) > 0 {
		out.Stop = override.Stop
	}
	return out
}

// Message is a single canonical chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CanonicalRequest is the internal representation of an inbound chat
// completion request, independent of upstream dialect.
type CanonicalRequest struct {
	Model     string         `json:"model"`
	Messages  []Message      `json:"messages"`
	Stream    bool           `json:"stream"`
	Sampling  LLMParams      `json:"-"`
	Reasoning *ReasoningSpec `json:"-"`
}

// StreamEventKind discriminates a CanonicalStreamEvent.
type StreamEventKind string

const (
	EventDelta StreamEventKind = "delta"
	EventDone  StreamEventKind = "done"
	EventError StreamEventKind = "error"
)

// CanonicalStreamEvent is one normalized SSE event, dialect-agnostic.
type CanonicalStreamEvent struct {
	Kind             StreamEventKind `json:"kind"`
	Content          string          `json:"content,omitempty"`
	ReasoningContent string          `json:"reasoning_content,omitempty"`
	Model            string          `json:"model,omitempty"`
	FinishReason     string          `json:"finish_reason,omitempty"`
	Err              string          `json:"error,omitempty"`
}

// ThinkingFragment is one piece of filtered chain-of-thought, published
// to the ThinkingBus.
type ThinkingFragment struct {
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
