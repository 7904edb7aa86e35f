// Package reasoning builds the per-dialect JSON fragment that carries a
// ReasoningSpec into an upstream request body, mirroring the
// gpt-load channel package's per-dialect construction of request
// bodies: one switch case per upstream reasoning type.
package reasoning

import (
	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

// Build returns the JSON-able fragment to merge into the upstream
// request body for spec. When spec is nil or Enabled is false, the
// dialect's explicit off-switch is returned (or an empty fragment for
// dialects without one).
func Build(spec *types.ReasoningSpec) map[string]any {
	if spec == nil || !spec.Enabled || spec.Effort == types.EffortNone {
		return offFragment(reasoningType(spec))
	}

	effort := downgrade(reasoningType(spec), spec.Effort)
	budget := resolveBudget(spec)

	var frag map[string]any
	switch reasoningType(spec) {
	case types.ReasoningDeepSeek:
		frag = map[string]any{"thinking": map[string]any{"type": "enabled"}}
	case types.ReasoningOpenAI:
		frag = map[string]any{"reasoning_effort": string(effort)}
	case types.ReasoningAnthropic:
		frag = map[string]any{
			"thinking": map[string]any{"type": "enabled", "budget_tokens": budget},
		}
	case types.ReasoningGemini:
		tc := map[string]any{"includeThoughts": true}
		if effort == types.EffortAuto {
			tc["thinkingBudget"] = -1
		} else {
			tc["thinkingBudget"] = budget
		}
		frag = map[string]any{"thinkingConfig": tc}
	case types.ReasoningQwen:
		frag = map[string]any{"enable_thinking": true}
	case types.ReasoningOpenRouter:
		frag = map[string]any{
			"reasoning": map[string]any{"enabled": true, "max_tokens": budget},
		}
	case types.ReasoningCustom:
		frag = map[string]any{}
	default:
		frag = map[string]any{}
	}

	if spec.CustomParams != nil {
		frag = DeepMerge(frag, spec.CustomParams)
	}
	return frag
}

func reasoningType(spec *types.ReasoningSpec) types.ReasoningType {
	if spec == nil {
		return ""
	}
	return spec.Type
}

// offFragment is the explicit "off" shape for the dialect, or an empty
// fragment for dialects with no off-switch.
func offFragment(t types.ReasoningType) map[string]any {
	switch t {
	case types.ReasoningDeepSeek:
		return map[string]any{"thinking": map[string]any{"type": "disabled"}}
	case types.ReasoningAnthropic:
		return map[string]any{"thinking": map[string]any{"type": "disabled"}}
	case types.ReasoningGemini:
		return map[string]any{"thinkingConfig": map[string]any{"thinkingBudget": 0}}
	case types.ReasoningQwen:
		return map[string]any{"enable_thinking": false}
	case types.ReasoningOpenRouter:
		return map[string]any{"reasoning": map[string]any{"enabled": false}}
	default:
		// openai: omit; custom: {}
		return map[string]any{}
	}
}

// downgrade maps auto to medium and minimal to low for the openai and
// openrouter types, which accept neither; every other type and effort
// is returned unchanged. Config writes reject unsupported efforts
// outright, but request-time resolution downgrades instead of failing
// the request.
func downgrade(t types.ReasoningType, e types.ReasoningEffort) types.ReasoningEffort {
	switch t {
	case types.ReasoningOpenAI:
		switch e {
		case types.EffortAuto:
			return types.EffortMedium
		case types.EffortMinimal:
			return types.EffortLow
		}
	case types.ReasoningOpenRouter:
		switch e {
		case types.EffortAuto:
			return types.EffortMedium
		case types.EffortMinimal:
			return types.EffortLow
		}
	}
	return e
}

// resolveBudget returns spec.BudgetTokens if set, else the fixed
// effort→budget mapping in EffortBudgets. auto has no fixed budget;
// callers that reach here with auto and no explicit budget fall back
// to the medium tier as the dialect default.
func resolveBudget(spec *types.ReasoningSpec) int {
	if spec.BudgetTokens != nil {
		return *spec.BudgetTokens
	}
	if b, ok := types.EffortBudgets[spec.Effort]; ok {
		return b
	}
	return types.EffortBudgets[types.EffortMedium]
}

// DeepMerge recursively merges override into base: a key whose value in
// both maps is itself a map is merged recursively; any other key is
// overwritten outright. base is not mutated; a new map is returned.
func DeepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if bv, ok := result[k]; ok {
			if bm, bok := bv.(map[string]any); bok {
				if ov, ook := v.(map[string]any); ook {
					result[k] = DeepMerge(bm, ov)
					continue
				}
			}
		}
		result[k] = v
	}
	return result
}
