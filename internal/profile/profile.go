// Package profile implements the ProfileStore component: routing
// records and the model-name resolution algorithm. The matching and
// priority-sort logic mirrors gpt-load's
// internal/services group management (profiles kept sorted on every
// mutation, looked up under a mutex, readers get an immutable
// snapshot) generalized from groups/keys to routing profiles.
package profile

import (
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

// MatchType selects how a Profile's ModelPatterns are tested.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchWildcard MatchType = "wildcard"
	MatchRegex    MatchType = "regex"
)

// Upstream carries the connection details for a profile's backend.
type Upstream struct {
	BaseURL   string          `json:"base_url"`
	APIKey    string          `json:"api_key"`
	APIFormat types.APIFormat `json:"api_format"`
}

// Profile is a routing and rendering record.
type Profile struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	ModelPatterns []string            `json:"model_patterns"`
	MatchType     MatchType           `json:"match_type"`
	Priority      int                 `json:"priority"`
	Enabled       bool                `json:"enabled"`
	Upstream      Upstream            `json:"upstream"`
	LLMParams     types.LLMParams     `json:"llm_params"`
	Reasoning     types.ReasoningSpec `json:"reasoning"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`

	compiled atomic.Pointer[[]*regexp.Regexp]
}

// Matches reports whether model satisfies one of p's patterns under
// p.MatchType. Regex patterns use Go's RE2 syntax (regexp.Compile,
// case-sensitive) and are anchored at both ends. Wildcard patterns are
// translated to an
// equivalent anchored regex where "*" and "?" match across any
// character, including "/" (fnmatch semantics, not path globbing), so
// a pattern like "anthropic/*" matches "anthropic/claude-3". Both
// forms are compiled lazily on the first Matches call and cached on p
// for every call after, rather than recompiled per request.
func (p *Profile) Matches(model string) bool {
	switch p.MatchType {
	case MatchExact:
		for _, pat := range p.ModelPatterns {
			if pat == model {
				return true
			}
		}
	case MatchWildcard, MatchRegex:
		for _, re := range p.compiledPatterns() {
			if re != nil && re.MatchString(model) {
				return true
			}
		}
	}
	return false
}

// compiledPatterns returns p.ModelPatterns compiled to regexes under
// p.MatchType, caching the result on p so repeated Matches calls don't
// recompile. A pattern that fails to compile yields a nil entry, which
// Matches skips. Concurrent first calls may each compile their own
// copy before one wins the store; the result is the same either way
// since compilation is a pure function of ModelPatterns/MatchType.
func (p *Profile) compiledPatterns() []*regexp.Regexp {
	if cached := p.compiled.Load(); cached != nil {
		return *cached
	}
	out := make([]*regexp.Regexp, len(p.ModelPatterns))
	for i, pat := range p.ModelPatterns {
		var re *regexp.Regexp
		var err error
		switch p.MatchType {
		case MatchWildcard:
			re, err = globToRegexp(pat)
		case MatchRegex:
			re, err = regexp.Compile("^(?:" + pat + ")$")
		}
		if err == nil {
			out[i] = re
		}
	}
	p.compiled.Store(&out)
	return out
}

// globToRegexp translates a shell-style glob into an anchored regex
// with fnmatch semantics: "*" matches any run of characters (including
// "/"), "?" matches exactly one character, and every other rune is
// matched literally.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var b []byte
	b = append(b, '^')
	for _, r := range pattern {
		switch r {
		case '*':
			b = append(b, '.', '*')
		case '?':
			b = append(b, '.')
		default:
			b = append(b, regexp.QuoteMeta(string(r))...)
		}
	}
	b = append(b, '$')
	return regexp.Compile(string(b))
}

// Validate checks that a profile is internally consistent: at least
// one non-empty pattern if enabled, compiling regex patterns, an
// effort legal for the chosen reasoning type, a non-negative budget,
// and a syntactically valid base_url.
func (p *Profile) Validate() error {
	if p.Enabled {
		hasPattern := false
		for _, pat := range p.ModelPatterns {
			if pat != "" {
				hasPattern = true
				break
			}
		}
		if !hasPattern {
			return fmt.Errorf("profile %q: enabled profile needs at least one non-empty pattern", p.ID)
		}
	}
	if p.MatchType == MatchRegex {
		for _, pat := range p.ModelPatterns {
			if _, err := regexp.Compile("^(?:" + pat + ")$"); err != nil {
				return fmt.Errorf("profile %q: invalid regex %q: %w", p.ID, pat, err)
			}
		}
	}
	if p.MatchType == MatchWildcard {
		for _, pat := range p.ModelPatterns {
			if _, err := globToRegexp(pat); err != nil {
				return fmt.Errorf("profile %q: invalid wildcard pattern %q: %w", p.ID, pat, err)
			}
		}
	}
	if !p.Upstream.APIFormat.IsValid() {
		return fmt.Errorf("profile %q: unsupported api_format %q", p.ID, p.Upstream.APIFormat)
	}
	if err := ValidateBaseURL(p.Upstream.BaseURL); err != nil {
		return fmt.Errorf("profile %q: %w", p.ID, err)
	}
	if p.Reasoning.Enabled && !types.EffortIsSupported(p.Reasoning.Type, p.Reasoning.Effort) {
		return fmt.Errorf("profile %q: effort %q is not supported for reasoning type %q", p.ID, p.Reasoning.Effort, p.Reasoning.Type)
	}
	if p.Reasoning.BudgetTokens != nil && *p.Reasoning.BudgetTokens < 0 {
		return fmt.Errorf("profile %q: budget_tokens must be >= 0", p.ID)
	}
	return nil
}
