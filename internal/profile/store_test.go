package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

func baseProfile(id string) *Profile {
	return &Profile{
		ID:      id,
		Name:    id,
		Enabled: true,
		Upstream: Upstream{
			BaseURL:   "https://example.com",
			APIFormat: types.FormatOpenAI,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// Priority must win over pattern specificity when both profiles match.
func TestResolve_ScenarioD_PriorityWinsOverSpecificity(t *testing.T) {
	s := New()
	p1 := baseProfile("p1")
	p1.ModelPatterns = []string{"gpt-*"}
	p1.MatchType = MatchWildcard
	p1.Priority = 10

	p2 := baseProfile("p2")
	p2.ModelPatterns = []string{"gpt-4"}
	p2.MatchType = MatchExact
	p2.Priority = 5

	require.NoError(t, s.Create(p2))
	require.NoError(t, s.Create(p1))

	got, err := s.Resolve("gpt-4")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
}

func TestResolve_TieBreaksByCreatedAtThenID(t *testing.T) {
	s := New()
	now := time.Now()

	older := baseProfile("z-older")
	older.ModelPatterns = []string{"claude-*"}
	older.MatchType = MatchWildcard
	older.CreatedAt = now

	newer := baseProfile("a-newer")
	newer.ModelPatterns = []string{"claude-*"}
	newer.MatchType = MatchWildcard
	newer.CreatedAt = now.Add(time.Second)

	require.NoError(t, s.Create(newer))
	require.NoError(t, s.Create(older))

	got, err := s.Resolve("claude-sonnet")
	require.NoError(t, err)
	assert.Equal(t, "z-older", got.ID, "equal priority ties break on ascending created_at")
}

func TestResolve_FallsBackToDefault(t *testing.T) {
	s := New()
	p := baseProfile("fallback")
	p.ModelPatterns = []string{"never-matches"}
	p.MatchType = MatchExact
	require.NoError(t, s.Create(p))
	require.NoError(t, s.SetDefault("fallback"))

	got, err := s.Resolve("unknown-model")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got.ID)
}

func TestResolve_NoMatchNoDefaultErrors(t *testing.T) {
	s := New()
	_, err := s.Resolve("anything")
	assert.Error(t, err)
}

func TestResolve_DisabledProfileNeverMatches(t *testing.T) {
	s := New()
	p := baseProfile("off")
	p.Enabled = false
	p.ModelPatterns = []string{"*"}
	p.MatchType = MatchWildcard
	require.NoError(t, s.Create(p))

	_, err := s.Resolve("anything")
	assert.Error(t, err)
}

func TestMatches_Regex(t *testing.T) {
	p := baseProfile("r")
	p.MatchType = MatchRegex
	p.ModelPatterns = []string{"gpt-4(-turbo)?"}
	assert.True(t, p.Matches("gpt-4"))
	assert.True(t, p.Matches("gpt-4-turbo"))
	assert.False(t, p.Matches("gpt-4-turbo-preview-extra"))
}

func TestMatches_Wildcard(t *testing.T) {
	p := baseProfile("w")
	p.MatchType = MatchWildcard
	p.ModelPatterns = []string{"claude-3-?-*"}
	assert.True(t, p.Matches("claude-3-5-sonnet"))
	assert.False(t, p.Matches("claude-3-sonnet"))
}

// Wildcard matching uses fnmatch semantics, not path globbing: "*"
// must span "/" so a pattern like "anthropic/*" matches
// OpenRouter-style slashed model names.
func TestMatches_WildcardCrossesSlash(t *testing.T) {
	p := baseProfile("w-slash")
	p.MatchType = MatchWildcard
	p.ModelPatterns = []string{"anthropic/*"}
	assert.True(t, p.Matches("anthropic/claude-3-opus"))

	catchAll := baseProfile("catch-all")
	catchAll.MatchType = MatchWildcard
	catchAll.ModelPatterns = []string{"*"}
	assert.True(t, catchAll.Matches("anthropic/claude-3-opus"))
}

// Matches compiles patterns lazily and caches them on the profile, so
// repeated calls must keep returning consistent results.
func TestMatches_WildcardCachesAcrossCalls(t *testing.T) {
	p := baseProfile("w-cache")
	p.MatchType = MatchWildcard
	p.ModelPatterns = []string{"gpt-*"}
	for i := 0; i < 3; i++ {
		assert.True(t, p.Matches("gpt-4"))
		assert.False(t, p.Matches("claude-3"))
	}
}

func TestValidate_RejectsUnsupportedEffortForType(t *testing.T) {
	p := baseProfile("bad-effort")
	p.ModelPatterns = []string{"x"}
	p.MatchType = MatchExact
	p.Reasoning = types.ReasoningSpec{Enabled: true, Type: types.ReasoningOpenAI, Effort: types.EffortAuto}
	err := p.Validate()
	assert.Error(t, err, "openai does not support the auto effort")
}

func TestValidate_RejectsInvalidRegex(t *testing.T) {
	p := baseProfile("bad-regex")
	p.MatchType = MatchRegex
	p.ModelPatterns = []string{"(unclosed"}
	assert.Error(t, p.Validate())
}

func TestValidate_RejectsMissingBaseURL(t *testing.T) {
	p := baseProfile("bad-url")
	p.ModelPatterns = []string{"x"}
	p.MatchType = MatchExact
	p.Upstream.BaseURL = "not a url"
	p.Upstream.BaseURL = ""
	assert.Error(t, p.Validate())
}

func TestCreate_DuplicateIDRejected(t *testing.T) {
	s := New()
	p := baseProfile("dup")
	p.ModelPatterns = []string{"x"}
	p.MatchType = MatchExact
	require.NoError(t, s.Create(p))
	assert.Error(t, s.Create(baseProfile("dup")))
}

func TestDelete_ClearsDefaultIfRemoved(t *testing.T) {
	s := New()
	p := baseProfile("gone")
	p.ModelPatterns = []string{"x"}
	p.MatchType = MatchExact
	require.NoError(t, s.Create(p))
	require.NoError(t, s.SetDefault("gone"))
	require.NoError(t, s.Delete("gone"))

	_, defaultID := s.Snapshot()
	assert.Equal(t, "", defaultID)
}
