package configstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/encryption"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/profile"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

func testProfile(id string) *profile.Profile {
	return &profile.Profile{
		ID:            id,
		Name:          id,
		ModelPatterns: []string{"gpt-*"},
		MatchType:     profile.MatchWildcard,
		Enabled:       true,
		Upstream: profile.Upstream{
			BaseURL:   "https://api.openai.com",
			APIKey:    "sk-secret-key",
			APIFormat: types.FormatOpenAI,
		},
	}
}

func newTestService(t *testing.T) (*Service, string) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proxy_config.json")
	enc, err := encryption.NewService("test-master-key")
	require.NoError(t, err)
	return New(path, enc), path
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Load())
	assert.Equal(t, 8080, svc.GetProxySettings().Port)
}

func TestSaveThenLoad_RoundTripsProfilesAndDecryptsKeys(t *testing.T) {
	svc, path := newTestService(t)
	require.NoError(t, svc.Profiles().Create(testProfile("p1")))
	_, err := svc.SetProxySettings(ProxySettings{Port: 9090, APIKey: "proxy-secret"})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc document
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Profiles, 1)
	assert.NotEqual(t, "sk-secret-key", doc.Profiles[0].Upstream.APIKey, "api key must be encrypted at rest")

	reloaded, _ := newTestServiceAt(t, path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 9090, reloaded.GetProxySettings().Port)
	got, ok := reloaded.Profiles().Get("p1")
	require.True(t, ok)
	assert.Equal(t, "sk-secret-key", got.Upstream.APIKey)
}

func newTestServiceAt(t *testing.T, path string) (*Service, string) {
	enc, err := encryption.NewService("test-master-key")
	require.NoError(t, err)
	return New(path, enc), path
}

func TestSetProxySettings_ReportsRestartRequiredOnPortChange(t *testing.T) {
	svc, _ := newTestService(t)
	restart, err := svc.SetProxySettings(ProxySettings{Port: 8080})
	require.NoError(t, err)
	assert.False(t, restart, "same port should not require restart")

	restart, err = svc.SetProxySettings(ProxySettings{Port: 9999})
	require.NoError(t, err)
	assert.True(t, restart)
}

func TestExport_ReturnsPlaintextKeys(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Profiles().Create(testProfile("p1")))

	doc := svc.Export()
	require.Len(t, doc.Profiles, 1)
	assert.Equal(t, "sk-secret-key", doc.Profiles[0].Upstream.APIKey)
}

func TestImport_ReplaceWipesExistingProfiles(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Profiles().Create(testProfile("old")))

	err := svc.Import(ExportDocument{
		Proxy:          ProxySettings{Port: 7070},
		Profiles:       []*profile.Profile{testProfile("new")},
		DefaultProfile: "new",
	}, false)
	require.NoError(t, err)

	_, ok := svc.Profiles().Get("old")
	assert.False(t, ok)
	_, ok = svc.Profiles().Get("new")
	assert.True(t, ok)
}

func TestImport_MergeKeepsExistingAndAddsNew(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Profiles().Create(testProfile("keep")))

	err := svc.Import(ExportDocument{
		Profiles: []*profile.Profile{testProfile("added")},
	}, true)
	require.NoError(t, err)

	_, ok := svc.Profiles().Get("keep")
	assert.True(t, ok)
	_, ok = svc.Profiles().Get("added")
	assert.True(t, ok)
}

func TestImport_MergeUpsertsByID(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Profiles().Create(testProfile("p1")))

	replacement := testProfile("p1")
	replacement.Name = "renamed"
	err := svc.Import(ExportDocument{Profiles: []*profile.Profile{replacement}}, true)
	require.NoError(t, err)

	got, ok := svc.Profiles().Get("p1")
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Name)
}
