// Package configstore implements ConfigService's persistence layer: a
// single JSON document holding ProxySettings and the profile set,
// written atomically (write-temp + rename), with merge/replace import
// and plain export. It composes internal/profile.Store for in-memory
// CRUD and internal/encryption for at-rest protection of upstream API
// keys, following gpt-load's group-export-handler shape
// (internal/handler/group_import_export_handler.go) generalized from
// one group's keys to the whole profile set.
package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/encryption"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/profile"
)

// CurrentVersion is written to every persisted document. Load does not
// check the version it reads.
const CurrentVersion = 1

// ProxySettings is the server-level configuration exposed and mutated
// through /v1/config/proxy.
type ProxySettings struct {
	Port   int    `json:"port"`
	APIKey string `json:"api_key"`
}

// document is the on-disk shape: {proxy, profiles, default_profile, version}.
type document struct {
	Proxy          ProxySettings      `json:"proxy"`
	Profiles       []*profile.Profile `json:"profiles"`
	DefaultProfile string             `json:"default_profile"`
	Version        int                `json:"version"`
}

// Service is ConfigService: the sole owner of ProxySettings and the
// profile set. All other components read an immutable snapshot.
type Service struct {
	mu       sync.RWMutex
	path     string
	proxy    ProxySettings
	profiles *profile.Store
	enc      encryption.Service
}

// New constructs a Service backed by the JSON document at path, using
// enc to encrypt/decrypt upstream API keys at rest. It does not load
// path itself; call Load.
func New(path string, enc encryption.Service) *Service {
	return &Service{
		path:     path,
		profiles: profile.New(),
		enc:      enc,
		proxy:    ProxySettings{Port: 8080},
	}
}

// Profiles returns the underlying profile.Store for read/write access
// by the Router and config handlers.
func (s *Service) Profiles() *profile.Store {
	return s.profiles
}

// Load reads the persisted document at s.path, decrypting upstream
// API keys, and populates the in-memory proxy settings and profile
// store. A missing file is not an error: the service starts with
// defaults and the first Save creates it.
func (s *Service) Load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("configstore: read %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("configstore: parse %s: %w", s.path, err)
	}

	for _, p := range doc.Profiles {
		if p.Upstream.APIKey == "" {
			continue
		}
		plain, err := s.enc.Decrypt(p.Upstream.APIKey)
		if err != nil {
			return fmt.Errorf("configstore: decrypt api key for profile %q: %w", p.ID, err)
		}
		p.Upstream.APIKey = plain
	}

	s.mu.Lock()
	s.proxy = doc.Proxy
	s.mu.Unlock()
	s.profiles.Load(doc.Profiles, doc.DefaultProfile)
	return nil
}

// Save persists the current proxy settings and profile set to s.path
// via write-temp-then-rename, so a crash mid-write never corrupts the
// previous document.
func (s *Service) Save() error {
	s.mu.RLock()
	proxy := s.proxy
	s.mu.RUnlock()

	profiles, defaultProfile := s.profiles.Snapshot()

	encoded := make([]*profile.Profile, len(profiles))
	for i, p := range profiles {
		cp := *p
		if cp.Upstream.APIKey != "" {
			ciphertext, err := s.enc.Encrypt(cp.Upstream.APIKey)
			if err != nil {
				return fmt.Errorf("configstore: encrypt api key for profile %q: %w", cp.ID, err)
			}
			cp.Upstream.APIKey = ciphertext
		}
		encoded[i] = &cp
	}

	doc := document{
		Proxy:          proxy,
		Profiles:       encoded,
		DefaultProfile: defaultProfile,
		Version:        CurrentVersion,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("configstore: marshal document: %w", err)
	}
	return writeAtomic(s.path, raw)
}

// GetProxySettings returns the current ProxySettings.
func (s *Service) GetProxySettings() ProxySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proxy
}

// SetProxySettings replaces the proxy settings and persists them.
// restartRequired reports whether the port changed; callers surface
// this as {success, restart_required} to the operator.
func (s *Service) SetProxySettings(next ProxySettings) (restartRequired bool, err error) {
	s.mu.Lock()
	restartRequired = next.Port != s.proxy.Port
	s.proxy = next
	s.mu.Unlock()
	return restartRequired, s.Save()
}

// ExportDocument is the shape returned by GET /v1/config/export:
// {proxy, profiles[], default_profile}. Unlike the persisted document
// it carries plaintext API keys, since it is meant to be consumed by
// an operator importing it elsewhere.
type ExportDocument struct {
	Proxy          ProxySettings      `json:"proxy"`
	Profiles       []*profile.Profile `json:"profiles"`
	DefaultProfile string             `json:"default_profile"`
}

// Export returns the current configuration in plaintext, for
// GET /v1/config/export.
func (s *Service) Export() ExportDocument {
	profiles, defaultProfile := s.profiles.Snapshot()
	out := make([]*profile.Profile, len(profiles))
	for i, p := range profiles {
		cp := *p
		out[i] = &cp
	}
	return ExportDocument{Proxy: s.GetProxySettings(), Profiles: out, DefaultProfile: defaultProfile}
}

// Import loads doc into the service. When merge is false the entire
// profile set and proxy settings are replaced. When merge is true,
// profiles in doc are upserted by ID into the existing set and the
// default profile is only changed if doc specifies one.
func (s *Service) Import(doc ExportDocument, merge bool) error {
	if !merge {
		s.mu.Lock()
		s.proxy = doc.Proxy
		s.mu.Unlock()
		s.profiles.Load(doc.Profiles, doc.DefaultProfile)
		return s.Save()
	}

	existing, defaultProfile := s.profiles.Snapshot()
	byID := make(map[string]*profile.Profile, len(existing))
	for _, p := range existing {
		byID[p.ID] = p
	}
	for _, p := range doc.Profiles {
		byID[p.ID] = p
	}
	merged := make([]*profile.Profile, 0, len(byID))
	for _, p := range byID {
		merged = append(merged, p)
	}
	if doc.DefaultProfile != "" {
		defaultProfile = doc.DefaultProfile
	}

	s.mu.Lock()
	if doc.Proxy.Port != 0 {
		s.proxy = doc.Proxy
	}
	s.mu.Unlock()

	s.profiles.Load(merged, defaultProfile)
	return s.Save()
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("configstore: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("configstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("configstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("configstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("configstore: rename into place: %w", err)
	}
	return nil
}
