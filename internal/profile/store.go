package profile

import (
	"fmt"
	"sort"
	"sync"
)

// Store holds the set of profiles and resolves a model name to one of
// them. Mutations are serialized behind a mutex; readers take an
// immutable snapshot of the profile slice so a request's resolution
// can't observe a concurrent write mid-flight.
type Store struct {
	mu             sync.RWMutex
	profiles       []*Profile
	defaultProfile string
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Snapshot returns a read-only copy of the store's ordered profile
// list (descending priority) and the configured default profile ID.
func (s *Store) Snapshot() ([]*Profile, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Profile, len(s.profiles))
	copy(out, s.profiles)
	return out, s.defaultProfile
}

// Load replaces the store's contents wholesale (used by ConfigService
// import and by startup load from the persisted document).
func (s *Store) Load(profiles []*Profile, defaultProfile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = profiles
	s.defaultProfile = defaultProfile
	s.sortLocked()
}

// Create adds a new profile. Returns an error if id already exists or
// the profile fails Validate.
func (s *Store) Create(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.profiles {
		if existing.ID == p.ID {
			return fmt.Errorf("profile id %q already exists", p.ID)
		}
	}
	s.profiles = append(s.profiles, p)
	s.sortLocked()
	return nil
}

// Update replaces the profile with the given id. The caller must copy
// forward any fields it isn't changing; Update does not merge.
func (s *Store) Update(id string, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.profiles {
		if existing.ID == id {
			p.ID = id
			s.profiles[i] = p
			s.sortLocked()
			return nil
		}
	}
	return fmt.Errorf("profile id %q not found", id)
}

// Delete removes the profile with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.profiles {
		if existing.ID == id {
			s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
			if s.defaultProfile == id {
				s.defaultProfile = ""
			}
			return nil
		}
	}
	return fmt.Errorf("profile id %q not found", id)
}

// Get returns the profile with the given id, if any.
func (s *Store) Get(id string) (*Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// SetDefault sets the default profile id. Returns an error if the id
// doesn't name an existing profile.
func (s *Store) SetDefault(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.ID == id {
			s.defaultProfile = id
			return nil
		}
	}
	return fmt.Errorf("profile id %q not found", id)
}

// sortLocked keeps s.profiles ordered by descending priority, then
// ascending created_at, then ascending id. The caller must hold s.mu.
func (s *Store) sortLocked() {
	sort.SliceStable(s.profiles, func(i, j int) bool {
		a, b := s.profiles[i], s.profiles[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Resolve returns the first enabled, matching profile in priority
// order, or the default profile, or an error if neither exists.
func (s *Store) Resolve(model string) (*Profile, error) {
	profiles, defaultProfile := s.Snapshot()
	for _, p := range profiles {
		if !p.Enabled {
			continue
		}
		if p.Matches(model) {
			return p, nil
		}
	}
	if defaultProfile != "" {
		for _, p := range profiles {
			if p.ID == defaultProfile {
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("no profile matches model %q and no default profile is set", model)
}

// Test performs a resolution dry-run for the config API's
// /v1/config/profiles/test endpoint: it reports every matching profile,
// not just the winner, for diagnostic display.
func (s *Store) Test(model string) (matched *Profile, allMatches []*Profile) {
	profiles, _ := s.Snapshot()
	for _, p := range profiles {
		if !p.Enabled {
			continue
		}
		if p.Matches(model) {
			allMatches = append(allMatches, p)
		}
	}
	if len(allMatches) > 0 {
		matched = allMatches[0]
	}
	return matched, allMatches
}
