package credentials

import (
	"fmt"
	"sort"
	"sync"
)

// Store is a session-owned credential registry. Reads run concurrently;
// writes for the same name are serialized so exactly one of two racing
// creates succeeds.
type Store struct {
	mu    sync.RWMutex
	creds map[string]Credential
}

func NewStore() *Store {
	return &Store{creds: map[string]Credential{}}
}

type CreateInput struct {
	Name     string
	Provider Provider
	Secret   Secret
	Comment  string
}

// Create registers a new credential. The name must not exist.
func (s *Store) Create(in CreateInput) (Credential, error) {
	if in.Name == "" {
		return Credential{}, fmt.Errorf("credential name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.creds[in.Name]; exists {
		return Credential{}, fmt.Errorf("%w: %q", ErrDuplicateName, in.Name)
	}
	cred := Credential{Name: in.Name, Provider: in.Provider, Secret: in.Secret, Comment: in.Comment}
	s.creds[in.Name] = cred
	return cred, nil
}

// CreateOrReplace upserts a credential. Replacing overwrites payload and
// comment in place; descriptors holding the name keep resolving without
// being recreated.
func (s *Store) CreateOrReplace(in CreateInput) (Credential, error) {
	if in.Name == "" {
		return Credential{}, fmt.Errorf("credential name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cred := Credential{Name: in.Name, Provider: in.Provider, Secret: in.Secret, Comment: in.Comment}
	s.creds[in.Name] = cred
	return cred, nil
}

// Lookup returns the full credential, payload included. Connectors are the
// only intended callers.
func (s *Store) Lookup(name string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[name]
	if !ok {
		return Credential{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return cred, nil
}

// Drop removes a credential by name.
func (s *Store) Drop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(s.creds, name)
	return nil
}

// List returns the redacted view sorted by name.
func (s *Store) List() []Redacted {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Redacted, 0, len(s.creds))
	for _, cred := range s.creds {
		out = append(out, cred.Redact())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
