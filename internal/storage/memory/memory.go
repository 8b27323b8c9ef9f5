package memory

import (
	"context"
	"slices"
	"sync"

	apperrors "github.com/Davidgwa1996/unidigitalcom/pkg/errors"

	"github.com/Davidgwa1996/unidigitalcom/internal/storage"
)

// Provider keeps every session's storage in process memory. Contents are
// lost on restart.
type Provider struct {
	mu       sync.Mutex
	sessions map[string]*Storage
}

// NewProvider creates an empty in-memory provider.
func NewProvider() *Provider {
	return &Provider{sessions: make(map[string]*Storage)}
}

// ForSession returns the storage of sessionID, creating it on first use.
func (p *Provider) ForSession(sessionID string) storage.Storage {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionID]
	if !ok {
		s = NewStorage()
		p.sessions[sessionID] = s
	}
	return s
}

// Storage is a map-backed storage.Storage.
type Storage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewStorage creates an empty storage.
func NewStorage() *Storage {
	return &Storage{items: make(map[string][]byte)}
}

// GetItem returns a copy of the stored value.
func (s *Storage) GetItem(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	if !ok {
		return nil, apperrors.NotFound("storage key", key)
	}
	return slices.Clone(v), nil
}

// SetItem stores a copy of value.
func (s *Storage) SetItem(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = slices.Clone(value)
	return nil
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (s *Storage) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
