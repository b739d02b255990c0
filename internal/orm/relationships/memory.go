package relationships

import (
	"context"
	"sync"

	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// MemoryStore keeps association rows in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[Key]map[string]map[string]interface{} // target -> source -> source id
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{links: make(map[Key]map[string]map[string]interface{})}
}

// Link records that sourceID is linked to targetID through rel
func (m *MemoryStore) Link(rel *schema.Relationship, sourceID, targetID interface{}) error {
	if err := requireAssociation(rel); err != nil {
		return err
	}
	src, err := idToString(sourceID)
	if err != nil {
		return err
	}
	tgt, err := idToString(targetID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := KeyOf(rel)
	byTarget, ok := m.links[key]
	if !ok {
		byTarget = make(map[string]map[string]interface{})
		m.links[key] = byTarget
	}
	sources, ok := byTarget[tgt]
	if !ok {
		sources = make(map[string]interface{})
		byTarget[tgt] = sources
	}
	sources[src] = sourceID
	return nil
}

// Unlink removes a link; removing a missing link is not an error
func (m *MemoryStore) Unlink(rel *schema.Relationship, sourceID, targetID interface{}) error {
	src, err := idToString(sourceID)
	if err != nil {
		return err
	}
	tgt, err := idToString(targetID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sources, ok := m.links[KeyOf(rel)][tgt]; ok {
		delete(sources, src)
	}
	return nil
}

// Service returns the service for rel
func (m *MemoryStore) Service(rel *schema.Relationship) (Service, error) {
	if err := requireAssociation(rel); err != nil {
		return nil, err
	}
	return &memoryService{store: m, key: KeyOf(rel)}, nil
}

type memoryService struct {
	store *MemoryStore
	key   Key
}

func (s *memoryService) Exists(_ context.Context, sourceID, targetID interface{}) (bool, error) {
	src, err := idToString(sourceID)
	if err != nil {
		return false, err
	}
	tgt, err := idToString(targetID)
	if err != nil {
		return false, err
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	_, ok := s.store.links[s.key][tgt][src]
	return ok, nil
}

func (s *memoryService) CollectSourcesForTargets(_ context.Context, targetIDs []interface{}) ([]interface{}, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	seen := make(map[string]struct{})
	var result []interface{}
	for _, id := range targetIDs {
		tgt, err := idToString(id)
		if err != nil {
			return nil, err
		}
		for src, sourceID := range s.store.links[s.key][tgt] {
			if _, dup := seen[src]; dup {
				continue
			}
			seen[src] = struct{}{}
			result = append(result, sourceID)
		}
	}
	return result, nil
}
