package replay

import (
	"context"
	"sync"
	"time"

	"github.com/vorpalengineering/x402-stellar/types"
)

// MemoryStore is the in-process fallback Store for single-instance test
// deployments. Claim and record state lives behind one mutex, which gives
// the per-key linearizability the Store contract asks for.
type MemoryStore struct {
	mu        sync.Mutex
	results   map[string]*types.SettleResponse
	inFlight  map[string]time.Time
	resources map[string]types.DiscoveryResource
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results:   make(map[string]*types.SettleResponse),
		inFlight:  make(map[string]time.Time),
		resources: make(map[string]types.DiscoveryResource),
	}
}

func (s *MemoryStore) GetSettlement(_ context.Context, hash string) (*types.SettleResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, ok := s.results[hash]
	if !ok {
		return nil, nil
	}
	copied := *result
	return &copied, nil
}

func (s *MemoryStore) BeginSettlement(_ context.Context, hash string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[hash]; ok {
		return false, nil
	}
	if deadline, ok := s.inFlight[hash]; ok && time.Now().Before(deadline) {
		return false, nil
	}

	s.inFlight[hash] = time.Now().Add(ttl)
	return true, nil
}

func (s *MemoryStore) CompleteSettlement(_ context.Context, hash string, result *types.SettleResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *result
	s.results[hash] = &copied
	delete(s.inFlight, hash)
	return nil
}

func (s *MemoryStore) AbortSettlement(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, hash)
	return nil
}

func (s *MemoryStore) PutResource(_ context.Context, entry *types.DiscoveryResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resources[entry.Resource] = *entry
	return nil
}

func (s *MemoryStore) GetResource(_ context.Context, resource string) (*types.DiscoveryResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.resources[resource]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (s *MemoryStore) DeleteResource(_ context.Context, resource string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.resources, resource)
	return nil
}

func (s *MemoryStore) ListResources(_ context.Context) ([]types.DiscoveryResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]types.DiscoveryResource, 0, len(s.resources))
	for _, entry := range s.resources {
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
