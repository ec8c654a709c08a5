package presencestore

import (
	"context"
	"sync"
	"time"

	"naf-chat-server/internal/domain/presence"
)

// MemoryStore is the single-node presence fallback used when no Redis URL is
// configured. Liveness is derived from LastSeenAt against the same TTL a
// Redis key would carry.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*presence.Coordinator
	ttl     time.Duration
}

// NewMemoryStore creates an empty in-memory presence store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*presence.Coordinator),
		ttl:     ttl,
	}
}

// Heartbeat upserts the record and refreshes its liveness window.
func (s *MemoryStore) Heartbeat(ctx context.Context, coord *presence.Coordinator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coord.LastSeenAt = time.Now()
	coord.IsOnline = coord.Status != presence.StatusOffline
	stored := *coord
	stored.Specialties = append([]string(nil), coord.Specialties...)
	s.records[coord.ID] = &stored
	return nil
}

// Get returns the presence record, or ErrNotFound once the heartbeat lapsed.
func (s *MemoryStore) Get(ctx context.Context, id string) (*presence.Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coord, ok := s.records[id]
	if !ok || s.expired(coord) {
		return nil, presence.ErrNotFound
	}
	copied := *coord
	copied.Specialties = append([]string(nil), coord.Specialties...)
	return &copied, nil
}

// IsOnline reports whether the coordinator has a live, non-offline heartbeat.
func (s *MemoryStore) IsOnline(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coord, ok := s.records[id]
	if !ok || s.expired(coord) {
		return false, nil
	}
	return coord.Status != presence.StatusOffline, nil
}

// ListOnline returns all coordinators with live heartbeats.
func (s *MemoryStore) ListOnline(ctx context.Context) ([]*presence.Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*presence.Coordinator, 0, len(s.records))
	for _, coord := range s.records {
		if s.expired(coord) || coord.Status == presence.StatusOffline {
			continue
		}
		copied := *coord
		copied.Specialties = append([]string(nil), coord.Specialties...)
		result = append(result, &copied)
	}
	return result, nil
}

func (s *MemoryStore) expired(coord *presence.Coordinator) bool {
	return time.Since(coord.LastSeenAt) > s.ttl
}
