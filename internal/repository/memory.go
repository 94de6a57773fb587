package repository

import (
	"context"
	"sync"
	"time"

	"github.com/gradewise/gradewise/internal/domain"
)

// MemoryTokenStore is the degraded-mode fallback when no durable backend is
// configured. Process-lifetime only; every record is lost on restart, which
// is acceptable for local development and explicitly documented as such.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	records map[string]memoryEntry
}

type memoryEntry struct {
	record    domain.TokenRecord
	expiresAt time.Time
}

var _ TokenStore = (*MemoryTokenStore)(nil)

// NewMemoryTokenStore constructs the in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{records: make(map[string]memoryEntry)}
}

// Get returns the record for key, or nil when absent or expired.
func (s *MemoryTokenStore) Get(_ context.Context, key string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	entry, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.records, key)
		s.mu.Unlock()
		return nil, nil
	}
	record := entry.record
	return &record, nil
}

// Put upserts the record. ttl of zero means no expiry.
func (s *MemoryTokenStore) Put(_ context.Context, key string, record domain.TokenRecord, ttl time.Duration) error {
	entry := memoryEntry{record: record}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.records[key] = entry
	s.mu.Unlock()
	return nil
}

// Delete removes the record for key, if present.
func (s *MemoryTokenStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}
