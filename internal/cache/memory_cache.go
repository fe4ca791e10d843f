package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"mangoleaf/internal/model"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessionStore is the single-process counterpart of RedisSessionStore.
// Entries expire lazily on access and during Sweep.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	blobs    map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemorySessionStore{
		sessions: make(map[string]memoryEntry),
		blobs:    make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) GetSession(_ context.Context, id string) (*model.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(s.sessions, id)
	if !ok {
		return nil, false, nil
	}
	var session model.Session
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, false, fmt.Errorf("unmarshal stored session failed: %w", err)
	}
	return &session, true, nil
}

func (s *MemorySessionStore) SetSession(_ context.Context, session *model.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt := s.now().Add(s.ttl)
	s.sessions[session.ID] = memoryEntry{data: payload, expiresAt: expiresAt}
	// The selected image lives as long as the session that points at it.
	for _, key := range imageKeys(session) {
		if entry, ok := s.blobs[key]; ok {
			entry.expiresAt = expiresAt
			s.blobs[key] = entry
		}
	}
	return nil
}

func (s *MemorySessionStore) GetBlob(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(s.blobs, key)
	if !ok {
		return nil, false, nil
	}
	return entry.data, true, nil
}

func (s *MemorySessionStore) SetBlob(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = memoryEntry{data: data, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemorySessionStore) DeleteBlobs(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.blobs, key)
	}
	return nil
}

func (s *MemorySessionStore) Ping(context.Context) error {
	return nil
}

// Sweep drops every expired entry and reports how many were removed.
func (s *MemorySessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for _, m := range []map[string]memoryEntry{s.sessions, s.blobs} {
		for key, entry := range m {
			if now.After(entry.expiresAt) {
				delete(m, key)
				removed++
			}
		}
	}
	return removed
}

// WithClock replaces the time source used for expiry.
func (s *MemorySessionStore) WithClock(now func() time.Time) *MemorySessionStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// BlobCount is used by tests to check that superseded images are released.
func (s *MemorySessionStore) BlobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

func (s *MemorySessionStore) lookup(m map[string]memoryEntry, key string) (memoryEntry, bool) {
	entry, ok := m[key]
	if !ok {
		return memoryEntry{}, false
	}
	if s.now().After(entry.expiresAt) {
		delete(m, key)
		return memoryEntry{}, false
	}
	return entry, true
}
