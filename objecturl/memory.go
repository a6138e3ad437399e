package objecturl

import (
	"bytes"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data        []byte
	contentType string
	expires     time.Time
}

// MemoryStore keeps blobs in process memory. URLs are baseURL/{id}.
type MemoryStore struct {
	baseURL string
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose blobs expire after ttl (never when
// ttl is zero).
func NewMemoryStore(baseURL string, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Put(_ context.Context, data []byte, contentType string) (*Object, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	id := newID()
	exp := expiry(s.now(), s.ttl)

	s.mu.Lock()
	s.entries[id] = memoryEntry{data: bytes.Clone(data), contentType: contentType, expires: exp}
	s.mu.Unlock()

	return &Object{ID: id, URL: joinURL(s.baseURL, id), ContentType: contentType, Size: len(data), Expires: exp}, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, "", ErrNotFound
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, id)
		return nil, "", ErrNotFound
	}
	return bytes.Clone(e.data), e.contentType, nil
}

func (s *MemoryStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// Len is the number of blobs currently held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
