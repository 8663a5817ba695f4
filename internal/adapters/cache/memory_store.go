package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
	"gitlab.com/timkado/api/accessibility-finder-service/pkg/safego"
)

const storeName = "memory"

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process domain.CacheStore with per-entry TTL and a
// maximum entry count. When full, the oldest inserted entry is evicted.
// A single mutex guards the whole store.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = oldest inserted
	maxEntries int
	now        func() time.Time
	logger     domain.Logger
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates a store bounded to maxEntries (minimum 1).
func NewMemoryStore(maxEntries int, logger domain.Logger, opts ...Option) *MemoryStore {
	if maxEntries < 1 {
		maxEntries = 1
	}
	s := &MemoryStore{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value for key. An entry is dead once now >= expiresAt;
// dead entries are removed on access.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		metrics.ObserveCacheLookup(storeName, metrics.CacheMiss)
		return nil, false
	}
	e := el.Value.(*entry)
	if !s.now().Before(e.expiresAt) {
		s.removeElement(el)
		metrics.SetCacheEntries(storeName, len(s.entries))
		metrics.ObserveCacheLookup(storeName, metrics.CacheExpired)
		return nil, false
	}
	metrics.ObserveCacheLookup(storeName, metrics.CacheHit)
	return e.value, true
}

// Set stores value under key for ttl. Overwriting an existing key keeps its
// insertion position. Inserting a new key into a full store first drops
// expired entries, then evicts the oldest inserted one if still full.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expiresAt := now.Add(ttl)

	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		return
	}

	if len(s.entries) >= s.maxEntries {
		s.purgeExpiredLocked(now)
	}
	if len(s.entries) >= s.maxEntries {
		if oldest := s.order.Front(); oldest != nil {
			evicted := oldest.Value.(*entry).key
			s.removeElement(oldest)
			metrics.ObserveCacheEviction(storeName)
			if s.logger != nil {
				s.logger.Debug(ctx, "Evicted oldest cache entry", "evicted_key", evicted, "max_entries", s.maxEntries)
			}
		}
	}

	s.entries[key] = s.order.PushBack(&entry{key: key, value: value, expiresAt: expiresAt})
	metrics.SetCacheEntries(storeName, len(s.entries))
}

// Len returns the number of stored entries, including ones not yet purged.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes every expired entry and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeExpiredLocked(s.now())
}

// StartSweeper runs Sweep every interval until ctx is done. A zero interval disables it.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.logger == nil {
		return
	}
	safego.Every(ctx, s.logger, "MemoryCacheSweeper", interval, func(ctx context.Context) {
		if n := s.Sweep(); n > 0 {
			s.logger.Debug(ctx, "Swept expired cache entries", "removed", n)
		}
	})
}

func (s *MemoryStore) purgeExpiredLocked(now time.Time) int {
	removed := 0
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if !now.Before(el.Value.(*entry).expiresAt) {
			s.removeElement(el)
			removed++
		}
		el = next
	}
	if removed > 0 {
		metrics.SetCacheEntries(storeName, len(s.entries))
	}
	return removed
}

func (s *MemoryStore) removeElement(el *list.Element) {
	delete(s.entries, el.Value.(*entry).key)
	s.order.Remove(el)
}

var _ domain.CacheStore = (*MemoryStore)(nil)
