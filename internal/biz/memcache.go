package biz

import (
	"container/list"
	"sync"
	"time"
)

const (
	defaultTier1MaxEntries = 1000

	// evictBatch is how many of the oldest entries are dropped in one go
	// when the cache is full. Evicting a block instead of a single entry
	// keeps a hot writer from paying the eviction cost on every insert.
	evictBatch = 100
)

type memEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemCache is the in-process cache tier: a bounded map in insertion order.
//
// It is deliberately not an LRU. Reads never touch the order, and an
// overwrite keeps the entry's original position, so under pressure the
// entries written longest ago are evicted regardless of how often they are
// read. Expired entries stay in place until an overwrite, an eviction batch,
// or a RemoveExpired sweep claims them; a read treats them as a miss but
// does not delete.
type MemCache struct {
	mu         sync.RWMutex
	order      *list.List
	items      map[string]*list.Element
	maxEntries int
}

// NewMemCache creates a cache bounded to maxEntries. Values up to zero fall
// back to the default of 1000.
func NewMemCache(maxEntries int) *MemCache {
	if maxEntries <= 0 {
		maxEntries = defaultTier1MaxEntries
	}
	return &MemCache{
		order:      list.New(),
		items:      make(map[string]*list.Element),
		maxEntries: maxEntries,
	}
}

// Get returns the value for key, or false on a miss. An expired entry is a
// miss.
func (m *MemCache) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false
	}

	entry := el.Value.(*memEntry)
	if time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key for ttl. Overwriting an existing key updates it
// in place, keeping its insertion position. Inserting a new key into a full
// cache first evicts the oldest batch of entries.
func (m *MemCache) Set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		entry := el.Value.(*memEntry)
		entry.value = value
		entry.expiresAt = time.Now().Add(ttl)
		return
	}

	if m.order.Len() >= m.maxEntries {
		m.evictOldestLocked()
	}

	entry := &memEntry{key: key, value: value, expiresAt: time.Now().Add(ttl)}
	m.items[key] = m.order.PushBack(entry)
}

// Delete removes key if present.
func (m *MemCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.order.Remove(el)
		delete(m.items, key)
	}
}

// RemoveExpired deletes every expired entry and reports how many were
// removed. The periodic sweep is the only path that reclaims expired entries
// in bulk.
func (m *MemCache) RemoveExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*memEntry)
		if now.After(entry.expiresAt) {
			m.order.Remove(el)
			delete(m.items, entry.key)
			removed++
		}
		el = next
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (m *MemCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.order.Len()
}

// Cap returns the configured maximum number of entries.
func (m *MemCache) Cap() int {
	return m.maxEntries
}

// evictOldestLocked drops up to evictBatch entries from the front of the
// insertion order. Caller holds m.mu.
func (m *MemCache) evictOldestLocked() {
	for i := 0; i < evictBatch; i++ {
		el := m.order.Front()
		if el == nil {
			return
		}
		entry := el.Value.(*memEntry)
		m.order.Remove(el)
		delete(m.items, entry.key)
	}
}
