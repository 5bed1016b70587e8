package cache

import (
	"bytes"
	"container/list"
	"sync"
	"time"
)

// DefaultMaxEntries is the entry budget of a Memory cache created without
// an explicit size.
const DefaultMaxEntries = 100

// Memory is an in-memory LRU cache with an optional time-to-live.
//
// Two forces evict entries: the entry budget (least recently used first) and,
// when a TTL is configured, age since insertion. Expired entries read as
// absent and are dropped on access.
type Memory struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	onEvict    func(oid string)
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	evictions  uint64
}

type memoryEntry struct {
	oid     string
	content []byte
	expires time.Time // zero = never
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the lifetime of an entry. Zero or negative disables expiry.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// WithEvictCallback registers f to be called with the oid of every entry
// removed by capacity pressure or expiry. f runs with the cache lock held
// and must not call back into the cache.
func WithEvictCallback(f func(oid string)) MemoryOption {
	return func(m *Memory) {
		m.onEvict = f
	}
}

// NewMemory creates a cache holding at most maxEntries objects.
// A non-positive maxEntries uses DefaultMaxEntries.
func NewMemory(maxEntries int, opts ...MemoryOption) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	m := &Memory{
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Interface compliance.
var _ Cache = (*Memory)(nil)

// Get implements Cache.
func (m *Memory) Get(oid string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[oid]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*memoryEntry) //nolint:errcheck // type is guaranteed by Put
	if m.expiredLocked(entry) {
		m.evictLocked(elem)
		return nil, false
	}

	m.order.MoveToFront(elem)
	return bytes.Clone(entry.content), true
}

// Put implements Cache.
func (m *Memory) Put(oid string, content []byte) {
	content = bytes.Clone(content)

	m.mu.Lock()
	defer m.mu.Unlock()

	expires := time.Time{}
	if m.ttl > 0 {
		expires = m.now().Add(m.ttl)
	}

	// Update existing entry
	if elem, ok := m.entries[oid]; ok {
		entry := elem.Value.(*memoryEntry) //nolint:errcheck // type is guaranteed
		entry.content = content
		entry.expires = expires
		m.order.MoveToFront(elem)
		return
	}

	// Expired entries go first so they do not push out live ones.
	m.sweepLocked()
	for m.order.Len() >= m.maxEntries {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.evictLocked(oldest)
	}

	elem := m.order.PushFront(&memoryEntry{
		oid:     oid,
		content: content,
		expires: expires,
	})
	m.entries[oid] = elem
}

// Delete implements Cache.
func (m *Memory) Delete(oid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[oid]; ok {
		m.removeLocked(elem)
	}
}

// Len implements Cache.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// MaxEntries returns the configured entry budget.
func (m *Memory) MaxEntries() int {
	return m.maxEntries
}

// Evictions returns how many entries were dropped by capacity pressure or
// expiry since the cache was created.
func (m *Memory) Evictions() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictions
}

func (m *Memory) expiredLocked(entry *memoryEntry) bool {
	return !entry.expires.IsZero() && !m.now().Before(entry.expires)
}

// sweepLocked drops expired entries, oldest first.
// Caller must hold m.mu.
func (m *Memory) sweepLocked() {
	if m.ttl <= 0 {
		return
	}
	for elem := m.order.Back(); elem != nil; {
		prev := elem.Prev()
		if m.expiredLocked(elem.Value.(*memoryEntry)) { //nolint:errcheck // type is guaranteed
			m.evictLocked(elem)
		}
		elem = prev
	}
}

// evictLocked removes elem and records the eviction.
// Caller must hold m.mu.
func (m *Memory) evictLocked(elem *list.Element) {
	entry := m.removeLocked(elem)
	m.evictions++
	if m.onEvict != nil {
		m.onEvict(entry.oid)
	}
}

// removeLocked removes an element from both the list and map.
// Caller must hold m.mu.
func (m *Memory) removeLocked(elem *list.Element) *memoryEntry {
	entry := elem.Value.(*memoryEntry) //nolint:errcheck // type is guaranteed
	m.order.Remove(elem)
	delete(m.entries, entry.oid)
	return entry
}
