package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"breachwatch/internal/metrics"
)

// MemoryOptions tunes a Memory cache. The zero value is an unbounded cache
// with a one minute janitor.
type MemoryOptions struct {
	// MaxEntries bounds the cache, evicting the least recently used entry.
	// Zero means unbounded.
	MaxEntries      int
	JanitorInterval time.Duration
	Now             func() time.Time
}

// Memory is an in-process TTL cache.
type Memory struct {
	maxEntries int
	now        func() time.Time
	items      map[string]*memoryItem
	lru        *list.List
	mu         sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
}

type memoryItem struct {
	key       string
	value     []byte
	element   *list.Element
	expiresAt time.Time
}

func NewMemory(opts MemoryOptions) *Memory {
	if opts.JanitorInterval <= 0 {
		opts.JanitorInterval = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Memory{
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
		items:      make(map[string]*memoryItem),
		lru:        list.New(),
		stop:       make(chan struct{}),
	}

	go m.janitor(opts.JanitorInterval)

	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(item.expiresAt) {
		m.remove(item)
		metrics.CacheEvictions.WithLabelValues("expired").Inc()
		return nil, false, nil
	}

	m.lru.MoveToFront(item.element)
	return append([]byte(nil), item.value...), true, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	value = append([]byte(nil), value...)
	expiresAt := m.now().Add(ttl)

	if existing, ok := m.items[key]; ok {
		existing.value = value
		existing.expiresAt = expiresAt
		m.lru.MoveToFront(existing.element)
		return nil
	}

	item := &memoryItem{key: key, value: value, expiresAt: expiresAt}
	item.element = m.lru.PushFront(item)
	m.items[key] = item

	if m.maxEntries > 0 && len(m.items) > m.maxEntries {
		if oldest := m.lru.Back(); oldest != nil {
			m.remove(oldest.Value.(*memoryItem))
			metrics.CacheEvictions.WithLabelValues("capacity").Inc()
		}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included until swept.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close stops the janitor goroutine.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) remove(item *memoryItem) {
	delete(m.items, item.key)
	m.lru.Remove(item.element)
}

func (m *Memory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, item := range m.items {
		if !now.Before(item.expiresAt) {
			m.remove(item)
			metrics.CacheEvictions.WithLabelValues("expired").Inc()
		}
	}
}
