package store

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Memory is a tiny TTL-bound LRU.
type Memory struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	ll    *list.List               // most-recent at front
	items map[string]*list.Element // key -> element
	now   func() time.Time
}

type entry struct {
	key string
	val []byte
	exp time.Time
}

func NewMemory(maxKeys int, ttl time.Duration) *Memory {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Memory{cap: maxKeys, ttl: ttl, ll: list.New(), items: make(map[string]*list.Element, maxKeys), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	en := el.Value.(entry)
	if !m.now().Before(en.exp) {
		m.ll.Remove(el)
		delete(m.items, key)
		return nil, ErrCacheMiss
	}
	// touch LRU
	m.ll.MoveToFront(el)
	out := make([]byte, len(en.val))
	copy(out, en.val)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.ttl
	}
	stored := make([]byte, len(val))
	copy(stored, val)

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	en := entry{key: key, val: stored, exp: now.Add(ttl)}
	if el, ok := m.items[key]; ok {
		el.Value = en
		m.ll.MoveToFront(el)
		return nil
	}
	m.items[key] = m.ll.PushFront(en)

	for m.ll.Len() > m.cap {
		m.removeElement(m.ll.Back())
	}
	// soft cleanup of expired at tail
	for t := m.ll.Back(); t != nil && !now.Before(t.Value.(entry).exp); t = m.ll.Back() {
		m.removeElement(t)
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}

func (m *Memory) Close() error { return nil }

func (m *Memory) removeElement(el *list.Element) {
	m.ll.Remove(el)
	delete(m.items, el.Value.(entry).key)
}
