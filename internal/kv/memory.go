package kv

import (
	"context"
	"sync"
	"time"
)

// Memory is the in-memory fallback Store. It honors TTLs and bounded lists
// with the same semantics as the redis store.
type Memory struct {
	mu        sync.RWMutex
	values    map[string]memoryEntry
	lists     map[string][][]byte
	listUntil map[string]time.Time
	now       func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values:    make(map[string]memoryEntry),
		lists:     make(map[string][][]byte),
		listUntil: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Get returns the value for key, or ErrMiss if absent or expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.values[key]
	m.mu.RUnlock()

	if !ok || m.now().After(entry.expiresAt) {
		return nil, ErrMiss
	}
	return entry.data, nil
}

// SetEx stores value under key with the given TTL.
func (m *Memory) SetEx(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	m.mu.Lock()
	m.values[key] = memoryEntry{data: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// PushRecent prepends value to the list at key and trims it to maxLen.
func (m *Memory) PushRecent(_ context.Context, key string, value []byte, maxLen int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropExpiredList(key)
	list := append([][]byte{value}, m.lists[key]...)
	if int64(len(list)) > maxLen {
		list = list[:maxLen]
	}
	m.lists[key] = list
	return nil
}

// Recent returns up to maxLen newest entries of the list at key.
func (m *Memory) Recent(_ context.Context, key string, maxLen int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropExpiredList(key)
	list := m.lists[key]
	if int64(len(list)) > maxLen {
		list = list[:maxLen]
	}
	out := make([][]byte, len(list))
	copy(out, list)
	return out, nil
}

// Expire sets the TTL on an existing value or list key.
func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.values[key]; ok {
		entry.expiresAt = m.now().Add(ttl)
		m.values[key] = entry
	}
	if _, ok := m.lists[key]; ok {
		m.listUntil[key] = m.now().Add(ttl)
	}
	return nil
}

// dropExpiredList removes the list at key when its TTL has passed. Callers
// hold the write lock.
func (m *Memory) dropExpiredList(key string) {
	until, ok := m.listUntil[key]
	if !ok || !m.now().After(until) {
		return
	}
	delete(m.lists, key)
	delete(m.listUntil, key)
}

// Ping always succeeds for the in-memory store.
func (m *Memory) Ping(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
