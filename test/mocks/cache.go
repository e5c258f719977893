// Package mocks provides in-memory test doubles for external collaborators.
package mocks

import (
	"context"
	"sync"
	"time"
)

// MockCache is an in-memory implementation of the cache.Cache interface,
// used for testing without a real Redis instance.
type MockCache struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewMockCache creates a new mock cache instance.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]string)}
}

// Get retrieves a value; missing keys return an empty string (like Redis).
func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

// Set stores a value. Expiration is ignored (no TTL in the mock).
func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := value.(string); ok {
		m.data[key] = s
	}
	return nil
}

// Del removes keys from the mock cache.
func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// Len returns the number of cached keys.
func (m *MockCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
