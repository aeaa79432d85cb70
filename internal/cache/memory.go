package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is an expiring LRU kept in process.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryStore holds at most maxEntries values for ttl each. A zero ttl
// keeps entries until they are evicted.
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &MemoryStore{lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := m.lru.Get(key)
	return data, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, data []byte) error {
	m.lru.Add(key, data)
	return nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) && m.lru.Remove(k) {
			n++
		}
	}
	return n, nil
}

// Len reports the number of live entries.
func (m *MemoryStore) Len() int {
	return m.lru.Len()
}

func (m *MemoryStore) Close() error {
	m.lru.Purge()
	return nil
}
