package dedup

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCapacity bounds a Memory set when none is configured.
const DefaultCapacity = 1024

// Memory is a bounded in-process Set. Keys expire after ttl; when full, the
// least recently marked key is evicted.
type Memory struct {
	ttl      time.Duration
	capacity int
	cache    *expirable.LRU[string, struct{}]
}

// NewMemory creates a Memory set. Non-positive values fall back to
// DefaultTTL and DefaultCapacity.
func NewMemory(ttl time.Duration, capacity int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		ttl:      ttl,
		capacity: capacity,
		cache:    expirable.NewLRU[string, struct{}](capacity, nil, ttl),
	}
}

// Seen reports whether key was marked and has not expired. It does not
// change eviction order.
func (m *Memory) Seen(_ context.Context, key string) (bool, error) {
	_, ok := m.cache.Peek(key)
	return ok, nil
}

// Mark records key, refreshing its expiry if already present.
func (m *Memory) Mark(_ context.Context, key string) error {
	m.cache.Add(key, struct{}{})
	return nil
}

// Len returns the number of tracked keys, including expired ones not yet
// purged.
func (m *Memory) Len() int {
	return m.cache.Len()
}
