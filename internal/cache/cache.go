// Package cache provides the injected TTL store used to avoid redundant
// external and AI calls. Keys are derived from semantic inputs only (URL or
// URL pair), never from call order or request metadata.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Cache is the minimal contract the orchestrator depends on. Implementations
// must be safe for concurrent use; last write wins on a key, which is
// tolerable because entries are idempotent reports.
type Cache interface {
	// Get returns the stored value and true, or nil and false on miss or
	// after expiry.
	Get(key string) (any, bool)

	// Set stores value under key with the cache's TTL.
	Set(key string, value any)

	// Invalidate removes the exact key and every key sharing it as prefix.
	Invalidate(prefix string)
}

// ReportKey builds the cache key for a single-site report.
func ReportKey(url string) string { return "intelligence:" + url }

// ComparisonKey builds the cache key for a two-site comparison.
func ComparisonKey(a, b string) string { return "comparison:" + a + ":" + b }

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is an in-process TTL cache. The clock is injectable so expiry can be
// tested without sleeping.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemory creates a Memory cache with the given TTL. now may be nil, in
// which case time.Now is used.
func NewMemory(ttl time.Duration, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
	}
}

func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; another writer may have refreshed it.
		if cur, ok := m.entries[key]; ok && m.now().After(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(key string, value any) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
}

func (m *Memory) Invalidate(prefix string) {
	m.mu.Lock()
	for k := range m.entries {
		if k == prefix || strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
}

// Len reports the number of live entries (expired entries may be counted
// until their next Get).
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
