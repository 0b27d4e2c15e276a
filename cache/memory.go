package cache

import (
	"context"
	"sync"
	"time"
)

// Config configures the in-memory cache.
type Config struct {
	// TTL is the default lifetime for entries stored with ttl=0.
	// Default: 15 minutes.
	TTL time.Duration

	// MaxEntries bounds the cache size; the stalest entry is evicted
	// when the bound is exceeded. Default: 1024.
	MaxEntries int
}

// Memory is an in-memory last-known-good cache.
type Memory struct {
	config Config

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	value     any
	storedAt  time.Time
	expiresAt time.Time
}

// NewMemory creates an in-memory cache.
func NewMemory(config Config) *Memory {
	if config.TTL <= 0 {
		config.TTL = 15 * time.Minute
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1024
	}
	return &Memory{
		config:  config,
		entries: make(map[string]*entry),
	}
}

// Get retrieves a cached result. Returns (nil, false) on miss or expiry.
func (m *Memory) Get(_ context.Context, key string) (any, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		// Expired, clean up lazily.
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores a result. ttl=0 applies the configured default TTL.
func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = m.config.TTL
	}

	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.config.MaxEntries {
		m.evictStalestLocked()
	}
	m.entries[key] = &entry{
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Delete removes a cached result. Idempotent, no error on miss.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of live entries, counting expired ones until
// they are lazily collected.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) evictStalestLocked() {
	var stalest string
	var oldest time.Time
	for k, e := range m.entries {
		if stalest == "" || e.storedAt.Before(oldest) {
			stalest = k
			oldest = e.storedAt
		}
	}
	if stalest != "" {
		delete(m.entries, stalest)
	}
}

// Ensure Memory implements Cache.
var _ Cache = (*Memory)(nil)
