package store

import (
	"context"
	"sync"
	"time"

	"github.com/fittude/fitauth/clock"
)

const sweepEvery = 1024

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// Memory is an in-process [CounterStore]. Expired entries are dropped lazily.
type Memory struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]memoryEntry
	hits    uint64
}

// NewMemory returns an empty store driven by c. A nil c uses the system clock.
func NewMemory(c clock.Clock) *Memory {
	if c == nil {
		c = clock.System{}
	}
	return &Memory{
		clock:   c,
		entries: make(map[string]memoryEntry),
	}
}

// Hit implements [CounterStore].
func (m *Memory) Hit(ctx context.Context, key string, limit int64, window time.Duration) (Window, error) {
	if err := validateHit(key, limit, window); err != nil {
		return Window{}, err
	}
	if err := ctx.Err(); err != nil {
		return Window{}, err
	}

	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits++
	if m.hits%sweepEvery == 0 {
		m.sweepLocked(now)
	}

	entry, ok := m.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = memoryEntry{count: 1, expiresAt: now.Add(window)}
		m.entries[key] = entry
		return Window{Count: 1, TTL: window, Allowed: true}, nil
	}

	ttl := entry.expiresAt.Sub(now)
	if entry.count >= limit {
		return Window{Count: entry.count, TTL: ttl, Allowed: false}, nil
	}

	entry.count++
	m.entries[key] = entry
	return Window{Count: entry.count, TTL: ttl, Allowed: true}, nil
}

// Len reports the number of live and not yet swept entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) sweepLocked(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
