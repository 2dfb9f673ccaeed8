package storage

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var _ ReplayStore = (*MemoryReplayStore)(nil)

// MemoryReplayStore keeps claims in-process. Suitable for development and
// tests; claims are lost on restart and not shared between replicas.
type MemoryReplayStore struct {
	mu     sync.Mutex
	claims map[string]time.Time
	ttl    time.Duration

	done chan struct{}
}

func NewMemoryReplayStore(ttl time.Duration) *MemoryReplayStore {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	m := &MemoryReplayStore{
		claims: make(map[string]time.Time),
		ttl:    ttl,
		done:   make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

func (m *MemoryReplayStore) CheckEventID(_ context.Context, id string) (bool, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if claimedAt, ok := m.claims[id]; ok && now.Sub(claimedAt) <= m.ttl {
		return false, nil
	}
	m.claims[id] = now
	return true, nil
}

func (m *MemoryReplayStore) Close() error {
	close(m.done)
	return nil
}

func (m *MemoryReplayStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryReplayStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for id, claimedAt := range m.claims {
				if now.Sub(claimedAt) > m.ttl {
					delete(m.claims, id)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

var _ RateLimiter = (*MemoryRateLimiter)(nil)

// MemoryRateLimiter applies a per-key token bucket in-process.
type MemoryRateLimiter struct {
	mu        sync.RWMutex
	limiters  map[string]*rate.Limiter
	rateLimit rate.Limit
	burst     int
}

func NewMemoryRateLimiter(ratePerSec float64, burst int) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		rateLimit: rate.Limit(ratePerSec),
		burst:     burst,
	}
}

func (m *MemoryRateLimiter) Allow(_ context.Context, key string) (RateLimitResult, error) {
	m.mu.RLock()
	limiter, exists := m.limiters[key]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		limiter, exists = m.limiters[key]
		if !exists {
			limiter = rate.NewLimiter(m.rateLimit, m.burst)
			m.limiters[key] = limiter
		}
		m.mu.Unlock()
	}

	return RateLimitResult{
		Allowed:    limiter.Allow(),
		RetryAfter: time.Second,
	}, nil
}
