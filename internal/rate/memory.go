package rate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryLimiter keeps one token bucket per key: MaxAttempts burst, refilled
// evenly over Window.
type MemoryLimiter struct {
	config Config
	limit  rate.Limit
	now    func() time.Time

	mu       sync.Mutex
	limiters map[string]*keyLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a [MemoryLimiter] and starts its idle-key eviction loop.
// Call Stop to end the loop.
func NewMemory(cfg Config) *MemoryLimiter {
	return newMemory(cfg, time.Now)
}

func newMemory(cfg Config, now func() time.Time) *MemoryLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	l := &MemoryLimiter{
		config:   cfg,
		limit:    rate.Every(cfg.Window / time.Duration(cfg.MaxAttempts)),
		now:      now,
		limiters: make(map[string]*keyLimiter),
		stopCh:   make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow consumes one token for key.
func (l *MemoryLimiter) Allow(_ context.Context, key string) error {
	now := l.now()
	if !l.get(key, now).AllowN(now, 1) {
		return ErrRateLimited
	}
	return nil
}

// Reset forgets key, restoring its full burst.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
	return nil
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Stop ends the eviction loop. It is idempotent.
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *MemoryLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(l.limit, l.config.MaxAttempts)}
		l.limiters[key] = kl
	}
	kl.lastAccess = now
	return kl.limiter
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.Window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(l.now())
		case <-l.stopCh:
			return
		}
	}
}

// cleanup drops keys idle for more than two windows. Their buckets are full by then.
func (l *MemoryLimiter) cleanup(now time.Time) {
	ttl := l.config.Window * 2

	l.mu.Lock()
	for key, kl := range l.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(l.limiters, key)
		}
	}
	l.mu.Unlock()
}
