package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps per-identity cooldown state in a mutex-protected map.
// Suitable for a single-instance deployment; use RedisLimiter when the
// backend runs more than one replica.
type MemoryLimiter struct {
	mu       sync.Mutex
	entries  map[string]*memoryEntry
	cooldown time.Duration
	idleTTL  time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	lastAccepted time.Time // zero until the first committed submission
	reserved     bool
	lastSeen     time.Time
}

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) { l.now = now }
}

// WithIdleTTL overrides how long an idle identity is remembered before
// Cleanup evicts it. Never below the cooldown itself.
func WithIdleTTL(d time.Duration) MemoryOption {
	return func(l *MemoryLimiter) { l.idleTTL = d }
}

// NewMemoryLimiter creates a limiter with the given cooldown.
func NewMemoryLimiter(cooldown time.Duration, opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		entries:  make(map[string]*memoryEntry),
		cooldown: cooldown,
		idleTTL:  15 * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.idleTTL < l.cooldown {
		l.idleTTL = l.cooldown
	}
	return l
}

// Acquire implements Limiter.
func (l *MemoryLimiter) Acquire(ctx context.Context, identity string) (Grant, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identity]
	if !ok {
		e = &memoryEntry{}
		l.entries[identity] = e
	}
	e.lastSeen = now

	if e.reserved {
		return nil, &DenyError{RetryAfter: l.remaining(e, now)}
	}
	if !e.lastAccepted.IsZero() {
		// Boundary is inclusive on the allow side: a request at exactly
		// lastAccepted+cooldown passes.
		if elapsed := now.Sub(e.lastAccepted); elapsed < l.cooldown {
			return nil, &DenyError{RetryAfter: l.cooldown - elapsed}
		}
	}

	e.reserved = true
	return &memoryGrant{limiter: l, identity: identity}, nil
}

// remaining estimates how long the caller should wait. With an in-flight
// reservation and no prior accept there is no exact answer; the full
// cooldown is a safe hint.
func (l *MemoryLimiter) remaining(e *memoryEntry, now time.Time) time.Duration {
	if e.lastAccepted.IsZero() {
		return l.cooldown
	}
	if left := l.cooldown - now.Sub(e.lastAccepted); left > 0 {
		return left
	}
	return l.cooldown
}

// Cleanup evicts identities idle longer than the TTL. Reserved entries are
// kept; their grant is still in flight.
func (l *MemoryLimiter) Cleanup() {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, e := range l.entries {
		if !e.reserved && e.lastSeen.Before(cutoff) && e.lastAccepted.Before(cutoff) {
			delete(l.entries, id)
		}
	}
}

// Len returns the number of tracked identities.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type memoryGrant struct {
	limiter  *MemoryLimiter
	identity string
	done     bool
}

func (g *memoryGrant) Commit(ctx context.Context) {
	g.limiter.mu.Lock()
	defer g.limiter.mu.Unlock()
	if g.done {
		return
	}
	g.done = true

	if e, ok := g.limiter.entries[g.identity]; ok {
		e.reserved = false
		e.lastAccepted = g.limiter.now()
	}
}

func (g *memoryGrant) Release(ctx context.Context) {
	g.limiter.mu.Lock()
	defer g.limiter.mu.Unlock()
	if g.done {
		return
	}
	g.done = true

	if e, ok := g.limiter.entries[g.identity]; ok {
		e.reserved = false
	}
}
