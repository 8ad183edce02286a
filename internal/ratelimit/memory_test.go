package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mortisplay.ru/qa/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

// fakeClock is a settable time source for deterministic cooldown tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

const cooldown = 60 * time.Second

func TestMemoryLimiter_CooldownBoundary(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLimiter(cooldown, WithClock(clock.Now))
	ctx := context.Background()

	g, err := l.Acquire(ctx, "198.51.100.7")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	g.Commit(ctx)

	// One instant before the window closes: denied.
	clock.Advance(cooldown - time.Nanosecond)
	_, err = l.Acquire(ctx, "198.51.100.7")
	deny, ok := IsDeny(err)
	if !ok {
		t.Fatalf("Acquire() inside window error = %v, want DenyError", err)
	}
	if deny.RetryAfter <= 0 || deny.RetryAfter > cooldown {
		t.Errorf("RetryAfter = %v, want (0, %v]", deny.RetryAfter, cooldown)
	}

	// Exactly at the boundary: allowed.
	clock.Advance(time.Nanosecond)
	g, err = l.Acquire(ctx, "198.51.100.7")
	if err != nil {
		t.Fatalf("Acquire() at boundary error = %v", err)
	}
	g.Commit(ctx)
}

func TestMemoryLimiter_IdentitiesAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLimiter(cooldown, WithClock(clock.Now))
	ctx := context.Background()

	g, err := l.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("Acquire(a) error = %v", err)
	}
	g.Commit(ctx)

	if _, err := l.Acquire(ctx, "b"); err != nil {
		t.Errorf("Acquire(b) error = %v, identity b should be unaffected", err)
	}
}

func TestMemoryLimiter_ReservationBlocksSameIdentity(t *testing.T) {
	l := NewMemoryLimiter(cooldown)
	ctx := context.Background()

	g, err := l.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Second request while the first is still in flight.
	if _, err := l.Acquire(ctx, "a"); err == nil {
		t.Error("concurrent Acquire() for the same identity should be denied")
	}

	g.Release(ctx)
}

func TestMemoryLimiter_ReleaseReturnsTheWindow(t *testing.T) {
	l := NewMemoryLimiter(cooldown)
	ctx := context.Background()

	g, err := l.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	// Store write failed; the slot must come back untouched.
	g.Release(ctx)

	g, err = l.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("Acquire() after Release error = %v", err)
	}
	g.Commit(ctx)
}

func TestMemoryLimiter_CommitAndReleaseAreOneShot(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLimiter(cooldown, WithClock(clock.Now))
	ctx := context.Background()

	g, err := l.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	g.Commit(ctx)
	// A late Release must not reopen the committed window.
	g.Release(ctx)

	if _, err := l.Acquire(ctx, "a"); err == nil {
		t.Error("window should still be closed after Commit-then-Release")
	}
}

func TestMemoryLimiter_ConcurrentSameIdentity(t *testing.T) {
	l := NewMemoryLimiter(cooldown)
	ctx := context.Background()

	const n = 32
	var accepted atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			g, err := l.Acquire(ctx, "same")
			if err != nil {
				return
			}
			accepted.Add(1)
			g.Commit(ctx)
		}()
	}
	close(start)
	wg.Wait()

	if got := accepted.Load(); got != 1 {
		t.Errorf("accepted = %d, want exactly 1", got)
	}
}

func TestMemoryLimiter_CleanupEvictsIdle(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLimiter(cooldown, WithClock(clock.Now), WithIdleTTL(2*time.Minute))
	ctx := context.Background()

	g, _ := l.Acquire(ctx, "old")
	g.Commit(ctx)
	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}

	clock.Advance(3 * time.Minute)
	l.Cleanup()
	if l.Len() != 0 {
		t.Errorf("Len() = %d after cleanup, want 0", l.Len())
	}

	// Eviction must not reopen risk: the window had long expired anyway.
	if _, err := l.Acquire(ctx, "old"); err != nil {
		t.Errorf("Acquire() after eviction error = %v", err)
	}
}
