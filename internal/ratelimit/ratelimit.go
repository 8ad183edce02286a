// Package ratelimit implements the submission cooldown: one accepted
// question per requester identity per configured interval.
//
// The check is two-phase. Acquire atomically checks the window and reserves
// it, so two near-simultaneous requests from one identity cannot both pass.
// The window only starts counting when the caller Commits after a confirmed
// store write; Release gives it back if the write failed, so a storage
// outage never silently consumes the requester's slot.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter decides whether a submission from the given identity is
// currently permitted.
type Limiter interface {
	// Acquire reserves the identity's cooldown slot. It returns a Grant on
	// success, or a *DenyError when the identity is inside its cooldown
	// window (or holds an in-flight reservation).
	Acquire(ctx context.Context, identity string) (Grant, error)
}

// Grant is a reserved cooldown slot. Exactly one of Commit or Release must
// be called; both are safe to call once only.
type Grant interface {
	// Commit starts the cooldown window. Call after the store write succeeded.
	Commit(ctx context.Context)

	// Release returns the slot without starting the window. Call when the
	// submission was not stored.
	Release(ctx context.Context)
}

// DenyError is returned by Acquire when the submission is not permitted.
type DenyError struct {
	// RetryAfter is how long the requester should wait before retrying.
	RetryAfter time.Duration
}

func (e *DenyError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// IsDeny returns the DenyError if err is one.
func IsDeny(err error) (*DenyError, bool) {
	d, ok := err.(*DenyError)
	return d, ok
}
