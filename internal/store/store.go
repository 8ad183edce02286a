// Package store persists submissions. Creation is append-only; the only
// mutation ever applied to a record is the one-way moderation decision.
//
// Backends: postgres (pgx), sqlite (modernc), a single JSON file, and an
// in-memory map for tests. All of them assign ids the same way and enforce
// the pending-only status transition, so the service layer does not care
// which one is configured.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mortisplay.ru/qa/internal/qa"
)

// Sentinel errors shared by all backends.
var (
	// ErrUnavailable means the backing medium could not be reached or
	// written. The caller must not leak the wrapped detail to clients.
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotFound means no submission with the given id exists.
	ErrNotFound = errors.New("submission not found")

	// ErrAlreadyModerated means the submission already left pending state.
	ErrAlreadyModerated = errors.New("submission already moderated")
)

// Store is the durable record of submissions.
type Store interface {
	// Create persists a new submission as pending and assigns its id.
	Create(ctx context.Context, in qa.NewSubmission) (*qa.Submission, error)

	// ListApproved returns approved submissions ordered by submission time,
	// oldest first. An empty result is an empty slice, not an error.
	ListApproved(ctx context.Context) ([]qa.Submission, error)

	// ListByStatus returns submissions in the given state, oldest first.
	// Moderation/administrative read path.
	ListByStatus(ctx context.Context, status qa.Status) ([]qa.Submission, error)

	// SetStatus applies a moderation decision. Only pending submissions can
	// be decided; anything else returns ErrAlreadyModerated.
	SetStatus(ctx context.Context, id string, status qa.Status) error

	// Ping reports whether the backing medium is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing medium.
	Close() error
}

// newID assigns submission ids. UUIDv7 sorts by creation time and cannot
// collide across concurrent writers or backends.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// unavailable tags err as an ErrUnavailable while keeping the cause.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// timeLayout is how file and sqlite backends serialize timestamps.
const timeLayout = time.RFC3339Nano

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
