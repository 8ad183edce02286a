// Package qa holds the Q&A domain model: submissions, moderation status,
// and the input validator.
package qa

import "time"

// Status is the moderation state of a submission.
//
// Transitions are one-way: a submission is created pending and is moved to
// approved or rejected exactly once by a moderator. It never goes back.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Decided reports whether s is a terminal moderation state.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

// Field limits, counted in characters (runes), not bytes.
const (
	NicknameMaxLen = 50
	QuestionMaxLen = 500
)

// Submission is a single Q&A item awaiting or having received moderation.
//
// Immutable after creation except for Status. RequesterIdentity attributes
// the submission to a sender for rate limiting only and is never rendered.
type Submission struct {
	ID                string    `json:"id"`
	Nickname          string    `json:"nickname"`
	Question          string    `json:"question"`
	SubmittedAt       time.Time `json:"submitted_at"`
	RequesterIdentity string    `json:"-"`
	Status            Status    `json:"status"`
}

// NewSubmission is the input to Store.Create: sanitized fields plus the
// server-assigned timestamp and requester identity.
type NewSubmission struct {
	Nickname          string
	Question          string
	SubmittedAt       time.Time
	RequesterIdentity string
}
