package store

import (
	"context"
	"sort"
	"sync"

	"mortisplay.ru/qa/internal/qa"
)

// Memory is an in-memory Store for tests and throwaway dev runs.
type Memory struct {
	mu   sync.RWMutex
	subs map[string]qa.Submission
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string]qa.Submission)}
}

// Create implements Store.
func (m *Memory) Create(ctx context.Context, in qa.NewSubmission) (*qa.Submission, error) {
	sub := qa.Submission{
		ID:                newID(),
		Nickname:          in.Nickname,
		Question:          in.Question,
		SubmittedAt:       in.SubmittedAt,
		RequesterIdentity: in.RequesterIdentity,
		Status:            qa.StatusPending,
	}

	m.mu.Lock()
	m.subs[sub.ID] = sub
	m.mu.Unlock()

	return &sub, nil
}

// ListApproved implements Store.
func (m *Memory) ListApproved(ctx context.Context) ([]qa.Submission, error) {
	return m.ListByStatus(ctx, qa.StatusApproved)
}

// ListByStatus implements Store.
func (m *Memory) ListByStatus(ctx context.Context, status qa.Status) ([]qa.Submission, error) {
	m.mu.RLock()
	out := make([]qa.Submission, 0)
	for _, s := range m.subs {
		if s.Status == status {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

// SetStatus implements Store.
func (m *Memory) SetStatus(ctx context.Context, id string, status qa.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subs[id]
	if !ok {
		return ErrNotFound
	}
	if sub.Status != qa.StatusPending {
		return ErrAlreadyModerated
	}
	sub.Status = status
	m.subs[id] = sub
	return nil
}

// Ping implements Store.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }
