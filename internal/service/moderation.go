package service

import (
	"context"

	"go.uber.org/zap"

	"mortisplay.ru/qa/internal/pkg/logger"
	"mortisplay.ru/qa/internal/pkg/worker"
	"mortisplay.ru/qa/internal/qa"
	"mortisplay.ru/qa/internal/store"
)

// ModerationService is the administrative surface: list submissions in any
// state and apply one-way decisions. The display path only ever sees what
// went through Approve.
type ModerationService struct {
	store store.Store
	pool  *worker.Pool
}

// NewModerationService creates the service. pool may be nil; audit records
// are then written inline.
func NewModerationService(st store.Store, pool *worker.Pool) *ModerationService {
	return &ModerationService{store: st, pool: pool}
}

// List returns submissions in the given state, oldest first.
func (m *ModerationService) List(ctx context.Context, status qa.Status) ([]qa.Submission, error) {
	subs, err := m.store.ListByStatus(ctx, status)
	if err != nil {
		logger.Error("Moderation list read failed",
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return nil, mapStoreErr(err, "")
	}
	return subs, nil
}

// Approve marks a pending submission for public display.
func (m *ModerationService) Approve(ctx context.Context, id, moderator string) error {
	return m.decide(ctx, id, moderator, qa.StatusApproved)
}

// Reject hides a pending submission permanently. The record is kept;
// nothing in this pipeline deletes.
func (m *ModerationService) Reject(ctx context.Context, id, moderator string) error {
	return m.decide(ctx, id, moderator, qa.StatusRejected)
}

func (m *ModerationService) decide(ctx context.Context, id, moderator string, status qa.Status) error {
	if err := m.store.SetStatus(ctx, id, status); err != nil {
		return mapStoreErr(err, id)
	}

	// Audit outside the decision path, best-effort.
	record := func(context.Context) {
		logger.Info("Moderation decision",
			zap.String("action", "moderation."+string(status)),
			zap.String("question_id", id),
			zap.String("moderator", moderator),
		)
	}
	if m.pool != nil {
		if err := m.pool.SubmitDetached(record); err != nil {
			record(ctx)
		}
	} else {
		record(ctx)
	}
	return nil
}
