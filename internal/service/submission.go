// Package service orchestrates the submission pipeline and the moderation
// surface on top of the validator, rate limiter and store.
package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "mortisplay.ru/qa/internal/pkg/errors"
	"mortisplay.ru/qa/internal/pkg/logger"
	"mortisplay.ru/qa/internal/qa"
	"mortisplay.ru/qa/internal/ratelimit"
	"mortisplay.ru/qa/internal/store"
)

// acceptedMessage is what the widget shows on success; kept verbatim from
// the site.
const acceptedMessage = "Вопрос отправлен на модерацию!"

// SubmissionService runs each inbound submission through
// validate → rate-check → store, in that order and only that order.
//
// The side-effect ordering is strict: the store is never touched before
// both checks pass, and the requester's cooldown window starts only after
// the write is confirmed. A failed write releases the window.
type SubmissionService struct {
	store   store.Store
	limiter ratelimit.Limiter
	now     func() time.Time
}

// NewSubmissionService creates the service. now may be nil (defaults to
// time.Now); tests inject their own clock.
func NewSubmissionService(st store.Store, limiter ratelimit.Limiter, now func() time.Time) *SubmissionService {
	if now == nil {
		now = time.Now
	}
	return &SubmissionService{store: st, limiter: limiter, now: now}
}

// Accepted is the successful outcome of Submit.
type Accepted struct {
	ID      string
	Message string
}

// Submit processes one submission attempt. identity is the requester
// identity derived from the transport (client network address) — any
// caller-supplied timestamp has already been discarded by the handler.
func (s *SubmissionService) Submit(ctx context.Context, nickname, question, identity string) (*Accepted, error) {
	nickname, question, err := qa.Validate(nickname, question)
	if err != nil {
		// Validation failures never reach the limiter or the store.
		return nil, err
	}

	grant, err := s.limiter.Acquire(ctx, identity)
	if err != nil {
		if deny, ok := ratelimit.IsDeny(err); ok {
			return nil, apperrors.ErrRateLimited(deny.RetryAfter)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "Внутренняя ошибка", http.StatusInternalServerError)
	}

	submittedAt := s.now().UTC()
	sub, err := s.store.Create(ctx, qa.NewSubmission{
		Nickname:          nickname,
		Question:          question,
		SubmittedAt:       submittedAt,
		RequesterIdentity: identity,
	})
	if err != nil {
		// The write did not happen, so the requester keeps their window.
		grant.Release(ctx)
		logger.Error("Submission write failed",
			zap.String("requester", identity),
			zap.Time("submitted_at", submittedAt),
			zap.Error(err),
		)
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	grant.Commit(ctx)
	logger.Info("Submission accepted",
		zap.String("id", sub.ID),
		zap.Time("submitted_at", submittedAt),
	)
	return &Accepted{ID: sub.ID, Message: acceptedMessage}, nil
}

// ListApproved is the public read path: approved submissions only, oldest
// first. Requester identities never leave the store layer here.
func (s *SubmissionService) ListApproved(ctx context.Context) ([]qa.Submission, error) {
	subs, err := s.store.ListApproved(ctx)
	if err != nil {
		logger.Error("Approved list read failed", zap.Error(err))
		return nil, apperrors.ErrStoreUnavailable(err)
	}
	return subs, nil
}

// mapStoreErr converts store sentinels into client-safe AppErrors.
func mapStoreErr(err error, id string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.ErrQuestionNotFound(id)
	case errors.Is(err, store.ErrAlreadyModerated):
		return apperrors.ErrAlreadyModerated(id)
	default:
		return apperrors.ErrStoreUnavailable(err)
	}
}
