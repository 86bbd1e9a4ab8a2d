package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/humrah/backend/internal/domain"
	"github.com/humrah/backend/internal/repository"
)

const rejectedByReviewer = "Rejected by reviewer"

type adminService struct {
	sessions repository.Sessions
	users    repository.Users
	notifier ResultNotifier
	now      func() time.Time
}

func newAdminService(sessions repository.Sessions, users repository.Users, notifier ResultNotifier) *adminService {
	return &adminService{
		sessions: sessions,
		users:    users,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *adminService) ListManualReview(ctx context.Context, limit, offset int) ([]ReviewSummary, error) {
	const op = "service.admin.ListManualReview"

	sessions, err := s.sessions.ListManualReview(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: list sessions failed: %w", op, err)
	}

	return s.summarize(ctx, sessions, true), nil
}

// Override records the reviewer's verdict on a MANUAL_REVIEW session. It
// never touches video_deleted_at: destruction already happened before the
// session surfaced for review. A rejection clears the session's embedding
// and records the rejection reason alongside the reviewer fields.
func (s *adminService) Override(ctx context.Context, sessionID, reviewerID uuid.UUID, verdict domain.SessionStatus, reason *string) error {
	const op = "service.admin.Override"

	if verdict != domain.SessionApproved && verdict != domain.SessionRejected {
		return ErrInvalidVerdict
	}

	session, err := s.sessions.GetOneByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%s: load session failed: %w", op, err)
	}

	if session.Status != domain.SessionManualReview {
		return ErrInvalidState
	}

	now := s.now()
	rejection := rejectedByReviewer
	if reason != nil && *reason != "" {
		rejection = *reason
	}

	override := repository.SessionOverride{
		ID:         sessionID,
		Status:     verdict,
		ReviewerID: reviewerID,
		ReviewNote: reason,
		ReviewedAt: now,
	}
	if verdict == domain.SessionRejected {
		override.RejectionReason = &rejection
	}

	if err := s.sessions.Override(ctx, override); err != nil {
		if errors.Is(err, domain.ErrNoRowsAffected) {
			return ErrInvalidState
		}
		return fmt.Errorf("%s: override failed: %w", op, err)
	}

	switch verdict {
	case domain.SessionApproved:
		// The embedding is video-derived even when a reviewer flips the flag.
		if err := s.users.SetVerified(ctx, session.UserID, now, domain.VerificationVideo, session.FaceEmbedding); err != nil {
			return fmt.Errorf("%s: set user verified failed: %w", op, err)
		}
	case domain.SessionRejected:
		rec := domain.RejectionRecord{Reason: rejection, At: now, SessionID: sessionID}
		if err := s.users.AppendRejection(ctx, session.UserID, rec); err != nil {
			return fmt.Errorf("%s: append rejection failed: %w", op, err)
		}
	}

	if s.notifier != nil {
		updated, err := s.sessions.GetOneByID(ctx, sessionID)
		if err == nil {
			s.notifier.NotifyResult(ctx, session.UserID, updated)
		}
	}

	return nil
}

func (s *adminService) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]ReviewSummary, error) {
	const op = "service.admin.History"

	sessions, err := s.sessions.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: list sessions failed: %w", op, err)
	}

	return s.summarize(ctx, sessions, false), nil
}

func (s *adminService) summarize(ctx context.Context, sessions []domain.VerificationSession, withNames bool) []ReviewSummary {
	out := make([]ReviewSummary, 0, len(sessions))
	for i := range sessions {
		sess := &sessions[i]
		summary := ReviewSummary{
			SessionID:       sess.ID,
			UserID:          sess.UserID,
			Status:          sess.Status,
			Confidence:      sess.Confidence,
			LivenessScore:   sess.LivenessScore,
			FaceMatchScore:  sess.FaceMatchScore,
			RejectionReason: sess.RejectionReason,
			CreatedAt:       sess.CreatedAt,
			ProcessedAt:     sess.ProcessedAt,
		}
		if withNames {
			if user, err := s.users.GetOneByID(ctx, sess.UserID); err == nil && user.Name.Valid {
				summary.UserName = user.Name.String
			}
		}
		out = append(out, summary)
	}
	return out
}
