package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/humrah/backend/internal/config"
	"github.com/humrah/backend/internal/domain"
	"github.com/humrah/backend/internal/push"
	"github.com/humrah/backend/internal/repository"
	"github.com/humrah/backend/pkg/email"
	"github.com/humrah/backend/pkg/logger"
)

const (
	titleApproved     = "Identity verified"
	titleRejected     = "Verification unsuccessful"
	titleManualReview = "Verification under review"
	titleFailed       = "Verification failed"
	titleExpired      = "Verification expired"

	bodyApproved     = "Your identity has been verified. Welcome to Humrah!"
	bodyManualReview = "Your verification is being reviewed by our team. We'll let you know soon."
	bodyFailed       = "Something went wrong while processing your video. Please try again."
	bodyExpired      = "Your verification session expired before processing finished. Please start a new one."

	adminReviewSubject = "Verification pending review"
)

// Service fans verification outcomes out over push and, for review queues,
// admin email. Every failure is logged and swallowed: delivery never feeds
// back into a session outcome.
type Service struct {
	push     push.Sender
	email    email.Sender
	users    repository.Users
	emailCfg config.EmailConfig
}

func NewService(pushSender push.Sender, emailSender email.Sender, users repository.Users, emailCfg config.EmailConfig) *Service {
	return &Service{
		push:     pushSender,
		email:    emailSender,
		users:    users,
		emailCfg: emailCfg,
	}
}

func (s *Service) NotifyResult(ctx context.Context, userID uuid.UUID, session *domain.VerificationSession) {
	user, err := s.users.GetOneByID(ctx, userID)
	if err != nil {
		logger.Warn("notify: load user failed",
			zap.String("user_id", userID.String()), zap.Error(err))
		return
	}

	msg, ok := resultMessage(session)
	if !ok {
		return
	}

	s.sendToUser(ctx, user, msg)
}

func (s *Service) NotifyAdmins(ctx context.Context, session *domain.VerificationSession) {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		logger.Warn("notify: list admins failed", zap.Error(err))
		return
	}

	msg := push.Message{
		Title: adminReviewSubject,
		Body:  "A verification session needs a reviewer.",
		Data: map[string]string{
			"type":       "verification_review",
			"session_id": session.ID.String(),
		},
	}

	for i := range admins {
		admin := &admins[i]
		s.sendToUser(ctx, admin, msg)
		s.emailAdmin(admin, session)
	}
}

func resultMessage(session *domain.VerificationSession) (push.Message, bool) {
	data := map[string]string{
		"type":       "verification_result",
		"session_id": session.ID.String(),
		"status":     string(session.Status),
	}

	switch session.Status {
	case domain.SessionApproved:
		return push.Message{Title: titleApproved, Body: bodyApproved, Data: data}, true
	case domain.SessionRejected:
		body := "Your verification was not successful. Please try again."
		if session.RejectionReason != nil {
			body = *session.RejectionReason
		}
		return push.Message{Title: titleRejected, Body: body, Data: data}, true
	case domain.SessionManualReview:
		return push.Message{Title: titleManualReview, Body: bodyManualReview, Data: data}, true
	case domain.SessionFailed:
		return push.Message{Title: titleFailed, Body: bodyFailed, Data: data}, true
	case domain.SessionExpired:
		return push.Message{Title: titleExpired, Body: bodyExpired, Data: data}, true
	default:
		return push.Message{}, false
	}
}

func (s *Service) sendToUser(ctx context.Context, user *domain.User, msg push.Message) {
	if !user.AllowsNotifications || len(user.FCMTokens) == 0 {
		return
	}

	res, err := s.push.SendToTokens(ctx, user.FCMTokens, msg)
	if err != nil {
		logger.Warn("notify: push delivery failed",
			zap.String("user_id", user.ID.String()), zap.Error(err))
		return
	}

	if len(res.FailedTokens) > 0 {
		if err := s.users.PruneFCMTokens(ctx, user.ID, res.FailedTokens); err != nil {
			logger.Warn("notify: token prune failed",
				zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}
}

func (s *Service) emailAdmin(admin *domain.User, session *domain.VerificationSession) {
	if s.email == nil || !s.emailCfg.Enabled || !admin.Email.Valid {
		return
	}

	input := email.SendEmailInput{
		To:      admin.Email.String,
		Subject: adminReviewSubject,
	}

	err := input.GenerateBodyFromHTML(s.emailCfg.Templates.ManualReview, map[string]string{
		"SessionID": session.ID.String(),
		"UserID":    session.UserID.String(),
	})
	if err != nil {
		logger.Warn("notify: render review email failed", zap.Error(err))
		return
	}

	if err := s.email.Send(input); err != nil {
		logger.Warn("notify: send review email failed",
			zap.String("to", admin.Email.String), zap.Error(err))
	}
}
