package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/humrah/backend/internal/config"
	"github.com/humrah/backend/internal/domain"
	"github.com/humrah/backend/internal/media"
	"github.com/humrah/backend/internal/metrics"
	"github.com/humrah/backend/internal/repository"
	"github.com/humrah/backend/pkg/logger"
)

// instructionPool is the fixed action set read to the user while recording.
var instructionPool = []string{
	"Look straight at the camera",
	"Blink twice",
	"Turn your head slowly to the left",
	"Turn your head slowly to the right",
	"Smile",
	"Move slightly closer to the camera",
}

const (
	instructionsMin = 3
	instructionsMax = 4
)

type verificationService struct {
	sessions  repository.Sessions
	users     repository.Users
	media     media.Store
	lifecycle media.Destroyer
	enqueuer  PipelineEnqueuer
	cfg       config.Verification
	now       func() time.Time
}

func newVerificationService(
	sessions repository.Sessions,
	users repository.Users,
	mediaStore media.Store,
	lifecycle media.Destroyer,
	enqueuer PipelineEnqueuer,
	cfg config.Verification,
) *verificationService {
	return &verificationService{
		sessions:  sessions,
		users:     users,
		media:     mediaStore,
		lifecycle: lifecycle,
		enqueuer:  enqueuer,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *verificationService) StartSession(ctx context.Context, userID uuid.UUID) (*StartSessionOutput, error) {
	const op = "service.verification.StartSession"

	user, err := s.users.GetOneByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: load user failed: %w", op, err)
	}

	if user.Verified {
		return nil, ErrAlreadyVerified
	}

	now := s.now()
	if !s.throttleAllows(user, now) {
		return nil, ErrRateLimited
	}

	if _, err := s.sessions.GetLivePending(ctx, userID, now.Add(-s.cfg.SessionExpiry())); err == nil {
		return nil, ErrSessionInProgress
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%s: check live session failed: %w", op, err)
	}

	session := &domain.VerificationSession{
		ID:           uuid.New(),
		UserID:       userID,
		Instructions: sampleInstructions(),
		Status:       domain.SessionPending,
		ExpiresAt:    now.Add(s.cfg.SessionExpiry()),
		CreatedAt:    now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%s: create session failed: %w", op, err)
	}

	if err := s.users.RecordVerificationAttempt(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("%s: record attempt failed: %w", op, err)
	}

	metrics.SessionsStarted.Inc()

	return &StartSessionOutput{
		SessionID:        session.ID,
		Instructions:     session.Instructions,
		DurationSeconds:  s.cfg.RecordSeconds,
		ExpiresInSeconds: s.cfg.SessionExpirySeconds,
	}, nil
}

// throttleAllows implements the retry gate: no prior attempt, or the last
// attempt is outside the window, or fewer than the max attempts so far.
func (s *verificationService) throttleAllows(user *domain.User, now time.Time) bool {
	if user.VerificationAttempts == 0 || user.LastVerificationAttempt == nil {
		return true
	}
	if now.Sub(*user.LastVerificationAttempt) > s.cfg.RetryWindow() {
		return true
	}
	return user.VerificationAttempts < s.cfg.RetryMaxAttempts
}

func (s *verificationService) AttachMedia(ctx context.Context, sessionID, userID uuid.UUID, video io.Reader, size int64, contentType string) error {
	const op = "service.verification.AttachMedia"

	if size > s.cfg.VideoMaxBytes {
		return ErrVideoTooLarge
	}
	if !strings.HasPrefix(contentType, "video/") {
		return ErrBadMediaType
	}

	session, err := s.sessions.GetOneByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%s: load session failed: %w", op, err)
	}

	// Owner mismatch is indistinguishable from absence on purpose.
	if session.UserID != userID {
		return ErrSessionNotFound
	}
	if session.Status != domain.SessionPending {
		return ErrInvalidState
	}

	now := s.now()
	if session.Expired(now) {
		return ErrSessionExpired
	}

	mediaRef, err := s.media.Put(ctx, sessionID, video, size, contentType)
	if err != nil {
		return fmt.Errorf("%s: store video failed: %w", op, err)
	}

	if err := s.sessions.MarkProcessing(ctx, sessionID, userID, mediaRef, now); err != nil {
		// Lost the race against a concurrent upload or the sweep; the
		// orphaned object must not linger.
		if delErr := s.media.Delete(ctx, mediaRef); delErr != nil {
			logger.Error("orphaned upload cleanup failed",
				zap.String("media_ref", mediaRef), zap.Error(delErr))
		}
		if errors.Is(err, domain.ErrNoRowsAffected) {
			return ErrInvalidState
		}
		return fmt.Errorf("%s: mark processing failed: %w", op, err)
	}

	if err := s.enqueuer.EnqueueProcess(ctx, sessionID); err != nil {
		// The session is PROCESSING but no task carries it; fail it now
		// rather than strand the user until the sweep.
		s.failUnprocessable(ctx, sessionID, mediaRef)
		return fmt.Errorf("%s: enqueue pipeline failed: %w", op, err)
	}

	return nil
}

func (s *verificationService) failUnprocessable(ctx context.Context, sessionID uuid.UUID, mediaRef string) {
	now := s.now()
	if err := s.lifecycle.Destroy(ctx, mediaRef); err != nil {
		metrics.MediaDestructionFailures.Inc()
	}
	reason := "Processing error occurred"
	err := s.sessions.Finalize(ctx, repository.SessionFinal{
		ID:              sessionID,
		Status:          domain.SessionFailed,
		RejectionReason: &reason,
		VideoDeletedAt:  now,
		ProcessedAt:     now,
	})
	if err != nil {
		logger.Error("finalize unprocessable session failed",
			zap.String("session_id", sessionID.String()), zap.Error(err))
	}
}

func (s *verificationService) GetStatus(ctx context.Context, sessionID, userID uuid.UUID) (*SessionStatusOutput, error) {
	const op = "service.verification.GetStatus"

	session, err := s.sessions.GetOneByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%s: load session failed: %w", op, err)
	}

	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}

	return &SessionStatusOutput{
		Status:          session.Status,
		Result:          session.Result(),
		Confidence:      session.Confidence,
		LivenessScore:   session.LivenessScore,
		FaceMatchScore:  session.FaceMatchScore,
		RejectionReason: session.RejectionReason,
		CreatedAt:       session.CreatedAt,
		ProcessedAt:     session.ProcessedAt,
	}, nil
}

func (s *verificationService) ExpireStale(ctx context.Context) (int, error) {
	const op = "service.verification.ExpireStale"

	now := s.now()
	stale, err := s.sessions.ListStale(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%s: list stale failed: %w", op, err)
	}

	swept := 0
	for i := range stale {
		session := &stale[i]
		if session.MediaRef != nil {
			if err := s.lifecycle.Destroy(ctx, *session.MediaRef); err != nil {
				metrics.MediaDestructionFailures.Inc()
				continue
			}
		}
		if err := s.sessions.Expire(ctx, session.ID, now); err != nil {
			logger.Error("expire session failed",
				zap.String("session_id", session.ID.String()), zap.Error(err))
			continue
		}
		swept++
	}

	if swept > 0 {
		metrics.SessionsSwept.Add(float64(swept))
	}

	return swept, nil
}

func sampleInstructions() domain.Instructions {
	n := instructionsMin + rand.IntN(instructionsMax-instructionsMin+1)

	idx := rand.Perm(len(instructionPool))
	out := make(domain.Instructions, 0, n)
	for _, i := range idx[:n] {
		out = append(out, instructionPool[i])
	}
	return out
}
