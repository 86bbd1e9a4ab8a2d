package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/humrah/backend/internal/config"
	"github.com/humrah/backend/internal/domain"
	"github.com/humrah/backend/internal/media"
	"github.com/humrah/backend/internal/repository"
)

type Services struct {
	Verification Verification
	Admin        Admin
}

// PipelineEnqueuer hands a PROCESSING session to the background pipeline.
type PipelineEnqueuer interface {
	EnqueueProcess(ctx context.Context, sessionID uuid.UUID) error
}

// ResultNotifier fans a session outcome out to the user (and, for manual
// review verdicts, to admins). Implementations log failures and never
// propagate them; notification never affects a session outcome.
type ResultNotifier interface {
	NotifyResult(ctx context.Context, userID uuid.UUID, session *domain.VerificationSession)
	NotifyAdmins(ctx context.Context, session *domain.VerificationSession)
}

type Deps struct {
	Config    *config.Config
	Repos     *repository.Repositories
	Media     media.Store
	Lifecycle media.Destroyer
	Enqueuer  PipelineEnqueuer
	Notifier  ResultNotifier
}

func NewServices(deps Deps) *Services {
	return &Services{
		Verification: newVerificationService(
			deps.Repos.Sessions,
			deps.Repos.Users,
			deps.Media,
			deps.Lifecycle,
			deps.Enqueuer,
			deps.Config.Verification,
		),
		Admin: newAdminService(
			deps.Repos.Sessions,
			deps.Repos.Users,
			deps.Notifier,
		),
	}
}

type StartSessionOutput struct {
	SessionID        uuid.UUID           `json:"session_id"`
	Instructions     domain.Instructions `json:"instructions"`
	DurationSeconds  int                 `json:"duration_seconds"`
	ExpiresInSeconds int                 `json:"expires_in_seconds"`
}

type SessionStatusOutput struct {
	Status          domain.SessionStatus `json:"status"`
	Result          string               `json:"result,omitempty"`
	Confidence      *float64             `json:"confidence,omitempty"`
	LivenessScore   *float64             `json:"liveness_score,omitempty"`
	FaceMatchScore  *float64             `json:"face_match_score,omitempty"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	ProcessedAt     *time.Time           `json:"processed_at,omitempty"`
}

type Verification interface {
	StartSession(ctx context.Context, userID uuid.UUID) (*StartSessionOutput, error)
	AttachMedia(ctx context.Context, sessionID, userID uuid.UUID, video io.Reader, size int64, contentType string) error
	GetStatus(ctx context.Context, sessionID, userID uuid.UUID) (*SessionStatusOutput, error)
	// ExpireStale sweeps PENDING/PROCESSING sessions past their deadline.
	// Idempotent; returns the number of sessions swept.
	ExpireStale(ctx context.Context) (int, error)
}

// ReviewSummary is the admin projection; embeddings are never included.
type ReviewSummary struct {
	SessionID       uuid.UUID            `json:"session_id"`
	UserID          uuid.UUID            `json:"user_id"`
	UserName        string               `json:"user_name,omitempty"`
	Status          domain.SessionStatus `json:"status"`
	Confidence      *float64             `json:"confidence,omitempty"`
	LivenessScore   *float64             `json:"liveness_score,omitempty"`
	FaceMatchScore  *float64             `json:"face_match_score,omitempty"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	ProcessedAt     *time.Time           `json:"processed_at,omitempty"`
}

type Admin interface {
	ListManualReview(ctx context.Context, limit, offset int) ([]ReviewSummary, error)
	Override(ctx context.Context, sessionID, reviewerID uuid.UUID, verdict domain.SessionStatus, reason *string) error
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]ReviewSummary, error)
}
