package repository

import (
	"context"
	"time"

	"github.com/humrah/backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	Users    Users
	Sessions Sessions
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Users:    newUserRepository(db),
		Sessions: newSessionRepository(db),
	}
}

// VerifiedEmbedding is the projection scanned by the duplicate-identity check.
type VerifiedEmbedding struct {
	UserID    uuid.UUID        `db:"id"`
	Embedding domain.Embedding `db:"verification_embedding"`
}

type Users interface {
	GetOneByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// RecordVerificationAttempt bumps the attempt counter and last-attempt
	// timestamp in one statement.
	RecordVerificationAttempt(ctx context.Context, id uuid.UUID, at time.Time) error
	SetVerified(ctx context.Context, id uuid.UUID, at time.Time, vtype domain.VerificationType, embedding domain.Embedding) error
	ClearVerified(ctx context.Context, id uuid.UUID) error
	AppendRejection(ctx context.Context, id uuid.UUID, rec domain.RejectionRecord) error
	ListVerifiedEmbeddings(ctx context.Context, exclude uuid.UUID) ([]VerifiedEmbedding, error)
	ListAdmins(ctx context.Context) ([]domain.User, error)
	PruneFCMTokens(ctx context.Context, id uuid.UUID, dead []string) error
}

// SessionFinal is the single atomic terminal write: status, scores, embedding
// and video_deleted_at land together so no reader can observe a terminal
// session whose video is still pending destruction.
type SessionFinal struct {
	ID              uuid.UUID
	Status          domain.SessionStatus
	Confidence      *float64
	LivenessScore   *float64
	FaceMatchScore  *float64
	RejectionReason *string
	FaceEmbedding   domain.Embedding
	FraudFlags      domain.FraudFlags
	VideoDeletedAt  time.Time
	ProcessedAt     time.Time
}

// SessionOverride is the reviewer's terminal write on a MANUAL_REVIEW
// session. RejectionReason is set only for REJECTED verdicts.
type SessionOverride struct {
	ID              uuid.UUID
	Status          domain.SessionStatus
	ReviewerID      uuid.UUID
	ReviewNote      *string
	RejectionReason *string
	ReviewedAt      time.Time
}

type Sessions interface {
	Create(ctx context.Context, s *domain.VerificationSession) error
	GetOneByID(ctx context.Context, id uuid.UUID) (*domain.VerificationSession, error)
	// GetLivePending returns the user's PENDING session created after since,
	// or domain.ErrNotFound.
	GetLivePending(ctx context.Context, userID uuid.UUID, since time.Time) (*domain.VerificationSession, error)
	// MarkProcessing transitions PENDING -> PROCESSING exactly once;
	// a second call reports domain.ErrNoRowsAffected.
	MarkProcessing(ctx context.Context, id, userID uuid.UUID, mediaRef string, at time.Time) error
	// Finalize transitions PROCESSING -> terminal via compare-and-set on
	// status; a session already terminal reports domain.ErrNoRowsAffected.
	Finalize(ctx context.Context, f SessionFinal) error
	ListStale(ctx context.Context, now time.Time) ([]domain.VerificationSession, error)
	// Expire is idempotent: it only fires while the session is still
	// PENDING or PROCESSING.
	Expire(ctx context.Context, id uuid.UUID, now time.Time) error
	// Override applies the reviewer verdict; a rejection also clears the
	// stored embedding and records the rejection reason.
	Override(ctx context.Context, o SessionOverride) error
	ListManualReview(ctx context.Context, limit, offset int) ([]domain.VerificationSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.VerificationSession, error)
}
