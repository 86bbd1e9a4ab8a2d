package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/humrah/backend/internal/domain"
)

const sessionColumns = `
    id, user_id, instructions, status, media_ref,
    confidence, liveness_score, face_match_score,
    rejection_reason, face_embedding, fraud_flags,
    reviewer_id, reviewed_at, review_note,
    expires_at, video_deleted_at, created_at, processing_started_at, processed_at
`

type sessionRepository struct {
	db *sqlx.DB
}

func newSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{
		db: db,
	}
}

func (r *sessionRepository) Create(ctx context.Context, s *domain.VerificationSession) error {
	const op = "repository.session.Create"

	const query = `
    INSERT INTO verification_sessions (id, user_id, instructions, status, expires_at, created_at)
    VALUES (uuid_to_bin(:id), uuid_to_bin(:user_id), :instructions, :status, :expires_at, :created_at)
    `

	res, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		return fmt.Errorf("%s: insert session failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	if rows != 1 {
		return fmt.Errorf("%s: expected 1 row affected, got %d", op, rows)
	}

	return nil
}

func (r *sessionRepository) GetOneByID(ctx context.Context, id uuid.UUID) (*domain.VerificationSession, error) {
	const op = "repository.session.GetOneByID"

	query := `
    SELECT ` + sessionColumns + `
    FROM verification_sessions
    WHERE id = uuid_to_bin(?)
    `

	var s domain.VerificationSession
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select session failed: %w", op, err)
	}

	return &s, nil
}

func (r *sessionRepository) GetLivePending(ctx context.Context, userID uuid.UUID, since time.Time) (*domain.VerificationSession, error) {
	const op = "repository.session.GetLivePending"

	query := `
    SELECT ` + sessionColumns + `
    FROM verification_sessions
    WHERE user_id = uuid_to_bin(?) AND status = 'PENDING' AND created_at > ?
    ORDER BY created_at DESC
    LIMIT 1
    `

	var s domain.VerificationSession
	if err := r.db.GetContext(ctx, &s, query, userID, since); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select session failed: %w", op, err)
	}

	return &s, nil
}

func (r *sessionRepository) MarkProcessing(ctx context.Context, id, userID uuid.UUID, mediaRef string, at time.Time) error {
	const op = "repository.session.MarkProcessing"

	const query = `
    UPDATE verification_sessions
    SET status = 'PROCESSING', media_ref = ?, processing_started_at = ?
    WHERE id = uuid_to_bin(?) AND user_id = uuid_to_bin(?) AND status = 'PENDING'
    `

	res, err := r.db.ExecContext(ctx, query, mediaRef, at, id, userID)
	if err != nil {
		return fmt.Errorf("%s: update session failed: %w", op, err)
	}

	return expectOneRow(op, res)
}

func (r *sessionRepository) Finalize(ctx context.Context, f SessionFinal) error {
	const op = "repository.session.Finalize"

	if !f.Status.IsTerminal() {
		return fmt.Errorf("%s: %s is not a terminal status", op, f.Status)
	}

	const query = `
    UPDATE verification_sessions
    SET status = ?, confidence = ?, liveness_score = ?, face_match_score = ?,
        rejection_reason = ?, face_embedding = ?, fraud_flags = ?,
        video_deleted_at = ?, processed_at = ?
    WHERE id = uuid_to_bin(?) AND status = 'PROCESSING'
    `

	res, err := r.db.ExecContext(ctx, query,
		f.Status, f.Confidence, f.LivenessScore, f.FaceMatchScore,
		f.RejectionReason, f.FaceEmbedding, f.FraudFlags,
		f.VideoDeletedAt, f.ProcessedAt, f.ID)
	if err != nil {
		return fmt.Errorf("%s: update session failed: %w", op, err)
	}

	return expectOneRow(op, res)
}

func (r *sessionRepository) ListStale(ctx context.Context, now time.Time) ([]domain.VerificationSession, error) {
	const op = "repository.session.ListStale"

	query := `
    SELECT ` + sessionColumns + `
    FROM verification_sessions
    WHERE status IN ('PENDING', 'PROCESSING') AND expires_at < ?
    `

	var out []domain.VerificationSession
	if err := r.db.SelectContext(ctx, &out, query, now); err != nil {
		return nil, fmt.Errorf("%s: select stale sessions failed: %w", op, err)
	}

	return out, nil
}

// Expire fires only while the session is still live, so a concurrent pipeline
// finalize and the sweep cannot clobber each other.
func (r *sessionRepository) Expire(ctx context.Context, id uuid.UUID, now time.Time) error {
	const op = "repository.session.Expire"

	const query = `
    UPDATE verification_sessions
    SET status = 'EXPIRED', video_deleted_at = ?, processed_at = ?
    WHERE id = uuid_to_bin(?) AND status IN ('PENDING', 'PROCESSING')
    `

	res, err := r.db.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return fmt.Errorf("%s: update session failed: %w", op, err)
	}

	// Zero rows means the session is already terminal; the sweep is idempotent.
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	return nil
}

func (r *sessionRepository) Override(ctx context.Context, o SessionOverride) error {
	const op = "repository.session.Override"

	// A rejection clears the embedding; it only survives APPROVED and
	// MANUAL_REVIEW sessions, and rejection_reason only REJECTED/FAILED ones.
	if o.Status == domain.SessionRejected {
		const query = `
	    UPDATE verification_sessions
	    SET status = ?, reviewer_id = uuid_to_bin(?), reviewed_at = ?, review_note = ?,
	        rejection_reason = ?, face_embedding = NULL
	    WHERE id = uuid_to_bin(?) AND status = 'MANUAL_REVIEW'
	    `

		res, err := r.db.ExecContext(ctx, query, o.Status, o.ReviewerID, o.ReviewedAt, o.ReviewNote, o.RejectionReason, o.ID)
		if err != nil {
			return fmt.Errorf("%s: update session failed: %w", op, err)
		}

		return expectOneRow(op, res)
	}

	const query = `
    UPDATE verification_sessions
    SET status = ?, reviewer_id = uuid_to_bin(?), reviewed_at = ?, review_note = ?
    WHERE id = uuid_to_bin(?) AND status = 'MANUAL_REVIEW'
    `

	res, err := r.db.ExecContext(ctx, query, o.Status, o.ReviewerID, o.ReviewedAt, o.ReviewNote, o.ID)
	if err != nil {
		return fmt.Errorf("%s: update session failed: %w", op, err)
	}

	return expectOneRow(op, res)
}

func (r *sessionRepository) ListManualReview(ctx context.Context, limit, offset int) ([]domain.VerificationSession, error) {
	const op = "repository.session.ListManualReview"

	query := `
    SELECT ` + sessionColumns + `
    FROM verification_sessions
    WHERE status = 'MANUAL_REVIEW'
    ORDER BY processed_at ASC
    LIMIT ? OFFSET ?
    `

	var out []domain.VerificationSession
	if err := r.db.SelectContext(ctx, &out, query, limit, offset); err != nil {
		return nil, fmt.Errorf("%s: select sessions failed: %w", op, err)
	}

	return out, nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.VerificationSession, error) {
	const op = "repository.session.ListByUser"

	query := `
    SELECT ` + sessionColumns + `
    FROM verification_sessions
    WHERE user_id = uuid_to_bin(?)
    ORDER BY created_at DESC
    LIMIT ? OFFSET ?
    `

	var out []domain.VerificationSession
	if err := r.db.SelectContext(ctx, &out, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("%s: select sessions failed: %w", op, err)
	}

	return out, nil
}
