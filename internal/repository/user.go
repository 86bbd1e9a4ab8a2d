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

const userColumns = `
    id, name, email, phone_number, role, profile_photo,
    verified, verified_at, verification_type, verification_embedding,
    verification_attempts, last_verification_attempt, verification_rejections,
    fcm_tokens, allows_notifications, created_at, updated_at, deleted_at
`

type userRepository struct {
	db *sqlx.DB
}

func newUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) GetOneByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "repository.user.GetOneByID"

	query := `
    SELECT ` + userColumns + `
    FROM users
    WHERE id = uuid_to_bin(?) AND deleted_at IS NULL
    `

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select user failed: %w", op, err)
	}

	return &user, nil
}

func (r *userRepository) RecordVerificationAttempt(ctx context.Context, id uuid.UUID, at time.Time) error {
	const op = "repository.user.RecordVerificationAttempt"

	const query = `
    UPDATE users
    SET verification_attempts = verification_attempts + 1, last_verification_attempt = ?
    WHERE id = uuid_to_bin(?)
    `

	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("%s: update user failed: %w", op, err)
	}

	return expectOneRow(op, res)
}

func (r *userRepository) SetVerified(ctx context.Context, id uuid.UUID, at time.Time, vtype domain.VerificationType, embedding domain.Embedding) error {
	const op = "repository.user.SetVerified"

	const query = `
    UPDATE users
    SET verified = 1, verified_at = ?, verification_type = ?, verification_embedding = ?
    WHERE id = uuid_to_bin(?)
    `

	res, err := r.db.ExecContext(ctx, query, at, vtype, embedding, id)
	if err != nil {
		return fmt.Errorf("%s: update user failed: %w", op, err)
	}

	return expectOneRow(op, res)
}

func (r *userRepository) ClearVerified(ctx context.Context, id uuid.UUID) error {
	const op = "repository.user.ClearVerified"

	const query = `
    UPDATE users
    SET verified = 0, verified_at = NULL, verification_type = NULL, verification_embedding = NULL
    WHERE id = uuid_to_bin(?)
    `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: update user failed: %w", op, err)
	}

	return expectOneRow(op, res)
}

// AppendRejection rewrites the bounded rejection log; the read-modify-write
// races only with the session's own pipeline task, which is single-flight.
func (r *userRepository) AppendRejection(ctx context.Context, id uuid.UUID, rec domain.RejectionRecord) error {
	const op = "repository.user.AppendRejection"

	user, err := r.GetOneByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: load user failed: %w", op, err)
	}

	updated := user.VerificationRejections.Append(rec)

	const query = `
    UPDATE users
    SET verification_rejections = ?
    WHERE id = uuid_to_bin(?)
    `

	res, err := r.db.ExecContext(ctx, query, updated, id)
	if err != nil {
		return fmt.Errorf("%s: update user failed: %w", op, err)
	}

	return expectOneRow(op, res)
}

func (r *userRepository) ListVerifiedEmbeddings(ctx context.Context, exclude uuid.UUID) ([]VerifiedEmbedding, error) {
	const op = "repository.user.ListVerifiedEmbeddings"

	const query = `
    SELECT id, verification_embedding
    FROM users
    WHERE verified = 1
      AND verification_embedding IS NOT NULL
      AND deleted_at IS NULL
      AND id <> uuid_to_bin(?)
    `

	var out []VerifiedEmbedding
	if err := r.db.SelectContext(ctx, &out, query, exclude); err != nil {
		return nil, fmt.Errorf("%s: select embeddings failed: %w", op, err)
	}

	return out, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]domain.User, error) {
	const op = "repository.user.ListAdmins"

	query := `
    SELECT ` + userColumns + `
    FROM users
    WHERE role = 'admin' AND deleted_at IS NULL
    `

	var out []domain.User
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("%s: select admins failed: %w", op, err)
	}

	return out, nil
}

func (r *userRepository) PruneFCMTokens(ctx context.Context, id uuid.UUID, dead []string) error {
	const op = "repository.user.PruneFCMTokens"

	if len(dead) == 0 {
		return nil
	}

	user, err := r.GetOneByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: load user failed: %w", op, err)
	}

	const query = `
    UPDATE users
    SET fcm_tokens = ?
    WHERE id = uuid_to_bin(?)
    `

	res, err := r.db.ExecContext(ctx, query, user.FCMTokens.Remove(dead), id)
	if err != nil {
		return fmt.Errorf("%s: update user failed: %w", op, err)
	}

	return expectOneRow(op, res)
}

func expectOneRow(op string, res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	if rows != 1 {
		return fmt.Errorf("%s: expected 1 row affected, got %d: %w", op, rows, domain.ErrNoRowsAffected)
	}

	return nil
}
