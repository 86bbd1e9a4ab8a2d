package domain

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleMember    UserRole = "member"
	RoleCompanion UserRole = "companion"
	RoleAdmin     UserRole = "admin"
)

type VerificationType string

const (
	VerificationPhoto  VerificationType = "PHOTO"
	VerificationVideo  VerificationType = "VIDEO"
	VerificationManual VerificationType = "MANUAL"
)

// RejectionRecordLimit bounds the per-user rejection log.
const RejectionRecordLimit = 5

type RejectionRecord struct {
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
	SessionID uuid.UUID `json:"session_id"`
}

type RejectionList []RejectionRecord

func (r RejectionList) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func (r *RejectionList) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	b, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("unsupported type for RejectionList: %w", err)
	}
	return json.Unmarshal(b, r)
}

// Append keeps only the most recent RejectionRecordLimit entries, newest last.
func (r RejectionList) Append(rec RejectionRecord) RejectionList {
	out := append(r, rec)
	if len(out) > RejectionRecordLimit {
		out = out[len(out)-RejectionRecordLimit:]
	}
	return out
}

type TokenList []string

func (t TokenList) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

func (t *TokenList) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	b, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("unsupported type for TokenList: %w", err)
	}
	return json.Unmarshal(b, t)
}

// Remove returns the list without the given tokens, preserving order.
func (t TokenList) Remove(dead []string) TokenList {
	if len(dead) == 0 {
		return t
	}
	gone := make(map[string]struct{}, len(dead))
	for _, d := range dead {
		gone[d] = struct{}{}
	}
	out := make(TokenList, 0, len(t))
	for _, tok := range t {
		if _, ok := gone[tok]; !ok {
			out = append(out, tok)
		}
	}
	return out
}

type User struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Name         sql.NullString `db:"name" json:"name"`
	Email        sql.NullString `db:"email" json:"email"`
	PhoneNumber  sql.NullString `db:"phone_number" json:"phone_number"`
	Role         UserRole       `db:"role" json:"role"`
	ProfilePhoto sql.NullString `db:"profile_photo" json:"profile_photo"`

	Verified              bool              `db:"verified" json:"verified"`
	VerifiedAt            *time.Time        `db:"verified_at" json:"verified_at,omitempty"`
	VerificationType      *VerificationType `db:"verification_type" json:"verification_type,omitempty"`
	VerificationEmbedding Embedding         `db:"verification_embedding" json:"-"`

	VerificationAttempts    int           `db:"verification_attempts" json:"-"`
	LastVerificationAttempt *time.Time    `db:"last_verification_attempt" json:"-"`
	VerificationRejections  RejectionList `db:"verification_rejections" json:"-"`

	FCMTokens           TokenList `db:"fcm_tokens" json:"-"`
	AllowsNotifications bool      `db:"allows_notifications" json:"-"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
