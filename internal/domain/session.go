package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionPending      SessionStatus = "PENDING"
	SessionProcessing   SessionStatus = "PROCESSING"
	SessionApproved     SessionStatus = "APPROVED"
	SessionRejected     SessionStatus = "REJECTED"
	SessionManualReview SessionStatus = "MANUAL_REVIEW"
	SessionExpired      SessionStatus = "EXPIRED"
	SessionFailed       SessionStatus = "FAILED"
)

// IsTerminal reports whether the pipeline is done with the session.
// MANUAL_REVIEW counts: only a reviewer moves it further.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionApproved, SessionRejected, SessionManualReview, SessionExpired, SessionFailed:
		return true
	}
	return false
}

// FraudFlags is a bitset of suspicion markers attached to a session.
type FraudFlags int64

const (
	FraudMultipleAttempts FraudFlags = 1 << iota
	FraudSuspiciousMotion
	FraudPhotoDetected
	FraudDuplicateFace
)

func (f FraudFlags) Has(flag FraudFlags) bool { return f&flag != 0 }

// Embedding is a face descriptor vector, stored as a JSON array.
type Embedding []float64

func (e Embedding) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

func (e *Embedding) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	b, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("unsupported type for Embedding: %w", err)
	}
	return json.Unmarshal(b, e)
}

// Instructions is the ordered action list read to the user while recording.
type Instructions []string

func (i Instructions) Value() (driver.Value, error) {
	if i == nil {
		return nil, nil
	}
	return json.Marshal(i)
}

func (i *Instructions) Scan(value interface{}) error {
	if value == nil {
		*i = nil
		return nil
	}
	b, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("unsupported type for Instructions: %w", err)
	}
	return json.Unmarshal(b, i)
}

type VerificationSession struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	UserID       uuid.UUID     `db:"user_id" json:"user_id"`
	Instructions Instructions  `db:"instructions" json:"instructions"`
	Status       SessionStatus `db:"status" json:"status"`
	MediaRef     *string       `db:"media_ref" json:"-"`

	Confidence     *float64 `db:"confidence" json:"confidence,omitempty"`
	LivenessScore  *float64 `db:"liveness_score" json:"liveness_score,omitempty"`
	FaceMatchScore *float64 `db:"face_match_score" json:"face_match_score,omitempty"`

	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	FaceEmbedding   Embedding  `db:"face_embedding" json:"-"`
	FraudFlags      FraudFlags `db:"fraud_flags" json:"-"`

	ReviewerID *uuid.UUID `db:"reviewer_id" json:"-"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"-"`
	ReviewNote *string    `db:"review_note" json:"-"`

	ExpiresAt           time.Time  `db:"expires_at" json:"expires_at"`
	VideoDeletedAt      *time.Time `db:"video_deleted_at" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	ProcessingStartedAt *time.Time `db:"processing_started_at" json:"-"`
	ProcessedAt         *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// Result mirrors the terminal status for clients; empty while the session is
// still live.
func (s *VerificationSession) Result() string {
	if !s.Status.IsTerminal() {
		return ""
	}
	return string(s.Status)
}

func (s *VerificationSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("%T", value)
	}
}
