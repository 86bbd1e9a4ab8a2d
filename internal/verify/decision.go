package verify

import (
	"github.com/humrah/backend/internal/domain"
)

// Confidence weighting over the two pipeline signals.
const (
	livenessConfidenceWeight  = 0.6
	faceMatchConfidenceWeight = 0.4
)

const (
	ReasonConfidenceTooLow = "Verification confidence too low"
	ReasonLivenessFailed   = "Liveness check failed"
)

type DecisionConfig struct {
	ApproveConfidence float64
	ReviewConfidence  float64
	LivenessPassScore float64
}

// Verdict is the decision engine's output; RejectionReason is set only for
// REJECTED.
type Verdict struct {
	Status          domain.SessionStatus
	Confidence      float64
	RejectionReason string
}

// Decide is a pure function of its inputs. faceMatchScore is 1.0 when the
// user has no prior profile photo to compare against.
func Decide(livenessScore, faceMatchScore float64, cfg DecisionConfig) Verdict {
	confidence := livenessConfidenceWeight*livenessScore + faceMatchConfidenceWeight*faceMatchScore

	switch {
	case confidence >= cfg.ApproveConfidence && livenessScore >= cfg.LivenessPassScore:
		return Verdict{Status: domain.SessionApproved, Confidence: confidence}
	case confidence >= cfg.ReviewConfidence && confidence < cfg.ApproveConfidence:
		return Verdict{Status: domain.SessionManualReview, Confidence: confidence}
	case confidence < cfg.ReviewConfidence:
		return Verdict{Status: domain.SessionRejected, Confidence: confidence, RejectionReason: ReasonConfidenceTooLow}
	default:
		return Verdict{Status: domain.SessionRejected, Confidence: confidence, RejectionReason: ReasonLivenessFailed}
	}
}
