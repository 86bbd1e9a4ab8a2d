package vision

import (
	"math"

	"github.com/humrah/backend/internal/domain"
)

// CosineSimilarity returns the cosine of the angle between two descriptors,
// or 0 when dimensions mismatch or either vector is zero.
func CosineSimilarity(a, b domain.Embedding) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FaceMatchScore maps descriptor similarity into [0,1] for the decision
// engine.
func FaceMatchScore(a, b domain.Embedding) float64 {
	return clamp(CosineSimilarity(a, b), 0, 1)
}
