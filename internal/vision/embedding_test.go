package vision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/humrah/backend/internal/domain"
)

func TestCosineSimilarity(t *testing.T) {
	a := domain.Embedding{1, 0, 0}
	b := domain.Embedding{1, 0, 0}
	require.InDelta(t, 1, CosineSimilarity(a, b), 1e-9)

	orthogonal := domain.Embedding{0, 1, 0}
	require.InDelta(t, 0, CosineSimilarity(a, orthogonal), 1e-9)

	opposite := domain.Embedding{-1, 0, 0}
	require.InDelta(t, -1, CosineSimilarity(a, opposite), 1e-9)
}

func TestCosineSimilarityDegenerateInputs(t *testing.T) {
	require.Zero(t, CosineSimilarity(domain.Embedding{1, 2}, domain.Embedding{1, 2, 3}))
	require.Zero(t, CosineSimilarity(nil, nil))
	require.Zero(t, CosineSimilarity(domain.Embedding{0, 0}, domain.Embedding{1, 1}))
}

func TestFaceMatchScoreClamps(t *testing.T) {
	a := domain.Embedding{1, 0}
	require.InDelta(t, 1, FaceMatchScore(a, domain.Embedding{1, 0}), 1e-9)
	// Anti-correlated descriptors clamp to zero instead of going negative.
	require.Zero(t, FaceMatchScore(a, domain.Embedding{-1, 0}))
}
