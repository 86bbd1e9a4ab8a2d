package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/humrah/backend/internal/domain"
	"github.com/humrah/backend/internal/repository"
)

type fakeEmbeddingSource struct {
	embeddings []repository.VerifiedEmbedding
	err        error
}

func (f *fakeEmbeddingSource) ListVerifiedEmbeddings(_ context.Context, _ uuid.UUID) ([]repository.VerifiedEmbedding, error) {
	return f.embeddings, f.err
}

func TestDuplicateCheckerFindsMatch(t *testing.T) {
	other := uuid.New()
	source := &fakeEmbeddingSource{
		embeddings: []repository.VerifiedEmbedding{
			{UserID: other, Embedding: domain.Embedding{1, 0, 0}},
			{UserID: uuid.New(), Embedding: domain.Embedding{0, 1, 0}},
		},
	}

	checker := NewDuplicateChecker(source, nil, 0.85)
	res := checker.Check(context.Background(), domain.Embedding{1, 0.01, 0}, uuid.New())

	require.True(t, res.Duplicate)
	require.Equal(t, other, res.MatchedUser)
	require.Greater(t, res.Similarity, 0.85)
}

func TestDuplicateCheckerBelowThreshold(t *testing.T) {
	source := &fakeEmbeddingSource{
		embeddings: []repository.VerifiedEmbedding{
			{UserID: uuid.New(), Embedding: domain.Embedding{0, 1, 0}},
		},
	}

	checker := NewDuplicateChecker(source, nil, 0.85)
	res := checker.Check(context.Background(), domain.Embedding{1, 0, 0}, uuid.New())

	require.False(t, res.Duplicate)
}

func TestDuplicateCheckerExcludesOwnUser(t *testing.T) {
	self := uuid.New()
	source := &fakeEmbeddingSource{
		embeddings: []repository.VerifiedEmbedding{
			{UserID: self, Embedding: domain.Embedding{1, 0, 0}},
		},
	}

	checker := NewDuplicateChecker(source, nil, 0.85)
	res := checker.Check(context.Background(), domain.Embedding{1, 0, 0}, self)

	require.False(t, res.Duplicate)
	require.Zero(t, res.Similarity)
}

func TestDuplicateCheckerFailsOpen(t *testing.T) {
	source := &fakeEmbeddingSource{err: errors.New("db down")}

	checker := NewDuplicateChecker(source, nil, 0.85)
	res := checker.Check(context.Background(), domain.Embedding{1, 0, 0}, uuid.New())

	require.False(t, res.Duplicate)
}
