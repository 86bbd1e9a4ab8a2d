package verify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/humrah/backend/internal/domain"
	"github.com/humrah/backend/internal/repository"
	"github.com/humrah/backend/internal/vision"
	"github.com/humrah/backend/pkg/logger"
)

const ReasonDuplicateFace = "This face is already registered to another account"

const (
	embeddingCacheKey = "verification:embeddings"
	embeddingCacheTTL = 5 * time.Minute
)

// EmbeddingSource yields the verified users' stored descriptors.
type EmbeddingSource interface {
	ListVerifiedEmbeddings(ctx context.Context, exclude uuid.UUID) ([]repository.VerifiedEmbedding, error)
}

type DuplicateResult struct {
	Duplicate   bool
	MatchedUser uuid.UUID
	Similarity  float64
}

// DuplicateChecker scans every verified user's embedding for a cosine match
// above the threshold. The check is fail-open: any internal error is logged
// and reported as "not a duplicate" so it can never cause a false rejection.
type DuplicateChecker struct {
	users     EmbeddingSource
	cache     redis.UniversalClient
	threshold float64
}

func NewDuplicateChecker(users EmbeddingSource, cache redis.UniversalClient, threshold float64) *DuplicateChecker {
	return &DuplicateChecker{
		users:     users,
		cache:     cache,
		threshold: threshold,
	}
}

func (c *DuplicateChecker) Check(ctx context.Context, candidate domain.Embedding, exclude uuid.UUID) DuplicateResult {
	known, err := c.load(ctx)
	if err != nil {
		logger.Error("duplicate check skipped", zap.Error(err))
		return DuplicateResult{}
	}

	best := DuplicateResult{}
	for _, k := range known {
		if k.UserID == exclude || len(k.Embedding) == 0 {
			continue
		}
		sim := vision.CosineSimilarity(candidate, k.Embedding)
		if sim > best.Similarity {
			best.Similarity = sim
			best.MatchedUser = k.UserID
		}
	}

	best.Duplicate = best.Similarity > c.threshold
	return best
}

// load reads the verified-embedding set, preferring the redis snapshot. The
// exclusion is applied by the caller so the cache stays user-agnostic.
func (c *DuplicateChecker) load(ctx context.Context) ([]repository.VerifiedEmbedding, error) {
	if c.cache != nil {
		raw, err := c.cache.Get(ctx, embeddingCacheKey).Bytes()
		if err == nil {
			var cached []repository.VerifiedEmbedding
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	known, err := c.users.ListVerifiedEmbeddings(ctx, uuid.Nil)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(known); err == nil {
			if err := c.cache.Set(ctx, embeddingCacheKey, raw, embeddingCacheTTL).Err(); err != nil {
				logger.Warn("embedding cache write failed", zap.Error(err))
			}
		}
	}

	return known, nil
}

// Invalidate drops the cached snapshot after a new approval.
func (c *DuplicateChecker) Invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Del(ctx, embeddingCacheKey).Err(); err != nil {
		logger.Warn("embedding cache invalidation failed", zap.Error(err))
	}
}
