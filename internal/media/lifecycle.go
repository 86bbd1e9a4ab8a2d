package media

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/humrah/backend/pkg/logger"
)

const (
	destroyBaseBackoff = 500 * time.Millisecond
	destroyMaxRetries  = 4
)

// Destroyer removes a raw video by its reference.
type Destroyer interface {
	Destroy(ctx context.Context, mediaRef string) error
}

// Lifecycle guarantees destruction of a raw video before its session becomes
// readable in a terminal state. Destruction is retried with bounded backoff;
// when the budget is exhausted the failure is surfaced to the caller and a
// reconciliation entry is logged so out-of-band cleanup can claim the orphan.
type Lifecycle struct {
	store Store
}

func NewLifecycle(store Store) *Lifecycle {
	return &Lifecycle{
		store: store,
	}
}

func (l *Lifecycle) Destroy(ctx context.Context, mediaRef string) error {
	backoff := retry.WithMaxRetries(destroyMaxRetries, retry.NewExponential(destroyBaseBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := l.store.Delete(ctx, mediaRef); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.Error("media destruction exhausted retries, needs reconciliation",
			zap.String("media_ref", mediaRef),
			zap.Error(err))
		return err
	}

	return nil
}
