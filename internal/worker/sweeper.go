package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/humrah/backend/internal/service"
	"github.com/humrah/backend/pkg/logger"
)

type sweeper struct {
	services *service.Services
}

func newSweeper(services *service.Services) *sweeper {
	return &sweeper{
		services: services,
	}
}

func (w *sweeper) SweepExpired(ctx context.Context) error {
	swept, err := w.services.Verification.ExpireStale(ctx)
	if err != nil {
		return fmt.Errorf("expire stale sessions failed: %w", err)
	}

	if swept > 0 {
		logger.Info("expired stale verification sessions", zap.Int("count", swept))
	}

	return nil
}
