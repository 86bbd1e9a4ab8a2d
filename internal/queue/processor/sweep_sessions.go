package processor

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/humrah/backend/internal/worker"
)

type sweepSessionsProcessor struct {
	workers *worker.Workers
}

func NewSweepSessionsProcessor(workers *worker.Workers) *sweepSessionsProcessor {
	return &sweepSessionsProcessor{
		workers: workers,
	}
}

func (p *sweepSessionsProcessor) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	if err := p.workers.Sweeper.SweepExpired(ctx); err != nil {
		return fmt.Errorf("sweep sessions failed: %w", err)
	}

	return nil
}
