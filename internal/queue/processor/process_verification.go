package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/humrah/backend/internal/queue/task"
	"github.com/humrah/backend/internal/worker"
)

type processVerificationProcessor struct {
	workers *worker.Workers
}

func NewProcessVerificationProcessor(workers *worker.Workers) *processVerificationProcessor {
	return &processVerificationProcessor{
		workers: workers,
	}
}

func (p *processVerificationProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var data task.ProcessVerification
	err := json.Unmarshal(t.Payload(), &data)
	if err != nil {
		return fmt.Errorf("process verification task json unmarshal failed: %w", err)
	}

	if err = p.workers.Verifier.ProcessSession(ctx, data.SessionID); err != nil {
		return fmt.Errorf("process verification session failed: %w", err)
	}

	return nil
}
