package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/humrah/backend/internal/queue/client"
	"github.com/humrah/backend/internal/queue/task"
)

// Enqueuer hands sessions to the background pipeline through the shared
// asynq client.
type Enqueuer struct{}

func NewEnqueuer() *Enqueuer {
	return &Enqueuer{}
}

func (e *Enqueuer) EnqueueProcess(ctx context.Context, sessionID uuid.UUID) error {
	t, err := task.NewProcessVerificationTask(sessionID)
	if err != nil {
		return fmt.Errorf("build process verification task failed: %w", err)
	}

	c := client.GetClient(ctx)
	if c == nil {
		return fmt.Errorf("asynq client is not configured")
	}

	if _, err := c.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("enqueue process verification task failed: %w", err)
	}

	return nil
}
