package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/humrah/backend/internal/verify"
)

type verifier struct {
	pipeline *verify.Pipeline
}

func newVerifier(pipeline *verify.Pipeline) *verifier {
	return &verifier{
		pipeline: pipeline,
	}
}

func (w *verifier) ProcessSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := w.pipeline.Process(ctx, sessionID); err != nil {
		return fmt.Errorf("process session %s failed: %w", sessionID, err)
	}

	return nil
}
