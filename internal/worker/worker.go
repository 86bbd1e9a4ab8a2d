package worker

import (
	"context"

	"github.com/google/uuid"

	"github.com/humrah/backend/internal/service"
	"github.com/humrah/backend/internal/verify"
)

type Workers struct {
	Verifier Verifier
	Sweeper  Sweeper
}

type Deps struct {
	Pipeline *verify.Pipeline
	Services *service.Services
}

// Verifier runs one verification session through the pipeline.
type Verifier interface {
	ProcessSession(ctx context.Context, sessionID uuid.UUID) error
}

// Sweeper expires stale sessions.
type Sweeper interface {
	SweepExpired(ctx context.Context) error
}

func NewWorkers(deps Deps) *Workers {
	return &Workers{
		Verifier: newVerifier(deps.Pipeline),
		Sweeper:  newSweeper(deps.Services),
	}
}
