package task

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	ProcessVerificationTaskName  = "processVerificationTask"
	ProcessVerificationQueueName = "verificationQueue"
)

type ProcessVerification struct {
	SessionID uuid.UUID `json:"session_id"`
}

func NewProcessVerificationTask(sessionID uuid.UUID) (*asynq.Task, error) {
	var data ProcessVerification
	data.SessionID = sessionID

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("json data marshal failed: %w", err)
	}

	return asynq.NewTask(
		ProcessVerificationTaskName,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue(ProcessVerificationQueueName),
		asynq.TaskID(sessionID.String()),
	), nil
}
