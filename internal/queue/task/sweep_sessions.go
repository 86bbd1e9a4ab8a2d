package task

import (
	"github.com/hibiken/asynq"
)

const (
	SweepSessionsTaskName  = "sweepSessionsTask"
	SweepSessionsQueueName = "maintenanceQueue"

	// SweepSessionsSchedule is the cron-style interval the scheduler fires on.
	SweepSessionsSchedule = "@every 1m"
)

func NewSweepSessionsTask() *asynq.Task {
	return asynq.NewTask(
		SweepSessionsTaskName,
		nil,
		asynq.MaxRetry(0),
		asynq.Queue(SweepSessionsQueueName),
	)
}
