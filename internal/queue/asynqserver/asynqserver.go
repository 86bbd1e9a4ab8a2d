package asynqserver

import (
	"github.com/hibiken/asynq"

	"github.com/humrah/backend/internal/cache"
	"github.com/humrah/backend/internal/config"
	"github.com/humrah/backend/internal/queue/processor"
	"github.com/humrah/backend/internal/queue/task"
	"github.com/humrah/backend/internal/worker"
)

func New(cfg config.Cache, verification config.Verification, workers *worker.Workers) (*asynq.Server, *asynq.ServeMux) {
	mux, queues := getQueues(workers)
	srv := asynq.NewServer(
		RedisOptions(cfg),
		asynq.Config{
			Concurrency: verification.MaxConcurrentSessions,
			LogLevel:    asynq.ErrorLevel,
			Queues:      queues,
		},
	)

	return srv, mux
}

// NewScheduler registers the periodic session sweep.
func NewScheduler(cfg config.Cache) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(RedisOptions(cfg), nil)

	if _, err := scheduler.Register(task.SweepSessionsSchedule, task.NewSweepSessionsTask()); err != nil {
		return nil, err
	}

	return scheduler, nil
}

func RedisOptions(cfg config.Cache) asynq.RedisConnOpt {
	var opts asynq.RedisConnOpt
	if cfg.Type == cache.RedisTypeCluster {
		opts = asynq.RedisClusterClientOpt{Addrs: cfg.RedisCluster.Addresses}
	} else {
		opts = asynq.RedisClientOpt{Addr: cfg.Redis.Address}
	}
	return opts
}

func getQueues(workers *worker.Workers) (*asynq.ServeMux, map[string]int) {
	mux := asynq.NewServeMux()
	mux.Handle(task.ProcessVerificationTaskName, processor.NewProcessVerificationProcessor(workers))
	mux.Handle(task.SweepSessionsTaskName, processor.NewSweepSessionsProcessor(workers))
	queues := map[string]int{
		task.ProcessVerificationQueueName: 4,
		task.SweepSessionsQueueName:       1,
	}
	return mux, queues
}
