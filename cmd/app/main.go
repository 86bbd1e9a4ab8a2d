package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	apiHttp "github.com/humrah/backend/internal/api/http"
	"github.com/humrah/backend/internal/cache"
	"github.com/humrah/backend/internal/config"
	"github.com/humrah/backend/internal/db"
	"github.com/humrah/backend/internal/media"
	"github.com/humrah/backend/internal/notify"
	"github.com/humrah/backend/internal/push"
	"github.com/humrah/backend/internal/queue"
	"github.com/humrah/backend/internal/queue/asynqserver"
	"github.com/humrah/backend/internal/queue/client"
	"github.com/humrah/backend/internal/repository"
	"github.com/humrah/backend/internal/server"
	"github.com/humrah/backend/internal/service"
	"github.com/humrah/backend/internal/verify"
	"github.com/humrah/backend/internal/vision"
	"github.com/humrah/backend/internal/worker"
	"github.com/humrah/backend/pkg/auth"
	emailProvider "github.com/humrah/backend/pkg/email"
	"github.com/humrah/backend/pkg/email/smtp"
	"github.com/humrah/backend/pkg/logger"
)

func main() {
	// Init cfg from environment variables
	cfg := config.MustLoad()

	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting verification backend", zap.String("env", cfg.Env))

	// Init database
	dbMySQL, err := db.New(cfg.Database)
	if err != nil {
		logger.Error("mysql connect problem", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := dbMySQL.Close(); err != nil {
			logger.Error("error when closing", zap.Error(err))
		}
	}()
	logger.Info("mysql connection done")

	if err := db.Migrate(dbMySQL); err != nil {
		logger.Error("migrations failed", zap.Error(err))
		os.Exit(1)
	}

	redisClient, err := cache.NewRedis(cfg.Cache)
	if err != nil {
		logger.Error("redis connect problem", zap.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	store, err := media.NewS3Store(cfg.Storage)
	if err != nil {
		logger.Error("object storage init failed", zap.Error(err))
		os.Exit(1)
	}
	lifecycle := media.NewLifecycle(store)

	tokenManager, err := auth.NewManager(cfg.Auth.JWT)
	if err != nil {
		logger.Error("auth manager creation err", zap.Error(err))
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Verification.WorkDir, 0o700); err != nil {
		logger.Error("create work dir failed", zap.Error(err))
		os.Exit(1)
	}

	analyzer := vision.NewExecAnalyzer(cfg.Verification.PythonBin, cfg.Verification.AnalyzerScript)
	if err := analyzer.Probe(context.Background()); err != nil {
		logger.Error("face analyzer probe failed", zap.Error(err))
		os.Exit(1)
	}
	extractor := vision.NewFFmpegExtractor(cfg.Verification.FFmpegBin, cfg.Verification.FrameSampleHz)

	var pushSender push.Sender
	if cfg.Push.ServerKey != "" {
		pushSender = push.NewFCMClient(cfg.Push)
	} else {
		logger.Warn("push disabled, FCM server key is empty")
		pushSender = push.NewNoop()
	}

	var emailSender emailProvider.Sender
	if cfg.Email.Enabled {
		emailSender, err = smtp.NewSMTPSender(cfg.SMTP.From, cfg.SMTP.Pass, cfg.SMTP.Host, cfg.SMTP.Port)
		if err != nil {
			logger.Error("smtp sender creation failed", zap.Error(err))
			os.Exit(1)
		}
	}

	// Services, Repos & API Handlers
	repos := repository.NewRepositories(dbMySQL)
	notifier := notify.NewService(pushSender, emailSender, repos.Users, cfg.Email)
	dupes := verify.NewDuplicateChecker(repos.Users, redisClient, cfg.Verification.DuplicateSimilarity)
	pipeline := verify.NewPipeline(
		repos.Sessions,
		repos.Users,
		store,
		lifecycle,
		extractor,
		analyzer,
		dupes,
		notifier,
		cfg.Verification,
	)

	asynqClient := asynq.NewClient(asynqserver.RedisOptions(cfg.Cache))
	defer asynqClient.Close()
	client.SetClient(asynqClient)

	services := service.NewServices(service.Deps{
		Config:    cfg,
		Repos:     repos,
		Media:     store,
		Lifecycle: lifecycle,
		Enqueuer:  queue.NewEnqueuer(),
		Notifier:  notifier,
	})
	handlers := apiHttp.NewHandlers(services, tokenManager, cfg)

	// Background workers
	workers := worker.NewWorkers(worker.Deps{
		Pipeline: pipeline,
		Services: services,
	})

	asynqSrv, mux := asynqserver.New(cfg.Cache, cfg.Verification, workers)
	go func() {
		if err := asynqSrv.Run(mux); err != nil {
			logger.Error("error occurred while running asynq server", zap.Error(err))
		}
	}()

	scheduler, err := asynqserver.NewScheduler(cfg.Cache)
	if err != nil {
		logger.Error("scheduler creation failed", zap.Error(err))
		os.Exit(1)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("error occurred while running scheduler", zap.Error(err))
		}
	}()

	// HTTP Server
	srv := server.NewServer(cfg, handlers.Init(cfg))
	go func() {
		if err := srv.Run(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("error occurred while running http server", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("port", cfg.HttpServer.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	const timeout = 5 * time.Second

	ctx, shutdown := context.WithTimeout(context.Background(), timeout)
	defer shutdown()

	if err := srv.Stop(ctx); err != nil {
		logger.Error("failed to stop server", zap.Error(err))
	}

	scheduler.Shutdown()
	asynqSrv.Shutdown()

	logger.Info("app stopped")
}
