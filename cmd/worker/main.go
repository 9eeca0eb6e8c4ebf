package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/bizdesk/bizdesk/internal/app"
	"github.com/bizdesk/bizdesk/internal/auth"
	"github.com/bizdesk/bizdesk/internal/customers"
	"github.com/bizdesk/bizdesk/internal/investments"
	jobmetrics "github.com/bizdesk/bizdesk/internal/jobs"
	"github.com/bizdesk/bizdesk/internal/observability"
	"github.com/bizdesk/bizdesk/internal/platform/cache"
	"github.com/bizdesk/bizdesk/internal/reporting"
	"github.com/bizdesk/bizdesk/internal/sales"
	"github.com/bizdesk/bizdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	backends, err := app.OpenBackends(ctx, cfg, logger)
	if err != nil {
		logger.Error("open backends", slog.Any("error", err))
		os.Exit(1)
	}
	defer backends.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	dashboardCache := reporting.NewCache(redisClient, cfg.DashboardCacheTTL)
	// Sweep closures invalidate the dashboard in place; the worker never
	// enqueues warm-ups of its own.
	customerService := customers.NewService(backends.Gateway, metrics, nil)
	saleService := sales.NewService(backends.Gateway, metrics, nil)
	dashboardService := reporting.NewService(customerService, saleService, dashboardCache, metrics, logger)
	investmentService := investments.NewService(backends.Gateway, metrics, dashboardService)

	warmupJob := jobs.NewDashboardWarmupJob(dashboardService, logger, jobMetrics)
	sweepJob := jobs.NewInvestmentSweepJob(auth.NewOwnerSet(redisClient), investmentService, logger, jobMetrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskInvestmentSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.InvestmentSweepCron, Task: jobs.NewInvestmentSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
