package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bizdesk/bizdesk/internal/app"
	"github.com/bizdesk/bizdesk/internal/auth"
	"github.com/bizdesk/bizdesk/internal/customers"
	"github.com/bizdesk/bizdesk/internal/investments"
	"github.com/bizdesk/bizdesk/internal/observability"
	"github.com/bizdesk/bizdesk/internal/platform/cache"
	"github.com/bizdesk/bizdesk/internal/reporting"
	"github.com/bizdesk/bizdesk/internal/sales"
	"github.com/bizdesk/bizdesk/internal/shared"
	"github.com/bizdesk/bizdesk/internal/view"
	"github.com/bizdesk/bizdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	sessionManager := shared.NewSessionManager(redisClient, "bizdesk_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	pages := view.NewResponder(templates, csrfManager, logger)
	metrics := observability.NewMetrics()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts, logger)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	var changes shared.ChangeListeners
	customerService := customers.NewService(backends.Gateway, metrics, &changes)
	saleService := sales.NewService(backends.Gateway, metrics, &changes)
	investmentService := investments.NewService(backends.Gateway, metrics, &changes)

	dashboardCache := reporting.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardService := reporting.NewService(customerService, saleService, dashboardCache, metrics, logger)
	changes = append(changes, dashboardService, jobClient)

	if err := dashboardCache.ListenForInvalidation(ctx, func(owner string) {
		logger.Debug("dashboard invalidated remotely", slog.String("owner", owner))
	}); err != nil {
		logger.Warn("dashboard invalidation listener", slog.Any("error", err))
	}

	authService := auth.NewService(backends.Auth, auth.NewOwnerSet(redisClient), logger)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        auth.NewHandler(logger, authService, sessionManager, pages),
		DashboardHandler:   reporting.NewHandler(logger, dashboardService, pages),
		CustomersHandler:   customers.NewHandler(logger, customerService, pages),
		SalesHandler:       sales.NewHandler(logger, saleService, pages),
		InvestmentsHandler: investments.NewHandler(logger, investmentService, pages),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
