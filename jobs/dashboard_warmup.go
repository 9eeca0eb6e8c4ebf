package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/bizdesk/bizdesk/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DashboardWarmer rebuilds and caches an owner's dashboard.
type DashboardWarmer interface {
	Warm(ctx context.Context, owner string) error
}

// DashboardWarmupJob pre-populates the dashboard cache after writes.
type DashboardWarmupJob struct {
	Dashboards DashboardWarmer
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	Timeout    time.Duration
}

// NewDashboardWarmupJob wires dependencies for the warm-up handler.
func NewDashboardWarmupJob(dashboards DashboardWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Dashboards: dashboards, Logger: logger, Metrics: metrics, Timeout: 20 * time.Second}
}

// Handle processes TaskDashboardWarmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Dashboards == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.Owner == "" {
		return fmt.Errorf("dashboard warmup: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	warmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := j.logger().With(slog.String("owner", payload.Owner))
	if err := j.Dashboards.Warm(warmCtx, payload.Owner); err != nil {
		logger.Error("warm dashboard", slog.Any("error", err))
		return err
	}
	logger.Debug("dashboard warmed")
	return nil
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
