package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/bizdesk/bizdesk/internal/jobs"
)

// OwnerLister lists every owner known to the system.
type OwnerLister interface {
	Members(ctx context.Context) ([]string, error)
}

// Reconciler closes an owner's investments whose payments reached the duration.
type Reconciler interface {
	Reconcile(ctx context.Context, owner string) (int, error)
}

// InvestmentSweepJob runs Reconcile for every known owner.
type InvestmentSweepJob struct {
	Owners      OwnerLister
	Investments Reconciler
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewInvestmentSweepJob wires dependencies for the sweep handler.
func NewInvestmentSweepJob(owners OwnerLister, investments Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvestmentSweepJob {
	return &InvestmentSweepJob{Owners: owners, Investments: investments, Logger: logger, Metrics: metrics}
}

// Handle processes TaskInvestmentSweep tasks. One owner's failure does not
// stop the sweep; failures are reported together so asynq retries the task.
func (j *InvestmentSweepJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Owners == nil || j.Investments == nil {
		return errors.New("investment sweep: handler not configured")
	}
	tracker := j.metrics().Track(TaskInvestmentSweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	started := time.Now()
	owners, err := j.Owners.Members(ctx)
	if err != nil {
		logger.Error("list owners", slog.Any("error", err))
		return err
	}

	var (
		closed int
		errs   []error
	)
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := j.Investments.Reconcile(ctx, owner)
		if err != nil {
			logger.Error("reconcile owner", slog.String("owner", owner), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
			continue
		}
		closed += n
	}
	j.metrics().AddItems(TaskInvestmentSweep, closed)
	logger.Info("investment sweep finished",
		slog.Int("owners", len(owners)),
		slog.Int("closed", closed),
		slog.Int("failed", len(errs)),
		slog.Duration("duration", time.Since(started)),
	)
	return errors.Join(errs...)
}

func (j *InvestmentSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInvestmentSweep))
	}
	return slog.Default().With(slog.String("job", TaskInvestmentSweep))
}

func (j *InvestmentSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
