package jobs

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup rebuilds one owner's cached dashboard.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskInvestmentSweep closes investments whose payments reached the duration.
	TaskInvestmentSweep = "investments:sweep"
)

// DashboardWarmupPayload names the owner whose dashboard is rebuilt.
type DashboardWarmupPayload struct {
	Owner string `json:"owner"`
}

// NewDashboardWarmupTask constructs a warm-up task for owner.
func NewDashboardWarmupTask(owner string) (*asynq.Task, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, errors.New("jobs: dashboard warmup requires an owner")
	}
	data, err := json.Marshal(DashboardWarmupPayload{Owner: owner})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// NewInvestmentSweepTask constructs the periodic sweep task.
func NewInvestmentSweepTask() *asynq.Task {
	return asynq.NewTask(TaskInvestmentSweep, nil)
}
