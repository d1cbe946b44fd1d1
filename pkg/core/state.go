package core

import (
	"context"
	"time"
)

// Store defines the interface for state management operations.
type Store interface {
	Close() error

	// Dependency cache
	LoadDependencyCache(ctx context.Context) ([]Edge, error)
	SaveDependencyCache(ctx context.Context, edges []Edge) error

	// Run operations
	CreateRun(ctx context.Context, command, executionType string, lists []string) (*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Job run operations
	RecordJobRun(ctx context.Context, jobRun *JobRun) error
	GetJobRunsForRun(ctx context.Context, runID string) ([]*JobRun, error)
}

// RunStatus represents the status of a run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one execute, staging or test invocation.
type Run struct {
	ID            string
	Command       string
	ExecutionType string
	Lists         []string
	Status        RunStatus
	StartedAt     time.Time
	CompletedAt   *time.Time
	Error         string
}

// JobRunStatus represents the status of a single job.
type JobRunStatus string

// Job run status constants.
const (
	JobRunStatusSuccess JobRunStatus = "success"
	JobRunStatusFailed  JobRunStatus = "failed"
	JobRunStatusSkipped JobRunStatus = "skipped"
)

// JobRun represents a single job execution within a run.
type JobRun struct {
	ID          string
	RunID       string
	Schema      string
	Table       string
	Action      string
	Status      JobRunStatus
	Statements  int
	StartedAt   time.Time
	ExecutionMS int64
	Error       string
}
