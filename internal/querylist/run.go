package querylist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/leapstack-labs/sqlrunner/pkg/core"
	"github.com/leapstack-labs/sqlrunner/pkg/dialect"
	"github.com/leapstack-labs/sqlrunner/pkg/warehouse"
)

// ExecutionError is a statement the warehouse rejected.
type ExecutionError struct {
	Job       string
	Path      string
	Statement string
	Err       error
	Stack     []byte
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("ERROR: executing '%s':\nSQL path \"%s\"\n\n%s\n\n%v", e.Job, e.Path, e.Statement, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Observer is notified as jobs run.
type Observer interface {
	JobStarted(job *Job, action string)
	JobFinished(job *Job, action string, elapsed time.Duration, err error)
}

// RunOptions configures List.Run.
type RunOptions struct {
	Warehouse warehouse.Warehouse
	// ColdRun disables assertions; the warehouse only prints statements.
	ColdRun bool

	// Store records the run and its jobs when set.
	Store   core.Store
	Command string
	Lists   []string

	Observer Observer
}

// Result summarizes a finished run.
type Result struct {
	RunID    string
	Jobs     int
	Duration time.Duration
	// CleanedSchemas are the mock schemas dropped after a test run.
	CleanedSchemas []string
}

// Action returns the action job runs with. Test runs only prove that the
// SQL compiles: execute and check jobs are skipped, everything else builds
// a mock relation.
func (l *List) Action(job *Job) string {
	if l.ExecutionType != ExecutionTest {
		return job.Action
	}
	switch job.Action {
	case dialect.ActionExecute, dialect.ActionCheck:
		return dialect.ActionSkip
	default:
		return dialect.ActionMock
	}
}

// Run executes every job in order and stops at the first error. A test run
// drops the schemas of its mock relations afterwards, also after a failure.
func (l *List) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	start := time.Now()
	res := &Result{}

	var run *core.Run
	if opts.Store != nil {
		var err error
		run, err = opts.Store.CreateRun(ctx, opts.Command, string(l.ExecutionType), opts.Lists)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		res.RunID = run.ID
		l.logger.Debug("created run", slog.String("run_id", run.ID))
	}

	var mockSchemas []string
	seen := make(map[string]bool)
	runErr := func() error {
		for _, job := range l.Jobs {
			action := l.Action(job)
			if err := l.runJob(ctx, opts, run, job, action); err != nil {
				return err
			}
			res.Jobs++
			if action == dialect.ActionMock && !seen[job.Schema()] {
				seen[job.Schema()] = true
				mockSchemas = append(mockSchemas, job.Schema())
			}
		}
		return nil
	}()

	if l.ExecutionType == ExecutionTest && len(mockSchemas) > 0 {
		if err := opts.Warehouse.CleanSpecificSchemas(ctx, mockSchemas); err != nil {
			l.logger.Error("failed to drop test schemas", slog.Any("schemas", mockSchemas), slog.String("error", err.Error()))
			runErr = errors.Join(runErr, fmt.Errorf("drop test schemas: %w", err))
		} else {
			res.CleanedSchemas = mockSchemas
		}
	}
	res.Duration = time.Since(start)

	if run != nil {
		status, msg := core.RunStatusCompleted, ""
		if runErr != nil {
			status, msg = core.RunStatusFailed, runErr.Error()
		}
		if err := opts.Store.CompleteRun(ctx, run.ID, status, msg); err != nil {
			l.logger.Warn("failed to complete run", slog.String("run_id", run.ID), slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		l.logger.Info("run failed", slog.Duration("duration", res.Duration))
		return res, runErr
	}
	l.logger.Info("run finished", slog.Int("jobs", res.Jobs), slog.Duration("duration", res.Duration))
	return res, nil
}

func (l *List) runJob(ctx context.Context, opts RunOptions, run *core.Run, job *Job, action string) error {
	start := time.Now()
	if opts.Observer != nil {
		opts.Observer.JobStarted(job, action)
	}
	l.logger.Debug("running job", slog.String("job", job.Name()), slog.String("action", action))

	n, err := l.execute(ctx, opts, job, action)
	elapsed := time.Since(start)

	if opts.Observer != nil {
		opts.Observer.JobFinished(job, action, elapsed, err)
	}
	if run != nil {
		jr := &core.JobRun{
			RunID:       run.ID,
			Schema:      job.SchemaName,
			Table:       job.TableName,
			Action:      action,
			Status:      core.JobRunStatusSuccess,
			Statements:  n,
			StartedAt:   start,
			ExecutionMS: elapsed.Milliseconds(),
		}
		switch {
		case err != nil:
			jr.Status, jr.Error = core.JobRunStatusFailed, err.Error()
		case action == dialect.ActionSkip:
			jr.Status = core.JobRunStatusSkipped
		}
		if rerr := opts.Store.RecordJobRun(ctx, jr); rerr != nil {
			l.logger.Warn("failed to record job run", slog.String("job", job.Key()), slog.String("error", rerr.Error()))
		}
	}
	return err
}

// execute runs the statements of one job and returns how many ran.
func (l *List) execute(ctx context.Context, opts RunOptions, job *Job, action string) (int, error) {
	stmts, err := dialect.Statements(l.dialect, job, action)
	if err != nil {
		return 0, err
	}

	checkData := (l.ExecutionType == ExecutionExecute || l.ExecutionType == ExecutionStaging) && !opts.ColdRun
	check, err := job.Assertion()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", job.Path, err)
	}
	if !checkData {
		check = nil
	}

	for i, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if check == nil {
			if err := opts.Warehouse.Exec(ctx, stmt); err != nil {
				return i, l.executionError(job, stmt, err)
			}
			continue
		}
		rows, err := opts.Warehouse.Query(ctx, stmt)
		if err != nil {
			return i, l.executionError(job, stmt, err)
		}
		values := make([][]any, len(rows))
		for r, row := range rows {
			values[r] = row
		}
		if err := check.Check(values); err != nil {
			return i + 1, fmt.Errorf("%s: %w", job.Name(), err)
		}
	}
	return len(stmts), nil
}

func (l *List) executionError(job *Job, stmt string, err error) error {
	return &ExecutionError{
		Job:       job.Name(),
		Path:      job.Path,
		Statement: stmt,
		Err:       err,
		Stack:     debug.Stack(),
	}
}
