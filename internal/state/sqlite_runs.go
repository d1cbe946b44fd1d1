package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/sqlrunner/pkg/core"
)

// CreateRun records the start of a run.
func (s *SQLiteStore) CreateRun(ctx context.Context, command, executionType string, lists []string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:            generateID(),
		Command:       command,
		ExecutionType: executionType,
		Lists:         lists,
		Status:        core.RunStatusRunning,
		StartedAt:     time.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("command", command))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, execution_type, lists, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.ExecutionType, strings.Join(lists, ","), string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errValue sql.NullString
	if errMsg != "" {
		errValue = sql.NullString{String: errMsg, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), errValue, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

const runColumns = `id, command, execution_type, lists, status, started_at, completed_at, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (*core.Run, error) {
	run := &core.Run{}
	var (
		lists       string
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	if err := r.Scan(&run.ID, &run.Command, &run.ExecutionType, &lists, &status, &run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	if lists != "" {
		run.Lists = strings.Split(lists, ",")
	}
	run.Status = core.RunStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordJobRun stores the outcome of one job. An empty ID is generated.
func (s *SQLiteStore) RecordJobRun(ctx context.Context, jr *core.JobRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if jr.ID == "" {
		jr.ID = generateID()
	}

	var errValue sql.NullString
	if jr.Error != "" {
		errValue = sql.NullString{String: jr.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, run_id, schema_name, table_name, action, status, statements, started_at, execution_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jr.ID, jr.RunID, jr.Schema, jr.Table, jr.Action, string(jr.Status), jr.Statements, jr.StartedAt, jr.ExecutionMS, errValue,
	)
	if err != nil {
		return fmt.Errorf("failed to record job run: %w", err)
	}
	return nil
}

// GetJobRunsForRun returns the job runs of a run in execution order.
func (s *SQLiteStore) GetJobRunsForRun(ctx context.Context, runID string) ([]*core.JobRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, schema_name, table_name, action, status, statements, started_at, execution_ms, error
		FROM job_runs WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job runs: %w", err)
	}
	defer rows.Close()

	var out []*core.JobRun
	for rows.Next() {
		jr := &core.JobRun{}
		var (
			status string
			errMsg sql.NullString
		)
		if err := rows.Scan(&jr.ID, &jr.RunID, &jr.Schema, &jr.Table, &jr.Action, &status,
			&jr.Statements, &jr.StartedAt, &jr.ExecutionMS, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan job run: %w", err)
		}
		jr.Status = core.JobRunStatus(status)
		jr.Error = errMsg.String
		out = append(out, jr)
	}
	return out, rows.Err()
}
