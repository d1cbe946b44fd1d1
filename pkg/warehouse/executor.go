package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/sqlrunner/pkg/core"
)

// Executor sends statements to a backend.
type Executor interface {
	Exec(ctx context.Context, stmt string) error
	Query(ctx context.Context, stmt string) ([]core.Row, error)
	Close() error
}

// SQLExecutor runs statements over database/sql.
type SQLExecutor struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// Close closes the database connection.
func (e *SQLExecutor) Close() error {
	if e.DB == nil {
		return nil
	}
	if e.Logger != nil {
		e.Logger.Debug("closing database connection")
	}
	return e.DB.Close()
}

// Exec executes a statement that returns no rows.
func (e *SQLExecutor) Exec(ctx context.Context, stmt string) error {
	if e.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := e.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a statement and reads every row.
func (e *SQLExecutor) Query(ctx context.Context, stmt string) ([]core.Row, error) {
	if e.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	rows, err := e.DB.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []core.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, core.Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// ColdExecutor prints statements instead of running them.
type ColdExecutor struct {
	mu sync.Mutex
	w  io.Writer
}

// NewColdExecutor returns a ColdExecutor writing to w.
func NewColdExecutor(w io.Writer) *ColdExecutor {
	return &ColdExecutor{w: w}
}

// Exec prints stmt.
func (e *ColdExecutor) Exec(_ context.Context, stmt string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := fmt.Fprintf(e.w, "\n>>>>>>>>>> BEGIN STATEMENT >>>>>>>>>\n%s\n>>>>>>>>>>> END STATEMENT >>>>>>>>>>\n\n", stmt)
	return err
}

// Query prints stmt and returns no rows.
func (e *ColdExecutor) Query(ctx context.Context, stmt string) ([]core.Row, error) {
	return nil, e.Exec(ctx, stmt)
}

// Close implements Executor.
func (e *ColdExecutor) Close() error { return nil }
