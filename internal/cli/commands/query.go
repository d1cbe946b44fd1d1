package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/sqlrunner/internal/cli/output"

	// sqlite driver for state database queries.
	_ "modernc.org/sqlite"
)

// openStateDBReadOnly opens the state database in read-only mode.
func openStateDBReadOnly(path string) (*sql.DB, error) {
	return sql.Open("sqlite", "file:"+path+"?mode=ro")
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Query the run history database",
		Long: `Run SQL against the state database that records runs (runs), job
outcomes (job_runs) and the sqlite dependency cache (dependency_cache).

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Failed jobs of all runs
  sqlrunner query "SELECT run_id, schema_name, table_name, error FROM job_runs WHERE status = 'failed'"

  # Read SQL from a file
  sqlrunner query --file slow_jobs.sql --output json

  # Interactive mode
  sqlrunner query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read SQL from file")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, file string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	statePath := cc.Cfg.StatePath
	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		return fmt.Errorf("state database not found at %s (run 'sqlrunner execute' first)", statePath)
	}

	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case file != "":
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !term.IsTerminal(int(os.Stdin.Fd())):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		return runQueryREPL(cmd, cc.Renderer, statePath)
	}

	db, err := openStateDBReadOnly(statePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	return queryAndRender(cmd.Context(), cc.Renderer, db, sqlQuery)
}

func queryAndRender(ctx context.Context, r *output.Renderer, db *sql.DB, sqlQuery string) error {
	cols, rows, err := queryRows(ctx, db, sqlQuery)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return r.Table(cols, rows)
}

// queryRows runs sqlQuery and collects every row. []byte values become
// strings.
func queryRows(ctx context.Context, db *sql.DB, sqlQuery string) ([]string, [][]any, error) {
	rows, err := db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	return cols, out, rows.Err()
}

// stateTables returns the table and view names of the state database.
func stateTables(ctx context.Context, db *sql.DB) ([]string, error) {
	_, rows, err := queryRows(ctx, db, `
		SELECT name FROM sqlite_master
		WHERE type IN ('table', 'view')
		AND name NOT LIKE 'sqlite_%'
		AND name NOT LIKE 'goose_%'
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, fmt.Sprint(row[0]))
	}
	return names, nil
}
