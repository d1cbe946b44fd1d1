package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlrunner/pkg/core"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recent runs or the jobs of one run",
		Example: `  sqlrunner history
  sqlrunner history --limit 5
  sqlrunner history 3f2c9a10-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runHistoryJobs(cmd, args[0])
			}
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, err := cc.OpenStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []any{
			run.ID,
			run.Command,
			strings.Join(run.Lists, ","),
			string(run.Status),
			run.StartedAt,
			runDuration(run),
			run.Error,
		})
	}
	return cc.Renderer.Table([]string{"id", "command", "lists", "status", "started", "duration", "error"}, rows)
}

func runHistoryJobs(cmd *cobra.Command, runID string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := cc.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	jobs, err := store.GetJobRunsForRun(ctx, run.ID)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(jobs))
	for _, jr := range jobs {
		rows = append(rows, []any{
			jr.Schema + "." + jr.Table,
			jr.Action,
			string(jr.Status),
			jr.Statements,
			(time.Duration(jr.ExecutionMS) * time.Millisecond).String(),
			jr.Error,
		})
	}
	return cc.Renderer.Table([]string{"job", "action", "status", "statements", "duration", "error"}, rows)
}

func runDuration(run *core.Run) string {
	if run.CompletedAt == nil {
		return ""
	}
	return fmt.Sprint(run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
}
