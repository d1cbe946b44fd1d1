package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlrunner/internal/cli/output"
	"github.com/leapstack-labs/sqlrunner/internal/querylist"
	"github.com/leapstack-labs/sqlrunner/pkg/core"
	"github.com/leapstack-labs/sqlrunner/pkg/dialect"
)

// NewExecuteCommand creates the execute command.
func NewExecuteCommand() *cobra.Command {
	return newRunCommand(querylist.ExecutionExecute,
		"Run job lists against the production relations",
		`Execute the jobs of one or more job lists in dependency order.

Each list is a CSV file <sql_path>/<list>.csv with the header
schema_name;table_name;action.`,
		`  # Run the jobs of sql/daily.csv
  sqlrunner execute daily

  # Print the statements without connecting
  sqlrunner execute daily --cold-run`)
}

// NewStagingCommand creates the staging command.
func NewStagingCommand() *cobra.Command {
	return newRunCommand(querylist.ExecutionStaging,
		"Run job lists with staging name overrides",
		`Execute the jobs of one or more job lists with the names rewritten by
the staging override configuration.`,
		`  sqlrunner staging daily
  sqlrunner staging daily -i`)
}

// NewTestCommand creates the test command.
func NewTestCommand() *cobra.Command {
	return newRunCommand(querylist.ExecutionTest,
		"Check that job lists compile against empty mock relations",
		`Build every relation of the job lists as an empty mock under the test
name overrides, then drop the mock schemas. Execute and check jobs are
skipped.`,
		`  sqlrunner test daily weekly`)
}

func newRunCommand(et querylist.ExecutionType, short, long, example string) *cobra.Command {
	return &cobra.Command{
		Use:     string(et) + " <list>...",
		Short:   short,
		Long:    long,
		Example: example,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLists(cmd, et, args)
		},
	}
}

func runLists(cmd *cobra.Command, et querylist.ExecutionType, lists []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if err := cc.Cfg.ValidateDirectories(); err != nil {
		return err
	}
	ctx := cmd.Context()
	r := cc.Renderer

	store, closeStore := cc.openHistory(ctx)
	defer closeStore()

	list, err := cc.BuildList(ctx, store, et, lists)
	if err != nil {
		return err
	}

	wh, err := cc.OpenWarehouse(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	if r.EffectiveMode() == output.ModeJSON {
		r.Event(output.RunEvent{Event: output.EventRunStart, Jobs: len(list.Jobs), Lists: lists})
	} else {
		r.Header(1, fmt.Sprintf("%s: %d jobs", et, len(list.Jobs)))
	}

	res, runErr := list.Run(ctx, querylist.RunOptions{
		Warehouse: wh,
		ColdRun:   cc.Cfg.ColdRun,
		Store:     store,
		Command:   cmd.Name(),
		Lists:     lists,
		Observer:  progress{r: r},
	})

	if res != nil {
		status := string(core.RunStatusCompleted)
		if runErr != nil {
			status = string(core.RunStatusFailed)
		}
		r.RunSummary(output.Summary{
			RunID:          res.RunID,
			Status:         status,
			Jobs:           res.Jobs,
			Duration:       res.Duration,
			CleanedSchemas: res.CleanedSchemas,
		})
	}

	var execErr *querylist.ExecutionError
	if errors.As(runErr, &execErr) && len(execErr.Stack) > 0 {
		_, _ = r.ErrWriter().Write(execErr.Stack)
	}
	return runErr
}

// progress forwards job notifications to the renderer.
type progress struct {
	r *output.Renderer
}

func (p progress) JobStarted(job *querylist.Job, action string) {
	p.r.JobStarted(job.Name(), action)
}

func (p progress) JobFinished(job *querylist.Job, action string, elapsed time.Duration, err error) {
	status := string(core.JobRunStatusSuccess)
	switch {
	case err != nil:
		status = string(core.JobRunStatusFailed)
	case action == dialect.ActionSkip:
		status = string(core.JobRunStatusSkipped)
	}
	p.r.JobFinished(job.Name(), action, status, elapsed, err)
}
