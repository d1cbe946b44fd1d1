package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlrunner/internal/cli/output"
	"github.com/leapstack-labs/sqlrunner/internal/querylist"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "list <list>...",
		Short: "Show the execution order of job lists",
		Long: `Resolve job lists through the dependency graph and print the jobs in
the order a run would execute them, with their rewritten names and the
action each one runs with. Nothing is executed.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown table

Use --output to override: auto, text, markdown, json`,
		Example: `  # Execution order of sql/daily.csv
  sqlrunner list daily

  # Names and actions as a test run sees them
  sqlrunner list daily --mode test --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, querylist.ExecutionType(mode), args)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(querylist.ExecutionExecute), "Execution type: execute, staging or test")
	_ = cmd.RegisterFlagCompletionFunc("mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"execute", "staging", "test"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runList(cmd *cobra.Command, et querylist.ExecutionType, lists []string) error {
	switch et {
	case querylist.ExecutionExecute, querylist.ExecutionStaging, querylist.ExecutionTest:
	default:
		return fmt.Errorf("unknown mode %q (available: execute, staging, test)", et)
	}

	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if err := cc.Cfg.ValidateDirectories(); err != nil {
		return err
	}
	ctx := cmd.Context()

	store, closeStore := cc.openHistory(ctx)
	defer closeStore()

	list, err := cc.BuildList(ctx, store, et, lists)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeText {
		return listText(r, list)
	}

	rows := make([][]any, 0, len(list.Jobs))
	for i, job := range list.Jobs {
		rows = append(rows, []any{i + 1, job.Key(), job.Name(), list.Action(job), job.Path})
	}
	return r.Table([]string{"order", "job", "name", "action", "path"}, rows)
}

// listText outputs jobs in styled text format.
func listText(r *output.Renderer, list *querylist.List) error {
	styles := r.Styles()

	r.Header(1, fmt.Sprintf("Jobs (%d total, %s)", len(list.Jobs), list.ExecutionType))
	for i, job := range list.Jobs {
		r.Printf("%3d. %s %s\n", i+1, styles.JobName.Render(job.Name()), styles.Action.Render(list.Action(job)))
		if job.Name() != job.Key() {
			r.Printf("     %s %s\n", styles.Muted.Render("from"), job.Key())
		}
	}
	return nil
}
