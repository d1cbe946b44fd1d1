package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlrunner/internal/cli/config"
	"github.com/leapstack-labs/sqlrunner/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new sqlrunner project",
		Long: `Initialize a new sqlrunner project.

This creates:
  - sqlrunner.yaml with connection, cache and override settings
  - sql/ with one SQL file per relation in <schema>/<table>.sql
  - sql/daily.csv, an example job list`,
		Example: `  # Initialize in current directory
  sqlrunner init

  # Initialize in a new directory
  sqlrunner init my-project

  # Overwrite existing files
  sqlrunner init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			mode := output.ModeAuto
			if cfg := config.GetCurrentConfig(); cfg != nil {
				mode = output.Mode(cfg.OutputFormat)
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.DefaultConfigFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.DefaultConfigFile)
	}

	files, err := copyTemplate(dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("sqlrunner project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  sqlrunner deps --no-save        Compute the dependency graph")
	r.Println("  sqlrunner list daily            Show the execution order")
	r.Println("  sqlrunner test daily --cold-run Print the test statements")
	return nil
}
