// Package cli provides the command-line interface for sqlrunner.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlrunner/internal/cli/commands"
	"github.com/leapstack-labs/sqlrunner/internal/cli/config"
	"github.com/leapstack-labs/sqlrunner/internal/cli/output"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Commands that run without loading the configuration.
var skipConfig = map[string]bool{
	"help":       true,
	"completion": true,
	"__complete": true,
	"version":    true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sqlrunner",
		Short: "sqlrunner - run dependent SQL jobs against a warehouse",
		Long: `sqlrunner runs a tree of SQL files against a data warehouse.

Dependencies between relations are read from the SQL itself. Job lists
(CSV files next to the SQL) select what to build; sqlrunner orders the
jobs, rewrites names for staging and test runs and records every run in a
local state database.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfig[cmd.Name()] {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if cfg.Verbose {
				if f := config.GetConfigFileUsed(); f != "" {
					logger.Debug("using config file", slog.String("path", f))
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultConfigFile+")")
	pf.String("env-file", "", "Load environment variables from this file first")
	pf.String("database", "", "Database name, replaces auth.database and is appended to sql_path")
	pf.Bool("cold-run", false, "Print statements instead of executing them")
	pf.BoolP("except-locally-independent", "i", false, "Only rewrite names of relations in the requested job lists")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		commands.NewExecuteCommand(),
		commands.NewStagingCommand(),
		commands.NewTestCommand(),
		commands.NewDepsCommand(),
		commands.NewCleanCommand(),
		commands.NewListCommand(),
		commands.NewHistoryCommand(),
		commands.NewQueryCommand(),
		commands.NewDoctorCommand(),
		commands.NewInitCommand(),
		commands.NewVersionCommand(Version, GitCommit, BuildDate),
		NewCompletionCommand(),
	)

	return rootCmd
}

// newLogger returns a text logger on w. Verbose mode logs debug records.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for sqlrunner.

To load completions:

Bash:
  $ source <(sqlrunner completion bash)

  # To load completions for each session, execute once:
  $ sqlrunner completion bash > /etc/bash_completion.d/sqlrunner

Zsh:
  $ sqlrunner completion zsh > "${fpath[1]}/_sqlrunner"

Fish:
  $ sqlrunner completion fish > ~/.config/fish/completions/sqlrunner.fish

PowerShell:
  PS> sqlrunner completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
