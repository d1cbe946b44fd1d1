package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DefaultCleanPrefix is the schema prefix clean drops by default.
const DefaultCleanPrefix = "test_"

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [prefix]",
		Short: "Drop leftover test schemas",
		Long: `Drop every schema whose name starts with prefix (default "test_"),
together with empty _mat schemas.`,
		Example: `  sqlrunner clean
  sqlrunner clean stg_`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := DefaultCleanPrefix
			if len(args) == 1 {
				prefix = args[0]
			}
			return runClean(cmd, prefix)
		},
	}
}

func runClean(cmd *cobra.Command, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("prefix must not be empty")
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	wh, err := cc.OpenWarehouse(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	if err := wh.CleanSchemas(ctx, prefix); err != nil {
		return fmt.Errorf("clean %q: %w", prefix, err)
	}
	cc.Renderer.Success(fmt.Sprintf("dropped schemas starting with %q", prefix))
	return nil
}
