package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlrunner/internal/cli/config"
	"github.com/leapstack-labs/sqlrunner/internal/cli/output"
	"github.com/leapstack-labs/sqlrunner/internal/deps"
	"github.com/leapstack-labs/sqlrunner/internal/querylist"
	"github.com/leapstack-labs/sqlrunner/internal/state"
	"github.com/leapstack-labs/sqlrunner/pkg/core"
	"github.com/leapstack-labs/sqlrunner/pkg/dialect"
	"github.com/leapstack-labs/sqlrunner/pkg/warehouse"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Dialect  dialect.Dialect

	// out receives cold-run statements.
	out io.Writer
}

// NewCommandContext builds the context from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	d, err := dialect.New(cfg.DatabaseType)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
		Dialect:  d,
		out:      cmd.OutOrStdout(),
	}, nil
}

// OpenStore opens the state database.
func (c *CommandContext) OpenStore(ctx context.Context) (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(ctx, c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}

// openHistory opens the state store for run history. Without a usable
// store the run still proceeds, unrecorded.
func (c *CommandContext) openHistory(ctx context.Context) (core.Store, func()) {
	store, err := c.OpenStore(ctx)
	if err != nil {
		c.Logger.Warn("run history disabled", slog.String("error", err.Error()))
		return nil, func() {}
	}
	return store, func() { _ = store.Close() }
}

// OpenWarehouse connects to the configured backend, or prints statements on
// a cold run.
func (c *CommandContext) OpenWarehouse(ctx context.Context) (warehouse.Warehouse, error) {
	return warehouse.Open(ctx, c.Cfg.Auth, c.Dialect, warehouse.Options{
		ColdRun: c.Cfg.ColdRun,
		Out:     c.out,
		Logger:  c.Logger,
	})
}

// Dependencies extracts the dependency edges of the SQL tree through the
// configured cache. store backs the sqlite cache and may be nil otherwise.
func (c *CommandContext) Dependencies(ctx context.Context, store core.Store) ([]core.Edge, deps.Stats, error) {
	cache, err := deps.NewCache(c.Cfg.DepsCache.Type, c.Cfg.DepsCache.Location, store)
	if err != nil {
		return nil, deps.Stats{}, err
	}
	ex := deps.NewExtractor(deps.Config{
		SQLPath: c.Cfg.SQLPath,
		Exclude: c.Cfg.ExcludeDependencies,
		Quotes:  c.Dialect.Quotes(),
		Cache:   cache,
		Workers: c.Cfg.Workers,
		Logger:  c.Logger,
	})
	edges, stats, err := ex.ExtractWithStats(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to extract dependencies: %w", err)
	}
	c.Logger.Debug("dependencies extracted",
		slog.Int("files", stats.Files),
		slog.Int("cached", stats.Cached),
		slog.Int("parsed", stats.Parsed),
		slog.Int("edges", len(edges)))
	return edges, stats, nil
}

// BuildList resolves the named job lists against the current dependency
// graph.
func (c *CommandContext) BuildList(ctx context.Context, store core.Store, et querylist.ExecutionType, lists []string) (*querylist.List, error) {
	edges, _, err := c.Dependencies(ctx, store)
	if err != nil {
		return nil, err
	}
	return querylist.FromCSVFiles(querylist.Config{
		SQLPath:                  c.Cfg.SQLPath,
		Dialect:                  c.Dialect,
		ExplicitDatabase:         c.Cfg.ExplicitDatabase,
		Database:                 c.Cfg.Auth.Database,
		Staging:                  c.Cfg.Staging,
		Test:                     c.Cfg.Test,
		ExceptLocallyIndependent: c.Cfg.ExceptLocallyIndependent,
		Logger:                   c.Logger,
	}, lists, edges, et)
}
