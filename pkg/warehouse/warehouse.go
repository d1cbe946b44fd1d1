// Package warehouse provides the database capability of each supported
// backend: running statements, dropping test schemas and saving the
// dependency table.
package warehouse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/sqlrunner/pkg/core"
	"github.com/leapstack-labs/sqlrunner/pkg/dialect"
)

// Warehouse is the database capability used by a run.
type Warehouse interface {
	// Exec runs a statement and discards its result.
	Exec(ctx context.Context, stmt string) error
	// Query runs a statement and returns every row.
	Query(ctx context.Context, stmt string) ([]core.Row, error)
	// CleanSchemas drops schemas starting with prefix, and empty _mat schemas.
	CleanSchemas(ctx context.Context, prefix string) error
	// CleanSpecificSchemas drops the given schemas with their contents.
	CleanSpecificSchemas(ctx context.Context, schemas []string) error
	// SaveDependencies replaces <schema>.table_deps with edges.
	SaveDependencies(ctx context.Context, schema string, edges []core.Edge) error
	Close() error
}

// Options configures Open.
type Options struct {
	// ColdRun prints statements to Out instead of connecting.
	ColdRun bool
	Out     io.Writer
	Logger  *slog.Logger
}

// Open connects to the backend of dialect d.
func Open(ctx context.Context, cfg core.AuthConfig, d dialect.Dialect, opts Options) (Warehouse, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	switch d.Type() {
	case dialect.TypePostgres, dialect.TypeRedshift:
		return openPostgres(ctx, cfg, d.Type(), opts)
	case dialect.TypeDuckDB:
		return openDuckDB(ctx, cfg, opts)
	case dialect.TypeSnowflake:
		return openSnowflake(ctx, cfg, opts)
	case dialect.TypeAzureDWH:
		return openAzure(ctx, cfg, opts)
	case dialect.TypeBigQuery:
		return openBigQuery(ctx, cfg, opts)
	}
	return nil, &dialect.UnknownDialectError{Type: d.Type(), Available: dialect.Types()}
}

// SQLWarehouse implements Warehouse for backends with native DROP SCHEMA
// CASCADE over any Executor.
type SQLWarehouse struct {
	Executor
	Logger *slog.Logger
	// CleanQuery returns the query listing the schemas CleanSchemas drops.
	CleanQuery func(prefix string) string
}

// NewSQLWarehouse wraps exec.
func NewSQLWarehouse(exec Executor, cleanQuery func(string) string, logger *slog.Logger) *SQLWarehouse {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLWarehouse{Executor: exec, Logger: logger, CleanQuery: cleanQuery}
}

// CleanSchemas implements Warehouse.
func (w *SQLWarehouse) CleanSchemas(ctx context.Context, prefix string) error {
	rows, err := w.Query(ctx, w.CleanQuery(prefix))
	if err != nil {
		return fmt.Errorf("list schemas to clean: %w", err)
	}
	for _, name := range firstColumn(rows) {
		w.Logger.Info("dropping schema", slog.String("schema", name))
		if err := w.Exec(ctx, "DROP SCHEMA "+name+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}

// CleanSpecificSchemas implements Warehouse.
func (w *SQLWarehouse) CleanSpecificSchemas(ctx context.Context, schemas []string) error {
	for _, s := range schemas {
		if err := w.Exec(ctx, "DROP SCHEMA IF EXISTS "+s+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}

// SaveDependencies implements Warehouse.
func (w *SQLWarehouse) SaveDependencies(ctx context.Context, schema string, edges []core.Edge) error {
	stmts := []string{
		"CREATE SCHEMA IF NOT EXISTS " + schema,
		"CREATE TABLE IF NOT EXISTS " + schema + ".table_deps\n(\n" +
			"source_schema    VARCHAR,\n" +
			"source_table     VARCHAR,\n" +
			"dependent_schema VARCHAR,\n" +
			"dependent_table  VARCHAR\n)",
		"TRUNCATE " + schema + ".table_deps",
	}
	if values := edgeValues(edges); len(values) > 0 {
		stmts = append(stmts, "INSERT INTO "+schema+".table_deps\nVALUES\n"+strings.Join(values, ",\n"))
	}
	for _, stmt := range stmts {
		if err := w.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("save dependencies: %w", err)
		}
	}
	return nil
}

func edgeValues(edges []core.Edge) []string {
	values := make([]string, 0, len(edges))
	for _, e := range edges {
		if e.IsSentinel() {
			continue
		}
		values = append(values, fmt.Sprintf("('%s','%s','%s','%s')",
			quoteLiteral(e.SourceSchema), quoteLiteral(e.SourceTable),
			quoteLiteral(e.DependentSchema), quoteLiteral(e.DependentTable)))
	}
	return values
}

func firstColumn(rows []core.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if len(r) == 0 || r[0] == nil {
			continue
		}
		out = append(out, fmt.Sprint(r[0]))
	}
	return out
}

func quoteLiteral(s string) string { return strings.ReplaceAll(s, "'", "''") }
