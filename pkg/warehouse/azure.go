package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // sqlserver driver

	"github.com/leapstack-labs/sqlrunner/pkg/core"
	"github.com/leapstack-labs/sqlrunner/pkg/dialect"
)

// Synapse has no DROP SCHEMA ... CASCADE. Such statements are replaced by a
// recursive drop of every object depending on the schema's contents.
var dropSchemaCascade = regexp.MustCompile(`(?is)(^|\W)DROP\s+SCHEMA\s+(?:IF\s+EXISTS\s+)?(\w+)\s+CASCADE(?:;|$)`)

// AzureWarehouse implements Warehouse for Azure Synapse.
type AzureWarehouse struct {
	exec   Executor
	logger *slog.Logger
}

// NewAzureWarehouse wraps exec.
func NewAzureWarehouse(exec Executor, logger *slog.Logger) *AzureWarehouse {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AzureWarehouse{exec: exec, logger: logger}
}

func openAzure(ctx context.Context, cfg core.AuthConfig, opts Options) (Warehouse, error) {
	if opts.ColdRun {
		return NewAzureWarehouse(NewColdExecutor(opts.Out), opts.Logger), nil
	}
	opts.Logger.Debug("connecting", slog.String("type", dialect.TypeAzureDWH), slog.String("host", cfg.Host))

	db, err := openSQL(ctx, "sqlserver", buildSQLServerURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("azuredwh: %w", err)
	}
	return NewAzureWarehouse(&SQLExecutor{DB: db, Logger: opts.Logger}, opts.Logger), nil
}

func buildSQLServerURL(cfg core.AuthConfig) string {
	host := cfg.Host
	if cfg.Port != 0 {
		host += ":" + strconv.Itoa(cfg.Port)
	}
	q := url.Values{}
	q.Set("database", cfg.Database)
	for k, v := range cfg.Options {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     host,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Exec runs stmt after replacing DROP SCHEMA ... CASCADE.
func (w *AzureWarehouse) Exec(ctx context.Context, stmt string) error {
	stmt, err := w.replaceDropCascade(ctx, stmt)
	if err != nil {
		return err
	}
	return w.exec.Exec(ctx, stmt)
}

// Query implements Warehouse.
func (w *AzureWarehouse) Query(ctx context.Context, stmt string) ([]core.Row, error) {
	stmt, err := w.replaceDropCascade(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return w.exec.Query(ctx, stmt)
}

// Close implements Warehouse.
func (w *AzureWarehouse) Close() error { return w.exec.Close() }

func (w *AzureWarehouse) replaceDropCascade(ctx context.Context, stmt string) (string, error) {
	var dropErr error
	out := dropSchemaCascade.ReplaceAllStringFunc(stmt, func(m string) string {
		sub := dropSchemaCascade.FindStringSubmatch(m)
		if dropErr == nil {
			dropErr = w.dropSchema(ctx, sub[2])
		}
		return sub[1] + "SELECT '-- Replacement for: DROP SCHEMA IF EXISTS " + sub[2] + " CASCADE'"
	})
	return out, dropErr
}

// dropSchema drops every object of schema, their dependents first, then the
// schema itself.
func (w *AzureWarehouse) dropSchema(ctx context.Context, schema string) error {
	rows, err := w.exec.Query(ctx, fmt.Sprintf(`SELECT obj.type_desc, s.name AS schema_name, obj.name AS object_name, obj.object_id
FROM sys.all_objects obj
JOIN sys.schemas s ON s.schema_id = obj.schema_id
WHERE s.name='%s'`, quoteLiteral(schema)))
	if err != nil {
		return fmt.Errorf("list objects of %s: %w", schema, err)
	}
	for _, r := range rows {
		if err := w.dropObject(ctx, r, 0); err != nil {
			return err
		}
	}

	exists, err := w.exec.Query(ctx, fmt.Sprintf("SELECT 1 FROM sys.schemas WHERE name='%s'", quoteLiteral(schema)))
	if err != nil {
		return err
	}
	if len(exists) > 0 {
		return w.exec.Exec(ctx, "DROP SCHEMA "+schema)
	}
	return nil
}

const maxDropDepth = 64

func (w *AzureWarehouse) dropObject(ctx context.Context, obj core.Row, depth int) error {
	if len(obj) < 4 {
		return fmt.Errorf("unexpected object row %v", obj)
	}
	if depth > maxDropDepth {
		return fmt.Errorf("dependency chain of %v.%v is deeper than %d", obj[1], obj[2], maxDropDepth)
	}
	typeDesc, schema, name := fmt.Sprint(obj[0]), fmt.Sprint(obj[1]), fmt.Sprint(obj[2])

	deps, err := w.exec.Query(ctx, fmt.Sprintf(`SELECT obj.type_desc, s.name AS schema_name, obj.name AS object_name, obj.object_id
FROM sys.sql_expression_dependencies dep
JOIN sys.all_objects obj ON obj.object_id=dep.referencing_id
JOIN sys.schemas s ON s.schema_id = obj.schema_id
WHERE referenced_id = %v`, obj[3]))
	if err != nil {
		return fmt.Errorf("list dependents of %s.%s: %w", schema, name, err)
	}
	for _, d := range deps {
		if err := w.dropObject(ctx, d, depth+1); err != nil {
			return err
		}
	}

	if typeDesc == "USER_TABLE" {
		typeDesc = "TABLE"
	}
	return w.exec.Exec(ctx, fmt.Sprintf("IF OBJECT_ID('%[1]s.%[2]s') IS NOT NULL\n    DROP %[3]s %[1]s.%[2]s", schema, name, typeDesc))
}

// CleanSchemas implements Warehouse.
func (w *AzureWarehouse) CleanSchemas(ctx context.Context, prefix string) error {
	rows, err := w.exec.Query(ctx, fmt.Sprintf(`SELECT name
FROM sys.schemas
WHERE
    name LIKE '%s%%'
    OR schema_id NOT IN (SELECT schema_id FROM sys.tables)
    AND name LIKE '%%_mat'`, quoteLiteral(prefix)))
	if err != nil {
		return fmt.Errorf("list schemas to clean: %w", err)
	}
	for _, name := range firstColumn(rows) {
		w.logger.Info("dropping schema", slog.String("schema", name))
		if err := w.dropSchema(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// CleanSpecificSchemas implements Warehouse.
func (w *AzureWarehouse) CleanSpecificSchemas(ctx context.Context, schemas []string) error {
	for _, s := range schemas {
		if err := w.dropSchema(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// SaveDependencies implements Warehouse. The table is recreated with
// NVARCHAR columns and filled with one INSERT per edge.
func (w *AzureWarehouse) SaveDependencies(ctx context.Context, schema string, edges []core.Edge) error {
	stmts := []string{
		dialect.EnsureSchema(schema),
		fmt.Sprintf(`IF %s
    DROP TABLE %s.table_deps;

CREATE TABLE %[2]s.table_deps
(
source_schema    NVARCHAR(2000),
source_table     NVARCHAR(2000),
dependent_schema NVARCHAR(2000),
dependent_table  NVARCHAR(2000)
)`, dialect.ObjectExists(schema, "table_deps", dialect.KindTable), schema),
	}
	if values := edgeValues(edges); len(values) > 0 {
		var b strings.Builder
		for _, v := range values {
			fmt.Fprintf(&b, "INSERT INTO %s.table_deps VALUES %s;\n", schema, v)
		}
		stmts = append(stmts, b.String())
	}
	for _, stmt := range stmts {
		if err := w.exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("save dependencies: %w", err)
		}
	}
	return nil
}
