package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/snowflakedb/gosnowflake"

	"github.com/leapstack-labs/sqlrunner/pkg/core"
	"github.com/leapstack-labs/sqlrunner/pkg/dialect"
)

// SnowflakeParams are the Snowflake settings read from auth.params.
type SnowflakeParams struct {
	Account   string `mapstructure:"account"`
	Warehouse string `mapstructure:"warehouse"`
	Role      string `mapstructure:"role"`
	Schema    string `mapstructure:"schema"`
}

// Snowflake folds unquoted identifiers to upper case.
func snowflakeCleanQuery(prefix string) string {
	return fmt.Sprintf(`WITH filter_ AS
(
    SELECT DISTINCT table_schema AS table_schema
    FROM information_schema.tables
)
SELECT DISTINCT schema_name AS schema_name_
FROM information_schema.schemata schemata
    LEFT JOIN filter_ ON filter_.table_schema = schema_name
WHERE regexp_like(schema_name_,'^%s.*')
OR (filter_.table_schema IS NULL AND regexp_like(schema_name_,'.*_MAT$'))`, quoteLiteral(strings.ToUpper(prefix)))
}

func openSnowflake(ctx context.Context, cfg core.AuthConfig, opts Options) (Warehouse, error) {
	var exec Executor
	if opts.ColdRun {
		exec = NewColdExecutor(opts.Out)
	} else {
		var params SnowflakeParams
		if err := mapstructure.Decode(cfg.Params, &params); err != nil {
			return nil, fmt.Errorf("invalid snowflake params: %w", err)
		}
		dsn, err := gosnowflake.DSN(&gosnowflake.Config{
			Account:   params.Account,
			User:      cfg.Username,
			Password:  cfg.Password,
			Database:  cfg.Database,
			Schema:    params.Schema,
			Warehouse: params.Warehouse,
			Role:      params.Role,
		})
		if err != nil {
			return nil, fmt.Errorf("snowflake: invalid configuration: %w", err)
		}
		opts.Logger.Debug("connecting", slog.String("type", dialect.TypeSnowflake), slog.String("account", params.Account))

		db, err := openSQL(ctx, "snowflake", dsn)
		if err != nil {
			return nil, fmt.Errorf("snowflake: %w", err)
		}
		exec = &SQLExecutor{DB: db, Logger: opts.Logger}
	}

	if cfg.Database != "" {
		if err := exec.Exec(ctx, "USE DATABASE "+cfg.Database); err != nil {
			_ = exec.Close()
			return nil, err
		}
	}
	return NewSQLWarehouse(exec, snowflakeCleanQuery, opts.Logger), nil
}
