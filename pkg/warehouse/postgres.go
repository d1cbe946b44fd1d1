package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-viper/mapstructure/v2"
	_ "github.com/jackc/pgx/v5/stdlib"  // pgx database/sql driver
	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/sqlrunner/pkg/core"
	"github.com/leapstack-labs/sqlrunner/pkg/dialect"
)

func postgresCleanQuery(prefix string) string {
	return fmt.Sprintf(`SELECT schema_name
FROM information_schema.schemata
WHERE schema_name ~ '^%s.*'
OR    schema_name NOT IN (SELECT table_schema FROM information_schema.tables)
AND   schema_name ~ '.*_mat$'`, quoteLiteral(prefix))
}

func duckdbCleanQuery(prefix string) string {
	return fmt.Sprintf(`SELECT schema_name
FROM information_schema.schemata
WHERE regexp_matches(schema_name, '^%s.*')
OR    schema_name NOT IN (SELECT table_schema FROM information_schema.tables)
AND   regexp_matches(schema_name, '.*_mat$')`, quoteLiteral(prefix))
}

func openPostgres(ctx context.Context, cfg core.AuthConfig, typ string, opts Options) (Warehouse, error) {
	if opts.ColdRun {
		return NewSQLWarehouse(NewColdExecutor(opts.Out), postgresCleanQuery, opts.Logger), nil
	}

	port := 5432
	if typ == dialect.TypeRedshift {
		port = 5439
	}
	opts.Logger.Debug("connecting", slog.String("type", typ), slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := openSQL(ctx, "pgx", buildPostgresDSN(cfg, port))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", typ, err)
	}
	return NewSQLWarehouse(&SQLExecutor{DB: db, Logger: opts.Logger}, postgresCleanQuery, opts.Logger), nil
}

// buildPostgresDSN constructs a key=value connection string.
func buildPostgresDSN(cfg core.AuthConfig, defaultPort int) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s connect_timeout=3", host, port, cfg.Database, sslmode)
	if cfg.Username != "" {
		dsn += " user=" + cfg.Username
	}
	if cfg.Password != "" {
		dsn += " password=" + cfg.Password
	}
	return dsn
}

// DuckDBParams are the DuckDB settings read from auth.params.
type DuckDBParams struct {
	// Settings are applied with SET at connect time (memory_limit, threads).
	Settings map[string]string `mapstructure:"settings"`
}

func openDuckDB(ctx context.Context, cfg core.AuthConfig, opts Options) (Warehouse, error) {
	if opts.ColdRun {
		return NewSQLWarehouse(NewColdExecutor(opts.Out), duckdbCleanQuery, opts.Logger), nil
	}

	var params DuckDBParams
	if err := mapstructure.Decode(cfg.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	opts.Logger.Debug("connecting", slog.String("type", dialect.TypeDuckDB), slog.String("path", path))

	db, err := openSQL(ctx, "duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("duckdb: %w", err)
	}

	exec := &SQLExecutor{DB: db, Logger: opts.Logger}
	for k, v := range params.Settings {
		if err := exec.Exec(ctx, fmt.Sprintf("SET %s = '%s'", k, quoteLiteral(v))); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("duckdb setting %s: %w", k, err)
		}
	}
	return NewSQLWarehouse(exec, duckdbCleanQuery, opts.Logger), nil
}

// openSQL opens a pool pinned to a single connection, so that session state
// set by one statement is seen by every later one.
func openSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}
	return db, nil
}
