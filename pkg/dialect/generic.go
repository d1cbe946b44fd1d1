package dialect

import (
	"github.com/leapstack-labs/sqlrunner/pkg/sqlparse"
)

// Generic builds ANSI-style statements with native IF [NOT] EXISTS and
// CASCADE support.
type Generic struct{}

// Type implements Dialect.
func (Generic) Type() string { return "generic" }

// Quotes implements Dialect.
func (Generic) Quotes() sqlparse.Quotes { return sqlparse.DefaultQuotes }

// ExplicitDatabase implements Dialect.
func (Generic) ExplicitDatabase() bool { return false }

// MockAsView implements Dialect.
func (Generic) MockAsView() bool { return false }

// CreateTable implements Dialect.
func (Generic) CreateTable(job Job, sel string) []string {
	return []string{
		"CREATE SCHEMA IF NOT EXISTS " + job.Schema(),
		"DROP TABLE IF EXISTS " + job.Name() + " CASCADE",
		"CREATE TABLE " + job.Name() + "\nAS\n" + sel,
	}
}

// CreateView implements Dialect.
func (Generic) CreateView(job Job, sel string) []string {
	return []string{
		"CREATE SCHEMA IF NOT EXISTS " + job.Schema(),
		"DROP VIEW IF EXISTS " + job.Name() + " CASCADE",
		"CREATE VIEW " + job.Name() + "\nAS\n" + sel,
	}
}

// MaterializeView implements Dialect.
func (Generic) MaterializeView(job Job, sel string) []string {
	return []string{
		"CREATE SCHEMA IF NOT EXISTS " + job.SchemaMat(),
		"DROP TABLE IF EXISTS " + job.NameMat() + " CASCADE",
		"CREATE TABLE " + job.NameMat() + "\nAS\n" + sel,
		"DROP VIEW IF EXISTS " + job.Name() + " CASCADE",
		"CREATE VIEW " + job.Name() + "\nAS\nSELECT * FROM " + job.NameMat(),
	}
}

// Postgres is the PostgreSQL dialect.
type Postgres struct{ Generic }

// Type implements Dialect.
func (Postgres) Type() string { return TypePostgres }

// DuckDB is the dialect of a local DuckDB file, used for development runs.
type DuckDB struct{ Generic }

// Type implements Dialect.
func (DuckDB) Type() string { return TypeDuckDB }

// Snowflake scans the full input even under LIMIT 0, so mocks are views.
type Snowflake struct{ Generic }

// Type implements Dialect.
func (Snowflake) Type() string { return TypeSnowflake }

// MockAsView implements Dialect.
func (Snowflake) MockAsView() bool { return true }
