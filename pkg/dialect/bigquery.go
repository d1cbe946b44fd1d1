package dialect

import (
	"github.com/leapstack-labs/sqlrunner/pkg/sqlparse"
)

// BigQuery quotes whole paths with backticks and always qualifies names
// with the project. Queries are billed per scan regardless of LIMIT, so
// mocks are views.
type BigQuery struct{ Generic }

// Type implements Dialect.
func (BigQuery) Type() string { return TypeBigQuery }

// Quotes implements Dialect.
func (BigQuery) Quotes() sqlparse.Quotes { return sqlparse.BacktickQuotes }

// ExplicitDatabase implements Dialect.
func (BigQuery) ExplicitDatabase() bool { return true }

// MockAsView implements Dialect.
func (BigQuery) MockAsView() bool { return true }

// CreateTable implements Dialect.
func (BigQuery) CreateTable(job Job, sel string) []string {
	return []string{
		"CREATE SCHEMA IF NOT EXISTS " + bq(job.Schema()),
		bigQueryTable(bq(job.Name()), job.SQL(), sel),
	}
}

// CreateView implements Dialect.
func (BigQuery) CreateView(job Job, sel string) []string {
	return []string{
		"CREATE SCHEMA IF NOT EXISTS " + bq(job.Schema()),
		"CREATE OR REPLACE VIEW " + bq(job.Name()) + "\nAS\n" + sel,
	}
}

// MaterializeView implements Dialect.
func (BigQuery) MaterializeView(job Job, sel string) []string {
	return []string{
		"CREATE SCHEMA IF NOT EXISTS " + bq(job.SchemaMat()),
		bigQueryTable(bq(job.NameMat()), job.SQL(), sel),
		"DROP VIEW IF EXISTS " + bq(job.Name()),
		"CREATE VIEW " + bq(job.Name()) + "\nAS\nSELECT * FROM " + bq(job.NameMat()),
	}
}

func bigQueryTable(name, sql, sel string) string {
	return clause("CREATE OR REPLACE TABLE", name, PartitionBy(sql), Options(sql)) + "\nAS\n" + sel
}

func bq(name string) string { return "`" + name + "`" }
