package dialect

// Redshift adds distribution and sort keys to tables and analyzes them
// after creation. Mocks are views.
type Redshift struct{ Generic }

// Type implements Dialect.
func (Redshift) Type() string { return TypeRedshift }

// MockAsView implements Dialect.
func (Redshift) MockAsView() bool { return true }

// CreateTable implements Dialect.
func (Redshift) CreateTable(job Job, sel string) []string {
	return []string{
		"CREATE SCHEMA IF NOT EXISTS " + job.Schema(),
		"DROP TABLE IF EXISTS " + job.Name() + " CASCADE",
		redshiftTable(job.Name(), job.SQL(), sel),
		"ANALYZE " + job.Name(),
	}
}

// MaterializeView implements Dialect.
func (Redshift) MaterializeView(job Job, sel string) []string {
	return []string{
		"CREATE SCHEMA IF NOT EXISTS " + job.SchemaMat(),
		"DROP TABLE IF EXISTS " + job.NameMat() + " CASCADE",
		redshiftTable(job.NameMat(), job.SQL(), sel),
		"ANALYZE " + job.NameMat(),
		"CREATE SCHEMA IF NOT EXISTS " + job.Schema(),
		"DROP VIEW IF EXISTS " + job.Name() + " CASCADE",
		"CREATE VIEW " + job.Name() + "\nAS\nSELECT * FROM " + job.NameMat(),
	}
}

func redshiftTable(name, sql, sel string) string {
	return clause("CREATE TABLE", name, Distkey(sql), Sortkey(sql)) + "\nAS\n" + sel
}
