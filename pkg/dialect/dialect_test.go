package dialect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	schema, relation string
	sql              string
	sel              string
	selErr           error
	limitZero        *bool
}

func (j *fakeJob) Name() string       { return j.schema + "." + j.relation }
func (j *fakeJob) NameMat() string    { return j.schema + MatSuffix + "." + j.relation }
func (j *fakeJob) Schema() string     { return j.schema }
func (j *fakeJob) SchemaMat() string  { return j.schema + MatSuffix }
func (j *fakeJob) SchemaPart() string { return j.schema }
func (j *fakeJob) Relation() string   { return j.relation }
func (j *fakeJob) SQL() string        { return j.sql }

func (j *fakeJob) Select(limitZero bool) (string, error) {
	j.limitZero = &limitZero
	if limitZero {
		return j.sel + "\nLIMIT 0", j.selErr
	}
	return j.sel, j.selErr
}

func (j *fakeJob) ExecuteStatements() ([]string, error) { return []string{j.sql}, nil }

func newJob() *fakeJob {
	return &fakeJob{schema: "stg", relation: "orders", sql: "SELECT * FROM raw.orders", sel: "SELECT * FROM raw.orders"}
}

func TestNew(t *testing.T) {
	for _, typ := range []string{"postgres", "duckdb", "redshift", "snowflake", "bigquery", "azuredwh", "Postgres"} {
		d, err := New(typ)
		require.NoError(t, err, typ)
		assert.NotNil(t, d)
	}

	_, err := New("oracle")
	var unknown *UnknownDialectError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "oracle", unknown.Type)
	assert.Contains(t, unknown.Available, "redshift")

	_, err = New("")
	assert.Error(t, err)
}

func TestGenericStatements(t *testing.T) {
	d := Postgres{}
	tests := []struct {
		action string
		want   []string
	}{
		{ActionSkip, nil},
		{ActionExecute, []string{"SELECT * FROM raw.orders"}},
		{ActionTable, []string{
			"CREATE SCHEMA IF NOT EXISTS stg",
			"DROP TABLE IF EXISTS stg.orders CASCADE",
			"CREATE TABLE stg.orders\nAS\nSELECT * FROM raw.orders",
		}},
		{ActionView, []string{
			"CREATE SCHEMA IF NOT EXISTS stg",
			"DROP VIEW IF EXISTS stg.orders CASCADE",
			"CREATE VIEW stg.orders\nAS\nSELECT * FROM raw.orders",
		}},
		{ActionMaterialize, []string{
			"CREATE SCHEMA IF NOT EXISTS stg_mat",
			"DROP TABLE IF EXISTS stg_mat.orders CASCADE",
			"CREATE TABLE stg_mat.orders\nAS\nSELECT * FROM raw.orders",
			"DROP VIEW IF EXISTS stg.orders CASCADE",
			"CREATE VIEW stg.orders\nAS\nSELECT * FROM stg_mat.orders",
		}},
		{ActionCheck, []string{"SELECT * FROM raw.orders"}},
		{ActionMock, []string{
			"CREATE SCHEMA IF NOT EXISTS stg",
			"DROP TABLE IF EXISTS stg.orders CASCADE",
			"CREATE TABLE stg.orders\nAS\nSELECT * FROM raw.orders\nLIMIT 0",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			got, err := Statements(d, newJob(), tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatements_Errors(t *testing.T) {
	_, err := Statements(Generic{}, newJob(), "x")
	assert.ErrorContains(t, err, `unknown action "x"`)

	job := newJob()
	job.sel = "  "
	_, err = Statements(Generic{}, job, ActionTable)
	assert.ErrorContains(t, err, "no SELECT statement")

	job = newJob()
	job.selErr = errors.New("incompatible")
	_, err = Statements(Generic{}, job, ActionView)
	assert.ErrorContains(t, err, "incompatible")
}

func TestMockAsView(t *testing.T) {
	for _, d := range []Dialect{Redshift{}, Snowflake{}, BigQuery{}, AzureSynapse{}} {
		t.Run(d.Type(), func(t *testing.T) {
			job := newJob()
			stmts, err := Statements(d, job, ActionMock)
			require.NoError(t, err)
			require.NotNil(t, job.limitZero)
			assert.False(t, *job.limitZero, "views are built from the plain select")
			assert.Contains(t, stmts[len(stmts)-1], "VIEW")
		})
	}
}

func TestRedshift(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"even by default", "SELECT 1", "CREATE TABLE stg.orders DISTSTYLE EVEN\nAS\nSELECT 1"},
		{"all", "/* DISTKEY () */ SELECT 1", "CREATE TABLE stg.orders DISTSTYLE ALL\nAS\nSELECT 1"},
		{"key and sortkey", "/* distkey(id) sortkey (ts) */ SELECT 1", "CREATE TABLE stg.orders DISTSTYLE KEY distkey(id) sortkey (ts)\nAS\nSELECT 1"},
		{"compound sortkey wins", "/* SORTKEY(a) COMPOUND SORTKEY(a, b) */ SELECT 1", "CREATE TABLE stg.orders DISTSTYLE EVEN COMPOUND SORTKEY(a, b)\nAS\nSELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := newJob()
			job.sql, job.sel = tt.sql, "SELECT 1"
			got, err := Statements(Redshift{}, job, ActionTable)
			require.NoError(t, err)
			require.Len(t, got, 4)
			assert.Equal(t, tt.want, got[2])
			assert.Equal(t, "ANALYZE stg.orders", got[3])
		})
	}

	got, err := Statements(Redshift{}, newJob(), ActionMaterialize)
	require.NoError(t, err)
	assert.Equal(t, "ANALYZE stg_mat.orders", got[3])
	assert.Equal(t, "CREATE SCHEMA IF NOT EXISTS stg", got[4])
}

func TestBigQuery(t *testing.T) {
	job := newJob()
	job.sql = "/* PARTITION BY DATE(ts) OPTIONS(description=\"x\") */ SELECT 1"
	job.sel = "SELECT 1"

	got, err := Statements(BigQuery{}, job, ActionTable)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE SCHEMA IF NOT EXISTS `stg`",
		"CREATE OR REPLACE TABLE `stg.orders` PARTITION BY DATE(ts) OPTIONS(description=\"x\")\nAS\nSELECT 1",
	}, got)

	got, err = Statements(BigQuery{}, job, ActionView)
	require.NoError(t, err)
	assert.Equal(t, "CREATE OR REPLACE VIEW `stg.orders`\nAS\nSELECT 1", got[1])

	d := BigQuery{}
	assert.True(t, d.ExplicitDatabase())
	assert.Equal(t, "`", d.Quotes().Start)
}

func TestAzureSynapse(t *testing.T) {
	job := newJob()
	job.sql = "/* DISTRIBUTION = HASH(customer_id) */ SELECT 1"
	job.sel = "SELECT 1"

	got, err := Statements(AzureSynapse{}, job, ActionTable)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"IF NOT EXISTS (SELECT 1 FROM sys.schemas s WHERE s.name='stg')\n    EXEC('CREATE SCHEMA stg')",
		"IF EXISTS (SELECT 1 FROM sys.schemas s JOIN sys.tables o ON o.schema_id = s.schema_id AND o.name='orders' WHERE s.name='stg')\n    DROP TABLE stg.orders",
		"IF EXISTS (SELECT 1 FROM sys.schemas s JOIN sys.views o ON o.schema_id = s.schema_id AND o.name='orders' WHERE s.name='stg')\n    DROP VIEW stg.orders",
		"CREATE TABLE stg.orders\nWITH ( DISTRIBUTION = HASH (customer_id) )\nAS\nSELECT 1",
	}, got)

	job.sql = "SELECT 1"
	got, err = Statements(AzureSynapse{}, job, ActionMaterialize)
	require.NoError(t, err)
	assert.Contains(t, got[0], "s.name='stg_mat'")
	assert.Contains(t, got[4], "DISTRIBUTION = ROUND_ROBIN")
	assert.Equal(t, "CREATE VIEW stg.orders\nAS\nSELECT * FROM stg_mat.orders", got[5])
}

func TestUniqueKeys(t *testing.T) {
	assert.Equal(t, []string{"id", "day"}, UniqueKeys("/* UNIQUE KEY (id, day) */ SELECT 1"))
	assert.Nil(t, UniqueKeys("SELECT 1"))
}

func TestIsAction(t *testing.T) {
	for _, a := range []string{"e", "t", "v", "m", "check", "s"} {
		assert.True(t, IsAction(a), a)
	}
	assert.False(t, IsAction(ActionMock))
	assert.False(t, IsAction("x"))
}
