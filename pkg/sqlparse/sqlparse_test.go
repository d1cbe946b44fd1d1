package sqlparse

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/sqlrunner/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, sql string, quotes Quotes) *Statement {
	t.Helper()
	stmts := Parse(sql, quotes)
	require.Len(t, stmts, 1)
	return stmts[0]
}

func sourceStrings(stmt *Statement) []string {
	var out []string
	for _, s := range stmt.Sources() {
		out = append(out, s.String())
	}
	return out
}

func TestClasses_Idempotent(t *testing.T) {
	inputs := []string{
		"SELECT * FROM a.b JOIN c.d ON a.id = c.id",
		"CREATE TABLE x.y AS WITH c AS (SELECT 1) SELECT * FROM c",
		"DELETE FROM s.t WHERE id IN (SELECT id FROM s.u);",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			stmt := parseOne(t, in, DefaultQuotes)
			again := parseOne(t, stmt.String(), DefaultQuotes)
			assert.Equal(t, stmt.Classes(), again.Classes())
			assert.Equal(t, stmt.Classes(), token.Classes(stmt.Tokens()))
		})
	}
}

func TestSources(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "comma list and join",
			sql:  "SELECT * FROM s1.a, s2.b JOIN c ON true",
			want: []string{"s1.a", "s2.b", "c"},
		},
		{
			name: "three part names",
			sql:  "SELECT * FROM db.s.t LEFT JOIN db.s.u ON 1 = 1",
			want: []string{"db.s.t", "db.s.u"},
		},
		{
			name: "delete target is not a source",
			sql:  "DELETE FROM s.t WHERE id IN (SELECT id FROM s.u)",
			want: []string{"s.u"},
		},
		{
			name: "from inside a function call",
			sql:  "SELECT EXTRACT(year FROM ts) FROM s.t",
			want: []string{"s.t"},
		},
		{
			name: "sub-select inside a function call",
			sql:  "SELECT coalesce((SELECT max(x) FROM s.t), 0) FROM s.u",
			want: []string{"s.t", "s.u"},
		},
		{
			name: "no sources",
			sql:  "SELECT 1",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := parseOne(t, tt.sql, DefaultQuotes)
			assert.Equal(t, tt.want, sourceStrings(stmt))
		})
	}
}

func TestSources_NextLinksLeftToRight(t *testing.T) {
	stmt := parseOne(t, "SELECT * FROM a.x JOIN b.y ON 1 = 1 JOIN c.z ON 1 = 1", DefaultQuotes)
	sources := stmt.Sources()
	require.Len(t, sources, 3)

	assert.Same(t, sources[1], sources[0].Next())
	assert.Same(t, sources[2], sources[1].Next())
	assert.Nil(t, sources[2].Next())

	prev := -1
	for _, s := range sources {
		start, _ := s.Span()
		assert.Greater(t, start, prev)
		prev = start
	}
}

func TestSource_Parts(t *testing.T) {
	stmt := parseOne(t, `SELECT * FROM "Db"."Sch"."Tbl", cte`, DefaultQuotes)
	sources := stmt.Sources()
	require.Len(t, sources, 2)

	db, ok := sources[0].Database()
	assert.True(t, ok)
	assert.Equal(t, "Db", db)
	schema, ok := sources[0].Schema()
	assert.True(t, ok)
	assert.Equal(t, "Sch", schema)
	assert.Equal(t, "Tbl", sources[0].Relation())

	_, ok = sources[1].Schema()
	assert.False(t, ok, "bare CTE reference has no schema")
	_, ok = sources[1].Database()
	assert.False(t, ok)
	assert.Equal(t, "cte", sources[1].Relation())
}

func TestEditor_RoundTrip(t *testing.T) {
	tests := []struct {
		sql    string
		quotes Quotes
	}{
		{sql: `SELECT * FROM "s"."a" JOIN b.c ON 1 = 1, d`, quotes: DefaultQuotes},
		{sql: "SELECT * FROM `p.ds.t` JOIN `ds.u` ON true", quotes: BacktickQuotes},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			stmt := parseOne(t, tt.sql, tt.quotes)
			ed := stmt.Edit()
			for _, src := range stmt.Sources() {
				ref := ed.Source(src)
				for _, p := range []Part{Relation, Schema, Database} {
					if v, ok := src.Get(p); ok {
						require.NoError(t, ref.Set(p, v))
					}
				}
			}
			assert.Equal(t, tt.sql, ed.Apply().Statement.String())
		})
	}
}

func TestEditor_DatabaseInsertShiftsLaterSources(t *testing.T) {
	stmt := parseOne(t, "SELECT * FROM s.a JOIN t.b ON 1 = 1", DefaultQuotes)
	sources := stmt.Sources()
	require.Len(t, sources, 2)

	ed := stmt.Edit()
	require.NoError(t, ed.Source(sources[0]).Set(Database, "db"))
	require.NoError(t, ed.Source(sources[1]).Set(Relation, "renamed"))
	res := ed.Apply()

	assert.Equal(t, "SELECT * FROM db.s.a JOIN t.renamed ON 1 = 1", res.Statement.String())

	oldStart, oldEnd := sources[1].Span()
	newSources := res.Statement.Sources()
	require.Len(t, newSources, 2)
	newStart, newEnd := newSources[1].Span()
	assert.Equal(t, newStart, res.Remap(oldStart))
	assert.Equal(t, newEnd, res.Remap(oldEnd))
	assert.Equal(t, oldStart+2, newStart)
	assert.Equal(t, "t.renamed", newSources[1].String())
	assert.Equal(t, res.Statement.Len(), res.Remap(stmt.Len()))
}

func TestEditor_DatabaseInsertInheritsQuotes(t *testing.T) {
	stmt := parseOne(t, `SELECT * FROM "s"."a"`, DefaultQuotes)
	ed := stmt.Edit()
	ref := ed.Source(stmt.Sources()[0])

	require.NoError(t, ref.Set(Database, "db"))
	v, ok := ref.Get(Database)
	require.True(t, ok)
	assert.Equal(t, "db", v)

	require.NoError(t, ref.Set(Database, "prod"))
	require.NoError(t, ref.Set(Schema, "stg_s"))
	assert.Equal(t, `SELECT * FROM "prod"."stg_s"."a"`, ed.Apply().Statement.String())
}

func TestEditor_IncompatibleSQL(t *testing.T) {
	tests := []struct {
		name string
		part Part
	}{
		{name: "schema on bare name", part: Schema},
		{name: "database on bare name", part: Database},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := "SELECT * FROM cte"
			stmt := parseOne(t, in, DefaultQuotes)
			ed := stmt.Edit()
			err := ed.Source(stmt.Sources()[0]).Set(tt.part, "x")

			var incompatible *IncompatibleSQLError
			require.True(t, errors.As(err, &incompatible))
			assert.Equal(t, tt.part, incompatible.Part)
			assert.Equal(t, "cte", incompatible.Source)
			assert.Equal(t, in, ed.Apply().Statement.String())
		})
	}
}

func TestEditor_CompoundSegments(t *testing.T) {
	stmt := parseOne(t, "SELECT * FROM `proj.ds.tbl` JOIN `ds.other` ON true", BacktickQuotes)
	sources := stmt.Sources()
	require.Len(t, sources, 2)
	require.True(t, sources[0].Compound())

	db, ok := sources[0].Database()
	require.True(t, ok)
	assert.Equal(t, "proj", db)
	_, ok = sources[1].Database()
	assert.False(t, ok)

	ed := stmt.Edit()
	require.NoError(t, ed.Source(sources[0]).Set(Schema, "stg_ds"))
	require.NoError(t, ed.Source(sources[1]).Set(Database, "proj"))
	assert.Equal(t, "SELECT * FROM `proj.stg_ds.tbl` JOIN `proj.ds.other` ON true", ed.Apply().Statement.String())
}

func TestWithoutDDL(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "create table as select",
			sql:  "CREATE TABLE x.y AS\nSELECT 1 FROM a.b",
			want: "SELECT 1 FROM a.b",
		},
		{
			name: "create view as with",
			sql:  "CREATE VIEW v AS WITH c AS (SELECT 1) SELECT * FROM c",
			want: "WITH c AS (SELECT 1) SELECT * FROM c",
		},
		{
			name: "plain select is unchanged",
			sql:  "SELECT a AS b FROM s.t",
			want: "SELECT a AS b FROM s.t",
		},
		{
			name: "quoted destination is kept out",
			sql:  `CREATE TABLE "x"."y" AS SELECT 1`,
			want: "SELECT 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := parseOne(t, tt.sql, DefaultQuotes)
			assert.Equal(t, tt.want, stmt.WithoutDDL().String())
		})
	}
}

func TestLimitZero(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "existing limit is zeroed",
			sql:  "SELECT * FROM a.b LIMIT 10;",
			want: "SELECT * FROM a.b LIMIT 0;",
		},
		{
			name: "limit followed by comment",
			sql:  "SELECT * FROM a.b LIMIT 5 -- five\n",
			want: "SELECT * FROM a.b LIMIT 0 -- five\n",
		},
		{
			name: "limit added at the end",
			sql:  "SELECT * FROM a.b",
			want: "SELECT * FROM a.b\nLIMIT 0",
		},
		{
			name: "limit added before terminator",
			sql:  "SELECT 1;\n",
			want: "SELECT 1\nLIMIT 0;\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := parseOne(t, tt.sql, DefaultQuotes)
			ed := stmt.Edit()
			ed.LimitZero()
			assert.Equal(t, tt.want, ed.Apply().Statement.String())
			assert.Equal(t, tt.sql, stmt.String(), "original statement is unchanged")
		})
	}
}

func TestDestination(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{sql: "INSERT INTO s.t SELECT * FROM a.b", want: "s.t"},
		{sql: "DELETE FROM s.t WHERE x = 1", want: "s.t"},
		{sql: "UPDATE s.t SET x = 1", want: "s.t"},
		{sql: "SELECT * FROM s.t", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			dest := parseOne(t, tt.sql, DefaultQuotes).Destination()
			if tt.want == "" {
				assert.Nil(t, dest)
				return
			}
			require.NotNil(t, dest)
			assert.Equal(t, tt.want, dest.String())
		})
	}
}

func TestComments(t *testing.T) {
	stmt := parseOne(t, "/* {\"node_id\": \"a.b\"} */\n-- note\nSELECT 1", DefaultQuotes)
	assert.Equal(t, []string{`{"node_id": "a.b"}`, "note"}, stmt.Comments())
}

func TestParsePart(t *testing.T) {
	p, ok := ParsePart("Schema")
	assert.True(t, ok)
	assert.Equal(t, Schema, p)
	_, ok = ParsePart("column")
	assert.False(t, ok)
}
