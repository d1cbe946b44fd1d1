package querylist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/leapstack-labs/sqlrunner/internal/assertion"
	"github.com/leapstack-labs/sqlrunner/internal/deps"
	"github.com/leapstack-labs/sqlrunner/internal/override"
	"github.com/leapstack-labs/sqlrunner/pkg/dialect"
	"github.com/leapstack-labs/sqlrunner/pkg/sqlparse"
)

// Job is one requested unit of work: the relation schema.table built by
// the SQL file at <sql_path>/<schema>/<table>.sql with the given action.
type Job struct {
	SchemaName string
	TableName  string
	Action     string
	Path       string

	sql        string
	statements []*sqlparse.Statement
	rewriter   *override.Rewriter

	namesOnce sync.Once
	names     override.Names
}

var _ dialect.Job = (*Job)(nil)

func newJob(sqlPath string, row Row, quotes sqlparse.Quotes, rw *override.Rewriter) (*Job, error) {
	path, err := filepath.Abs(filepath.Join(sqlPath, row.Schema, row.Table+".sql"))
	if err != nil {
		return nil, fmt.Errorf("resolve path of %s.%s: %w", row.Schema, row.Table, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s does not exist", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	sql := string(content)
	return &Job{
		SchemaName: row.Schema,
		TableName:  row.Table,
		Action:     row.Action,
		Path:       path,
		sql:        sql,
		statements: sqlparse.Parse(sql, quotes),
		rewriter:   rw,
	}, nil
}

func (j *Job) String() string { return j.Name() + " > " + j.Action }

// Key is the unrewritten "schema.table" of the job.
func (j *Job) Key() string { return j.SchemaName + "." + j.TableName }

// nameComponents returns the job's own name after preprocessing. It is
// computed once per job.
func (j *Job) nameComponents() override.Names {
	j.namesOnce.Do(func() {
		j.names = j.rewriter.Rewrite(override.Names{Schema: j.SchemaName, Relation: j.TableName})
	})
	return j.names
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

// Name is the rewritten, possibly database-qualified relation name.
func (j *Job) Name() string {
	n := j.nameComponents()
	return joinNonEmpty(n.Database, n.Schema, n.Relation)
}

// NameMat is Name with the schema's materialization suffix.
func (j *Job) NameMat() string {
	n := j.nameComponents()
	return joinNonEmpty(n.Database, n.Schema+dialect.MatSuffix, n.Relation)
}

// Schema implements dialect.Job.
func (j *Job) Schema() string {
	n := j.nameComponents()
	return joinNonEmpty(n.Database, n.Schema)
}

// SchemaMat implements dialect.Job.
func (j *Job) SchemaMat() string {
	n := j.nameComponents()
	return joinNonEmpty(n.Database, n.Schema+dialect.MatSuffix)
}

// SchemaPart is the rewritten schema without a database.
func (j *Job) SchemaPart() string { return j.nameComponents().Schema }

// Relation is the rewritten table name.
func (j *Job) Relation() string { return j.nameComponents().Relation }

// SQL is the file content.
func (j *Job) SQL() string { return j.sql }

// UniqueKeys returns the columns of a "unique key (a, b)" comment.
func (j *Job) UniqueKeys() []string { return dialect.UniqueKeys(j.sql) }

// Assertion returns the data assertion declared at the top of the file, or
// nil.
func (j *Job) Assertion() (*assertion.Assertion, error) {
	return assertion.Parse(j.sql)
}

// Select returns the first statement with DML, stripped of its DDL header,
// with every source rewritten. It returns "" when the file has no DML.
func (j *Job) Select(limitZero bool) (string, error) {
	for _, stmt := range j.statements {
		if !stmt.HasDML() {
			continue
		}
		dml := stmt.WithoutDDL()
		ed := dml.Edit()
		if err := j.rewriteSources(ed, dml.Sources()); err != nil {
			return "", fmt.Errorf("%s: %w", j.Path, err)
		}
		if limitZero {
			ed.LimitZero()
		}
		return ed.Apply().Statement.String(), nil
	}
	return "", nil
}

// ExecuteStatements returns every statement of the file. Names are
// rewritten only in statements carrying a metadata comment with
// "preprocess_names": true, and then include the statement's destination.
func (j *Job) ExecuteStatements() ([]string, error) {
	var out []string
	for _, stmt := range j.statements {
		if strings.TrimSpace(stmt.String()) == "" {
			continue
		}
		md, ok := deps.FirstMetadata(stmt.Comments())
		if !ok || !md.PreprocessNames {
			out = append(out, stmt.String())
			continue
		}
		sources := stmt.Sources()
		if dst := stmt.Destination(); dst != nil && !sameSpan(dst, sources) {
			sources = append(sources, dst)
		}
		ed := stmt.Edit()
		if err := j.rewriteSources(ed, sources); err != nil {
			return nil, fmt.Errorf("%s: %w", j.Path, err)
		}
		out = append(out, ed.Apply().Statement.String())
	}
	return out, nil
}

func sameSpan(src *sqlparse.Source, others []*sqlparse.Source) bool {
	start, end := src.Span()
	for _, o := range others {
		if s, e := o.Span(); s == start && e == end {
			return true
		}
	}
	return false
}

// rewriteSources sets every part that preprocessing changes.
func (j *Job) rewriteSources(ed *sqlparse.Editor, sources []*sqlparse.Source) error {
	for _, src := range sources {
		ref := ed.Source(src)
		var before override.Names
		before.Relation, _ = ref.Get(sqlparse.Relation)
		before.Schema, _ = ref.Get(sqlparse.Schema)
		before.Database, _ = ref.Get(sqlparse.Database)

		after := j.rewriter.Rewrite(before)
		for _, p := range []struct {
			part          sqlparse.Part
			before, after string
		}{
			{sqlparse.Relation, before.Relation, after.Relation},
			{sqlparse.Schema, before.Schema, after.Schema},
			{sqlparse.Database, before.Database, after.Database},
		} {
			if p.after == p.before {
				continue
			}
			if err := ref.Set(p.part, p.after); err != nil {
				return err
			}
		}
	}
	return nil
}
