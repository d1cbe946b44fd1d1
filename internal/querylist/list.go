// Package querylist turns requested job lists into an ordered list of jobs
// and runs them against a warehouse.
//
// Requested jobs are expanded through the dependency graph: every
// dependency is ordered before its dependents, but only requested relations
// become jobs.
package querylist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqlrunner/internal/dag"
	"github.com/leapstack-labs/sqlrunner/internal/override"
	"github.com/leapstack-labs/sqlrunner/pkg/core"
	"github.com/leapstack-labs/sqlrunner/pkg/dialect"
)

// ExecutionType selects how a run treats relation names and actions.
type ExecutionType string

// Execution types.
const (
	ExecutionNone    ExecutionType = "none"
	ExecutionExecute ExecutionType = "execute"
	ExecutionStaging ExecutionType = "staging"
	ExecutionTest    ExecutionType = "test"
)

// Header is the header of a job list.
const Header = "schema_name;table_name;action"

// Config holds the settings a list needs to build its jobs.
type Config struct {
	SQLPath string
	Dialect dialect.Dialect

	// ExplicitDatabase adds Database to every name that has a schema. The
	// dialect may force it on.
	ExplicitDatabase bool
	Database         string

	// Staging and Test are the override configs of those modes.
	Staging *override.Config
	Test    *override.Config

	// ExceptLocallyIndependent restricts overrides to requested relations.
	ExceptLocallyIndependent bool

	Logger *slog.Logger
}

// Row is one requested job.
type Row struct {
	Schema string
	Table  string
	Action string
}

// CycleError reports a dependency cycle reached from a requested job.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// List is the ordered job list of one run.
type List struct {
	Jobs          []*Job
	ExecutionType ExecutionType

	dialect dialect.Dialect
	logger  *slog.Logger
}

// ParseRows reads a ";" separated job list with a header row. Rows whose
// schema starts with "#" are comments.
func ParseRows(csvText string) ([]Row, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(csvText)))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read job list header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range []string{"schema_name", "table_name", "action"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("job list header lacks %q", name)
		}
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read job list: %w", err)
		}
		field := func(name string) string {
			if i := col[name]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		row := Row{Schema: field("schema_name"), Table: field("table_name"), Action: field("action")}
		if row.Schema == "" && row.Table == "" {
			continue
		}
		if strings.HasPrefix(row.Schema, "#") {
			continue
		}
		if !dialect.IsAction(row.Action) {
			return nil, fmt.Errorf("job %s.%s: unknown action %q", row.Schema, row.Table, row.Action)
		}
		rows = append(rows, row)
	}
}

// Build orders the requested jobs of csvText after their dependencies.
func Build(cfg Config, csvText string, edges []core.Edge, et ExecutionType) (*List, error) {
	if cfg.Dialect == nil {
		cfg.Dialect = dialect.Postgres{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	rows, err := ParseRows(csvText)
	if err != nil {
		return nil, err
	}
	requested := make(map[string]Row, len(rows))
	for _, row := range rows {
		requested[row.Schema+"."+row.Table] = row
	}

	g := dag.NewGraph()
	for _, e := range edges {
		if e.IsSentinel() {
			continue
		}
		if err := g.AddEdge(e.Source(), e.Dependent()); err != nil && !errors.Is(err, dag.ErrSelfLoop) {
			return nil, err
		}
	}

	rw := cfg.rewriter(et, requested)
	list := &List{ExecutionType: et, dialect: cfg.Dialect, logger: cfg.Logger}

	const (
		visiting = 1
		visited  = 2
	)
	marks := make(map[string]int)
	var stack []string
	var visit func(id string) error
	visit = func(id string) error {
		switch marks[id] {
		case visited:
			return nil
		case visiting:
			start := 0
			for i, s := range stack {
				if s == id {
					start = i
					break
				}
			}
			path := append(append([]string(nil), stack[start:]...), id)
			return &CycleError{Path: path}
		}
		marks[id] = visiting
		stack = append(stack, id)
		for _, parent := range g.GetParents(id) {
			if err := visit(parent); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		marks[id] = visited

		row, ok := requested[id]
		if !ok {
			return nil
		}
		job, err := newJob(cfg.SQLPath, row, cfg.Dialect.Quotes(), rw)
		if err != nil {
			return err
		}
		list.Jobs = append(list.Jobs, job)
		return nil
	}
	for _, row := range rows {
		if err := visit(row.Schema + "." + row.Table); err != nil {
			return nil, err
		}
	}

	cfg.Logger.Debug("built job list", slog.Int("requested", len(rows)), slog.Int("jobs", len(list.Jobs)))
	return list, nil
}

// FromCSVFiles builds a list from <sql_path>/<name>.csv for each name.
func FromCSVFiles(cfg Config, names []string, edges []core.Edge, et ExecutionType) (*List, error) {
	parts := []string{Header}
	for _, name := range names {
		path := filepath.Join(cfg.SQLPath, name+".csv")
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read job list: %w", err)
		}
		text := strings.TrimSpace(string(content))
		// Each file carries its own header.
		if first, rest, _ := strings.Cut(text, "\n"); strings.TrimSpace(first) == Header {
			text = rest
		}
		parts = append(parts, text)
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("reading job lists", slog.String("lists", strings.Join(names, ", ")))
	}
	return Build(cfg, strings.Join(parts, "\n"), edges, et)
}

func (cfg Config) rewriter(et ExecutionType, requested map[string]Row) *override.Rewriter {
	rw := &override.Rewriter{
		ExplicitDatabase:   cfg.ExplicitDatabase || cfg.Dialect.ExplicitDatabase(),
		Database:           cfg.Database,
		LocallyIndependent: cfg.ExceptLocallyIndependent,
		Requested: func(schema, relation string) bool {
			_, ok := requested[schema+"."+relation]
			return ok
		},
	}
	switch et {
	case ExecutionStaging:
		rw.Mode = cfg.Staging
	case ExecutionTest:
		rw.Mode = cfg.Test
	}
	return rw
}
