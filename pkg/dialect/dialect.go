// Package dialect turns job actions into the literal SQL statements of a
// warehouse backend.
//
// The set of dialects is closed. Every dialect embeds Generic and overrides
// the statement kinds it builds differently.
package dialect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/sqlrunner/pkg/sqlparse"
)

// Action codes as written in job lists.
const (
	ActionExecute     = "e"
	ActionTable       = "t"
	ActionView        = "v"
	ActionMaterialize = "m"
	ActionCheck       = "check"
	ActionSkip        = "s"
	// ActionMock only appears after test mode rewrites an action.
	ActionMock = "mock"
)

// IsAction reports whether a is an action accepted in job lists.
func IsAction(a string) bool {
	switch a {
	case ActionExecute, ActionTable, ActionView, ActionMaterialize, ActionCheck, ActionSkip:
		return true
	}
	return false
}

// Job is the view of a query job that statement synthesis needs. Names are
// already rewritten for the active execution mode.
type Job interface {
	// Name is the [database.]schema.relation of the job.
	Name() string
	// NameMat is Name with the materialized schema suffix.
	NameMat() string
	// Schema is the [database.]schema of the job.
	Schema() string
	// SchemaMat is Schema with the materialized schema suffix.
	SchemaMat() string
	// SchemaPart and Relation are the bare rewritten components.
	SchemaPart() string
	Relation() string

	// SQL is the raw file content.
	SQL() string
	// Select is the DML statement of the file with its DDL header removed
	// and its sources rewritten. limitZero injects LIMIT 0.
	Select(limitZero bool) (string, error)
	// ExecuteStatements returns the statements of the file as written.
	ExecuteStatements() ([]string, error)
}

// Dialect builds statements for one backend.
type Dialect interface {
	Type() string
	// Quotes are the identifier quotes used when parsing SQL files.
	Quotes() sqlparse.Quotes
	// ExplicitDatabase forces a database component onto every name.
	ExplicitDatabase() bool
	// MockAsView makes mock relations views instead of empty tables.
	MockAsView() bool

	CreateTable(job Job, sel string) []string
	CreateView(job Job, sel string) []string
	MaterializeView(job Job, sel string) []string
}

// Statements returns the statements that perform action for job. An empty
// result is a no-op.
func Statements(d Dialect, job Job, action string) ([]string, error) {
	switch action {
	case ActionSkip:
		return nil, nil
	case ActionExecute:
		return job.ExecuteStatements()
	case ActionTable, ActionView, ActionMaterialize, ActionCheck:
		sel, err := selectOf(job, false)
		if err != nil {
			return nil, err
		}
		switch action {
		case ActionTable:
			return d.CreateTable(job, sel), nil
		case ActionView:
			return d.CreateView(job, sel), nil
		case ActionMaterialize:
			return d.MaterializeView(job, sel), nil
		default:
			return []string{sel}, nil
		}
	case ActionMock:
		if d.MockAsView() {
			sel, err := selectOf(job, false)
			if err != nil {
				return nil, err
			}
			return d.CreateView(job, sel), nil
		}
		sel, err := selectOf(job, true)
		if err != nil {
			return nil, err
		}
		return d.CreateTable(job, sel), nil
	}
	return nil, fmt.Errorf("unknown action %q for %s", action, job.Name())
}

func selectOf(job Job, limitZero bool) (string, error) {
	sel, err := job.Select(limitZero)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(sel) == "" {
		return "", fmt.Errorf("%s: no SELECT statement to build from", job.Name())
	}
	return sel, nil
}

// Backend type names.
const (
	TypePostgres  = "postgres"
	TypeDuckDB    = "duckdb"
	TypeRedshift  = "redshift"
	TypeSnowflake = "snowflake"
	TypeBigQuery  = "bigquery"
	TypeAzureDWH  = "azuredwh"
)

var constructors = map[string]func() Dialect{
	TypePostgres:  func() Dialect { return Postgres{} },
	TypeDuckDB:    func() Dialect { return DuckDB{} },
	TypeRedshift:  func() Dialect { return Redshift{} },
	TypeSnowflake: func() Dialect { return Snowflake{} },
	TypeBigQuery:  func() Dialect { return BigQuery{} },
	TypeAzureDWH:  func() Dialect { return AzureSynapse{} },
}

// New returns the dialect for a database_type.
func New(typ string) (Dialect, error) {
	if typ == "" {
		return nil, fmt.Errorf("database_type not specified")
	}
	ctor, ok := constructors[strings.ToLower(typ)]
	if !ok {
		return nil, &UnknownDialectError{Type: typ, Available: Types()}
	}
	return ctor(), nil
}

// Types lists the supported database types, sorted.
func Types() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownDialectError is returned when an unknown database type is requested.
type UnknownDialectError struct {
	Type      string
	Available []string
}

func (e *UnknownDialectError) Error() string {
	return fmt.Sprintf("unknown database type %q\nAvailable types: %v\nHint: Check database_type in sqlrunner.yaml", e.Type, e.Available)
}
