package dialect

import (
	"fmt"
	"strings"
)

// AzureSynapse has no IF [NOT] EXISTS for schemas or relations, so every
// DDL step is guarded by a sys catalog lookup. A name can only be one of a
// table or a view, so creating one drops the other.
type AzureSynapse struct{ Generic }

// Type implements Dialect.
func (AzureSynapse) Type() string { return TypeAzureDWH }

// MockAsView implements Dialect.
func (AzureSynapse) MockAsView() bool { return true }

// Relation kinds for ObjectExists.
const (
	KindSchema = ""
	KindTable  = "tables"
	KindView   = "views"
)

// ObjectExists returns an EXISTS predicate that is true when the schema, or
// the relation of the given kind inside it, exists.
func ObjectExists(schema, relation, kind string) string {
	join := ""
	if kind != KindSchema {
		join = fmt.Sprintf(" JOIN sys.%s o ON o.schema_id = s.schema_id AND o.name='%s'", kind, quoteLiteral(relation))
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM sys.schemas s%s WHERE s.name='%s')", join, quoteLiteral(schema))
}

// EnsureSchema creates schema unless it exists.
func EnsureSchema(schema string) string {
	return fmt.Sprintf("IF NOT %s\n    EXEC('CREATE SCHEMA %s')", ObjectExists(schema, "", KindSchema), schema)
}

func dropIfExists(kind, schema, relation, name string) string {
	stmt := "DROP TABLE "
	if kind == KindView {
		stmt = "DROP VIEW "
	}
	return fmt.Sprintf("IF %s\n    %s%s", ObjectExists(schema, relation, kind), stmt, name)
}

// CreateTable implements Dialect.
func (AzureSynapse) CreateTable(job Job, sel string) []string {
	schema, rel := job.SchemaPart(), job.Relation()
	return []string{
		EnsureSchema(schema),
		dropIfExists(KindTable, schema, rel, job.Name()),
		dropIfExists(KindView, schema, rel, job.Name()),
		"CREATE TABLE " + job.Name() + "\nWITH ( " + Distribution(job.SQL()) + " )\nAS\n" + sel,
	}
}

// CreateView implements Dialect.
func (AzureSynapse) CreateView(job Job, sel string) []string {
	schema, rel := job.SchemaPart(), job.Relation()
	return []string{
		EnsureSchema(schema),
		dropIfExists(KindView, schema, rel, job.Name()),
		dropIfExists(KindTable, schema, rel, job.Name()),
		"CREATE VIEW " + job.Name() + "\nAS\n" + sel,
	}
}

// MaterializeView implements Dialect.
func (AzureSynapse) MaterializeView(job Job, sel string) []string {
	schema, rel := job.SchemaPart(), job.Relation()
	schemaMat := schema + MatSuffix
	return []string{
		EnsureSchema(schemaMat),
		dropIfExists(KindTable, schemaMat, rel, job.NameMat()),
		dropIfExists(KindView, schema, rel, job.Name()),
		dropIfExists(KindTable, schema, rel, job.Name()),
		"CREATE TABLE " + job.NameMat() + "\nWITH ( " + Distribution(job.SQL()) + " )\nAS\n" + sel,
		"CREATE VIEW " + job.Name() + "\nAS\nSELECT * FROM " + job.NameMat(),
	}
}

// MatSuffix is appended to the schema of materialized view backing tables.
const MatSuffix = "_mat"

func quoteLiteral(s string) string { return strings.ReplaceAll(s, "'", "''") }
