package core

// Edge records that the dependent relation reads from the source relation.
// Hash identifies the SQL file the edge was extracted from.
//
// An edge with empty source fields marks a file that was parsed and has no
// dependencies, so that the file still hits the cache on the next run.
type Edge struct {
	Hash            string
	SourceSchema    string
	SourceTable     string
	DependentSchema string
	DependentTable  string
}

// Source returns "schema.table" of the source relation.
func (e Edge) Source() string { return e.SourceSchema + "." + e.SourceTable }

// Dependent returns "schema.table" of the dependent relation.
func (e Edge) Dependent() string { return e.DependentSchema + "." + e.DependentTable }

// IsSentinel reports whether the edge only marks a dependency-free file.
func (e Edge) IsSentinel() bool { return e.SourceSchema == "" && e.SourceTable == "" }

// Row is one result row in column order.
type Row []any
