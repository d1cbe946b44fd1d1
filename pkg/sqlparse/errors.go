package sqlparse

import "fmt"

// IncompatibleSQLError is returned when a rewrite needs a part the source
// does not have, e.g. setting a schema on a bare CTE reference.
type IncompatibleSQLError struct {
	Part   Part
	Source string
}

func (e *IncompatibleSQLError) Error() string {
	if e.Part == Database {
		return fmt.Sprintf("cannot set database on %q: source has no schema", e.Source)
	}
	return fmt.Sprintf("cannot set %s on %q: source has no %s", e.Part, e.Source, e.Part)
}
