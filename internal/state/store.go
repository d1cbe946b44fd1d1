// Package state persists the dependency cache and the run history of
// sqlrunner in a local SQLite database.
package state

import (
	"github.com/leapstack-labs/sqlrunner/pkg/core"
)

// Type aliases so callers can stay within this package for state types.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// Run is an alias for core.Run.
	Run = core.Run

	// JobRunStatus is an alias for core.JobRunStatus.
	JobRunStatus = core.JobRunStatus

	// JobRun is an alias for core.JobRun.
	JobRun = core.JobRun
)

var _ Store = (*SQLiteStore)(nil)
