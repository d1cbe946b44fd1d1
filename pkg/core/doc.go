// Package core defines the shared language of the sqlrunner system.
//
// This package contains:
//   - Dependency edges between relations
//   - Result rows returned by warehouses
//   - Run history entities and the Store interface
//
// pkg/core imports only the standard library. All other packages depend on
// core, not the reverse.
package core
