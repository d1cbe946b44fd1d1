// Package config provides configuration management for the sqlrunner CLI.
//
// Configuration is layered with koanf: defaults, the YAML config file,
// SQLRUNNER_ environment variables, then explicitly set flags.
package config

import (
	"github.com/leapstack-labs/sqlrunner/internal/override"
	"github.com/leapstack-labs/sqlrunner/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	SQLPath      string          `koanf:"sql_path"`
	DatabaseType string          `koanf:"database_type"`
	Auth         core.AuthConfig `koanf:"auth"`

	// ExplicitDatabase prefixes every schema-qualified name with
	// auth.database.
	ExplicitDatabase bool `koanf:"explicit_database"`

	DepsSchema          string          `koanf:"deps_schema"`
	ExcludeDependencies []string        `koanf:"exclude_dependencies"`
	DepsCache           DepsCacheConfig `koanf:"deps_cache"`
	Workers             int             `koanf:"workers"`

	Staging *override.Config `koanf:"staging"`
	Test    *override.Config `koanf:"test"`

	// Colors and Shapes style DOT nodes by "schema.table" prefix.
	Colors map[string]string `koanf:"colors"`
	Shapes map[string]string `koanf:"shapes"`

	StatePath string `koanf:"state_path"`

	ColdRun                  bool   `koanf:"cold_run"`
	ExceptLocallyIndependent bool   `koanf:"except_locally_independent"`
	Verbose                  bool   `koanf:"verbose"`
	OutputFormat             string `koanf:"output"`
}

// DepsCacheConfig selects the dependency cache backend.
type DepsCacheConfig struct {
	Type     string `koanf:"type"`
	Location string `koanf:"location"`
}

// Default configuration values.
const (
	DefaultConfigFile = "sqlrunner.yaml"
	DefaultSQLPath    = "sql"
	DefaultDepsSchema = "sqlrunner"
	DefaultCacheType  = "none"
	DefaultCacheFile  = ".sqlrunner/deps.csv"
	DefaultStateFile  = ".sqlrunner/state.db"
	DefaultOutput     = "auto" // TTY=text, non-TTY=markdown
)
