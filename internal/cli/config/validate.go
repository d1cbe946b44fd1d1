package config

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/sqlrunner/internal/deps"
	"github.com/leapstack-labs/sqlrunner/pkg/dialect"
)

// Validate checks the configuration eagerly, before any command runs.
func (c *Config) Validate() error {
	if c.SQLPath == "" {
		return fmt.Errorf("sql_path is required")
	}
	if _, err := dialect.New(c.DatabaseType); err != nil {
		return fmt.Errorf("database_type: %w", err)
	}
	switch c.DepsCache.Type {
	case "", deps.CacheNone, deps.CacheFilesystem, deps.CacheSQLite:
	default:
		return fmt.Errorf("deps_cache.type: unknown cache type %q (available: none, filesystem, sqlite)", c.DepsCache.Type)
	}
	if err := c.Staging.Validate(); err != nil {
		return fmt.Errorf("staging: %w", err)
	}
	if err := c.Test.Validate(); err != nil {
		return fmt.Errorf("test: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// ValidateDirectories checks that sql_path exists.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.SQLPath); os.IsNotExist(err) {
		return fmt.Errorf("sql directory does not exist: %s\nHint: set sql_path in %s or pass --database", c.SQLPath, DefaultConfigFile)
	}
	return nil
}
