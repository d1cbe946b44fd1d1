// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

// Project is a temporary sqlrunner project.
type Project struct {
	Dir        string
	SQLPath    string
	ConfigPath string
	StatePath  string
}

// Files of the test project, relative to sql_path.
var projectFiles = map[string]string{
	"staging/orders.sql": `CREATE OR REPLACE VIEW staging.orders AS
SELECT id AS order_id, amount, CAST(created_at AS DATE) AS order_date
FROM raw.orders`,
	"mart/daily_sales.sql": `CREATE TABLE mart.daily_sales AS
SELECT order_date, SUM(amount) AS revenue
FROM staging.orders
GROUP BY order_date`,
	"mart/refresh.sql": `/* {"preprocess_names": true} */
INSERT INTO mart.daily_sales
SELECT order_date, SUM(amount) FROM staging.orders GROUP BY order_date`,
	"daily.csv": `schema_name;table_name;action
mart;daily_sales;t
staging;orders;v`,
	"refresh.csv": `schema_name;table_name;action
mart;refresh;e`,
}

// SetupTestProject creates a postgres cold-run project with two relations,
// an execute job and two job lists. extraConfig is appended to the config
// file.
func SetupTestProject(t *testing.T, extraConfig string) *Project {
	t.Helper()

	dir := t.TempDir()
	p := &Project{
		Dir:        dir,
		SQLPath:    filepath.Join(dir, "sql") + string(filepath.Separator),
		ConfigPath: filepath.Join(dir, "sqlrunner.yaml"),
		StatePath:  filepath.Join(dir, ".sqlrunner", "state.db"),
	}

	for rel, content := range projectFiles {
		path := filepath.Join(p.SQLPath, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}

	cfg := fmt.Sprintf(`sql_path: %q
database_type: postgres
cold_run: true
state_path: %q
test:
  override:
    schema:
      prefix: test_
%s`, p.SQLPath, p.StatePath, extraConfig)
	if err := os.WriteFile(p.ConfigPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return p
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
