package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlrunner/internal/cli/config"
	"github.com/leapstack-labs/sqlrunner/internal/cli/testutil"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(func() {
		config.ResetConfig()
		cfgFile = ""
	})

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, _, err := run(t, "--help")
	require.NoError(t, err)

	for _, name := range []string{"execute", "staging", "test", "deps", "clean", "list", "history", "query", "doctor", "init"} {
		assert.Contains(t, out, name)
	}
	for _, flag := range []string{"--config", "--env-file", "--database", "--cold-run", "--except-locally-independent", "--output"} {
		assert.Contains(t, out, flag)
	}
}

func TestRootCmd_Version(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlrunner v"+Version)
}

func TestRootCmd_FlagsOverrideConfig(t *testing.T) {
	p := testutil.SetupTestProject(t, "")
	t.Setenv("SQLRUNNER_COLD_RUN", "false")

	out, _, err := run(t, "--config", p.ConfigPath, "--cold-run", "-o", "markdown", "test", "daily")
	require.NoError(t, err)

	cfg := config.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.True(t, cfg.ColdRun)
	assert.Equal(t, "markdown", cfg.OutputFormat)
	assert.Contains(t, out, "CREATE TABLE test_mart.daily_sales")
	testutil.AssertNoANSI(t, out)
}

func TestRootCmd_VerboseLogsToStderr(t *testing.T) {
	p := testutil.SetupTestProject(t, "")

	out, errOut, err := run(t, "--config", p.ConfigPath, "-v", "-o", "markdown", "list", "daily")
	require.NoError(t, err)
	assert.Contains(t, out, "staging.orders")
	assert.Contains(t, errOut, "using config file")
	assert.Contains(t, errOut, "level=DEBUG")
}

func TestRootCmd_ConfigErrors(t *testing.T) {
	_, _, err := run(t, "--config", "/nonexistent/sqlrunner.yaml", "list", "daily")
	assert.ErrorContains(t, err, "config file")
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlrunner")

	_, _, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}
