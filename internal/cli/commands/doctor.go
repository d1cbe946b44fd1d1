package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlrunner/internal/cli/config"
	"github.com/leapstack-labs/sqlrunner/internal/cli/output"
	"github.com/leapstack-labs/sqlrunner/internal/querylist"
	"github.com/leapstack-labs/sqlrunner/internal/state"
	"github.com/leapstack-labs/sqlrunner/pkg/core"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Offline bool
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the project setup",
		Long: `Check the configuration, the SQL tree, the job lists, the state store
and the warehouse connection, and report problems grouped by category.

The command fails when any check reports an error.`,
		Example: `  # Run all checks
  sqlrunner doctor

  # Skip the warehouse connection
  sqlrunner doctor --offline --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Do not connect to the warehouse")

	return cmd
}

// Check statuses.
const (
	checkPass = "pass"
	checkWarn = "warn"
	checkFail = "error"
	checkSkip = "skip"
)

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Checks []HealthCheck `json:"checks"`
	Errors int           `json:"errors"`
	Warns  int           `json:"warnings"`
}

// HealthCheck is the result of one check.
type HealthCheck struct {
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"`
	Details []string `json:"details,omitempty"`
}

type doctor struct {
	cc     *CommandContext
	checks []HealthCheck
}

func (d *doctor) add(group, name, status string, details ...string) {
	d.checks = append(d.checks, HealthCheck{Name: name, Group: group, Status: status, Details: details})
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	d := &doctor{cc: cc}

	d.checkConfig()
	var store core.Store
	if st := d.checkState(ctx); st != nil {
		defer func() { _ = st.Close() }()
		store = st
	}
	if d.checkSQLPath() {
		d.checkDependencies(ctx, store)
	}
	if opts.Offline || cc.Cfg.ColdRun {
		d.add("connectivity", "warehouse connection", checkSkip)
	} else {
		d.checkWarehouse(ctx)
	}

	out := &DoctorOutput{Checks: d.checks}
	for _, c := range d.checks {
		switch c.Status {
		case checkFail:
			out.Errors++
		case checkWarn:
			out.Warns++
		}
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(out); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}

	if out.Errors > 0 {
		return fmt.Errorf("doctor found %d errors", out.Errors)
	}
	return nil
}

func (d *doctor) checkConfig() {
	cfg := d.cc.Cfg
	if f := config.GetConfigFileUsed(); f != "" {
		d.add("configuration", "config file", checkPass, f)
	} else {
		d.add("configuration", "config file", checkWarn, "no "+config.DefaultConfigFile+", using defaults and environment")
	}
	d.add("configuration", "database type", checkPass, d.cc.Dialect.Type())
	if cfg.Test == nil {
		d.add("configuration", "test overrides", checkWarn, "no test section: test runs build mocks over production names")
	} else {
		d.add("configuration", "test overrides", checkPass)
	}
}

func (d *doctor) checkState(ctx context.Context) *state.SQLiteStore {
	store, err := d.cc.OpenStore(ctx)
	if err != nil {
		d.add("state", "state store", checkWarn, err.Error())
		return nil
	}
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		d.add("state", "state store", checkWarn, err.Error())
		return store
	}
	d.add("state", "state store", checkPass, d.cc.Cfg.StatePath, fmt.Sprintf("schema version %d", version))
	return store
}

func (d *doctor) checkSQLPath() bool {
	if err := d.cc.Cfg.ValidateDirectories(); err != nil {
		d.add("sources", "sql_path", checkFail, err.Error())
		return false
	}
	d.add("sources", "sql_path", checkPass, d.cc.Cfg.SQLPath)
	return true
}

// checkDependencies extracts the graph, then builds every job list found
// directly under sql_path.
func (d *doctor) checkDependencies(ctx context.Context, store core.Store) {
	edges, stats, err := d.cc.Dependencies(ctx, store)
	if err != nil {
		d.add("sources", "dependencies", checkFail, err.Error())
		return
	}
	d.add("sources", "dependencies", checkPass,
		fmt.Sprintf("%d files, %d edges", stats.Files, len(edges)))

	if cyclic, path := dependencyGraph(edges).HasCycle(); cyclic {
		d.add("sources", "dependency cycles", checkFail, strings.Join(path, " -> "))
	} else {
		d.add("sources", "dependency cycles", checkPass)
	}

	lists, err := filepath.Glob(filepath.Join(d.cc.Cfg.SQLPath, "*.csv"))
	if err != nil || len(lists) == 0 {
		d.add("job lists", "job lists", checkWarn, "no *.csv job lists in "+d.cc.Cfg.SQLPath)
		return
	}
	for _, path := range lists {
		name := strings.TrimSuffix(filepath.Base(path), ".csv")
		list, err := querylist.FromCSVFiles(querylist.Config{
			SQLPath: d.cc.Cfg.SQLPath,
			Dialect: d.cc.Dialect,
			Logger:  d.cc.Logger,
		}, []string{name}, edges, querylist.ExecutionExecute)
		if err != nil {
			d.add("job lists", name, checkFail, err.Error())
			continue
		}
		d.add("job lists", name, checkPass, fmt.Sprintf("%d jobs", len(list.Jobs)))
	}
}

func (d *doctor) checkWarehouse(ctx context.Context) {
	wh, err := d.cc.OpenWarehouse(ctx)
	if err != nil {
		d.add("connectivity", "warehouse connection", checkFail, err.Error())
		return
	}
	defer func() { _ = wh.Close() }()
	if _, err := wh.Query(ctx, "SELECT 1"); err != nil {
		d.add("connectivity", "warehouse connection", checkFail, err.Error())
		return
	}
	d.add("connectivity", "warehouse connection", checkPass)
}

func checkIcon(r *output.Renderer, status string) string {
	styles := r.Styles()
	switch status {
	case checkPass:
		return styles.Success.Render("✓")
	case checkWarn:
		return styles.Warning.Render("!")
	case checkFail:
		return styles.Error.Render("✗")
	}
	return styles.Muted.Render("-")
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()
	titleCaser := cases.Title(language.English)

	r.Println(styles.Header1.Render("sqlrunner doctor"))
	currentGroup := ""
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("")
			r.Println(styles.Bold.Render(titleCaser.String(currentGroup)))
		}
		line := fmt.Sprintf("  %s %s", checkIcon(r, check.Status), check.Name)
		if len(check.Details) > 0 {
			line += "  " + styles.Muted.Render(strings.Join(check.Details, "; "))
		}
		r.Println(line)
	}
	r.Println("")
	r.Println(styles.Muted.Render(fmt.Sprintf("%d errors, %d warnings", out.Errors, out.Warns)))
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	titleCaser := cases.Title(language.English)

	r.Println(output.FormatHeader(1, "sqlrunner doctor"))
	currentGroup := ""
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("")
			r.Println(output.FormatHeader(2, titleCaser.String(currentGroup)))
		}
		r.Printf("- **[%s]** %s", strings.ToUpper(check.Status), check.Name)
		if len(check.Details) > 0 {
			r.Printf(": %s", strings.Join(check.Details, "; "))
		}
		r.Println("")
	}
	r.Println("")
	r.Println(output.FormatKeyValue("Errors", fmt.Sprintf("%d", out.Errors)))
	r.Println(output.FormatKeyValue("Warnings", fmt.Sprintf("%d", out.Warns)))
}
