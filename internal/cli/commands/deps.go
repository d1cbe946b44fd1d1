package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlrunner/internal/cli/output"
	"github.com/leapstack-labs/sqlrunner/internal/dag"
	"github.com/leapstack-labs/sqlrunner/pkg/core"
)

// DepsOptions holds options for the deps command.
type DepsOptions struct {
	DOTFile  string
	NoSave   bool
	Upstream string
}

// NewDepsCommand creates the deps command.
func NewDepsCommand() *cobra.Command {
	opts := &DepsOptions{}

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Compute the dependency graph of the SQL tree",
		Long: `Parse every SQL file under sql_path and compute the relation
dependencies. The edges are saved to <deps_schema>.table_deps unless
--no-save is given; --dot writes the graph in Graphviz format.`,
		Example: `  # Save the dependency table
  sqlrunner deps

  # Only write a DOT file
  sqlrunner deps --no-save --dot deps.dot

  # Everything mart.daily_sales depends on
  sqlrunner deps --no-save --upstream mart.daily_sales`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeps(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DOTFile, "dot", "", "Write the dependency graph to this DOT file")
	cmd.Flags().BoolVar(&opts.NoSave, "no-save", false, "Do not save the dependencies to the warehouse")
	cmd.Flags().StringVar(&opts.Upstream, "upstream", "", "List the transitive dependencies of this relation")

	return cmd
}

func runDeps(cmd *cobra.Command, opts *DepsOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if err := cc.Cfg.ValidateDirectories(); err != nil {
		return err
	}
	ctx := cmd.Context()
	r := cc.Renderer

	store, closeStore := cc.openHistory(ctx)
	defer closeStore()

	edges, stats, err := cc.Dependencies(ctx, store)
	if err != nil {
		return err
	}

	if opts.DOTFile != "" {
		if err := writeDOTFile(opts.DOTFile, edges, dag.DOTStyle{Colors: cc.Cfg.Colors, Shapes: cc.Cfg.Shapes}); err != nil {
			return err
		}
	}

	if !opts.NoSave {
		wh, err := cc.OpenWarehouse(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = wh.Close() }()
		if err := wh.SaveDependencies(ctx, cc.Cfg.DepsSchema, edges); err != nil {
			return err
		}
	}

	g := dependencyGraph(edges)
	var upstream []string
	if opts.Upstream != "" {
		if _, ok := g.GetNode(opts.Upstream); !ok {
			return fmt.Errorf("relation %s not found in the dependency graph", opts.Upstream)
		}
		upstream = g.GetUpstreamNodes(opts.Upstream)
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := map[string]any{
			"files":     stats.Files,
			"cached":    stats.Cached,
			"parsed":    stats.Parsed,
			"relations": g.NodeCount(),
			"edges":     g.EdgeCount(),
			"roots":     len(g.GetRoots()),
			"leaves":    len(g.GetLeaves()),
			"dot":       opts.DOTFile,
			"saved":     !opts.NoSave,
		}
		if opts.Upstream != "" {
			out["upstream"] = upstream
		}
		return r.JSON(out)
	}

	r.Header(1, "Dependencies")
	r.KeyValue("Files", fmt.Sprintf("%d (%d cached)", stats.Files, stats.Cached))
	r.KeyValue("Relations", fmt.Sprintf("%d (%d roots, %d leaves)", g.NodeCount(), len(g.GetRoots()), len(g.GetLeaves())))
	r.KeyValue("Edges", fmt.Sprintf("%d", g.EdgeCount()))
	if opts.DOTFile != "" {
		r.KeyValue("DOT file", opts.DOTFile)
	}
	if opts.Upstream != "" {
		r.Println("")
		r.Header(2, "Upstream of "+opts.Upstream)
		for _, id := range upstream {
			r.Println("- " + id)
		}
	}
	if !opts.NoSave {
		r.Success(fmt.Sprintf("saved to %s.table_deps", cc.Cfg.DepsSchema))
	}
	return nil
}

// dependencyGraph builds the graph of edges. Sentinel edges add isolated
// nodes; self references are dropped.
func dependencyGraph(edges []core.Edge) *dag.Graph {
	g := dag.NewGraph()
	for _, e := range edges {
		if e.IsSentinel() {
			if _, ok := g.GetNode(e.Dependent()); !ok {
				g.AddNode(e.Dependent(), nil)
			}
			continue
		}
		// ErrSelfLoop is the only error.
		_ = g.AddEdge(e.Source(), e.Dependent())
	}
	return g
}

func writeDOTFile(path string, edges []core.Edge, style dag.DOTStyle) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create DOT file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return writeDOT(f, edges, style)
}

func writeDOT(w io.Writer, edges []core.Edge, style dag.DOTStyle) error {
	return dependencyGraph(edges).WriteDOT(w, style)
}
