package dag

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()

	g.AddNode("raw.a", "node A")
	g.AddNode("raw.b", "node B")

	// stg.c depends on raw.a and raw.b, and is created on demand
	if err := g.AddEdge("raw.a", "stg.c"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	if err := g.AddEdge("raw.b", "stg.c"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
	if n, ok := g.GetNode("raw.a"); !ok || n.Data != "node A" {
		t.Errorf("expected raw.a to keep its data, got %v", n)
	}
}

func TestGraph_AddEdge_SelfLoop(t *testing.T) {
	g := NewGraph()

	err := g.AddEdge("a.a", "a.a")
	if !errors.Is(err, ErrSelfLoop) {
		t.Errorf("expected ErrSelfLoop, got %v", err)
	}
	if g.EdgeCount() != 0 {
		t.Errorf("self-loop must not be stored")
	}
}

func TestGraph_ParentsKeepInsertionOrder(t *testing.T) {
	g := NewGraph()
	for _, p := range []string{"s.z", "s.a", "s.m"} {
		if err := g.AddEdge(p, "t.x"); err != nil {
			t.Fatal(err)
		}
	}

	got := strings.Join(g.GetParents("t.x"), ",")
	if got != "s.z,s.a,s.m" {
		t.Errorf("expected insertion order, got %s", got)
	}
	if g.EdgeCount() != 3 {
		t.Errorf("expected 3 edges, got %d", g.EdgeCount())
	}
}

func TestGraph_HasCycle_NoCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	hasCycle, path := g.HasCycle()
	if hasCycle {
		t.Errorf("expected no cycle, but found: %v", path)
	}
}

func TestGraph_HasCycle_WithCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")

	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Fatal("expected cycle to be detected")
	}
	if len(path) < 2 || path[0] != path[len(path)-1] {
		t.Errorf("expected closed cycle path, got %v", path)
	}
}

func TestGraph_GetUpstreamNodes(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "c")
	g.AddEdge("b", "c")
	g.AddEdge("c", "d")

	upstream := g.GetUpstreamNodes("d")
	if strings.Join(upstream, ",") != "a,b,c" {
		t.Errorf("expected a,b,c upstream, got %v", upstream)
	}
}

func TestGraph_RootsAndLeaves(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "c")
	g.AddEdge("b", "c")
	g.AddNode("lonely", nil)

	if roots := g.GetRoots(); len(roots) != 3 {
		t.Errorf("expected 3 roots, got %v", roots)
	}
	if leaves := g.GetLeaves(); len(leaves) != 2 {
		t.Errorf("expected 2 leaves, got %v", leaves)
	}
}

func TestGraph_DuplicateEdges(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("a", "b")

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge (no duplicates), got %d", g.EdgeCount())
	}
}

func TestGraph_WriteDOT(t *testing.T) {
	g := NewGraph()
	g.AddEdge("raw.orders", "dev_mart.orders")

	var buf bytes.Buffer
	style := DOTStyle{
		Colors: map[string]string{"dev_": "#ddffdd", "dev_mart": "#507a93"},
		Shapes: map[string]string{"raw": "box"},
	}
	if err := g.WriteDOT(&buf, style); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		`"raw.orders" [fillcolor="white", shape="box"];`,
		`"dev_mart.orders" [fillcolor="#507a93", shape="oval"];`,
		`"raw.orders" -> "dev_mart.orders"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected DOT output to contain %s, got:\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, "digraph dependencies {") {
		t.Errorf("unexpected header: %s", out)
	}
}
