package dag

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Default node attributes when no prefix matches.
const (
	DefaultColor = "white"
	DefaultShape = "oval"
)

// DOTStyle maps node name prefixes to Graphviz fill colours and shapes.
type DOTStyle struct {
	Colors map[string]string
	Shapes map[string]string
}

// lookup returns the value of the longest prefix of id found in m.
func lookup(m map[string]string, id, fallback string) string {
	best, value := -1, fallback
	for prefix, v := range m {
		if strings.HasPrefix(id, prefix) && len(prefix) > best {
			best, value = len(prefix), v
		}
	}
	return value
}

// WriteDOT writes the graph in Graphviz DOT format. Nodes and edges appear
// in insertion order.
func (g *Graph) WriteDOT(w io.Writer, style DOTStyle) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph dependencies {")
	fmt.Fprintln(bw, "  node [style=filled];")
	for _, id := range g.order {
		fmt.Fprintf(bw, "  %q [fillcolor=%q, shape=%q];\n",
			id, lookup(style.Colors, id, DefaultColor), lookup(style.Shapes, id, DefaultShape))
	}
	for _, id := range g.order {
		for _, child := range g.edges[id] {
			fmt.Fprintf(bw, "  %q -> %q [fontsize=10, penwidth=1];\n", id, child)
		}
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
