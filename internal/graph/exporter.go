package graph

import (
	"fmt"
	"io"
	"strings"
)

// ExportDOT writes g in Graphviz DOT format.
func (g *ObjectGraph) ExportDOT(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "digraph ScanTree {"); err != nil {
		return err
	}
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, style=filled, fontname=\"Arial\"];")
	fmt.Fprintln(w, "  edge [fontname=\"Arial\", fontsize=10];")

	for _, node := range g.Nodes {
		color := "#f3e5f5"
		if node.Type == NodeRoot {
			color = "#e1f5fe"
		}
		label := strings.ReplaceAll(node.Label, "\"", "\\\"")
		label = strings.ReplaceAll(label, "\n", "\\n")
		fmt.Fprintf(w, "  \"%s\" [label=\"%s\", fillcolor=\"%s\"];\n", node.ID, label, color)
	}

	for _, edge := range g.Edges {
		label := edge.Label
		if label == "" {
			label = "root"
		}
		fmt.Fprintf(w, "  \"%s\" -> \"%s\" [label=\"%s\"];\n", edge.SourceID, edge.TargetID, label)
	}

	_, err := fmt.Fprintln(w, "}")
	return err
}
