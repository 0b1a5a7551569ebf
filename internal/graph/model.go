// Package graph renders a ScanResult's object tree as a Graphviz graph, for
// operators inspecting how a submission decomposed into children (spec.md
// §3.3's parent/child links, visualized) — adapted from the teacher's
// attack-graph exporter, retargeted from a live host's process/network
// snapshot onto the scan engine's own object tree.
package graph

import (
	"strconv"

	"github.com/Nigelli/laikaboss/internal/model"
)

// NodeType distinguishes the root submission from its descendants in the
// rendered graph's styling.
type NodeType string

const (
	NodeRoot  NodeType = "ROOT"
	NodeChild NodeType = "CHILD"
)

// Node is one ScanObject projected for display.
type Node struct {
	ID    string
	Label string
	Type  NodeType
	Props map[string]string
}

// Edge is a parent -> child relationship, labeled with the module that
// produced the child (spec.md §3.2 source_module).
type Edge struct {
	SourceID string
	TargetID string
	Label    string
}

// ObjectGraph is the DOT-renderable projection of a ScanResult's tree.
type ObjectGraph struct {
	Nodes map[string]*Node
	Edges []*Edge
}

func newObjectGraph() *ObjectGraph {
	return &ObjectGraph{Nodes: make(map[string]*Node)}
}

// FromResult walks result's object tree and builds the equivalent graph,
// one Node per ScanObject and one Edge per parent/child link.
func FromResult(result *model.ScanResult) *ObjectGraph {
	g := newObjectGraph()
	for _, o := range result.Objects() {
		nodeType := NodeChild
		if o.ParentUUID == "" {
			nodeType = NodeRoot
		}
		label := o.Filename
		if label == "" {
			label = o.UUID[:8]
		}
		g.Nodes[o.UUID] = &Node{
			ID:    o.UUID,
			Label: label,
			Type:  nodeType,
			Props: map[string]string{
				"hash":  o.ObjectHash,
				"size":  strconv.Itoa(o.ObjectSize),
				"depth": strconv.Itoa(o.Depth),
			},
		}
	}
	for _, o := range result.Objects() {
		if o.ParentUUID == "" {
			continue
		}
		g.Edges = append(g.Edges, &Edge{
			SourceID: o.ParentUUID,
			TargetID: o.UUID,
			Label:    o.SourceModule,
		})
	}
	return g
}
