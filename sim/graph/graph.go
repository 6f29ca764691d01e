package graph

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/accel-pim/pimsim/sim/simerr"
)

// Edge is a producer→consumer pair of arena indices.
type Edge struct {
	From LayerID
	To   LayerID
}

// Graph is an arena of LayerRecords in insertion (topological) order.
type Graph struct {
	layers []*LayerRecord
	edges  []Edge
}

// NewGraph returns an empty arena.
func NewGraph() *Graph {
	return &Graph{}
}

// Add appends a detached record and assigns its ID.
func (g *Graph) Add(l *LayerRecord) LayerID {
	if l.ID != NoLayer {
		panic(fmt.Sprintf("Graph.Add: layer %q already has id %d", l.Name, l.ID))
	}
	l.ID = LayerID(len(g.layers))
	g.layers = append(g.layers, l)
	return l.ID
}

// Layer returns the record with the given id, or nil if out of range.
func (g *Graph) Layer(id LayerID) *LayerRecord {
	if id < 0 || int(id) >= len(g.layers) {
		return nil
	}
	return g.layers[id]
}

// Layers returns the records in order. The slice is shared; do not modify.
func (g *Graph) Layers() []*LayerRecord {
	return g.layers
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Len returns the number of layers.
func (g *Graph) Len() int {
	return len(g.layers)
}

// Connect records a dependency from producer to consumer. Inserting the same
// edge twice in either direction is a DuplicateEdge failure.
func (g *Graph) Connect(from, to LayerID) error {
	prev, next := g.Layer(from), g.Layer(to)
	if prev == nil || next == nil {
		return simerr.New(simerr.MalformedGraph, "graph.Connect", "edge %d->%d references a missing layer", from, to)
	}
	if slices.Contains(prev.Next, to) {
		return simerr.New(simerr.DuplicateEdge, "graph.Connect",
			"%q already feeds %q", prev.Name, next.Name)
	}
	if slices.Contains(next.Prev, from) {
		return simerr.New(simerr.DuplicateEdge, "graph.Connect",
			"%q already consumes %q", next.Name, prev.Name)
	}
	prev.Next = append(prev.Next, to)
	next.Prev = append(next.Prev, from)
	g.edges = append(g.edges, Edge{From: from, To: to})
	return nil
}

// WriteTable prints one row per layer.
func (g *Graph) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME\tC\tH\tW\tK\tP\tQ\tR\tS\tPREV")
	for _, l := range g.layers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%v\n",
			l.ID, l.Type, l.Name, l.C, l.H, l.W, l.K, l.P, l.Q, l.R, l.S, l.Prev)
	}
	return tw.Flush()
}
