package sdg

import (
	"sort"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
)

// Graph is the signal dependence graph. Adjacency is kept in both
// directions and every slice the accessors return is sorted, so traversals
// and emitted artifacts are deterministic.
type Graph struct {
	nodes   []string
	nodeSet map[string]bool
	succs   map[string][]string
	preds   map[string][]string
	edges   int
}

// Build constructs the dependence graph of a design. Nodes are the declared
// signals plus any external references; for each bound signal an edge runs
// from every terminal its expression mentions to the signal itself.
// Duplicate references collapse to a single edge. Self-references are kept,
// they are real feedback.
func Build(d *dfg.Design) *Graph {
	g := &Graph{
		nodeSet: make(map[string]bool),
		succs:   make(map[string][]string),
		preds:   make(map[string][]string),
	}
	for name := range d.Signals {
		g.addNode(name)
	}
	for _, name := range d.External {
		g.addNode(name)
	}

	seen := make(map[Edge]bool)
	for name, sig := range d.Signals {
		if !sig.HasExpr() {
			continue
		}
		for _, ref := range dfg.Terminals(sig.Root) {
			e := Edge{From: ref, To: name}
			if seen[e] {
				continue
			}
			seen[e] = true
			g.addNode(ref)
			g.succs[ref] = append(g.succs[ref], name)
			g.preds[name] = append(g.preds[name], ref)
			g.edges++
		}
	}

	g.finish()
	return g
}

func (g *Graph) addNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

func (g *Graph) finish() {
	sort.Strings(g.nodes)
	for _, adj := range []map[string][]string{g.succs, g.preds} {
		for n := range adj {
			sort.Strings(adj[n])
		}
	}
}

// NodeCount reports the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount reports the number of distinct edges.
func (g *Graph) EdgeCount() int { return g.edges }

// HasNode reports whether the graph contains name.
func (g *Graph) HasNode(name string) bool { return g.nodeSet[name] }

// Nodes returns all node names in sorted order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Succs returns the signals whose expressions reference name, sorted.
func (g *Graph) Succs(name string) []string { return g.succs[name] }

// Preds returns the signals referenced by name's expression, sorted.
func (g *Graph) Preds(name string) []string { return g.preds[name] }

// HasEdge reports whether the edge from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	for _, s := range g.succs[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Edges returns every edge sorted by source then destination.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for _, from := range g.nodes {
		for _, to := range g.succs[from] {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// Induced returns the subgraph over the nodes satisfying keep. An edge
// survives only when both endpoints are kept.
func (g *Graph) Induced(keep func(string) bool) *Graph {
	sub := &Graph{
		nodeSet: make(map[string]bool),
		succs:   make(map[string][]string),
		preds:   make(map[string][]string),
	}
	for _, n := range g.nodes {
		if keep(n) {
			sub.addNode(n)
		}
	}
	for _, from := range sub.nodes {
		for _, to := range g.succs[from] {
			if !sub.nodeSet[to] {
				continue
			}
			sub.succs[from] = append(sub.succs[from], to)
			sub.preds[to] = append(sub.preds[to], from)
			sub.edges++
		}
	}
	sub.finish()
	return sub
}
