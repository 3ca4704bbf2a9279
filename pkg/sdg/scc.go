package sdg

import "sort"

// callFrame is one level of the simulated recursion in SCCs. Tarjan's
// algorithm is run iteratively so deep dependency chains cannot overflow
// the goroutine stack.
type callFrame struct {
	node      string
	edgeIndex int
	phase     int // 0=init, 1=process edges, 2=post child, 3=finalize
	child     string
}

// SCCs computes the strongly connected components of the graph using an
// iterative Tarjan traversal. Every node appears in exactly one component,
// singletons included. Component members are sorted; the component list is
// returned in topological order of the condensation (dependencies first).
func (g *Graph) SCCs() [][]string {
	index := 0
	nodeIndex := make(map[string]int, len(g.nodes))
	nodeLowLink := make(map[string]int, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))
	var sccStack []string
	var sccs [][]string

	for _, start := range g.nodes {
		if _, visited := nodeIndex[start]; visited {
			continue
		}

		callStack := []*callFrame{{node: start}}
		for len(callStack) > 0 {
			frame := callStack[len(callStack)-1]

			switch frame.phase {
			case 0:
				nodeIndex[frame.node] = index
				nodeLowLink[frame.node] = index
				index++
				sccStack = append(sccStack, frame.node)
				onStack[frame.node] = true
				frame.phase = 1

			case 1:
				succs := g.succs[frame.node]
				if frame.edgeIndex < len(succs) {
					child := succs[frame.edgeIndex]
					frame.edgeIndex++
					if _, visited := nodeIndex[child]; !visited {
						frame.child = child
						frame.phase = 2
						callStack = append(callStack, &callFrame{node: child})
						goto continueLoop
					}
					if onStack[child] && nodeIndex[child] < nodeLowLink[frame.node] {
						nodeLowLink[frame.node] = nodeIndex[child]
					}
				} else {
					frame.phase = 3
				}

			case 2:
				if nodeLowLink[frame.child] < nodeLowLink[frame.node] {
					nodeLowLink[frame.node] = nodeLowLink[frame.child]
				}
				frame.phase = 1

			case 3:
				if nodeLowLink[frame.node] == nodeIndex[frame.node] {
					var scc []string
					for {
						w := sccStack[len(sccStack)-1]
						sccStack = sccStack[:len(sccStack)-1]
						onStack[w] = false
						scc = append(scc, w)
						if w == frame.node {
							break
						}
					}
					sort.Strings(scc)
					sccs = append(sccs, scc)
				}
				callStack = callStack[:len(callStack)-1]
			}

		continueLoop:
		}
	}

	// Tarjan emits components in reverse topological order.
	for i, j := 0, len(sccs)-1; i < j; i, j = i+1, j-1 {
		sccs[i], sccs[j] = sccs[j], sccs[i]
	}
	return sccs
}

// CyclicNodes returns the set of signals that sit on a cycle: members of a
// multi-node component, or nodes with a self edge.
func (g *Graph) CyclicNodes() map[string]bool {
	cyclic := make(map[string]bool)
	for _, scc := range g.SCCs() {
		if len(scc) > 1 {
			for _, n := range scc {
				cyclic[n] = true
			}
			continue
		}
		if g.HasEdge(scc[0], scc[0]) {
			cyclic[scc[0]] = true
		}
	}
	return cyclic
}

// Condensation is the DAG of strongly connected components. Components are
// indexed in topological order, so a single forward sweep visits every
// component after all of its predecessors.
type Condensation struct {
	comps  [][]string
	compOf map[string]int
	succs  [][]int
	preds  [][]int
	cyclic []bool
}

// Condense builds the condensation of the graph.
func (g *Graph) Condense() *Condensation {
	comps := g.SCCs()
	c := &Condensation{
		comps:  comps,
		compOf: make(map[string]int, len(g.nodes)),
		succs:  make([][]int, len(comps)),
		preds:  make([][]int, len(comps)),
		cyclic: make([]bool, len(comps)),
	}
	for i, comp := range comps {
		for _, n := range comp {
			c.compOf[n] = i
		}
		c.cyclic[i] = len(comp) > 1 || g.HasEdge(comp[0], comp[0])
	}

	type compEdge struct{ from, to int }
	seen := make(map[compEdge]bool)
	for _, comp := range comps {
		for _, n := range comp {
			from := c.compOf[n]
			for _, s := range g.succs[n] {
				to := c.compOf[s]
				if from == to || seen[compEdge{from, to}] {
					continue
				}
				seen[compEdge{from, to}] = true
				c.succs[from] = append(c.succs[from], to)
				c.preds[to] = append(c.preds[to], from)
			}
		}
	}
	for i := range c.succs {
		sort.Ints(c.succs[i])
		sort.Ints(c.preds[i])
	}
	return c
}

// Size reports the number of components.
func (c *Condensation) Size() int { return len(c.comps) }

// Members returns the sorted signals of component i.
func (c *Condensation) Members(i int) []string { return c.comps[i] }

// Cyclic reports whether component i contains a cycle.
func (c *Condensation) Cyclic(i int) bool { return c.cyclic[i] }

// CompOf returns the component index of a signal.
func (c *Condensation) CompOf(name string) (int, bool) {
	i, ok := c.compOf[name]
	return i, ok
}

// Preds returns the component indices feeding into component i.
func (c *Condensation) Preds(i int) []int { return c.preds[i] }

// Succs returns the component indices fed by component i.
func (c *Condensation) Succs(i int) []int { return c.succs[i] }
