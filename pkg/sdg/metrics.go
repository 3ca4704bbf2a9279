package sdg

import (
	"sort"
	"strings"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
)

// ComputeMetrics aggregates classification results over the graph. Counts
// and ratios cover bound signals only; cyclic signals and the longest
// linear chain are read off the graph structure.
func ComputeMetrics(g *Graph, cls map[string]linearity.Result, info map[string]NodeInfo) *Metrics {
	m := &Metrics{
		KindDist:   make(map[dfg.NodeKind]int),
		ReasonFreq: make(map[string]int),
	}
	for _, res := range cls {
		m.TotalExpressions++
		if res.Linear() {
			m.LinearCount++
		} else {
			m.NonlinearCount++
			m.ReasonFreq[res.Reason]++
		}
		m.KindDist[res.Kind]++
		for _, op := range res.Unknown {
			if m.UnknownOps == nil {
				m.UnknownOps = make(map[string]int)
			}
			m.UnknownOps[op]++
		}
	}
	if m.TotalExpressions > 0 {
		m.LinearRatio = float64(m.LinearCount) / float64(m.TotalExpressions)
		m.NonlinearRatio = float64(m.NonlinearCount) / float64(m.TotalExpressions)
	}

	for n := range g.CyclicNodes() {
		m.CyclicSignals = append(m.CyclicSignals, n)
	}
	sort.Strings(m.CyclicSignals)

	m.LongestLinearChain = longestLinearChain(g, info)
	return m
}

// longestLinearChain finds the longest run of signals connected purely
// through linear expressions. The linear-induced subgraph is condensed;
// each component weighs its member count in edges, plus one when cyclic
// (entering a cycle spends the whole loop). A forward sweep over the
// topologically ordered components then maximizes chain length, and ties
// break by the final signal's name, then by the full path.
func longestLinearChain(g *Graph, info map[string]NodeInfo) Chain {
	lin := g.Induced(func(n string) bool { return info[n].Verdict == linearity.Linear })
	if lin.NodeCount() == 0 {
		return Chain{}
	}

	c := lin.Condense()
	n := c.Size()
	best := make([]int, n)   // node+cycle weight of the heaviest chain ending at i
	choice := make([]int, n) // predecessor component on that chain, -1 for none
	maxW := 0
	for i := 0; i < n; i++ {
		w := len(c.Members(i))
		if c.Cyclic(i) {
			w++
		}
		best[i] = w
		choice[i] = -1
		for _, p := range c.Preds(i) {
			if best[p]+w > best[i] {
				best[i] = best[p] + w
				choice[i] = p
			}
		}
		if best[i] > maxW {
			maxW = best[i]
		}
	}

	var winner Chain
	for i := 0; i < n; i++ {
		if best[i] != maxW {
			continue
		}
		cand := reconstructChain(c, choice, i)
		if winner.Path == nil || chainLess(cand.Path, winner.Path) {
			winner = cand
		}
	}
	return winner
}

// reconstructChain follows the DP choices back from end and expands each
// component into its sorted members.
func reconstructChain(c *Condensation, choice []int, end int) Chain {
	var comps []int
	for i := end; i != -1; i = choice[i] {
		comps = append(comps, i)
	}
	var ch Chain
	for k := len(comps) - 1; k >= 0; k-- {
		ch.Path = append(ch.Path, c.Members(comps[k])...)
		if c.Cyclic(comps[k]) {
			ch.Length++
			ch.Cyclic = true
		}
	}
	ch.Length += len(ch.Path) - 1
	return ch
}

func chainLess(a, b []string) bool {
	ta, tb := a[len(a)-1], b[len(b)-1]
	if ta != tb {
		return ta < tb
	}
	return strings.Join(a, " ") < strings.Join(b, " ")
}
