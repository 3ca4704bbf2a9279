package sdg

import (
	"sort"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
)

// Analysis bundles everything derived from one design: the per-signal
// classification results, the dependence graph, the annotation table
// covering every graph node, and the aggregate metrics.
type Analysis struct {
	Design  *dfg.Design
	Policy  linearity.Policy
	Results map[string]linearity.Result
	Info    map[string]NodeInfo
	Graph   *Graph
	Metrics *Metrics
}

// Analyze runs the full pipeline over a parsed design: classify every bound
// expression under pol, build the dependence graph, annotate all nodes and
// aggregate metrics.
func Analyze(d *dfg.Design, pol linearity.Policy) *Analysis {
	g := Build(d)

	results := make(map[string]linearity.Result, len(d.Signals))
	for name, sig := range d.Signals {
		if sig.HasExpr() {
			results[name] = linearity.Classify(sig.Root, pol)
		}
	}

	info := annotate(d, g, results)
	return &Analysis{
		Design:  d,
		Policy:  pol,
		Results: results,
		Info:    info,
		Graph:   g,
		Metrics: ComputeMetrics(g, results, info),
	}
}

// annotate builds the node annotation table. Bound signals carry their
// classification; unbound signals and external references are linear with
// reason "no defining expression".
func annotate(d *dfg.Design, g *Graph, results map[string]linearity.Result) map[string]NodeInfo {
	info := make(map[string]NodeInfo, g.NodeCount())
	for _, n := range g.Nodes() {
		sig, declared := d.Signals[n]
		if declared && sig.HasExpr() {
			res := results[n]
			info[n] = NodeInfo{
				Verdict: res.Verdict,
				Reason:  res.Reason,
				Kind:    sig.DisplayKind(),
				HasExpr: true,
			}
			continue
		}
		kind := dfg.KindWire
		if declared {
			kind = sig.DisplayKind()
		}
		info[n] = NodeInfo{
			Verdict: linearity.Linear,
			Reason:  linearity.ReasonNoExpression,
			Kind:    kind,
			HasExpr: false,
		}
	}
	return info
}

// Select applies opt to the analysis graph using its annotation table.
func (a *Analysis) Select(opt SelectOptions) (*Subgraph, error) {
	return Select(a.Graph, a.Info, opt)
}

// SignalNames lists every graph node in sorted order.
func (a *Analysis) SignalNames() []string { return a.Graph.Nodes() }

// NonlinearSignals lists the bound signals classified nonlinear, sorted.
func (a *Analysis) NonlinearSignals() []string {
	var out []string
	for name, res := range a.Results {
		if !res.Linear() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// LinearSignals lists the bound signals classified linear, sorted.
func (a *Analysis) LinearSignals() []string {
	var out []string
	for name, res := range a.Results {
		if res.Linear() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
