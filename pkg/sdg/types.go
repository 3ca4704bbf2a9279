// Package sdg builds and queries the signal dependence graph of a parsed
// design: an edge runs from every referenced signal to the signal whose
// expression references it. The graph may be cyclic (hardware feedback);
// cycle structure is exposed through strongly connected components and all
// order-sensitive results are computed over the condensation.
package sdg

import (
	"fmt"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
)

// Edge is one dependency: From is referenced by To's expression.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Filter restricts a selection to one verdict class.
type Filter string

const (
	FilterNone      Filter = ""
	FilterLinear    Filter = "linear"
	FilterNonlinear Filter = "nonlinear"
)

// ParseFilter maps a flag value to a Filter.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case FilterNone, FilterLinear, FilterNonlinear:
		return Filter(s), nil
	}
	return FilterNone, fmt.Errorf("unknown filter %q (want linear or nonlinear)", s)
}

// SelectOptions configures Select. Filter applies to the full graph first;
// Focus then expands backward from the named signal through Depth levels of
// predecessors within the filtered graph. Focus == "" disables focusing.
type SelectOptions struct {
	Filter Filter
	Focus  string
	Depth  int
}

// NodeInfo annotates one graph node for selection and rendering. Signals
// without a defining expression (primary inputs, externals) are linear with
// reason "no defining expression" and HasExpr false.
type NodeInfo struct {
	Verdict linearity.Verdict `json:"verdict"`
	Reason  string            `json:"reason"`
	Kind    dfg.SignalKind    `json:"kind"`
	HasExpr bool              `json:"has_expr"`
}

// SubNode is one node of a selected subgraph, carrying its annotation.
type SubNode struct {
	Name    string            `json:"name"`
	Verdict linearity.Verdict `json:"verdict"`
	Reason  string            `json:"reason"`
	Kind    dfg.SignalKind    `json:"kind"`
	HasExpr bool              `json:"has_expr"`
}

// Subgraph is a reduced node/edge set ready for rendering. Nodes and edges
// are sorted so emitted artifacts are stable across runs.
type Subgraph struct {
	Nodes []SubNode `json:"nodes"`
	Edges []Edge    `json:"edges"`
}

// Chain is the longest run of signals connected through linear expressions.
// Length counts edges. When the run crosses a cyclic component the length
// includes the full cycle and Cyclic is set.
type Chain struct {
	Length int      `json:"length"`
	Path   []string `json:"path"`
	Cyclic bool     `json:"cyclic"`
}

// Metrics aggregates the analysis of one design.
type Metrics struct {
	TotalExpressions   int                  `json:"total_expressions"`
	LinearCount        int                  `json:"linear_count"`
	NonlinearCount     int                  `json:"nonlinear_count"`
	LinearRatio        float64              `json:"linear_ratio"`
	NonlinearRatio     float64              `json:"nonlinear_ratio"`
	KindDist           map[dfg.NodeKind]int `json:"kind_distribution"`
	ReasonFreq         map[string]int       `json:"nonlinear_reasons"`
	UnknownOps         map[string]int       `json:"unknown_operators,omitempty"`
	CyclicSignals      []string             `json:"cyclic_signals,omitempty"`
	LongestLinearChain Chain                `json:"longest_linear_chain"`
}

// UnknownSignalError reports a focus root that is not available: either the
// graph has no such signal, or the requested filter removed it.
type UnknownSignalError struct {
	Signal   string
	Filtered bool
}

func (e *UnknownSignalError) Error() string {
	if e.Filtered {
		return fmt.Sprintf("signal %q not in the filtered graph", e.Signal)
	}
	return fmt.Sprintf("unknown signal %q", e.Signal)
}
