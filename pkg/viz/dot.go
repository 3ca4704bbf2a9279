// Package viz renders selected subgraphs as Graphviz DOT or as a
// self-contained interactive HTML page. Node color encodes the verdict,
// node shape encodes the signal kind.
package viz

import (
	"fmt"
	"io"
	"strings"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
	"github.com/l3aro/dfg-linearity-query/pkg/sdg"
)

const (
	colorLinear    = "#4CAF50"
	colorNonlinear = "#F44336"
	colorUnknown   = "#9E9E9E"
)

var shapeByKind = map[dfg.SignalKind]string{
	dfg.KindReg:    "doublecircle",
	dfg.KindOutput: "box",
	dfg.KindInput:  "diamond",
	dfg.KindWire:   "ellipse",
	dfg.KindInout:  "hexagon",
}

func nodeShape(kind dfg.SignalKind) string {
	if s, ok := shapeByKind[kind]; ok {
		return s
	}
	return "oval"
}

// nodeAppearance picks fill color and status tag. Signals without a
// defining expression render gray with "?", regardless of their verdict.
func nodeAppearance(n sdg.SubNode) (color, status string) {
	switch {
	case !n.HasExpr:
		return colorUnknown, "?"
	case n.Verdict == linearity.Nonlinear:
		return colorNonlinear, "NL"
	default:
		return colorLinear, "L"
	}
}

// WriteDOT emits the subgraph in Graphviz DOT form, left-to-right rank
// direction. Nonlinear nodes carry their reason on the label.
func WriteDOT(w io.Writer, sub *sdg.Subgraph) error {
	var b strings.Builder
	b.WriteString("digraph DFG {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  node [style=filled,fontname=Helvetica];\n")

	for _, n := range sub.Nodes {
		color, status := nodeAppearance(n)
		label := n.Name + `\n` + status
		if n.Verdict == linearity.Nonlinear && n.Reason != "" {
			label += `\n` + n.Reason
		}
		fmt.Fprintf(&b, "  %s [label=%s, shape=%s, fillcolor=%s];\n",
			quote(n.Name), quote(label), nodeShape(n.Kind), quote(color))
	}
	for _, e := range sub.Edges {
		fmt.Fprintf(&b, "  %s -> %s;\n", quote(e.From), quote(e.To))
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// quote wraps s in DOT double quotes. Backslash sequences like \n pass
// through untouched, Graphviz interprets them as label line breaks.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
