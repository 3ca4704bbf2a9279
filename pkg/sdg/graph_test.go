package sdg

import (
	"reflect"
	"sort"
	"testing"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
)

func term(name string) dfg.Expr { return &dfg.Terminal{Name: name} }

func konst(v string) dfg.Expr { return &dfg.IntConst{Value: v} }

func op(name string, operands ...dfg.Expr) dfg.Expr {
	return &dfg.Operator{Op: name, Operands: operands}
}

// design builds a test design: binds maps signal names to their expression
// trees, inputs declares unbound signals. Terminals that resolve to no
// declaration become external references, like the parser produces.
func design(binds map[string]dfg.Expr, inputs ...string) *dfg.Design {
	d := &dfg.Design{Name: "test", Signals: make(map[string]*dfg.Signal)}
	for name, root := range binds {
		d.Signals[name] = &dfg.Signal{Name: name, Kinds: []dfg.SignalKind{dfg.KindReg}, Root: root}
	}
	for _, name := range inputs {
		d.Signals[name] = &dfg.Signal{Name: name, Kinds: []dfg.SignalKind{dfg.KindInput}}
	}
	seen := make(map[string]bool)
	for _, sig := range d.Signals {
		if sig.Root == nil {
			continue
		}
		for _, ref := range dfg.Terminals(sig.Root) {
			if _, declared := d.Signals[ref]; !declared && !seen[ref] {
				seen[ref] = true
				d.External = append(d.External, ref)
			}
		}
	}
	sort.Strings(d.External)
	return d
}

func TestBuildGraph(t *testing.T) {
	d := design(map[string]dfg.Expr{
		"out": op("Plus", term("a"), term("b")),
		"acc": op("Plus", term("acc"), term("inc")),
	}, "a", "inc")

	g := Build(d)

	wantNodes := []string{"a", "acc", "b", "inc", "out"}
	if got := g.Nodes(); !reflect.DeepEqual(got, wantNodes) {
		t.Errorf("Nodes() = %v, want %v", got, wantNodes)
	}
	if g.NodeCount() != 5 {
		t.Errorf("NodeCount() = %d, want 5", g.NodeCount())
	}

	wantEdges := []Edge{
		{From: "a", To: "out"},
		{From: "acc", To: "acc"},
		{From: "b", To: "out"},
		{From: "inc", To: "acc"},
	}
	if got := g.Edges(); !reflect.DeepEqual(got, wantEdges) {
		t.Errorf("Edges() = %v, want %v", got, wantEdges)
	}

	if got := g.Preds("out"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Preds(out) = %v, want [a b]", got)
	}
	if got := g.Succs("a"); !reflect.DeepEqual(got, []string{"out"}) {
		t.Errorf("Succs(a) = %v, want [out]", got)
	}
	if !g.HasEdge("acc", "acc") {
		t.Error("self edge acc -> acc missing")
	}
	if g.HasEdge("out", "a") {
		t.Error("HasEdge(out, a) = true, edges must not be reversed")
	}
}

func TestBuildDeduplicatesReferences(t *testing.T) {
	d := design(map[string]dfg.Expr{
		"y": op("Plus", term("x"), term("x")),
	})

	g := Build(d)
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
	if got := g.Preds("y"); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("Preds(y) = %v, want [x]", got)
	}
}

func TestBuildExternalsAreNodes(t *testing.T) {
	d := design(map[string]dfg.Expr{
		"y": term("ext_clk"),
	})

	g := Build(d)
	if !g.HasNode("ext_clk") {
		t.Fatal("external reference ext_clk missing from graph")
	}
	if !g.HasEdge("ext_clk", "y") {
		t.Error("edge ext_clk -> y missing")
	}
}

func TestInduced(t *testing.T) {
	d := design(map[string]dfg.Expr{
		"b": term("a"),
		"c": term("b"),
	}, "a")

	g := Build(d)
	sub := g.Induced(func(n string) bool { return n != "b" })

	if got := sub.Nodes(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Nodes() = %v, want [a c]", got)
	}
	if sub.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, want 0: both edges touch the dropped node", sub.EdgeCount())
	}
	if g.EdgeCount() != 2 {
		t.Errorf("original graph changed: EdgeCount() = %d, want 2", g.EdgeCount())
	}
}
