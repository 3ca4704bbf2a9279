package sdg

import (
	"errors"
	"reflect"
	"testing"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
)

func subNames(sub *Subgraph) []string {
	names := make([]string, len(sub.Nodes))
	for i, n := range sub.Nodes {
		names[i] = n.Name
	}
	return names
}

func TestSelectFocusDepth(t *testing.T) {
	// a -> b -> c -> d -> r
	a := Analyze(design(map[string]dfg.Expr{
		"b": term("a"),
		"c": term("b"),
		"d": term("c"),
		"r": term("d"),
	}, "a"), linearity.DefaultPolicy())

	tests := []struct {
		name      string
		depth     int
		wantNodes []string
		wantEdges []Edge
	}{
		{
			name:      "depth zero keeps the focus alone",
			depth:     0,
			wantNodes: []string{"r"},
			wantEdges: []Edge{},
		},
		{
			name:      "depth one adds immediate predecessors",
			depth:     1,
			wantNodes: []string{"d", "r"},
			wantEdges: []Edge{{From: "d", To: "r"}},
		},
		{
			name:      "depth two reaches two levels back",
			depth:     2,
			wantNodes: []string{"c", "d", "r"},
			wantEdges: []Edge{{From: "c", To: "d"}, {From: "d", To: "r"}},
		},
		{
			name:      "depth beyond the chain keeps everything",
			depth:     10,
			wantNodes: []string{"a", "b", "c", "d", "r"},
			wantEdges: []Edge{{From: "a", To: "b"}, {From: "b", To: "c"}, {From: "c", To: "d"}, {From: "d", To: "r"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := a.Select(SelectOptions{Focus: "r", Depth: tt.depth})
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got := subNames(sub); !reflect.DeepEqual(got, tt.wantNodes) {
				t.Errorf("nodes = %v, want %v", got, tt.wantNodes)
			}
			if !reflect.DeepEqual(sub.Edges, tt.wantEdges) {
				t.Errorf("edges = %v, want %v", sub.Edges, tt.wantEdges)
			}
		})
	}
}

func TestSelectFilterBeforeFocus(t *testing.T) {
	// a feeds m (nonlinear), m feeds y (linear). Filtering to linear removes
	// m before the focus expansion runs, so y's backward slice stops at y.
	a := Analyze(design(map[string]dfg.Expr{
		"m": op("Times", term("a"), term("a")),
		"y": op("Plus", term("m"), konst("1")),
	}, "a"), linearity.DefaultPolicy())

	sub, err := a.Select(SelectOptions{Filter: FilterLinear, Focus: "y", Depth: 5})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := subNames(sub); !reflect.DeepEqual(got, []string{"y"}) {
		t.Errorf("nodes = %v, want [y]: filter must apply before focus", got)
	}
	if len(sub.Edges) != 0 {
		t.Errorf("edges = %v, want none", sub.Edges)
	}
}

func TestSelectFilterNonlinear(t *testing.T) {
	a := Analyze(design(map[string]dfg.Expr{
		"m": op("Times", term("a"), term("a")),
		"n": op("Divide", term("m"), konst("2")),
		"y": op("Plus", term("m"), konst("1")),
	}, "a"), linearity.DefaultPolicy())

	sub, err := a.Select(SelectOptions{Filter: FilterNonlinear})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := subNames(sub); !reflect.DeepEqual(got, []string{"m", "n"}) {
		t.Errorf("nodes = %v, want [m n]", got)
	}
	if !reflect.DeepEqual(sub.Edges, []Edge{{From: "m", To: "n"}}) {
		t.Errorf("edges = %v, want [m -> n]", sub.Edges)
	}
	for _, n := range sub.Nodes {
		if n.Verdict != linearity.Nonlinear {
			t.Errorf("node %s verdict = %s, want nonlinear", n.Name, n.Verdict)
		}
	}
}

func TestSelectUnknownSignal(t *testing.T) {
	a := Analyze(design(map[string]dfg.Expr{
		"m": op("Times", term("a"), term("a")),
	}, "a"), linearity.DefaultPolicy())

	_, err := a.Select(SelectOptions{Focus: "ghost"})
	var unknown *UnknownSignalError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownSignalError", err)
	}
	if unknown.Filtered {
		t.Error("ghost reported as filtered out, it never existed")
	}

	_, err = a.Select(SelectOptions{Filter: FilterLinear, Focus: "m"})
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownSignalError", err)
	}
	if !unknown.Filtered {
		t.Error("m exists in the full graph, error must say the filter removed it")
	}
}

func TestSelectCycleTerminates(t *testing.T) {
	// x -> y -> z -> x, all linear.
	a := Analyze(design(map[string]dfg.Expr{
		"x": term("z"),
		"y": term("x"),
		"z": term("y"),
	}), linearity.DefaultPolicy())

	sub, err := a.Select(SelectOptions{Focus: "x", Depth: 10})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := subNames(sub); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Errorf("nodes = %v, want [x y z]", got)
	}
}

func TestSelectAnnotations(t *testing.T) {
	a := Analyze(design(map[string]dfg.Expr{
		"y": op("Plus", term("a"), konst("1")),
	}, "a"), linearity.DefaultPolicy())

	sub, err := a.Select(SelectOptions{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	byName := make(map[string]SubNode)
	for _, n := range sub.Nodes {
		byName[n.Name] = n
	}

	y := byName["y"]
	if y.Verdict != linearity.Linear || y.Reason != "linear operator Plus" || !y.HasExpr {
		t.Errorf("y annotation = %+v", y)
	}
	if y.Kind != dfg.KindReg {
		t.Errorf("y kind = %s, want Reg", y.Kind)
	}

	in := byName["a"]
	if in.Verdict != linearity.Linear || in.Reason != linearity.ReasonNoExpression || in.HasExpr {
		t.Errorf("a annotation = %+v", in)
	}
	if in.Kind != dfg.KindInput {
		t.Errorf("a kind = %s, want Input", in.Kind)
	}
}

func TestParseFilter(t *testing.T) {
	if f, err := ParseFilter("linear"); err != nil || f != FilterLinear {
		t.Errorf("ParseFilter(linear) = %v, %v", f, err)
	}
	if f, err := ParseFilter(""); err != nil || f != FilterNone {
		t.Errorf("ParseFilter(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFilter("bogus"); err == nil {
		t.Error("ParseFilter(bogus) succeeded, want error")
	}
}
