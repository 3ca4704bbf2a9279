package sdg

import (
	"math"
	"reflect"
	"testing"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
)

func analyzeMetrics(t *testing.T, binds map[string]dfg.Expr, inputs ...string) *Metrics {
	t.Helper()
	return Analyze(design(binds, inputs...), linearity.DefaultPolicy()).Metrics
}

func TestMetricsCounts(t *testing.T) {
	m := analyzeMetrics(t, map[string]dfg.Expr{
		"y": op("Plus", term("a"), term("b")),
		"w": term("c"),
		"z": op("Times", term("a"), term("b")),
	}, "a", "b", "c")

	if m.TotalExpressions != 3 || m.LinearCount != 2 || m.NonlinearCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1",
			m.TotalExpressions, m.LinearCount, m.NonlinearCount)
	}
	if math.Abs(m.LinearRatio-2.0/3.0) > 1e-9 || math.Abs(m.NonlinearRatio-1.0/3.0) > 1e-9 {
		t.Errorf("ratios = %f/%f", m.LinearRatio, m.NonlinearRatio)
	}

	wantKinds := map[dfg.NodeKind]int{dfg.NodeOperator: 2, dfg.NodeTerminal: 1}
	if !reflect.DeepEqual(m.KindDist, wantKinds) {
		t.Errorf("KindDist = %v, want %v", m.KindDist, wantKinds)
	}
	wantReasons := map[string]int{"contains nonlinear operator Times": 1}
	if !reflect.DeepEqual(m.ReasonFreq, wantReasons) {
		t.Errorf("ReasonFreq = %v, want %v", m.ReasonFreq, wantReasons)
	}
	if m.UnknownOps != nil {
		t.Errorf("UnknownOps = %v, want none", m.UnknownOps)
	}
}

func TestMetricsUnknownOperators(t *testing.T) {
	m := analyzeMetrics(t, map[string]dfg.Expr{
		"y": op("Frob", term("a"), op("Frob", term("b"), term("c"))),
	}, "a", "b", "c")

	if got := m.UnknownOps["Frob"]; got != 2 {
		t.Errorf("UnknownOps[Frob] = %d, want 2", got)
	}
	if m.NonlinearCount != 1 {
		t.Errorf("NonlinearCount = %d, unknown operators are nonlinear", m.NonlinearCount)
	}
}

func TestMetricsCyclicSignals(t *testing.T) {
	m := analyzeMetrics(t, map[string]dfg.Expr{
		"acc": op("Plus", term("acc"), term("inc")),
		"b":   term("c"),
		"c":   term("b"),
	}, "inc")

	if !reflect.DeepEqual(m.CyclicSignals, []string{"acc", "b", "c"}) {
		t.Errorf("CyclicSignals = %v, want [acc b c]", m.CyclicSignals)
	}
}

func TestLongestLinearChain(t *testing.T) {
	tests := []struct {
		name   string
		binds  map[string]dfg.Expr
		inputs []string
		want   Chain
	}{
		{
			name: "straight chain",
			binds: map[string]dfg.Expr{
				"b": term("a"),
				"c": term("b"),
				"d": term("c"),
				"r": term("d"),
			},
			inputs: []string{"a"},
			want:   Chain{Length: 4, Path: []string{"a", "b", "c", "d", "r"}},
		},
		{
			name: "broken by a nonlinear stage",
			binds: map[string]dfg.Expr{
				"b": term("a"),
				"c": op("Times", term("b"), term("b")),
				"d": term("c"),
			},
			inputs: []string{"a"},
			want:   Chain{Length: 1, Path: []string{"a", "b"}},
		},
		{
			name: "tie breaks on the final signal name",
			binds: map[string]dfg.Expr{
				"z": term("y"),
				"b": term("a"),
			},
			want: Chain{Length: 1, Path: []string{"a", "b"}},
		},
		{
			name: "cycle spends the whole loop",
			binds: map[string]dfg.Expr{
				"b": op("Plus", term("a"), term("c")),
				"c": term("b"),
				"d": term("c"),
			},
			inputs: []string{"a"},
			want:   Chain{Length: 4, Path: []string{"a", "b", "c", "d"}, Cyclic: true},
		},
		{
			name: "self loop counts one extra edge",
			binds: map[string]dfg.Expr{
				"acc": op("Plus", term("acc"), term("inc")),
			},
			inputs: []string{"inc"},
			want:   Chain{Length: 2, Path: []string{"inc", "acc"}, Cyclic: true},
		},
		{
			name: "isolated node",
			binds: map[string]dfg.Expr{
				"k": konst("42"),
			},
			want: Chain{Length: 0, Path: []string{"k"}},
		},
		{
			name: "no linear signals",
			binds: map[string]dfg.Expr{
				"z": op("Times", term("z"), term("z")),
			},
			want: Chain{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := analyzeMetrics(t, tt.binds, tt.inputs...)
			if !reflect.DeepEqual(m.LongestLinearChain, tt.want) {
				t.Errorf("LongestLinearChain = %+v, want %+v", m.LongestLinearChain, tt.want)
			}
		})
	}
}
