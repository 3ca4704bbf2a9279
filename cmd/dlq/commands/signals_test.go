package commands

import (
	"regexp"
	"testing"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
)

func TestSignalRows(t *testing.T) {
	a := mustAnalyze(t, testDump)

	rows := signalRows(a, nil, "")
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3: %v", len(rows), rows)
	}

	byName := make(map[string]SignalRow, len(rows))
	for _, r := range rows {
		byName[r.Name] = r
	}

	in, ok := byName["alu.a"]
	if !ok {
		t.Fatal("alu.a missing from rows")
	}
	if in.HasExpr {
		t.Error("alu.a reported as bound")
	}
	if in.Kind != dfg.KindInput {
		t.Errorf("alu.a kind = %s, want Input", in.Kind)
	}
	if in.FanOut != 2 {
		t.Errorf("alu.a fan-out = %d, want 2", in.FanOut)
	}
	if in.Width != 8 {
		t.Errorf("alu.a width = %d, want 8", in.Width)
	}

	sum := byName["alu.sum"]
	if sum.Verdict != linearity.Linear || sum.FanIn != 1 {
		t.Errorf("alu.sum = %+v, want linear with fan-in 1", sum)
	}
	prod := byName["alu.prod"]
	if prod.Verdict != linearity.Nonlinear {
		t.Errorf("alu.prod verdict = %s, want nonlinear", prod.Verdict)
	}
}

func TestSignalRowsPattern(t *testing.T) {
	a := mustAnalyze(t, testDump)

	rows := signalRows(a, regexp.MustCompile(`sum$`), "")
	if len(rows) != 1 || rows[0].Name != "alu.sum" {
		t.Errorf("pattern sum$ matched %v, want [alu.sum]", rows)
	}
}

func TestSignalRowsKind(t *testing.T) {
	a := mustAnalyze(t, testDump)

	rows := signalRows(a, nil, "input")
	if len(rows) != 1 || rows[0].Name != "alu.a" {
		t.Errorf("kind filter input matched %v, want [alu.a]", rows)
	}
}
