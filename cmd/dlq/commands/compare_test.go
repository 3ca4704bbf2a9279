package commands

import (
	"testing"

	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
)

const compareDumpA = `Term:
(Term name:alu.a type:['Input'] msb:(IntConst 7) lsb:(IntConst 0))
(Term name:alu.sum type:['Wire'])
(Term name:alu.old type:['Wire'])
Bind:
(Bind dest:alu.sum tree:(Operator Plus Next:(Terminal alu.a),(IntConst 1)))
(Bind dest:alu.old tree:(Terminal alu.a))
`

const compareDumpB = `Term:
(Term name:alu.a type:['Input'] msb:(IntConst 7) lsb:(IntConst 0))
(Term name:alu.sum type:['Wire'])
(Term name:alu.new type:['Wire'])
Bind:
(Bind dest:alu.sum tree:(Operator Times Next:(Terminal alu.a),(Terminal alu.a)))
(Bind dest:alu.new tree:(Terminal alu.a))
`

func TestCompareResults(t *testing.T) {
	aA := mustAnalyze(t, compareDumpA)
	aB := mustAnalyze(t, compareDumpB)

	changed, added, removed := compareResults(aA, aB)

	if len(changed) != 1 {
		t.Fatalf("changed = %v, want one entry", changed)
	}
	if changed[0].Name != "alu.sum" || changed[0].From != linearity.Linear || changed[0].To != linearity.Nonlinear {
		t.Errorf("changed[0] = %+v, want alu.sum linear -> nonlinear", changed[0])
	}
	if len(added) != 1 || added[0] != "alu.new" {
		t.Errorf("added = %v, want [alu.new]", added)
	}
	if len(removed) != 1 || removed[0] != "alu.old" {
		t.Errorf("removed = %v, want [alu.old]", removed)
	}
}

func TestCompareResultsIdentical(t *testing.T) {
	aA := mustAnalyze(t, compareDumpA)
	aB := mustAnalyze(t, compareDumpA)

	changed, added, removed := compareResults(aA, aB)
	if len(changed)+len(added)+len(removed) != 0 {
		t.Errorf("identical dumps produced a diff: %v / %v / %v", changed, added, removed)
	}
}
