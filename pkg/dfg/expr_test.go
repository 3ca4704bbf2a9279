package dfg

import (
	"reflect"
	"testing"
)

func TestExprKinds(t *testing.T) {
	tests := []struct {
		expr Expr
		want NodeKind
	}{
		{&Terminal{Name: "a"}, NodeTerminal},
		{&IntConst{Value: "1"}, NodeConstant},
		{&Operator{Op: "Plus", Operands: []Expr{&Terminal{Name: "a"}}}, NodeOperator},
		{&Branch{Cond: &Terminal{Name: "c"}, True: &IntConst{Value: "1"}, False: &IntConst{Value: "0"}}, NodeBranch},
		{&Concat{Parts: []Expr{&Terminal{Name: "a"}}}, NodeConcat},
		{&Partselect{Base: &Terminal{Name: "a"}, MSB: &IntConst{Value: "7"}, LSB: &IntConst{Value: "0"}}, NodePartselect},
	}
	for _, tt := range tests {
		if got := tt.expr.Kind(); got != tt.want {
			t.Errorf("%T Kind() = %s, want %s", tt.expr, got, tt.want)
		}
	}
}

// String output must parse back to the same structure.
func TestExprStringRoundTrip(t *testing.T) {
	exprs := []Expr{
		&Terminal{Name: "top.a"},
		&IntConst{Value: "32'h0"},
		&Operator{Op: "Plus", Operands: []Expr{
			&Terminal{Name: "top.a"},
			&Operator{Op: "And", Operands: []Expr{&Terminal{Name: "top.b"}, &IntConst{Value: "1"}}},
		}},
		&Branch{Cond: &Terminal{Name: "sel"}, True: &Terminal{Name: "x"}, False: &Terminal{Name: "y"}},
		&Branch{Cond: &Terminal{Name: "sel"}, True: &Terminal{Name: "x"}},
		&Concat{Parts: []Expr{&IntConst{Value: "0"}, &Terminal{Name: "low"}}},
		&Partselect{Base: &Terminal{Name: "bus"}, MSB: &IntConst{Value: "15"}, LSB: &IntConst{Value: "8"}},
	}

	for _, e := range exprs {
		text := e.String()
		parsed, err := parseExpr(text)
		if err != nil {
			t.Errorf("parseExpr(%q) failed: %v", text, err)
			continue
		}
		if !reflect.DeepEqual(parsed, e) {
			t.Errorf("round trip of %q changed structure: %#v", text, parsed)
		}
	}
}

func TestWalkPreOrder(t *testing.T) {
	e := &Operator{Op: "Plus", Operands: []Expr{
		&Terminal{Name: "a"},
		&Branch{Cond: &Terminal{Name: "c"}, True: &IntConst{Value: "1"}, False: &Terminal{Name: "b"}},
	}}

	var kinds []NodeKind
	Walk(e, func(n Expr) { kinds = append(kinds, n.Kind()) })

	want := []NodeKind{NodeOperator, NodeTerminal, NodeBranch, NodeTerminal, NodeConstant, NodeTerminal}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("Walk order = %v, want %v", kinds, want)
	}
}

func TestTerminalsKeepDuplicates(t *testing.T) {
	e := &Operator{Op: "Plus", Operands: []Expr{
		&Terminal{Name: "a"},
		&Operator{Op: "Minus", Operands: []Expr{&Terminal{Name: "a"}, &Terminal{Name: "b"}}},
	}}

	got := Terminals(e)
	want := []string{"a", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terminals = %v, want %v", got, want)
	}
}
