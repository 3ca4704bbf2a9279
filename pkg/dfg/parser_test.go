package dfg

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const counterDump = `Directive:
Instance:
(counter, 'counter')
Term:
(Term name:counter.CLK type:['Input'] msb:(IntConst 0) lsb:(IntConst 0))
(Term name:counter.RST type:['Input'] msb:(IntConst 0) lsb:(IntConst 0))
(Term name:counter.en type:['Input'] msb:(IntConst 0) lsb:(IntConst 0))
(Term name:counter.count type:['Output', 'Reg'] msb:(IntConst 7) lsb:(IntConst 0))
(Term name:counter._rn0_count type:['Rename'] msb:(IntConst 7) lsb:(IntConst 0))
Bind:
(Bind dest:counter._rn0_count tree:(Operator Plus Next:(Terminal counter.count),(IntConst 1)))
(Bind dest:counter.count tree:(Branch Cond:(Terminal counter.RST) True:(IntConst 0) False:(Terminal counter._rn0_count)))
`

func TestParseCounterDump(t *testing.T) {
	d, err := ParseString(counterDump)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	if d.Name != "counter" {
		t.Errorf("design name = %q, want %q", d.Name, "counter")
	}
	if len(d.Instances) != 1 || d.Instances[0].Module != "counter" || d.Instances[0].Name != "counter" {
		t.Errorf("instances = %+v, want one counter instance", d.Instances)
	}
	if len(d.Signals) != 5 {
		t.Fatalf("got %d signals, want 5", len(d.Signals))
	}

	count := d.Signals["counter.count"]
	if count == nil {
		t.Fatal("counter.count not parsed")
	}
	if !count.HasKind(KindOutput) || !count.HasKind(KindReg) {
		t.Errorf("counter.count kinds = %v, want Output and Reg", count.Kinds)
	}
	if count.MSB != "7" || count.LSB != "0" {
		t.Errorf("counter.count range = [%s:%s], want [7:0]", count.MSB, count.LSB)
	}
	if count.Width() != 8 {
		t.Errorf("counter.count width = %d, want 8", count.Width())
	}
	if count.Root == nil || count.Root.Kind() != NodeBranch {
		t.Errorf("counter.count root = %v, want branch", count.Root)
	}

	rn := d.Signals["counter._rn0_count"]
	if rn == nil || rn.Root == nil {
		t.Fatal("counter._rn0_count not bound")
	}
	op, ok := rn.Root.(*Operator)
	if !ok {
		t.Fatalf("counter._rn0_count root is %T, want *Operator", rn.Root)
	}
	if op.Op != "Plus" || len(op.Operands) != 2 {
		t.Errorf("root operator = %s/%d operands, want Plus/2", op.Op, len(op.Operands))
	}

	if d.BoundCount() != 2 {
		t.Errorf("BoundCount = %d, want 2", d.BoundCount())
	}
	if len(d.External) != 0 {
		t.Errorf("External = %v, want none", d.External)
	}
}

// Nested operands three levels deep, with commas inside nested parentheses;
// the parser must recover exact operand count and order at every level.
func TestParseNestedOperandStructure(t *testing.T) {
	text := "(Operator Plus Next:(Operator Minus Next:(Terminal a),(Operator And Next:(Terminal b),(Terminal c))),(Concat Next:(IntConst 1),(Terminal d)))"

	e, err := parseExpr(text)
	if err != nil {
		t.Fatalf("parseExpr failed: %v", err)
	}

	root, ok := e.(*Operator)
	if !ok || root.Op != "Plus" {
		t.Fatalf("root = %v, want Operator Plus", e)
	}
	if len(root.Operands) != 2 {
		t.Fatalf("root operands = %d, want 2", len(root.Operands))
	}

	minus, ok := root.Operands[0].(*Operator)
	if !ok || minus.Op != "Minus" || len(minus.Operands) != 2 {
		t.Fatalf("first operand = %v, want Operator Minus with 2 operands", root.Operands[0])
	}
	if term, ok := minus.Operands[0].(*Terminal); !ok || term.Name != "a" {
		t.Errorf("minus first operand = %v, want Terminal a", minus.Operands[0])
	}
	and, ok := minus.Operands[1].(*Operator)
	if !ok || and.Op != "And" || len(and.Operands) != 2 {
		t.Fatalf("minus second operand = %v, want Operator And with 2 operands", minus.Operands[1])
	}
	if term, ok := and.Operands[1].(*Terminal); !ok || term.Name != "c" {
		t.Errorf("and second operand = %v, want Terminal c", and.Operands[1])
	}

	concat, ok := root.Operands[1].(*Concat)
	if !ok || len(concat.Parts) != 2 {
		t.Fatalf("second operand = %v, want Concat with 2 parts", root.Operands[1])
	}
	if c, ok := concat.Parts[0].(*IntConst); !ok || c.Value != "1" {
		t.Errorf("concat first part = %v, want IntConst 1", concat.Parts[0])
	}
}

func TestParsePartselectForms(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"keyed", "(Partselect Var:(Terminal alu.in) MSB:(IntConst 7) LSB:(IntConst 0))"},
		{"positional", "(Partselect (Terminal alu.in) (IntConst 7) (IntConst 0))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := parseExpr(tt.text)
			if err != nil {
				t.Fatalf("parseExpr failed: %v", err)
			}
			ps, ok := e.(*Partselect)
			if !ok {
				t.Fatalf("got %T, want *Partselect", e)
			}
			if term, ok := ps.Base.(*Terminal); !ok || term.Name != "alu.in" {
				t.Errorf("base = %v, want Terminal alu.in", ps.Base)
			}
			if c, ok := ps.MSB.(*IntConst); !ok || c.Value != "7" {
				t.Errorf("msb = %v, want IntConst 7", ps.MSB)
			}
			if c, ok := ps.LSB.(*IntConst); !ok || c.Value != "0" {
				t.Errorf("lsb = %v, want IntConst 0", ps.LSB)
			}
		})
	}
}

func TestParseBranchWithoutFalse(t *testing.T) {
	e, err := parseExpr("(Branch Cond:(Terminal en) True:(Terminal d))")
	if err != nil {
		t.Fatalf("parseExpr failed: %v", err)
	}
	br, ok := e.(*Branch)
	if !ok {
		t.Fatalf("got %T, want *Branch", e)
	}
	if br.False != nil {
		t.Errorf("False = %v, want nil", br.False)
	}
}

// Bind records may carry extra fields between dest and tree; they are
// accepted and skipped.
func TestParseBindExtraFields(t *testing.T) {
	dump := "Bind:\n(Bind dest:top.q msb:(IntConst 3) lsb:(IntConst 0) tree:(Terminal top.d))\n"
	d, err := ParseString(dump)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	sig := d.Signals["top.q"]
	if sig == nil || sig.Root == nil {
		t.Fatal("top.q not bound")
	}
	if term, ok := sig.Root.(*Terminal); !ok || term.Name != "top.d" {
		t.Errorf("root = %v, want Terminal top.d", sig.Root)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		dump    string
		wantMsg string
	}{
		{
			name:    "unbalanced parentheses",
			dump:    "Bind:\n(Bind dest:a tree:(Operator Plus Next:(Terminal b),(Terminal c))\n",
			wantMsg: "unbalanced",
		},
		{
			name:    "unknown expression tag",
			dump:    "Bind:\n(Bind dest:a tree:(Pointer Var:(Terminal b) PTR:(IntConst 0)))\n",
			wantMsg: "unknown expression tag",
		},
		{
			name:    "unrecognized record",
			dump:    "Term:\nthis is not a record\n",
			wantMsg: "unrecognized record",
		},
		{
			name:    "bind missing tree",
			dump:    "Bind:\n(Bind dest:a)\n",
			wantMsg: "missing tree",
		},
		{
			name:    "term missing type",
			dump:    "Term:\n(Term name:top.x msb:(IntConst 0) lsb:(IntConst 0))\n",
			wantMsg: "missing type",
		},
		{
			name:    "empty operand list",
			dump:    "Bind:\n(Bind dest:a tree:(Operator Plus Next:))\n",
			wantMsg: "empty operand list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.dump)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %v is not a ParseError", err)
			}
			if perr.Line != 2 {
				t.Errorf("error line = %d, want 2", perr.Line)
			}
			if !strings.Contains(perr.Msg, tt.wantMsg) {
				t.Errorf("error msg = %q, want it to contain %q", perr.Msg, tt.wantMsg)
			}
		})
	}
}

func TestExternalReferences(t *testing.T) {
	dump := `Bind:
(Bind dest:top.out tree:(Operator Plus Next:(Terminal top.a),(Terminal top.b)))
`
	d, err := ParseString(dump)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	want := []string{"top.a", "top.b"}
	if len(d.External) != len(want) {
		t.Fatalf("External = %v, want %v", d.External, want)
	}
	for i, name := range want {
		if d.External[i] != name {
			t.Errorf("External[%d] = %q, want %q", i, d.External[i], name)
		}
	}
}

func TestParseErrorFormat(t *testing.T) {
	err := &ParseError{Line: 12, Text: "(Bogus)", Msg: "unrecognized record"}
	got := err.Error()
	if !strings.Contains(got, "line 12") || !strings.Contains(got, "unrecognized record") {
		t.Errorf("Error() = %q, want line number and message", got)
	}
}

// The checked-in sample dumps go through ParseFile so the on-disk path is
// covered too: section dispatch, keyed and positional expression forms, and
// mixed signal kinds as a generator emits them.
func TestParseSampleDumps(t *testing.T) {
	counter, err := ParseFile(filepath.Join("..", "..", "testdata", "counter.txt"))
	if err != nil {
		t.Fatalf("ParseFile counter.txt: %v", err)
	}
	if counter.Name != "counter" {
		t.Errorf("design name = %q, want %q", counter.Name, "counter")
	}
	if len(counter.Signals) != 5 || counter.BoundCount() != 2 {
		t.Errorf("counter: %d signals / %d bound, want 5/2",
			len(counter.Signals), counter.BoundCount())
	}
	if len(counter.External) != 0 {
		t.Errorf("counter External = %v, want none", counter.External)
	}
	count := counter.Signals["counter.count"]
	if count == nil || count.Root == nil {
		t.Fatal("counter.count not bound")
	}
	if count.Root.Kind() != NodeBranch {
		t.Errorf("counter.count root kind = %v, want branch", count.Root.Kind())
	}

	alu, err := ParseFile(filepath.Join("..", "..", "testdata", "alu.txt"))
	if err != nil {
		t.Fatalf("ParseFile alu.txt: %v", err)
	}
	if alu.Name != "alu" {
		t.Errorf("design name = %q, want %q", alu.Name, "alu")
	}
	if len(alu.Signals) != 10 || alu.BoundCount() != 7 {
		t.Errorf("alu: %d signals / %d bound, want 10/7",
			len(alu.Signals), alu.BoundCount())
	}

	hi := alu.Signals["alu.hi"]
	if hi == nil || hi.Root == nil {
		t.Fatal("alu.hi not bound")
	}
	ps, ok := hi.Root.(*Partselect)
	if !ok {
		t.Fatalf("alu.hi root is %T, want *Partselect", hi.Root)
	}
	if base, ok := ps.Base.(*Terminal); !ok || base.Name != "alu.a" {
		t.Errorf("alu.hi base = %v, want Terminal alu.a", ps.Base)
	}

	lohi := alu.Signals["alu.lohi"]
	if lohi == nil || lohi.Root == nil {
		t.Fatal("alu.lohi not bound")
	}
	cat, ok := lohi.Root.(*Concat)
	if !ok || len(cat.Parts) != 2 {
		t.Fatalf("alu.lohi root = %v, want Concat with 2 parts", lohi.Root)
	}
	if _, ok := cat.Parts[1].(*Partselect); !ok {
		t.Errorf("alu.lohi second part = %T, want *Partselect", cat.Parts[1])
	}
}
