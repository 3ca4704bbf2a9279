package dfg

import "strings"

// NodeKind identifies the variant of an expression node.
type NodeKind string

const (
	NodeTerminal   NodeKind = "terminal"   // Reference to another signal
	NodeConstant   NodeKind = "constant"   // Numeric or bit-vector literal
	NodeOperator   NodeKind = "operator"   // Named operator over ordered operands
	NodeBranch     NodeKind = "branch"     // Conditional select
	NodeConcat     NodeKind = "concat"     // Bit concatenation
	NodePartselect NodeKind = "partselect" // Bit-range select
)

// Expr is a parsed expression node. The set of implementations is closed:
// Terminal, IntConst, Operator, Branch, Concat, Partselect. Consumers switch
// exhaustively on the concrete type; the unexported marker keeps outside
// packages from adding variants.
type Expr interface {
	Kind() NodeKind
	String() string
	isExpr()
}

// Terminal references another signal by name. Leaf.
type Terminal struct {
	Name string
}

// IntConst holds a literal's source text verbatim ("5", "32'h0", "1'b1").
// Never evaluated. Leaf.
type IntConst struct {
	Value string
}

// Operator applies a named operator to one or more operands, ordered as they
// appear in the source. The name is kept even when it is not in any
// configured operator set; classification policy is not a parser concern.
type Operator struct {
	Op       string
	Operands []Expr
}

// Branch is a conditional select. False may be nil: dumps occasionally omit
// the false arm for latch-shaped binds.
type Branch struct {
	Cond  Expr
	True  Expr
	False Expr
}

// Concat concatenates its parts, highest-order first.
type Concat struct {
	Parts []Expr
}

// Partselect selects the bit range [MSB:LSB] out of Base.
type Partselect struct {
	Base Expr
	MSB  Expr
	LSB  Expr
}

func (*Terminal) isExpr()   {}
func (*IntConst) isExpr()   {}
func (*Operator) isExpr()   {}
func (*Branch) isExpr()     {}
func (*Concat) isExpr()     {}
func (*Partselect) isExpr() {}

func (*Terminal) Kind() NodeKind   { return NodeTerminal }
func (*IntConst) Kind() NodeKind   { return NodeConstant }
func (*Operator) Kind() NodeKind   { return NodeOperator }
func (*Branch) Kind() NodeKind     { return NodeBranch }
func (*Concat) Kind() NodeKind     { return NodeConcat }
func (*Partselect) Kind() NodeKind { return NodePartselect }

// String renders the node back in the dump notation. Round-trips structure,
// not byte-level whitespace.
func (t *Terminal) String() string { return "(Terminal " + t.Name + ")" }

func (c *IntConst) String() string { return "(IntConst " + c.Value + ")" }

func (o *Operator) String() string {
	var b strings.Builder
	b.WriteString("(Operator ")
	b.WriteString(o.Op)
	b.WriteString(" Next:")
	writeList(&b, o.Operands)
	b.WriteByte(')')
	return b.String()
}

func (br *Branch) String() string {
	var b strings.Builder
	b.WriteString("(Branch Cond:")
	b.WriteString(br.Cond.String())
	b.WriteString(" True:")
	b.WriteString(br.True.String())
	if br.False != nil {
		b.WriteString(" False:")
		b.WriteString(br.False.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (c *Concat) String() string {
	var b strings.Builder
	b.WriteString("(Concat Next:")
	writeList(&b, c.Parts)
	b.WriteByte(')')
	return b.String()
}

func (p *Partselect) String() string {
	var b strings.Builder
	b.WriteString("(Partselect Var:")
	b.WriteString(p.Base.String())
	b.WriteString(" MSB:")
	b.WriteString(p.MSB.String())
	b.WriteString(" LSB:")
	b.WriteString(p.LSB.String())
	b.WriteByte(')')
	return b.String()
}

func writeList(b *strings.Builder, parts []Expr) {
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.String())
	}
}

// Walk calls fn for e and every node below it, pre-order, children in source
// order. Expression trees are finite so no cycle guard is needed.
func Walk(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch n := e.(type) {
	case *Terminal, *IntConst:
	case *Operator:
		for _, op := range n.Operands {
			Walk(op, fn)
		}
	case *Branch:
		Walk(n.Cond, fn)
		Walk(n.True, fn)
		Walk(n.False, fn)
	case *Concat:
		for _, p := range n.Parts {
			Walk(p, fn)
		}
	case *Partselect:
		Walk(n.Base, fn)
		Walk(n.MSB, fn)
		Walk(n.LSB, fn)
	}
}

// Terminals returns the names of every Terminal in e, pre-order, duplicates
// preserved.
func Terminals(e Expr) []string {
	var names []string
	Walk(e, func(n Expr) {
		if t, ok := n.(*Terminal); ok {
			names = append(names, t.Name)
		}
	})
	return names
}
