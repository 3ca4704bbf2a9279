package linearity

import (
	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
)

// Verdict is the classification outcome for one expression.
type Verdict string

const (
	Linear    Verdict = "linear"
	Nonlinear Verdict = "nonlinear"
)

// Fixed reason strings for the leaf and structural rules. Operator verdicts
// carry the operator name and are built inline.
const (
	ReasonDirectReference = "direct reference"
	ReasonConstant        = "constant"
	ReasonBitSelection    = "bit selection"
	ReasonConditional     = "conditional expression"
	ReasonConcatenation   = "concatenation"
	// ReasonNoExpression marks signals that have no defining expression at
	// all. Never produced by Classify; the analysis layer assigns it.
	ReasonNoExpression = "no defining expression"
)

// Result is the full classification of one expression tree.
type Result struct {
	Verdict   Verdict      `json:"verdict"`
	Reason    string       `json:"reason"`
	Kind      dfg.NodeKind `json:"kind"`
	Operators []string     `json:"operators,omitempty"` // Every operator occurrence, pre-order
	Unknown   []string     `json:"unknown,omitempty"`   // Occurrences in neither policy set
}

// Linear reports whether the verdict is linear.
func (r Result) Linear() bool { return r.Verdict == Linear }

// Classify evaluates the expression against the policy. Pure: no state is
// read or written beyond its arguments, so concurrent calls are safe. The
// expression must be non-nil.
//
// Rules, first match wins: a Terminal or IntConst is linear; a Partselect is
// linear regardless of its base; a Branch is nonlinear always; a Concat is
// nonlinear iff any part is; an Operator in the nonlinear set vetoes the
// whole expression, one in the linear set is as linear as its operands, and
// an unclassified name is nonlinear so unrecognized notation never counts as
// linear silently.
func Classify(e dfg.Expr, pol Policy) Result {
	verdict, reason := evaluate(e, pol)
	res := Result{
		Verdict: verdict,
		Reason:  reason,
		Kind:    e.Kind(),
	}
	dfg.Walk(e, func(n dfg.Expr) {
		op, ok := n.(*dfg.Operator)
		if !ok {
			return
		}
		res.Operators = append(res.Operators, op.Op)
		if !pol.IsLinear(op.Op) && !pol.IsNonlinear(op.Op) {
			res.Unknown = append(res.Unknown, op.Op)
		}
	})
	return res
}

func evaluate(e dfg.Expr, pol Policy) (Verdict, string) {
	switch n := e.(type) {
	case *dfg.Terminal:
		return Linear, ReasonDirectReference

	case *dfg.IntConst:
		return Linear, ReasonConstant

	case *dfg.Partselect:
		// The selection itself is structurally linear; the base signal keeps
		// its own verdict when classified separately.
		return Linear, ReasonBitSelection

	case *dfg.Branch:
		return Nonlinear, ReasonConditional

	case *dfg.Concat:
		for _, part := range n.Parts {
			if v, r := evaluate(part, pol); v == Nonlinear {
				return Nonlinear, r
			}
		}
		return Linear, ReasonConcatenation

	case *dfg.Operator:
		if pol.IsNonlinear(n.Op) {
			return Nonlinear, "contains nonlinear operator " + n.Op
		}
		if pol.IsLinear(n.Op) {
			for _, operand := range n.Operands {
				if v, r := evaluate(operand, pol); v == Nonlinear {
					return Nonlinear, r
				}
			}
			return Linear, "linear operator " + n.Op
		}
		return Nonlinear, "unclassified operator " + n.Op
	}
	panic("unreachable")
}
