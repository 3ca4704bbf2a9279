// Package linearity classifies signal expressions as linear or nonlinear.
// The verdict is whole-expression: a single nonlinear operator anywhere in a
// tree vetoes every linear operator around it. Which operator names count as
// linear or nonlinear is an explicit Policy value threaded through each call,
// never package state, so concurrent analyses with different policies cannot
// interfere.
package linearity

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// DefaultLinearOps are the operator names treated as linear out of the box.
// Addition and subtraction preserve additive homogeneity; concatenation and
// part-selection are structural rearrangements of bits.
var DefaultLinearOps = []string{
	"Plus", "Minus", "UnaryMinus", "Concat", "Partselect",
}

// DefaultNonlinearOps are the operator names that veto linearity. Shifts are
// here deliberately: a fixed shift is a multiplication or division by a power
// of two and breaks f(ax+by) = a*f(x) + b*f(y).
var DefaultNonlinearOps = []string{
	"Times", "Divide", "Mod", "Power",
	"And", "Or", "Xor", "Xnor", "Unot",
	"Uand", "Uor", "Uxor", "Unand", "Unor", "Uxnor",
	"Land", "Lor", "Ulnot",
	"Eq", "NotEq", "Lt", "Gt", "Lte", "Gte",
	"Sll", "Srl", "Sla", "Sra",
}

// Policy is an immutable partition of operator names. Names in neither set
// are "unclassified": the classifier treats them as nonlinear and records the
// occurrence so reports can flag them. When a name appears in both sets the
// nonlinear side wins, because the veto rule is checked first.
type Policy struct {
	linear    map[string]struct{}
	nonlinear map[string]struct{}
}

// NewPolicy builds a Policy from the two operator name lists. The lists are
// copied; later mutation of the slices does not affect the Policy.
func NewPolicy(linear, nonlinear []string) Policy {
	p := Policy{
		linear:    make(map[string]struct{}, len(linear)),
		nonlinear: make(map[string]struct{}, len(nonlinear)),
	}
	for _, op := range linear {
		p.linear[op] = struct{}{}
	}
	for _, op := range nonlinear {
		p.nonlinear[op] = struct{}{}
	}
	return p
}

// DefaultPolicy returns the stock operator partition.
func DefaultPolicy() Policy {
	return NewPolicy(DefaultLinearOps, DefaultNonlinearOps)
}

// IsLinear reports whether op is in the linear set.
func (p Policy) IsLinear(op string) bool {
	_, ok := p.linear[op]
	return ok
}

// IsNonlinear reports whether op is in the nonlinear set.
func (p Policy) IsNonlinear(op string) bool {
	_, ok := p.nonlinear[op]
	return ok
}

// LinearOps returns the linear set as a sorted slice.
func (p Policy) LinearOps() []string {
	return sortedKeys(p.linear)
}

// NonlinearOps returns the nonlinear set as a sorted slice.
func (p Policy) NonlinearOps() []string {
	return sortedKeys(p.nonlinear)
}

// Fingerprint returns a stable hash of the policy, used to key cached
// analysis results: the same dump analyzed under a different policy must
// never hit the old cache entry.
func (p Policy) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte("linear:" + strings.Join(p.LinearOps(), ",")))
	h.Write([]byte("|nonlinear:" + strings.Join(p.NonlinearOps(), ",")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for op := range set {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}
