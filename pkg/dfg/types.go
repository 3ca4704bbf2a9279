// Package dfg models the flattened data-flow-graph notation dumped for a
// hardware design: signal declarations, module instances, and one expression
// tree per bound signal. It provides the expression node types and the text
// parser that builds a Design from a dump.
package dfg

import (
	"sort"
	"strconv"
)

// SignalKind is one label from a Term declaration's type list.
type SignalKind string

const (
	KindInput  SignalKind = "Input"  // Primary input port
	KindOutput SignalKind = "Output" // Primary output port
	KindInout  SignalKind = "Inout"  // Bidirectional port
	KindReg    SignalKind = "Reg"    // Registered (state-holding) signal
	KindWire   SignalKind = "Wire"   // Combinational net
	KindRename SignalKind = "Rename" // Compiler-introduced intermediate
)

// displayPriority orders kind labels for presentation when a signal carries
// several. Registers dominate ports, ports dominate plain nets.
var displayPriority = []SignalKind{KindReg, KindOutput, KindInput, KindWire, KindInout}

// Signal is one declared signal: its name, the kind labels from the Term
// line, the optional bit range, and the root expression from its Bind line.
// Root is nil for signals that are declared but never bound (primary inputs,
// externally driven nets).
type Signal struct {
	Name  string       `json:"name"`
	Kinds []SignalKind `json:"kinds"`
	MSB   string       `json:"msb,omitempty"` // Raw msb literal, "" if undeclared
	LSB   string       `json:"lsb,omitempty"` // Raw lsb literal, "" if undeclared
	Root  Expr         `json:"-"`
}

// HasExpr reports whether the signal has a defining expression.
func (s *Signal) HasExpr() bool { return s.Root != nil }

// DisplayKind picks the single most significant kind label for presentation.
// Falls back to the first declared label, or Wire when none are known.
func (s *Signal) DisplayKind() SignalKind {
	for _, p := range displayPriority {
		for _, k := range s.Kinds {
			if k == p {
				return p
			}
		}
	}
	if len(s.Kinds) > 0 {
		return s.Kinds[0]
	}
	return KindWire
}

// HasKind reports whether the signal carries the given kind label.
func (s *Signal) HasKind(k SignalKind) bool {
	for _, sk := range s.Kinds {
		if sk == k {
			return true
		}
	}
	return false
}

// Width returns the declared bit width, or 0 when the range is absent or the
// msb/lsb literals are not plain integers.
func (s *Signal) Width() int {
	if s.MSB == "" || s.LSB == "" {
		return 0
	}
	msb, err1 := strconv.Atoi(s.MSB)
	lsb, err2 := strconv.Atoi(s.LSB)
	if err1 != nil || err2 != nil {
		return 0
	}
	w := msb - lsb + 1
	if w < 0 {
		w = -w + 2
	}
	return w
}

// Instance is a module instantiation reference. Opaque to the analysis; kept
// for reports.
type Instance struct {
	Module string `json:"module"`
	Name   string `json:"name"`
}

// Design is one fully parsed dump: the signal table, the instance list, and
// the names referenced by some expression but never declared (treated as
// external inputs).
type Design struct {
	Name      string             `json:"name,omitempty"`
	Instances []Instance         `json:"instances"`
	Signals   map[string]*Signal `json:"-"`
	External  []string           `json:"external"`
}

// SignalNames returns all declared signal names in sorted order.
func (d *Design) SignalNames() []string {
	names := make([]string, 0, len(d.Signals))
	for name := range d.Signals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BoundCount returns the number of signals with a defining expression.
func (d *Design) BoundCount() int {
	n := 0
	for _, s := range d.Signals {
		if s.HasExpr() {
			n++
		}
	}
	return n
}

// resolveExternal fills d.External with every Terminal name that has no
// declaration, sorted. Called once at the end of parsing.
func (d *Design) resolveExternal() {
	seen := make(map[string]bool)
	for _, s := range d.Signals {
		if s.Root == nil {
			continue
		}
		Walk(s.Root, func(e Expr) {
			if t, ok := e.(*Terminal); ok {
				if _, declared := d.Signals[t.Name]; !declared {
					seen[t.Name] = true
				}
			}
		})
	}
	d.External = d.External[:0]
	for name := range seen {
		d.External = append(d.External, name)
	}
	sort.Strings(d.External)
}
