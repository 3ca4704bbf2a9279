// Package report renders analysis results as text, JSON, or a short
// summary. All renderers write to an io.Writer; file handling stays with
// the caller.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
	"github.com/l3aro/dfg-linearity-query/pkg/sdg"
)

// Format selects a report renderer.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatSummary Format = "summary"
)

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatSummary:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown report format %q (want text, json or summary)", s)
}

// Options configures rendering. A zero GeneratedAt means time.Now.
type Options struct {
	Format      Format
	Signals     bool // include the per-signal breakdown
	GeneratedAt time.Time
	Version     string
}

func (o Options) generatedAt() time.Time {
	if o.GeneratedAt.IsZero() {
		return time.Now()
	}
	return o.GeneratedAt
}

// Write renders a in the format opt selects.
func Write(w io.Writer, a *sdg.Analysis, opt Options) error {
	switch opt.Format {
	case FormatJSON:
		return JSON(w, a, opt)
	case FormatSummary:
		return Summary(w, a)
	default:
		return Text(w, a, opt)
	}
}

// Text writes the full text report: summary, kind distribution, nonlinear
// reasons, unknown operators, cycle and chain findings, and optionally the
// per-signal breakdown.
func Text(w io.Writer, a *sdg.Analysis, opt Options) error {
	m := a.Metrics

	fmt.Fprintln(w, "DFG LINEARITY ANALYSIS REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "\nDesign:    %s\n", a.Design.Name)
	fmt.Fprintf(w, "Generated: %s\n\n", opt.generatedAt().Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w, "Summary")
	fmt.Fprintln(w, strings.Repeat("-", 15))
	fmt.Fprintf(w, "Total expressions:     %d\n", m.TotalExpressions)
	fmt.Fprintf(w, "Linear expressions:    %d (%.1f%%)\n", m.LinearCount, m.LinearRatio*100)
	fmt.Fprintf(w, "Nonlinear expressions: %d (%.1f%%)\n\n", m.NonlinearCount, m.NonlinearRatio*100)

	if len(m.KindDist) > 0 {
		fmt.Fprintln(w, "Expression kinds")
		fmt.Fprintln(w, strings.Repeat("-", 20))
		for _, kind := range sortedKindKeys(m.KindDist) {
			count := m.KindDist[kind]
			fmt.Fprintf(w, "%-15s: %3d (%5.1f%%)\n", kind, count, percent(count, m.TotalExpressions))
		}
		fmt.Fprintln(w)
	}

	if len(m.ReasonFreq) > 0 {
		fmt.Fprintln(w, "Nonlinear reasons")
		fmt.Fprintln(w, strings.Repeat("-", 20))
		for _, reason := range sortedByCount(m.ReasonFreq) {
			fmt.Fprintf(w, "%s: %d\n", reason, m.ReasonFreq[reason])
		}
		fmt.Fprintln(w)
	}

	if len(m.UnknownOps) > 0 {
		fmt.Fprintln(w, "Unknown operators (treated as nonlinear)")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		for _, op := range sortedByCount(m.UnknownOps) {
			fmt.Fprintf(w, "%s: %d\n", op, m.UnknownOps[op])
		}
		fmt.Fprintln(w)
	}

	if len(m.CyclicSignals) > 0 {
		fmt.Fprintln(w, "Cyclic signals")
		fmt.Fprintln(w, strings.Repeat("-", 20))
		for _, s := range m.CyclicSignals {
			fmt.Fprintf(w, "%s\n", s)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Longest linear chain")
	fmt.Fprintln(w, strings.Repeat("-", 20))
	writeChain(w, m.LongestLinearChain)
	fmt.Fprintln(w)

	if opt.Signals {
		fmt.Fprintln(w, "Signals")
		fmt.Fprintln(w, strings.Repeat("-", 20))
		for _, name := range sortedResultKeys(a.Results) {
			res := a.Results[name]
			fmt.Fprintf(w, "%-20s: %-9s - %s\n", name, res.Verdict, res.Reason)
		}
	}
	return nil
}

func writeChain(w io.Writer, ch sdg.Chain) {
	if len(ch.Path) == 0 {
		fmt.Fprintln(w, "none")
		return
	}
	label := ""
	if ch.Cyclic {
		label = ", cyclic"
	}
	fmt.Fprintf(w, "Length %d%s: %s\n", ch.Length, label, strings.Join(ch.Path, " -> "))
}

// Summary writes the short form: totals plus the top three nonlinear
// reasons by frequency.
func Summary(w io.Writer, a *sdg.Analysis) error {
	return SummaryMetrics(w, a.Metrics)
}

// SummaryMetrics renders the same digest from bare metrics, for callers
// holding a cached record instead of a live analysis.
func SummaryMetrics(w io.Writer, m *sdg.Metrics) error {
	fmt.Fprintln(w, "DFG linearity summary")
	fmt.Fprintln(w, strings.Repeat("=", 21))
	fmt.Fprintf(w, "Total expressions:     %d\n", m.TotalExpressions)
	fmt.Fprintf(w, "Linear expressions:    %d (%.1f%%)\n", m.LinearCount, m.LinearRatio*100)
	fmt.Fprintf(w, "Nonlinear expressions: %d (%.1f%%)\n", m.NonlinearCount, m.NonlinearRatio*100)

	if len(m.ReasonFreq) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nTop nonlinear reasons:")
	reasons := sortedByCount(m.ReasonFreq)
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	for _, reason := range reasons {
		fmt.Fprintf(w, "- %s: %d\n", reason, m.ReasonFreq[reason])
	}
	return nil
}

// payload is the JSON report shape.
type payload struct {
	Metadata metadata                `json:"metadata"`
	Design   designInfo              `json:"design"`
	Metrics  *sdg.Metrics            `json:"metrics"`
	Signals  map[string]signalReport `json:"signals,omitempty"`
}

type metadata struct {
	GeneratedAt  string `json:"generated_at"`
	Tool         string `json:"tool"`
	Version      string `json:"version,omitempty"`
	AnalysisType string `json:"analysis_type"`
}

type designInfo struct {
	Name      string   `json:"name"`
	Signals   int      `json:"signals"`
	Bound     int      `json:"bound"`
	Externals []string `json:"externals,omitempty"`
}

type signalReport struct {
	Verdict   linearity.Verdict `json:"verdict"`
	Reason    string            `json:"reason"`
	Kind      dfg.SignalKind    `json:"kind"`
	Width     int               `json:"width,omitempty"`
	Operators []string          `json:"operators,omitempty"`
	Unknown   []string          `json:"unknown,omitempty"`
}

// JSON writes the machine-readable report.
func JSON(w io.Writer, a *sdg.Analysis, opt Options) error {
	p := payload{
		Metadata: metadata{
			GeneratedAt:  opt.generatedAt().Format(time.RFC3339),
			Tool:         "dlq",
			Version:      opt.Version,
			AnalysisType: "dfg_linearity",
		},
		Design: designInfo{
			Name:      a.Design.Name,
			Signals:   len(a.Design.Signals),
			Bound:     a.Design.BoundCount(),
			Externals: a.Design.External,
		},
		Metrics: a.Metrics,
	}
	if opt.Signals {
		p.Signals = make(map[string]signalReport, len(a.Results))
		for name, res := range a.Results {
			sig := a.Design.Signals[name]
			p.Signals[name] = signalReport{
				Verdict:   res.Verdict,
				Reason:    res.Reason,
				Kind:      sig.DisplayKind(),
				Width:     sig.Width(),
				Operators: res.Operators,
				Unknown:   res.Unknown,
			}
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func sortedKindKeys(m map[dfg.NodeKind]int) []dfg.NodeKind {
	keys := make([]dfg.NodeKind, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func sortedResultKeys(m map[string]linearity.Result) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedByCount orders keys by descending count, name ascending on ties.
func sortedByCount(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
