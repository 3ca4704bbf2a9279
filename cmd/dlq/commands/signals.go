package commands

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
	"github.com/l3aro/dfg-linearity-query/pkg/sdg"
	"github.com/spf13/cobra"
)

// SignalRow is one row of the signal table
type SignalRow struct {
	Name    string            `json:"name"`
	Kind    dfg.SignalKind    `json:"kind"`
	Verdict linearity.Verdict `json:"verdict"`
	Reason  string            `json:"reason"`
	Width   int               `json:"width,omitempty"`
	FanIn   int               `json:"fan_in"`
	FanOut  int               `json:"fan_out"`
	Cyclic  bool              `json:"cyclic"`
	HasExpr bool              `json:"has_expr"`
}

// TopoComponent is one strongly connected component in evaluation order.
type TopoComponent struct {
	Signals []string `json:"signals"`
	Cyclic  bool     `json:"cyclic"`
}

// SignalsOutput represents the output of the signals command
type SignalsOutput struct {
	Dump      string          `json:"dump"`
	Design    string          `json:"design,omitempty"`
	Total     int             `json:"total"`
	Linear    int             `json:"linear"`
	Nonlinear int             `json:"nonlinear"`
	Unbound   int             `json:"unbound"`
	Rows      []SignalRow     `json:"signals"`
	TopoOrder []TopoComponent `json:"topo_order,omitempty"`
}

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <file>",
	Short: "List signals with verdicts and graph structure",
	Long: `Prints every signal of a dump with its kind, verdict, reason, fan-in and
fan-out, and whether it sits on a feedback cycle. With --topo the strongly
connected components are listed in dependency order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSignals(args[0], cmd)
	},
}

func runSignals(path string, cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pattern, _ := cmd.Flags().GetString("pattern")
	var re *regexp.Regexp
	if pattern != "" {
		re, err = regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid --pattern: %w", err)
		}
	}
	kind, _ := cmd.Flags().GetString("kind")

	a, err := analyzeDump(path, cfg.Policy())
	if err != nil {
		return err
	}

	rows := signalRows(a, re, kind)

	output := SignalsOutput{
		Dump:   path,
		Design: a.Design.Name,
		Total:  len(rows),
		Rows:   rows,
	}
	for _, r := range rows {
		switch {
		case !r.HasExpr:
			output.Unbound++
		case r.Verdict == linearity.Nonlinear:
			output.Nonlinear++
		default:
			output.Linear++
		}
	}

	topo, _ := cmd.Flags().GetBool("topo")
	if topo {
		c := a.Graph.Condense()
		for i := 0; i < c.Size(); i++ {
			output.TopoOrder = append(output.TopoOrder, TopoComponent{
				Signals: c.Members(i),
				Cyclic:  c.Cyclic(i),
			})
		}
	}

	printSignalsOutput(output, cmd)
	return nil
}

// signalRows builds the table rows for every graph node passing the filters.
// Nodes come out of the graph sorted, so the table order is stable.
func signalRows(a *sdg.Analysis, re *regexp.Regexp, kind string) []SignalRow {
	cyclic := a.Graph.CyclicNodes()
	var rows []SignalRow
	for _, name := range a.Graph.Nodes() {
		ni := a.Info[name]
		if re != nil && !re.MatchString(name) {
			continue
		}
		if kind != "" && !strings.EqualFold(string(ni.Kind), kind) {
			continue
		}
		row := SignalRow{
			Name:    name,
			Kind:    ni.Kind,
			Verdict: ni.Verdict,
			Reason:  ni.Reason,
			FanIn:   len(a.Graph.Preds(name)),
			FanOut:  len(a.Graph.Succs(name)),
			Cyclic:  cyclic[name],
			HasExpr: ni.HasExpr,
		}
		if sig, ok := a.Design.Signals[name]; ok {
			row.Width = sig.Width()
		}
		rows = append(rows, row)
	}
	return rows
}

func printSignalsOutput(output SignalsOutput, cmd *cobra.Command) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling JSON: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("=== Signals: %s ===\n\n", output.Dump)
	if output.Design != "" {
		fmt.Printf("Design: %s\n", output.Design)
	}
	fmt.Printf("%d signals: %d linear, %d nonlinear, %d unbound\n\n",
		output.Total, output.Linear, output.Nonlinear, output.Unbound)

	fmt.Printf("%-24s %-8s %-10s %5s %6s %7s  %s\n",
		"NAME", "KIND", "VERDICT", "WIDTH", "FAN-IN", "FAN-OUT", "REASON")
	for _, r := range output.Rows {
		width := "-"
		if r.Width > 0 {
			width = strconv.Itoa(r.Width)
		}
		reason := r.Reason
		if r.Cyclic {
			reason += " [cyclic]"
		}
		fmt.Printf("%-24s %-8s %-10s %5s %6d %7d  %s\n",
			r.Name, r.Kind, r.Verdict, width, r.FanIn, r.FanOut, reason)
	}

	if len(output.TopoOrder) > 0 {
		fmt.Println("\nEvaluation order (cycles grouped):")
		for i, comp := range output.TopoOrder {
			label := strings.Join(comp.Signals, ", ")
			if comp.Cyclic {
				label += "  (cycle)"
			}
			fmt.Printf("  %3d. %s\n", i+1, label)
		}
	}
}

func init() {
	signalsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	signalsCmd.Flags().StringP("pattern", "p", "", "Only signals matching this regular expression")
	signalsCmd.Flags().StringP("kind", "k", "", "Only signals of this kind (Input, Output, Reg, Wire, ...)")
	signalsCmd.Flags().Bool("topo", false, "Print the condensation in topological order")
}
