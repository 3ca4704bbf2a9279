package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
	"github.com/l3aro/dfg-linearity-query/pkg/sdg"
	"github.com/spf13/cobra"
)

// SignalChange records one verdict transition between two dumps
type SignalChange struct {
	Name string            `json:"name"`
	From linearity.Verdict `json:"from"`
	To   linearity.Verdict `json:"to"`
}

// CompareOutput represents the output of the compare command
type CompareOutput struct {
	DumpA        string         `json:"dump_a"`
	DumpB        string         `json:"dump_b"`
	DesignA      string         `json:"design_a,omitempty"`
	DesignB      string         `json:"design_b,omitempty"`
	Changed      []SignalChange `json:"changed,omitempty"`
	Added        []string       `json:"added,omitempty"`
	Removed      []string       `json:"removed,omitempty"`
	LinearRatioA float64        `json:"linear_ratio_a"`
	LinearRatioB float64        `json:"linear_ratio_b"`
	RatioDelta   float64        `json:"ratio_delta"`
}

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare <a> <b>",
	Short: "Diff the linearity verdicts of two dumps",
	Long: `Analyzes two dumps under the same operator policy and reports per-signal
verdict transitions, added and removed signals, and the change in the linear
ratio. Useful for spotting where an RTL edit introduced nonlinearity.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompare(args[0], args[1], cmd)
	},
}

func runCompare(pathA, pathB string, cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	pol := cfg.Policy()

	aA, err := analyzeDump(pathA, pol)
	if err != nil {
		return err
	}
	aB, err := analyzeDump(pathB, pol)
	if err != nil {
		return err
	}

	changed, added, removed := compareResults(aA, aB)

	output := CompareOutput{
		DumpA:        pathA,
		DumpB:        pathB,
		DesignA:      aA.Design.Name,
		DesignB:      aB.Design.Name,
		Changed:      changed,
		Added:        added,
		Removed:      removed,
		LinearRatioA: aA.Metrics.LinearRatio,
		LinearRatioB: aB.Metrics.LinearRatio,
		RatioDelta:   aB.Metrics.LinearRatio - aA.Metrics.LinearRatio,
	}

	printCompareOutput(output, cmd)
	return nil
}

// compareResults diffs the bound-signal verdicts of two analyses. All three
// slices come back sorted by signal name.
func compareResults(aA, aB *sdg.Analysis) (changed []SignalChange, added, removed []string) {
	for name, resA := range aA.Results {
		resB, ok := aB.Results[name]
		if !ok {
			removed = append(removed, name)
			continue
		}
		if resA.Verdict != resB.Verdict {
			changed = append(changed, SignalChange{Name: name, From: resA.Verdict, To: resB.Verdict})
		}
	}
	for name := range aB.Results {
		if _, ok := aA.Results[name]; !ok {
			added = append(added, name)
		}
	}

	sort.Slice(changed, func(i, j int) bool { return changed[i].Name < changed[j].Name })
	sort.Strings(added)
	sort.Strings(removed)
	return changed, added, removed
}

func printCompareOutput(output CompareOutput, cmd *cobra.Command) {
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

	fmt.Printf("=== Verdict Diff: %s vs %s ===\n\n", output.DumpA, output.DumpB)
	fmt.Printf("Linear ratio: %.1f%% -> %.1f%% (%+.1f%%)\n",
		output.LinearRatioA*100, output.LinearRatioB*100, output.RatioDelta*100)

	if len(output.Changed) == 0 && len(output.Added) == 0 && len(output.Removed) == 0 {
		fmt.Println("\nNo verdict changes.")
		return
	}

	if len(output.Changed) > 0 {
		fmt.Printf("\nChanged (%d):\n", len(output.Changed))
		for _, c := range output.Changed {
			fmt.Printf("  %-24s %s -> %s\n", c.Name, c.From, c.To)
		}
	}
	if len(output.Added) > 0 {
		fmt.Printf("\nOnly in %s (%d):\n", output.DumpB, len(output.Added))
		for _, n := range output.Added {
			fmt.Printf("  %s\n", n)
		}
	}
	if len(output.Removed) > 0 {
		fmt.Printf("\nOnly in %s (%d):\n", output.DumpA, len(output.Removed))
		for _, n := range output.Removed {
			fmt.Printf("  %s\n", n)
		}
	}
}

func init() {
	compareCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}
