package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/l3aro/dfg-linearity-query/pkg/sdg"
	"github.com/l3aro/dfg-linearity-query/pkg/viz"
	"github.com/spf13/cobra"
)

// GraphOutput represents the output of the graph command
type GraphOutput struct {
	Dump    string   `json:"dump"`
	Design  string   `json:"design,omitempty"`
	Nodes   int      `json:"nodes"`
	Edges   int      `json:"edges"`
	Filter  string   `json:"filter,omitempty"`
	Focus   string   `json:"focus,omitempty"`
	Depth   int      `json:"depth,omitempty"`
	Written []string `json:"written"`
}

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Render the signal dependence graph as DOT or HTML",
	Long: `Builds the signal dependence graph of a dump, optionally filtered to one
verdict class or focused backward from a signal, and writes Graphviz DOT
and/or a self-contained interactive HTML page.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGraph(args[0], cmd)
	},
}

func runGraph(path string, cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	filterFlag, _ := cmd.Flags().GetString("filter")
	filter, err := sdg.ParseFilter(filterFlag)
	if err != nil {
		return err
	}

	focus, _ := cmd.Flags().GetString("focus")
	depth, _ := cmd.Flags().GetInt("depth")
	if !cmd.Flags().Changed("depth") {
		depth = cfg.FocusDepth
	}

	split, _ := cmd.Flags().GetBool("split")
	if split && (filter != sdg.FilterNone || focus != "") {
		return fmt.Errorf("--split cannot be combined with --filter or --focus")
	}

	a, err := analyzeDump(path, cfg.Policy())
	if err != nil {
		return err
	}

	sub, err := a.Select(sdg.SelectOptions{Filter: filter, Focus: focus, Depth: depth})
	if err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	stem := dumpStem(path)
	var written []string

	if split {
		for _, class := range []sdg.Filter{sdg.FilterLinear, sdg.FilterNonlinear} {
			s, err := a.Select(sdg.SelectOptions{Filter: class})
			if err != nil {
				return err
			}
			full := filepath.Join(outDir, fmt.Sprintf("%s_%s.dot", stem, class))
			if err := writeDOTFile(full, s); err != nil {
				return err
			}
			written = append(written, full)
		}
	} else {
		full := filepath.Join(outDir, stem+".dot")
		if err := writeDOTFile(full, sub); err != nil {
			return err
		}
		written = append(written, full)
	}

	html, _ := cmd.Flags().GetBool("html")
	if html {
		full := filepath.Join(outDir, stem+".html")
		file, err := os.Create(full)
		if err != nil {
			return fmt.Errorf("creating %s: %w", full, err)
		}
		err = viz.WriteHTML(file, sub, a.Metrics)
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing HTML: %w", err)
		}
		written = append(written, full)
	}

	output := GraphOutput{
		Dump:    path,
		Design:  a.Design.Name,
		Nodes:   len(sub.Nodes),
		Edges:   len(sub.Edges),
		Filter:  string(filter),
		Focus:   focus,
		Written: written,
	}
	if focus != "" {
		output.Depth = depth
	}

	printGraphOutput(output, cmd)
	return nil
}

func writeDOTFile(path string, sub *sdg.Subgraph) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	err = viz.WriteDOT(file, sub)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing DOT: %w", err)
	}
	return nil
}

func printGraphOutput(output GraphOutput, cmd *cobra.Command) {
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

	fmt.Printf("=== Dependence Graph: %s ===\n\n", output.Dump)
	if output.Design != "" {
		fmt.Printf("Design: %s\n", output.Design)
	}
	fmt.Printf("Nodes: %d, Edges: %d\n", output.Nodes, output.Edges)
	if output.Filter != "" {
		fmt.Printf("Filter: %s\n", output.Filter)
	}
	if output.Focus != "" {
		fmt.Printf("Focus: %s (depth %d)\n", output.Focus, output.Depth)
	}

	fmt.Println("\nWritten:")
	for _, w := range output.Written {
		fmt.Printf("  %s\n", w)
	}
}

func init() {
	graphCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	graphCmd.Flags().StringP("out", "o", "", "Output directory (default from config)")
	graphCmd.Flags().String("filter", "", "Keep only one verdict class: linear or nonlinear")
	graphCmd.Flags().String("focus", "", "Focus backward from this signal")
	graphCmd.Flags().Int("depth", 2, "Backward depth for --focus (default from config)")
	graphCmd.Flags().Bool("html", false, "Also write the interactive HTML page")
	graphCmd.Flags().Bool("split", false, "Write one DOT file per verdict class")
}
