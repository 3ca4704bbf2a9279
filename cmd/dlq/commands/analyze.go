package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/dfg-linearity-query/internal/log"
	"github.com/l3aro/dfg-linearity-query/pkg/cache"
	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
	"github.com/l3aro/dfg-linearity-query/pkg/report"
	"github.com/l3aro/dfg-linearity-query/pkg/sdg"
	"github.com/spf13/cobra"
)

// AnalyzeOutput represents the output of the analyze command
type AnalyzeOutput struct {
	Dump           string   `json:"dump"`
	Design         string   `json:"design,omitempty"`
	Signals        int      `json:"signals"`
	Bound          int      `json:"bound"`
	Linear         int      `json:"linear"`
	Nonlinear      int      `json:"nonlinear"`
	LinearRatio    float64  `json:"linear_ratio"`
	NonlinearRatio float64  `json:"nonlinear_ratio"`
	CacheHit       bool     `json:"cache_hit"`
	Written        []string `json:"written,omitempty"`
}

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze one DFG dump and write a linearity report",
	Long: `Parses a DFG dump, classifies every bound signal as linear or nonlinear
under the configured operator policy, and writes the report to the output
directory. With --summary only the short digest is printed and no files are
written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(args[0], cmd)
	},
}

func runAnalyze(path string, cmd *cobra.Command) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, expected a dump file: %s (use 'dlq batch')", path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = cfg.ReportFormat
	}
	if err := validateReportFormat(format); err != nil {
		return err
	}

	summary, _ := cmd.Flags().GetBool("summary")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading dump: %w", err)
	}

	pol := cfg.Policy()

	var store *cache.Store
	if cfg.CacheEnabled && !noCache {
		store, err = cache.OpenStore(cfg.EffectiveCacheDir(), int64(cfg.CacheMaxMB)*1024*1024)
		if err != nil {
			log.Default().Warn("analysis cache unavailable", "error", err)
			store = nil
		}
	}

	var key string
	if store != nil {
		key = cache.Key(cache.HashBytes(data), pol.Fingerprint())
	}

	// The digest only needs metrics, so a cache hit serves it without
	// parsing the dump again.
	if summary && store != nil {
		if rec, ok := store.Get(key); ok {
			log.Default().Debug("analysis cache hit", "dump", path, "design", rec.Design)
			output := AnalyzeOutput{
				Dump:           path,
				Design:         rec.Design,
				Signals:        rec.Signals,
				Bound:          rec.Bound,
				Linear:         rec.Metrics.LinearCount,
				Nonlinear:      rec.Metrics.NonlinearCount,
				LinearRatio:    rec.Metrics.LinearRatio,
				NonlinearRatio: rec.Metrics.NonlinearRatio,
				CacheHit:       true,
			}
			return printAnalyzeSummary(output, rec.Metrics, cmd)
		}
	}

	design, err := dfg.ParseString(string(data))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	a := sdg.Analyze(design, pol)

	if store != nil {
		store.Set(key, cache.NewRecord(path, a))
		if err := store.Flush(); err != nil {
			log.Default().Warn("saving analysis cache", "error", err)
		}
	}

	output := AnalyzeOutput{
		Dump:           path,
		Design:         design.Name,
		Signals:        len(design.Signals),
		Bound:          design.BoundCount(),
		Linear:         a.Metrics.LinearCount,
		Nonlinear:      a.Metrics.NonlinearCount,
		LinearRatio:    a.Metrics.LinearRatio,
		NonlinearRatio: a.Metrics.NonlinearRatio,
	}

	if summary {
		return printAnalyzeSummary(output, a.Metrics, cmd)
	}

	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	includeSignals, _ := cmd.Flags().GetBool("signals")
	if !cmd.Flags().Changed("signals") {
		includeSignals = cfg.ReportSignals
	}

	opt := report.Options{Signals: includeSignals, Version: RootCmd.Version}
	written, err := writeReports(outDir, dumpStem(path), a, format, opt)
	if err != nil {
		return err
	}
	output.Written = written

	printAnalyzeOutput(output, cmd)
	return nil
}

// analyzeDump parses a dump file and runs the full pipeline over it.
func analyzeDump(path string, pol linearity.Policy) (*sdg.Analysis, error) {
	design, err := dfg.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return sdg.Analyze(design, pol), nil
}

// validateReportFormat accepts the report package formats plus "both",
// which writes the text and JSON reports side by side.
func validateReportFormat(s string) error {
	if s == "both" {
		return nil
	}
	_, err := report.ParseFormat(s)
	return err
}

// writeReports renders a into outDir, one file per requested format, and
// returns the written paths.
func writeReports(outDir, stem string, a *sdg.Analysis, format string, opt report.Options) ([]string, error) {
	var formats []report.Format
	if format == "both" {
		formats = []report.Format{report.FormatText, report.FormatJSON}
	} else {
		f, err := report.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		formats = []report.Format{f}
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var written []string
	for _, f := range formats {
		full := filepath.Join(outDir, reportFileName(stem, f))
		file, err := os.Create(full)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", full, err)
		}
		opt.Format = f
		err = report.Write(file, a, opt)
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", full, err)
		}
		written = append(written, full)
	}
	return written, nil
}

func reportFileName(stem string, f report.Format) string {
	switch f {
	case report.FormatJSON:
		return stem + "_report.json"
	case report.FormatSummary:
		return stem + "_summary.txt"
	default:
		return stem + "_report.txt"
	}
}

// dumpStem strips the directory and extension from a dump path.
func dumpStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printAnalyzeSummary(output AnalyzeOutput, m *sdg.Metrics, cmd *cobra.Command) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	return report.SummaryMetrics(os.Stdout, m)
}

func printAnalyzeOutput(output AnalyzeOutput, cmd *cobra.Command) {
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

	fmt.Printf("=== Linearity Analysis: %s ===\n\n", output.Dump)
	if output.Design != "" {
		fmt.Printf("Design: %s\n", output.Design)
	}
	fmt.Printf("Signals: %d (%d bound)\n", output.Signals, output.Bound)
	fmt.Printf("Linear expressions:    %d (%.1f%%)\n", output.Linear, output.LinearRatio*100)
	fmt.Printf("Nonlinear expressions: %d (%.1f%%)\n", output.Nonlinear, output.NonlinearRatio*100)

	if len(output.Written) > 0 {
		fmt.Println("\nReports:")
		for _, w := range output.Written {
			fmt.Printf("  %s\n", w)
		}
	}
}

func init() {
	analyzeCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	analyzeCmd.Flags().StringP("format", "f", "", "Report format: text, json, summary or both (default from config)")
	analyzeCmd.Flags().StringP("out", "o", "", "Output directory for reports (default from config)")
	analyzeCmd.Flags().Bool("signals", false, "Include the per-signal breakdown in the report")
	analyzeCmd.Flags().Bool("summary", false, "Print the short digest instead of writing reports")
	analyzeCmd.Flags().Bool("no-cache", false, "Bypass the analysis cache")
}
