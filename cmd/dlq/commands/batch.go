package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/l3aro/dfg-linearity-query/internal/config"
	"github.com/l3aro/dfg-linearity-query/internal/log"
	"github.com/l3aro/dfg-linearity-query/internal/scanner"
	"github.com/l3aro/dfg-linearity-query/pkg/cache"
	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/dirty"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
	"github.com/l3aro/dfg-linearity-query/pkg/report"
	"github.com/l3aro/dfg-linearity-query/pkg/sdg"
	"github.com/spf13/cobra"
)

// Batch file statuses.
const (
	statusAnalyzed = "analyzed"
	statusCached   = "cached"
	statusSkipped  = "skipped"
	statusFailed   = "failed"
)

// BatchFileResult is the outcome for one discovered dump
type BatchFileResult struct {
	Dump        string  `json:"dump"`
	Design      string  `json:"design,omitempty"`
	Status      string  `json:"status"`
	Linear      int     `json:"linear,omitempty"`
	Nonlinear   int     `json:"nonlinear,omitempty"`
	LinearRatio float64 `json:"linear_ratio,omitempty"`
	Report      string  `json:"report,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// BatchOutput represents the output of the batch command
type BatchOutput struct {
	RootDir      string            `json:"root_dir"`
	Total        int               `json:"total"`
	Analyzed     int               `json:"analyzed"`
	Cached       int               `json:"cached"`
	Skipped      int               `json:"skipped"`
	Failed       int               `json:"failed"`
	Elapsed      string            `json:"elapsed"`
	CacheHitRate float64           `json:"cache_hit_rate,omitempty"`
	SummaryPath  string            `json:"summary_path,omitempty"`
	Files        []BatchFileResult `json:"files"`
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Analyze every DFG dump under a directory",
	Long: `Discovers DFG dumps under a directory, analyzes them in parallel, and
writes one report per dump plus a batch summary. A broken dump never stops
the batch; failures are collected and counted at the end. With --incremental
only dumps changed since the last run are re-analyzed.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		return runBatch(path, cmd)
	},
}

func runBatch(path string, cmd *cobra.Command) error {
	rootDir, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("getting absolute path: %w", err)
	}
	info, err := os.Stat(rootDir)
	if err != nil {
		return fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s (use 'dlq analyze')", path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	glob, _ := cmd.Flags().GetString("glob")
	files, err := discoverDumps(rootDir, glob)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", rootDir, err)
	}
	if len(files) == 0 {
		fmt.Println("No DFG dumps found.")
		return nil
	}

	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = cfg.Workers
	}
	incremental, _ := cmd.Flags().GetBool("incremental")
	force, _ := cmd.Flags().GetBool("force")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var tracker *dirty.Tracker
	if incremental {
		tracker = dirty.New(dirty.WithCacheDir(filepath.Join(rootDir, ".dlq", "cache")))
		if err := tracker.Load(); err != nil {
			log.Default().Warn("loading dirty state", "error", err)
		}
	}

	var store *cache.Store
	if cfg.CacheEnabled && !noCache {
		store, err = cache.OpenStore(cfg.EffectiveCacheDir(), int64(cfg.CacheMaxMB)*1024*1024)
		if err != nil {
			log.Default().Warn("analysis cache unavailable", "error", err)
			store = nil
		}
	}

	pol := cfg.Policy()
	format, err := report.ParseFormat(cfg.ReportFormat)
	if err != nil {
		return err
	}

	b := &batchRun{
		cfg:         cfg,
		pol:         pol,
		fingerprint: pol.Fingerprint(),
		format:      format,
		outDir:      outDir,
		incremental: incremental,
		force:       force,
		tracker:     tracker,
		store:       store,
		version:     RootCmd.Version,
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	var spinner *log.ProgressSpinner
	if !quiet && !jsonOutput {
		spinner = log.NewProgressSpinner(fmt.Sprintf("Analyzing %d dumps", len(files)))
		spinner.Start()
	}

	start := time.Now()
	results := make([]BatchFileResult, len(files))
	var mu sync.Mutex
	completed := 0

	// Workers never return errors; per-file failures land in results so one
	// broken dump cannot cancel the rest of the batch.
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i] = b.analyzeOne(f)
			mu.Lock()
			completed++
			if spinner != nil {
				spinner.Message(fmt.Sprintf("Analyzed %d/%d dumps", completed, len(files)))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if spinner != nil {
		spinner.Stop()
	}

	output := BatchOutput{
		RootDir: rootDir,
		Total:   len(files),
		Elapsed: time.Since(start).Round(time.Millisecond).String(),
		Files:   results,
	}
	var cleanPaths []string
	for i, r := range results {
		switch r.Status {
		case statusAnalyzed:
			output.Analyzed++
			cleanPaths = append(cleanPaths, files[i].FullPath)
		case statusCached:
			output.Cached++
			cleanPaths = append(cleanPaths, files[i].FullPath)
		case statusSkipped:
			output.Skipped++
		case statusFailed:
			output.Failed++
		}
	}

	// Failed dumps stay dirty so the next incremental run retries them.
	if tracker != nil {
		tracker.ClearDirty(cleanPaths)
		if err := tracker.Save(); err != nil {
			log.Default().Warn("saving dirty state", "error", err)
		}
	}
	if store != nil {
		if err := store.Flush(); err != nil {
			log.Default().Warn("saving analysis cache", "error", err)
		}
		output.CacheHitRate = store.HitRate()
	}

	summaryPath := filepath.Join(outDir, "batch_summary.txt")
	if err := writeBatchSummary(summaryPath, output); err != nil {
		log.Default().Warn("writing batch summary", "error", err)
	} else {
		output.SummaryPath = summaryPath
	}

	printBatchOutput(output, cmd)

	if output.Failed > 0 {
		return fmt.Errorf("%d of %d dumps failed", output.Failed, output.Total)
	}
	return nil
}

// discoverDumps walks root for DFG dump candidates. A glob pattern replaces
// the extension and content detection with a plain base-name match.
func discoverDumps(root, glob string) ([]scanner.FileInfo, error) {
	if glob != "" {
		if _, err := filepath.Match(glob, "probe"); err != nil {
			return nil, fmt.Errorf("invalid --glob pattern %q: %w", glob, err)
		}
	}

	opts := scanner.DefaultOptions()
	if glob != "" {
		opts.Extensions = nil
		opts.SniffContent = false
	}
	files, err := scanner.New(opts).Scan(root)
	if err != nil {
		return nil, err
	}
	if glob == "" {
		return files, nil
	}

	var out []scanner.FileInfo
	for _, f := range files {
		if ok, _ := filepath.Match(glob, filepath.Base(f.Path)); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// batchRun carries the per-run state shared by all workers. Tracker and
// store are safe for concurrent use; everything else is read-only.
type batchRun struct {
	cfg         *config.Config
	pol         linearity.Policy
	fingerprint string
	format      report.Format
	outDir      string
	incremental bool
	force       bool
	tracker     *dirty.Tracker
	store       *cache.Store
	version     string
}

// analyzeOne runs the single-dump pipeline for one discovered file.
// Failures are reported in the result, never returned.
func (b *batchRun) analyzeOne(f scanner.FileInfo) BatchFileResult {
	res := BatchFileResult{Dump: f.Path}
	reportPath := filepath.Join(b.outDir, reportFileName(batchStem(f.Path), b.format))

	var contentHash string
	if b.incremental && b.tracker != nil {
		changed, err := b.tracker.CheckAndMark(f.FullPath)
		if err != nil {
			res.Status = statusFailed
			res.Error = err.Error()
			return res
		}
		if !changed && !b.force && fileExists(reportPath) {
			res.Status = statusSkipped
			res.Report = reportPath
			return res
		}
		// CheckAndMark already hashed the dump; reuse it for the cache key.
		if h, ok := b.tracker.GetHash(f.FullPath); ok {
			contentHash = h
		}
	}

	data, err := os.ReadFile(f.FullPath)
	if err != nil {
		res.Status = statusFailed
		res.Error = err.Error()
		return res
	}
	if contentHash == "" {
		contentHash = cache.HashBytes(data)
	}

	var key string
	if b.store != nil {
		key = cache.Key(contentHash, b.fingerprint)
		if rec, ok := b.store.Get(key); ok && !b.force && fileExists(reportPath) {
			res.Status = statusCached
			res.Design = rec.Design
			res.Linear = rec.Metrics.LinearCount
			res.Nonlinear = rec.Metrics.NonlinearCount
			res.LinearRatio = rec.Metrics.LinearRatio
			res.Report = reportPath
			return res
		}
	}

	design, err := dfg.ParseString(string(data))
	if err != nil {
		res.Status = statusFailed
		res.Error = err.Error()
		return res
	}
	a := sdg.Analyze(design, b.pol)

	file, err := os.Create(reportPath)
	if err != nil {
		res.Status = statusFailed
		res.Error = err.Error()
		return res
	}
	opt := report.Options{Format: b.format, Signals: b.cfg.ReportSignals, Version: b.version}
	err = report.Write(file, a, opt)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		res.Status = statusFailed
		res.Error = err.Error()
		return res
	}

	if b.store != nil {
		b.store.Set(key, cache.NewRecord(f.Path, a))
	}

	res.Status = statusAnalyzed
	res.Design = design.Name
	res.Linear = a.Metrics.LinearCount
	res.Nonlinear = a.Metrics.NonlinearCount
	res.LinearRatio = a.Metrics.LinearRatio
	res.Report = reportPath
	return res
}

// batchStem flattens a relative dump path into a report file stem, so dumps
// with the same base name in different directories cannot collide.
func batchStem(rel string) string {
	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(stem, "/", "_")
}

// writeBatchSummary writes the one-file digest of a batch run.
func writeBatchSummary(path string, output BatchOutput) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintln(f, "DFG BATCH ANALYSIS SUMMARY")
	fmt.Fprintln(f, strings.Repeat("=", 50))
	fmt.Fprintf(f, "\nRoot:      %s\n", output.RootDir)
	fmt.Fprintf(f, "Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f, "Elapsed:   %s\n\n", output.Elapsed)
	fmt.Fprintf(f, "Dumps: %d total, %d analyzed, %d cached, %d skipped, %d failed\n\n",
		output.Total, output.Analyzed, output.Cached, output.Skipped, output.Failed)

	fmt.Fprintf(f, "%-10s %7s %10s %7s  %s\n", "STATUS", "LINEAR", "NONLINEAR", "RATIO", "DUMP")
	for _, r := range output.Files {
		switch r.Status {
		case statusAnalyzed, statusCached:
			fmt.Fprintf(f, "%-10s %7d %10d %6.1f%%  %s\n",
				r.Status, r.Linear, r.Nonlinear, r.LinearRatio*100, r.Dump)
		default:
			fmt.Fprintf(f, "%-10s %7s %10s %7s  %s\n", r.Status, "-", "-", "-", r.Dump)
			if r.Error != "" {
				fmt.Fprintf(f, "           error: %s\n", r.Error)
			}
		}
	}
	return nil
}

func printBatchOutput(output BatchOutput, cmd *cobra.Command) {
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

	fmt.Printf("=== Batch Analysis: %s ===\n\n", output.RootDir)
	fmt.Printf("Dumps:    %d\n", output.Total)
	fmt.Printf("Analyzed: %d\n", output.Analyzed)
	if output.Cached > 0 {
		fmt.Printf("Cached:   %d\n", output.Cached)
	}
	if output.Skipped > 0 {
		fmt.Printf("Skipped:  %d (unchanged)\n", output.Skipped)
	}
	if output.Failed > 0 {
		fmt.Printf("Failed:   %d\n", output.Failed)
		for _, r := range output.Files {
			if r.Status == statusFailed {
				fmt.Printf("  %s: %s\n", r.Dump, r.Error)
			}
		}
	}
	fmt.Printf("Elapsed:  %s\n", output.Elapsed)
	if output.CacheHitRate > 0 {
		fmt.Printf("Cache hit rate: %.0f%%\n", output.CacheHitRate*100)
	}
	if output.SummaryPath != "" {
		fmt.Printf("\nSummary: %s\n", output.SummaryPath)
	}
}

func init() {
	batchCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	batchCmd.Flags().StringP("out", "o", "", "Output directory for reports (default from config)")
	batchCmd.Flags().StringP("glob", "g", "", "Match dumps by base name instead of extension + content")
	batchCmd.Flags().IntP("workers", "w", 0, "Parallel workers (default from config)")
	batchCmd.Flags().BoolP("incremental", "i", false, "Skip dumps unchanged since the last run")
	batchCmd.Flags().Bool("force", false, "Re-analyze every dump, even unchanged or cached ones")
	batchCmd.Flags().Bool("no-cache", false, "Bypass the analysis cache")
}
