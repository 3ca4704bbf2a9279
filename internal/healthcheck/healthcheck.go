package healthcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/dfg-linearity-query/internal/config"
	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/sdg"
)

// CheckStatus represents the health status of a single concern.
type CheckStatus struct {
	Status string // "ok", "warning", "error", "disabled"
	Detail string
	Error  string
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	SavedPath      string
	SavedScope     string // "global" or "project"
	EffectivePath  string
	EffectiveScope string // "global" or "project"
	Policy         CheckStatus
	Cache          CheckStatus
	Output         CheckStatus
	Pipeline       CheckStatus
}

// sampleDump is a three-signal design used to exercise the whole analysis
// pipeline without touching the filesystem.
const sampleDump = `Term:
(Term name:probe.a type:['Input'] msb:(IntConst 7) lsb:(IntConst 0))
(Term name:probe.sum type:['Wire'] msb:(IntConst 7) lsb:(IntConst 0))
(Term name:probe.sq type:['Wire'] msb:(IntConst 7) lsb:(IntConst 0))
Bind:
(Bind dest:probe.sum tree:(Operator Plus Next:(Terminal probe.a),(IntConst 1)))
(Bind dest:probe.sq tree:(Operator Times Next:(Terminal probe.a),(Terminal probe.a)))
`

// Check performs a health check against the given config.
// savedPath is where the user saved config (may be empty outside init).
// effectivePath is the config file actually in use (considering priority).
func Check(cfg *config.Config, savedPath string, effectivePath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &HealthCheckResult{
		SavedPath:      savedPath,
		SavedScope:     scopeFromPath(savedPath),
		EffectivePath:  effectivePath,
		EffectiveScope: scopeFromPath(effectivePath),
	}

	result.Policy = checkPolicy(cfg)
	result.Cache = checkCache(cfg)
	result.Output = checkOutput(cfg)
	result.Pipeline = checkPipeline(cfg)

	return result, nil
}

// Healthy reports whether no check ended in an error. Warnings and disabled
// features still count as healthy.
func (r *HealthCheckResult) Healthy() bool {
	for _, c := range []CheckStatus{r.Policy, r.Cache, r.Output, r.Pipeline} {
		if c.Status == "error" {
			return false
		}
	}
	return true
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, ".dlq")
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}

	return "project"
}

// checkPolicy verifies the operator partition the config resolves to.
func checkPolicy(cfg *config.Config) CheckStatus {
	pol := cfg.Policy()
	status := CheckStatus{
		Status: "ok",
		Detail: fmt.Sprintf("%d linear / %d nonlinear operators", len(pol.LinearOps()), len(pol.NonlinearOps())),
	}

	if overlap := cfg.PolicyOverlap(); len(overlap) > 0 {
		status.Status = "warning"
		status.Error = fmt.Sprintf("operators in both sets resolve to nonlinear: %s", strings.Join(overlap, ", "))
	}

	return status
}

// checkCache verifies the cache directory exists and is writable, and
// whether the persisted cache respects its size budget.
func checkCache(cfg *config.Config) CheckStatus {
	if !cfg.CacheEnabled {
		return CheckStatus{Status: "disabled", Detail: "caching is turned off"}
	}

	dir := cfg.EffectiveCacheDir()
	status := CheckStatus{Detail: dir}

	if err := os.MkdirAll(dir, 0755); err != nil {
		status.Status = "error"
		status.Error = fmt.Sprintf("cannot create cache directory: %v", err)
		return status
	}
	if err := probeWritable(dir); err != nil {
		status.Status = "error"
		status.Error = fmt.Sprintf("cache directory is not writable: %v", err)
		return status
	}

	used := dirSize(dir)
	usedMB := float64(used) / (1024 * 1024)
	status.Status = "ok"
	status.Detail = fmt.Sprintf("%s (%.1f MB used)", dir, usedMB)

	if used > int64(cfg.CacheMaxMB)*1024*1024 {
		status.Status = "warning"
		status.Error = fmt.Sprintf("cache uses %.1f MB, budget is %d MB", usedMB, cfg.CacheMaxMB)
	}

	return status
}

// checkOutput verifies the report output directory can be written. A
// directory created only for the probe is removed again.
func checkOutput(cfg *config.Config) CheckStatus {
	dir := cfg.OutputDir
	status := CheckStatus{Detail: dir}

	created := false
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
			status.Status = "error"
			status.Error = fmt.Sprintf("cannot create output directory: %v", mkErr)
			return status
		}
		created = true
	}

	if err := probeWritable(dir); err != nil {
		status.Status = "error"
		status.Error = fmt.Sprintf("output directory is not writable: %v", err)
		return status
	}

	if created {
		// Only succeeds while empty, which is exactly what we want
		os.Remove(dir)
	}

	status.Status = "ok"
	return status
}

// checkPipeline parses and analyzes a built-in dump under the configured
// policy. Only structural facts are asserted so a custom operator partition
// cannot fail the check.
func checkPipeline(cfg *config.Config) CheckStatus {
	d, err := dfg.ParseString(sampleDump)
	if err != nil {
		return CheckStatus{Status: "error", Error: fmt.Sprintf("built-in dump failed to parse: %v", err)}
	}

	a := sdg.Analyze(d, cfg.Policy())
	m := a.Metrics

	if m.TotalExpressions != 2 {
		return CheckStatus{
			Status: "error",
			Error:  fmt.Sprintf("expected 2 classified expressions, got %d", m.TotalExpressions),
		}
	}
	if m.LinearCount+m.NonlinearCount != m.TotalExpressions {
		return CheckStatus{
			Status: "error",
			Error:  "classification counts do not add up",
		}
	}

	return CheckStatus{
		Status: "ok",
		Detail: fmt.Sprintf("parsed %d signals, classified %d expressions", len(d.Signals), m.TotalExpressions),
	}
}

// probeWritable writes and removes a throwaway file in dir.
func probeWritable(dir string) error {
	probe := filepath.Join(dir, ".dlq-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return err
	}
	return os.Remove(probe)
}

// dirSize sums the sizes of the regular files directly inside dir.
func dirSize(dir string) int64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if info, err := e.Info(); err == nil {
			total += info.Size()
		}
	}
	return total
}
