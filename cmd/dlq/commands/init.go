package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/l3aro/dfg-linearity-query/internal/config"
	"github.com/l3aro/dfg-linearity-query/internal/healthcheck"
	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
	"github.com/spf13/cobra"
)

// Shift operators sit in the default nonlinear set; the init flow can move
// them to linear for designs where shifts are constant-amount wiring.
var shiftOps = []string{"Sll", "Srl", "Sla", "Sra"}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize dlq configuration interactively",
	Long: `Guides you through setting up dlq configuration step by step.
Creates a config file with the operator policy, cache and analysis settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	// === SECTION 1: Operator Policy ===
	var linearOps []string
	var nonlinearOps []string

	var presetChoice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Operator Policy - Decides which operators keep an expression linear").
				Description("Select a preset for the linear/nonlinear operator partition").
				Options(
					huh.NewOption("Default (arithmetic add/sub and wiring linear)", "default"),
					huh.NewOption("Strict (only add/sub linear)", "strict"),
					huh.NewOption("Custom (enter both operator lists)", "custom"),
				).
				Value(&presetChoice),
		),
	)
	err := form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	switch presetChoice {
	case "strict":
		linearOps = []string{"Plus", "Minus", "UnaryMinus"}
		nonlinearOps = append(append([]string{}, linearity.DefaultNonlinearOps...), "Concat", "Partselect")
	case "custom":
		linearInput := strings.Join(linearity.DefaultLinearOps, ", ")
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Linear operators (comma-separated)").
					Placeholder(linearInput).
					Value(&linearInput),
			),
		)
		err = form.Run()
		if err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}

		nonlinearInput := strings.Join(linearity.DefaultNonlinearOps, ", ")
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Nonlinear operators (comma-separated)").
					Placeholder(nonlinearInput).
					Value(&nonlinearInput),
			),
		)
		err = form.Run()
		if err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}

		linearOps = splitOps(linearInput)
		nonlinearOps = splitOps(nonlinearInput)
	}

	// The custom preset already placed shifts where the user wants them.
	if presetChoice != "custom" {
		var treatShiftsLinear bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Treat shift operators (Sll, Srl, Sla, Sra) as linear?").
					Description("A constant-amount shift is a scale by a power of two").
					Affirmative("Yes, shifts are linear").
					Negative("No, keep shifts nonlinear").
					Value(&treatShiftsLinear),
			),
		)
		err = form.Run()
		if err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}

		if treatShiftsLinear {
			if len(linearOps) == 0 {
				linearOps = append([]string{}, linearity.DefaultLinearOps...)
			}
			if len(nonlinearOps) == 0 {
				nonlinearOps = append([]string{}, linearity.DefaultNonlinearOps...)
			}
			linearOps = append(linearOps, shiftOps...)
			nonlinearOps = removeOps(nonlinearOps, shiftOps)
		}
	}

	// === SECTION 2: Analysis Settings ===
	cacheEnabled := true
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable the analysis cache?").
				Description("Caches per-dump results keyed by content and policy").
				Affirmative("Enable").
				Negative("Disable").
				Value(&cacheEnabled),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	workersInput := "4"
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Parallel workers for batch analysis").
				Placeholder("4").
				Value(&workersInput),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	workers, err := strconv.Atoi(strings.TrimSpace(workersInput))
	if err != nil || workers <= 0 {
		return fmt.Errorf("invalid worker count: %q", workersInput)
	}

	outputDir := "results"
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Output directory for reports").
				Placeholder("results").
				Value(&outputDir),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Global (~/.dlq/config.yaml)", "global"),
					huh.NewOption("Project (./.dlq/config.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// Determine save path
	var configPath string
	if saveLocationChoice == "global" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		configPath = filepath.Join(home, ".dlq", "config.yaml")
	} else {
		configPath = ".dlq/config.yaml"
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		err = form.Run()
		if err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	// === Build config struct ===
	cfg := config.DefaultConfig()
	cfg.LinearOperators = linearOps
	cfg.NonlinearOperators = nonlinearOps
	cfg.CacheEnabled = cacheEnabled
	cfg.Workers = workers
	cfg.OutputDir = strings.TrimSpace(outputDir)

	// Validate config before saving
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Show config preview
	pol := cfg.Policy()
	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Linear operators: %s\n", opsPreview(pol.LinearOps()))
	fmt.Printf("Nonlinear operators: %s\n", opsPreview(pol.NonlinearOps()))
	if cfg.CacheEnabled {
		fmt.Printf("Cache: enabled (max %d MB)\n", cfg.CacheMaxMB)
	} else {
		fmt.Println("Cache: disabled")
	}
	fmt.Printf("Workers: %d\n", cfg.Workers)
	fmt.Printf("Output directory: %s\n", cfg.OutputDir)
	fmt.Println("================================")

	// Save config
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)

	// === SECTION 4: Health Check ===
	fmt.Println("\n=== Running Health Check ===")

	// Load the saved config for health check
	loadedCfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}

	result, err := healthcheck.Check(loadedCfg, configPath, configPath)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// Display results
	fmt.Printf("\nConfig Scope: %s\n", result.SavedScope)
	if result.SavedScope == "global" {
		fmt.Printf("Config Path: %s\n", configPath)
	} else {
		absPath, _ := filepath.Abs(configPath)
		fmt.Printf("Config Path: %s\n", absPath)
	}

	fmt.Println()
	printCheckStatus("Policy", result.Policy)
	fmt.Println()
	printCheckStatus("Cache", result.Cache)
	fmt.Println()
	printCheckStatus("Output", result.Output)
	fmt.Println()
	printCheckStatus("Pipeline", result.Pipeline)

	fmt.Println("\n=== Initialization Complete ===")
	return nil
}

// splitOps parses a comma-separated operator list from a form input.
func splitOps(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// removeOps returns ops without any entry from drop.
func removeOps(ops []string, drop []string) []string {
	dropSet := make(map[string]struct{}, len(drop))
	for _, op := range drop {
		dropSet[op] = struct{}{}
	}
	var out []string
	for _, op := range ops {
		if _, ok := dropSet[op]; !ok {
			out = append(out, op)
		}
	}
	return out
}

// opsPreview renders an operator list for the preview, truncating long ones.
func opsPreview(ops []string) string {
	if len(ops) <= 6 {
		return strings.Join(ops, ", ")
	}
	return fmt.Sprintf("%s, ... (%d total)", strings.Join(ops[:6], ", "), len(ops))
}

func init() {
	RootCmd.AddCommand(initCmd)
}
