package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/l3aro/dfg-linearity-query/internal/config"
	"github.com/l3aro/dfg-linearity-query/internal/healthcheck"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on configuration and the analysis pipeline",
	Long: `Checks the effective configuration, the operator policy, the cache and
output directories, and runs a built-in dump through the full analysis
pipeline to verify it works end to end.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, configPath, err := loadConfigWithPath()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		result, err := healthcheck.Check(cfg, configPath, configPath)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(result)

		if !result.Healthy() {
			return fmt.Errorf("health check failed: one or more checks reported an error")
		}

		return nil
	},
}

func loadConfigWithPath() (*config.Config, string, error) {
	projectConfigPath := ".dlq/config.yaml"
	projectExists := fileExists(projectConfigPath)

	home, _ := os.UserHomeDir()
	globalConfigPath := ""
	if home != "" {
		globalConfigPath = filepath.Join(home, ".dlq", "config.yaml")
	}
	globalExists := fileExists(globalConfigPath)

	var effectivePath string
	if projectExists {
		effectivePath = projectConfigPath
	} else if globalExists {
		effectivePath = globalConfigPath
	} else {
		return nil, "", fmt.Errorf("no configuration found\n"+
			"Checked paths:\n"+
			"  - %s (project)\n"+
			"  - %s (global)\n"+
			"Run 'dlq init' to create a configuration file",
			projectConfigPath, globalConfigPath)
	}

	cfg, err := config.LoadFromFile(effectivePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config from %s: %w", effectivePath, err)
	}

	return cfg, effectivePath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func displayDoctorResult(result *healthcheck.HealthCheckResult) {
	fmt.Printf("Using config: %s (%s)\n\n", result.EffectivePath, result.EffectiveScope)

	printCheckStatus("Policy", result.Policy)
	fmt.Println()
	printCheckStatus("Cache", result.Cache)
	fmt.Println()
	printCheckStatus("Output", result.Output)
	fmt.Println()
	printCheckStatus("Pipeline", result.Pipeline)
}

func printCheckStatus(label string, st healthcheck.CheckStatus) {
	fmt.Printf("%s:\n", label)
	fmt.Printf("  Status: %s %s\n", formatStatusIcon(st.Status), st.Status)
	if st.Detail != "" {
		fmt.Printf("  Detail: %s\n", st.Detail)
	}
	switch st.Status {
	case "error":
		if st.Error != "" {
			fmt.Printf("  Error: %s\n", st.Error)
		}
	case "warning":
		if st.Error != "" {
			fmt.Printf("  Warning: %s\n", st.Error)
		}
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case "ok":
		return "✓"
	case "warning":
		return "◐"
	case "disabled":
		return "-"
	case "error":
		return "✗"
	default:
		return "?"
	}
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}
