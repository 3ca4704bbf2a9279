// Package commands provides the CLI commands for the dfg-linearity-query tool.
package commands

import (
	"github.com/l3aro/dfg-linearity-query/internal/config"
	"github.com/l3aro/dfg-linearity-query/internal/log"
	"github.com/spf13/cobra"
)

// logLevelForced records that a logging flag was given, so the config file's
// verbose setting cannot override the user's explicit choice.
var logLevelForced bool

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "dlq",
	Short: "dfg-linearity-query - Linearity analysis for hardware DFG dumps",
	Long: `dfg-linearity-query classifies the dataflow of a hardware design signal by
signal as linear or nonlinear, from a flattened DFG text dump.

Commands:
  analyze     Analyze one dump and write a linearity report
  batch       Analyze every dump under a directory
  graph       Render the signal dependence graph (DOT or HTML)
  signals     List signals with verdicts and graph structure
  compare     Diff the verdicts of two dumps

Use "dlq [command] --help" for more information about a command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		quiet, _ := cmd.Flags().GetBool("quiet")
		switch {
		case quiet:
			log.Default().SetLevel(log.ErrorLevel)
			logLevelForced = true
		case verbose:
			log.Default().SetLevel(log.DebugLevel)
			logLevelForced = true
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig reads the layered configuration and applies its logging choice.
// An explicit --verbose or --quiet flag wins over the config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Verbose && !logLevelForced {
		log.Default().SetLevel(log.DebugLevel)
	}
	return cfg, nil
}

func init() {
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	RootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only log errors, no spinner")

	// Add subcommands
	RootCmd.AddCommand(analyzeCmd)
	RootCmd.AddCommand(batchCmd)
	RootCmd.AddCommand(graphCmd)
	RootCmd.AddCommand(signalsCmd)
	RootCmd.AddCommand(compareCmd)
}
