package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "hfdsb",
	Short: "Build and push datasets to the Hugging Face Hub.",
	Long: `hfdsb reads a tabular annotation file (CSV/TSV), reorders and casts
its columns according to a YAML configuration, and pushes the resulting
dataset to the Hugging Face Hub under a named config and split.`,
	// Running the root with -c is the same as running push.
	RunE: pushCommand,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitUsageError)
	}
}

func init() {
	addPushFlags(rootCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
