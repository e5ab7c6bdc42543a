package cmd

import (
	"fmt"
	"os"

	"github.com/cowcheng/huggingface-datasets-builder/packages/config"
	"github.com/spf13/cobra"
)

var validateConfigFlag string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file without pushing",
	Long: `Validate the YAML configuration for schema and structural errors
without touching the annotation file or the network.

Examples:
  hfdsb validate -c dataset.yaml`,
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFlag, "config", "c", "", "Path to the YAML configuration file")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	if validateConfigFlag == "" {
		fmt.Fprintln(cmd.OutOrStderr(), "error: --config is required")
		os.Exit(ExitUsageError)
	}

	cfg, err := config.Load(validateConfigFlag)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "Invalid: %v\n", err)
		os.Exit(ExitConfigError)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%s → %s/%s)\n",
		validateConfigFlag, cfg.Dataset.AnnotationPath, cfg.HuggingFace.RepoID, cfg.Dataset.Split)
	return nil
}
