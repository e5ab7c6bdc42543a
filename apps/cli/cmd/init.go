package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example dataset.yaml in the current directory",
	Long: `Write an example dataset.yaml configuration in the current directory.

Examples:
  hfdsb init
  hfdsb init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing dataset.yaml")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "dataset.yaml")
	if !forceInit {
		if _, err := os.Stat(configFile); err == nil {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", configFile)
		}
	}

	content := map[string]any{
		"dataset": map[string]any{
			"annotation_path": "annotations.tsv",
			"dataframe_order": []string{"audio", "transcript"},
			"cast_columns": map[string]string{
				"audio":      "audio",
				"transcript": "str",
			},
			"split": "train",
		},
		"huggingface": map[string]any{
			"repo_id":        "your-name/your-dataset",
			"config_name":    "default",
			"commit_message": "Upload dataset",
			"private":        false,
			"revision":       "main",
		},
	}

	data, err := yaml.Marshal(content)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configFile)
	return nil
}
