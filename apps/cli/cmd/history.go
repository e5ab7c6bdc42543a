package cmd

import (
	"fmt"

	"github.com/cowcheng/huggingface-datasets-builder/packages/history"
	"github.com/spf13/cobra"
)

var historyLimitFlag int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pushes recorded in the local ledger",
	RunE:  historyCommand,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Maximum number of entries to show")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	path, err := history.DefaultPath()
	if err != nil {
		return err
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(historyLimitFlag)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No pushes recorded yet.")
		return nil
	}

	for _, e := range entries {
		oid := e.CommitOID
		if len(oid) > 8 {
			oid = oid[:8]
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%s/%s) rows=%d commit=%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"), e.RepoID, e.ConfigName, e.Split, e.Rows, oid)
	}
	return nil
}
