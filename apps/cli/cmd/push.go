package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cowcheng/huggingface-datasets-builder/packages/builder"
	"github.com/cowcheng/huggingface-datasets-builder/packages/config"
	"github.com/cowcheng/huggingface-datasets-builder/packages/history"
	"github.com/cowcheng/huggingface-datasets-builder/packages/hub"
	"github.com/cowcheng/huggingface-datasets-builder/packages/output"
	"github.com/cowcheng/huggingface-datasets-builder/packages/table"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	configFlag  string
	dryRunFlag  bool
	watchFlag   bool
	verboseFlag bool
	quietFlag   bool
	noColorFlag bool
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Build the dataset and push it to the Hub",
	Long: `Build the dataset described by the YAML configuration and push it
to the Hugging Face Hub.

Examples:
  hfdsb push -c dataset.yaml
  hfdsb push -c dataset.yaml --dry-run
  hfdsb push -c dataset.yaml --watch`,
	RunE: pushCommand,
}

func addPushFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to the YAML configuration file")
	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Build the dataset files but skip the upload")
	cmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the annotation and config files and re-push on change")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
	cmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all output except errors")
	cmd.Flags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
}

func init() {
	addPushFlags(pushCmd)
}

func newLogger() *zap.Logger {
	if !verboseFlag {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// exitCodeFor maps pipeline errors onto the CLI's exit codes.
func exitCodeFor(err error) int {
	var validationErr *config.ValidationError
	if errors.As(err, &validationErr) {
		return ExitConfigError
	}
	var columnErr *table.ColumnError
	var castErr *table.CastError
	var pathErr *os.PathError
	if errors.As(err, &columnErr) || errors.As(err, &castErr) || errors.As(err, &pathErr) {
		return ExitDataError
	}
	var apiErr *hub.APIError
	if errors.As(err, &apiErr) {
		return ExitUploadError
	}
	return ExitUploadError
}

func pushCommand(cmd *cobra.Command, args []string) error {
	if configFlag == "" {
		fmt.Fprintln(cmd.OutOrStderr(), "error: --config is required")
		os.Exit(ExitUsageError)
	}

	formatter := output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithVerbose(verboseFlag),
		output.WithQuiet(quietFlag),
		output.WithNoColor(noColorFlag),
	)

	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	if err := runPush(cmd, formatter, logger); err != nil {
		formatter.FormatError(err)
		os.Exit(exitCodeFor(err))
	}

	if !watchFlag {
		return nil
	}
	return watchAndPush(cmd, formatter, logger)
}

// runPush executes one full pipeline pass.
func runPush(cmd *cobra.Command, formatter *output.ConsoleFormatter, logger *zap.Logger) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	b := builder.New(cfg,
		builder.WithLogger(logger),
		builder.WithDryRun(dryRunFlag),
	)

	formatter.Step("Loading annotation table", cfg.Dataset.AnnotationPath)
	t, err := b.Load()
	if err != nil {
		return err
	}

	formatter.Step("Transforming columns", fmt.Sprintf("order=%v", cfg.Dataset.DataframeOrder))
	transformed, err := b.Transform(t)
	if err != nil {
		return err
	}

	formatter.Step("Pushing to "+cfg.HuggingFace.RepoID,
		fmt.Sprintf("config=%s split=%s revision=%s", cfg.HuggingFace.ConfigName, cfg.Dataset.Split, cfg.HuggingFace.GetRevision()))
	result, err := b.Upload(cmd.Context(), transformed)
	if err != nil {
		return err
	}

	formatter.FormatSummary(&output.Summary{
		RepoID:     result.RepoID,
		ConfigName: result.ConfigName,
		Split:      result.Split,
		Revision:   result.Revision,
		Columns:    result.Columns,
		Rows:       result.Rows,
		Shards:     result.Shards,
		Bytes:      result.Bytes,
		CommitOID:  result.CommitOID,
		CommitURL:  result.CommitURL,
		DryRun:     result.DryRun,
	})

	if !result.DryRun {
		recordHistory(cmd, result)
	}
	return nil
}

// recordHistory appends the push to the local ledger. Ledger failures
// are warnings, never push failures.
func recordHistory(cmd *cobra.Command, result *builder.Result) {
	path, err := history.DefaultPath()
	if err == nil {
		var store *history.Store
		store, err = history.Open(path)
		if err == nil {
			defer store.Close()
			_, err = store.Record(history.Entry{
				RepoID:     result.RepoID,
				ConfigName: result.ConfigName,
				Split:      result.Split,
				Revision:   result.Revision,
				Rows:       result.Rows,
				Bytes:      result.Bytes,
				CommitOID:  result.CommitOID,
			})
		}
	}
	if err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "warning: failed to record push history: %v\n", err)
	}
}

// watchAndPush re-runs the pipeline whenever the config or annotation
// file changes, until interrupted.
func watchAndPush(cmd *cobra.Command, formatter *output.ConsoleFormatter, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watched := map[string]bool{
		filepath.Clean(configFlag): true,
	}
	if cfg, err := config.Load(configFlag); err == nil {
		watched[filepath.Clean(cfg.Dataset.AnnotationPath)] = true
	}
	dirs := make(map[string]bool)
	for file := range watched {
		dir := filepath.Dir(file)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	push := func(name string) {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFile changed: %s\nRe-pushing...\n\n", name)
		if err := runPush(cmd, formatter, logger); err != nil {
			formatter.FormatError(err)
		}
	}
	return watchLoop(cmd.Context(), cmd.OutOrStdout(), watcher.Events, watcher.Errors, watched, sigCh, push, formatter.FormatError)
}

// watchLoop dispatches debounced pushes from inside the select loop, so
// a push finishes before the next one can start.
func watchLoop(ctx context.Context, out io.Writer, events <-chan fsnotify.Event, errCh <-chan error, watched map[string]bool, sigCh <-chan os.Signal, push func(name string), onError func(error)) error {
	debounce := time.NewTimer(WatchDebounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	var changed string
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) || !watched[filepath.Clean(event.Name)] {
				continue
			}
			changed = event.Name
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(WatchDebounceDelay)

		case <-debounce.C:
			push(changed)

		case err, ok := <-errCh:
			if !ok {
				return nil
			}
			onError(err)

		case <-sigCh:
			fmt.Fprintf(out, "\nStopping watch mode\n")
			return nil

		case <-ctx.Done():
			return context.Cause(ctx)
		}
	}
}
