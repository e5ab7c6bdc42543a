// Package output renders human-readable progress and summaries for
// push runs.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// ConsoleFormatter writes colored, human-readable run output.
type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
	quiet   bool
}

// ConsoleOption configures a ConsoleFormatter.
type ConsoleOption func(*ConsoleFormatter)

// NewConsoleFormatter creates a console formatter writing to stdout by
// default.
func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

// WithWriter sets the output destination.
func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

// WithVerbose enables per-stage detail lines.
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

// WithNoColor disables colored output.
func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithQuiet suppresses everything except errors.
func WithQuiet(q bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.quiet = q
	}
}

// Step prints one pipeline stage line. The detail line only shows in
// verbose mode.
func (f *ConsoleFormatter) Step(name, detail string) {
	if f.quiet {
		return
	}
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", cyan("→"), name)
	if f.verbose && detail != "" {
		fmt.Fprintf(f.writer, "  %s\n", detail)
	}
}

// Summary describes a completed push.
type Summary struct {
	RepoID     string
	ConfigName string
	Split      string
	Revision   string
	Columns    []string
	Rows       int
	Shards     int
	Bytes      int64
	CommitOID  string
	CommitURL  string
	DryRun     bool
}

// FormatSummary prints the final result of a push run.
func (f *ConsoleFormatter) FormatSummary(s *Summary) {
	if f.quiet {
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	header := fmt.Sprintf("Pushed %s (%s/%s)", s.RepoID, s.ConfigName, s.Split)
	if s.DryRun {
		header = fmt.Sprintf("Dry run for %s (%s/%s)", s.RepoID, s.ConfigName, s.Split)
	}
	fmt.Fprintf(f.writer, "\n%s %s\n", green("✓"), bold(header))
	fmt.Fprintf(f.writer, "  Rows:    %d\n", s.Rows)
	fmt.Fprintf(f.writer, "  Columns: %s\n", strings.Join(s.Columns, ", "))
	fmt.Fprintf(f.writer, "  Shards:  %d (%s)\n", s.Shards, formatBytes(s.Bytes))
	if !s.DryRun {
		fmt.Fprintf(f.writer, "  Commit:  %s\n", s.CommitOID)
		if s.CommitURL != "" {
			fmt.Fprintf(f.writer, "  URL:     %s\n", s.CommitURL)
		}
	}
}

// FormatError prints an error to the configured writer.
func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("✗"), err)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
