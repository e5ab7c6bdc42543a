// Package builder runs the push pipeline: load the annotation table,
// reorder and cast its columns, assemble the dataset files, and commit
// them to the Hub.
package builder

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cowcheng/huggingface-datasets-builder/packages/config"
	"github.com/cowcheng/huggingface-datasets-builder/packages/dataset"
	"github.com/cowcheng/huggingface-datasets-builder/packages/hub"
	"github.com/cowcheng/huggingface-datasets-builder/packages/table"
	"go.uber.org/zap"
)

// Result describes one completed (or dry) push run.
type Result struct {
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

// Builder executes the configured pipeline.
type Builder struct {
	cfg    *config.Config
	client *hub.Client
	logger *zap.Logger
	dryRun bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithDryRun builds the dataset files but skips all network calls.
func WithDryRun(dry bool) Option {
	return func(b *Builder) {
		b.dryRun = dry
	}
}

// WithClient overrides the hub client, e.g. for tests.
func WithClient(client *hub.Client) Option {
	return func(b *Builder) {
		b.client = client
	}
}

// New creates a Builder for the given configuration.
func New(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = hub.NewClient(
			hub.WithToken(cfg.HuggingFace.GetToken()),
			hub.WithEndpoint(cfg.HuggingFace.Endpoint),
			hub.WithRequestsPerSecond(cfg.HuggingFace.GetRequestsPerSecond()),
			hub.WithLogger(b.logger),
		)
	}
	return b
}

// Load reads the annotation table from disk.
func (b *Builder) Load() (*table.Table, error) {
	t, err := table.Read(b.cfg.Dataset.AnnotationPath)
	if err != nil {
		return nil, err
	}
	b.logger.Info("loaded annotation table",
		zap.String("path", b.cfg.Dataset.AnnotationPath),
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", len(t.Columns)))
	return t, nil
}

// Transform reorders the table to dataframe_order and applies the
// configured casts. Media paths resolve relative to the annotation file.
func (b *Builder) Transform(t *table.Table) (*table.Table, error) {
	selected, err := t.Select(b.cfg.Dataset.DataframeOrder)
	if err != nil {
		return nil, err
	}
	baseDir := filepath.Dir(b.cfg.Dataset.AnnotationPath)
	if err := selected.Cast(b.cfg.Dataset.CastColumns, baseDir); err != nil {
		return nil, err
	}
	b.logger.Info("transformed table", zap.Strings("columns", selected.Columns))
	return selected, nil
}

// Upload assembles the dataset files and commits them to the Hub. In
// dry-run mode it stops after assembling the files.
func (b *Builder) Upload(ctx context.Context, t *table.Table) (*Result, error) {
	hubCfg := b.cfg.HuggingFace

	maxShard, err := hubCfg.GetMaxShardSize()
	if err != nil {
		return nil, err
	}

	ds := dataset.New(hubCfg.ConfigName, b.cfg.Dataset.Split, t, b.cfg.Dataset.CastColumns)
	files, err := ds.Files(maxShard)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RepoID:     hubCfg.RepoID,
		ConfigName: hubCfg.ConfigName,
		Split:      b.cfg.Dataset.Split,
		Revision:   hubCfg.GetRevision(),
		Columns:    t.Columns,
		Rows:       t.NumRows(),
		Shards:     len(files) - 1, // README.md is not a shard
		DryRun:     b.dryRun,
	}
	for _, f := range files {
		result.Bytes += int64(len(f.Content))
	}

	if b.dryRun {
		b.logger.Info("dry run, skipping upload", zap.Int("files", len(files)))
		return result, nil
	}

	if err := b.client.CreateRepo(ctx, hubCfg.RepoID, hubCfg.Private); err != nil {
		return nil, err
	}

	message := hubCfg.CommitMessage
	if message == "" {
		message = fmt.Sprintf("Upload %s/%s", hubCfg.ConfigName, b.cfg.Dataset.Split)
	}
	info, err := b.client.Commit(ctx, hubCfg.RepoID, hubCfg.GetRevision(), message, files)
	if err != nil {
		return nil, err
	}

	result.CommitOID = info.OID
	result.CommitURL = info.URL
	return result, nil
}

// Run executes load, transform and upload in order.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	t, err := b.Load()
	if err != nil {
		return nil, err
	}
	transformed, err := b.Transform(t)
	if err != nil {
		return nil, err
	}
	return b.Upload(ctx, transformed)
}
