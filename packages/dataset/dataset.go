// Package dataset assembles the files pushed to the Hub for one
// configuration and split: JSONL data shards plus a dataset card.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cowcheng/huggingface-datasets-builder/packages/hub"
	"github.com/cowcheng/huggingface-datasets-builder/packages/table"
	"gopkg.in/yaml.v3"
)

// Dataset is one config/split worth of rows ready for upload.
type Dataset struct {
	ConfigName string
	Split      string
	Table      *table.Table
	// Features maps column names to their cast type tags.
	Features map[string]string
}

// New builds a Dataset from a transformed table.
func New(configName, split string, t *table.Table, features map[string]string) *Dataset {
	return &Dataset{
		ConfigName: configName,
		Split:      split,
		Table:      t,
		Features:   features,
	}
}

// ShardPath returns the repo path of shard i out of n.
func (d *Dataset) ShardPath(i, n int) string {
	return fmt.Sprintf("%s/%s-%05d-of-%05d.jsonl", d.ConfigName, d.Split, i, n)
}

// Files renders the commit payload: one or more JSONL shards capped at
// maxShardSize bytes each, plus the dataset card. Media cells are
// embedded as base64 content so the dataset is self-contained.
func (d *Dataset) Files(maxShardSize int64) ([]hub.CommitFile, error) {
	if maxShardSize <= 0 {
		return nil, fmt.Errorf("shard size must be positive, got %d", maxShardSize)
	}

	var shards [][]byte
	var current bytes.Buffer
	for _, row := range d.Table.Rows {
		line, err := d.encodeRow(row)
		if err != nil {
			return nil, err
		}
		if current.Len() > 0 && int64(current.Len()+len(line)) > maxShardSize {
			shards = append(shards, append([]byte(nil), current.Bytes()...))
			current.Reset()
		}
		current.Write(line)
		current.WriteByte('\n')
	}
	// An empty table still produces one empty shard so the split exists.
	shards = append(shards, append([]byte(nil), current.Bytes()...))

	files := make([]hub.CommitFile, 0, len(shards)+1)
	for i, shard := range shards {
		files = append(files, hub.CommitFile{
			Path:    d.ShardPath(i, len(shards)),
			Content: shard,
		})
	}

	card, err := d.Card()
	if err != nil {
		return nil, err
	}
	files = append(files, hub.CommitFile{Path: "README.md", Content: card})
	return files, nil
}

// encodeRow renders one row as a JSON object preserving column order.
func (d *Dataset) encodeRow(row []table.Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, column := range d.Table.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(row[i])
		if err != nil {
			return nil, fmt.Errorf("failed to encode column %q: %w", column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type cardDataFile struct {
	Split string `yaml:"split"`
	Path  string `yaml:"path"`
}

type cardConfig struct {
	ConfigName string         `yaml:"config_name"`
	DataFiles  []cardDataFile `yaml:"data_files"`
}

type cardFeature struct {
	Name  string `yaml:"name"`
	Dtype string `yaml:"dtype"`
}

type cardSplit struct {
	Name        string `yaml:"name"`
	NumExamples int    `yaml:"num_examples"`
}

type cardInfo struct {
	ConfigName string        `yaml:"config_name"`
	Features   []cardFeature `yaml:"features"`
	Splits     []cardSplit   `yaml:"splits"`
}

type cardMetadata struct {
	Configs     []cardConfig `yaml:"configs"`
	DatasetInfo []cardInfo   `yaml:"dataset_info"`
}

// Card renders the README.md dataset card advertising this config and
// split so the Hub's dataset viewer can locate the shards.
func (d *Dataset) Card() ([]byte, error) {
	meta := cardMetadata{
		Configs: []cardConfig{{
			ConfigName: d.ConfigName,
			DataFiles: []cardDataFile{{
				Split: d.Split,
				Path:  fmt.Sprintf("%s/%s-*", d.ConfigName, d.Split),
			}},
		}},
		DatasetInfo: []cardInfo{{
			ConfigName: d.ConfigName,
			Features:   d.cardFeatures(),
			Splits:     []cardSplit{{Name: d.Split, NumExamples: d.Table.NumRows()}},
		}},
	}

	front, err := yaml.Marshal(&meta)
	if err != nil {
		return nil, fmt.Errorf("failed to render dataset card: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(front)
	buf.WriteString("---\n")
	return buf.Bytes(), nil
}

func (d *Dataset) cardFeatures() []cardFeature {
	features := make([]cardFeature, 0, len(d.Table.Columns))
	for _, column := range d.Table.Columns {
		dtype := d.Features[column]
		if dtype == "str" || dtype == "" {
			dtype = "string"
		}
		features = append(features, cardFeature{Name: column, Dtype: dtype})
	}
	return features
}
