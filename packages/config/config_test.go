package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
dataset:
  annotation_path: data/annotations.tsv
  dataframe_order:
    - audio
    - transcript
  cast_columns:
    audio: audio
    transcript: str
  split: train
huggingface:
  repo_id: cowcheng/common-voice-zh
  config_name: default
  commit_message: Upload dataset
  private: true
  revision: main
`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "data/annotations.tsv", cfg.Dataset.AnnotationPath)
	assert.Equal(t, []string{"audio", "transcript"}, cfg.Dataset.DataframeOrder)
	assert.Equal(t, "audio", cfg.Dataset.CastColumns["audio"])
	assert.Equal(t, "train", cfg.Dataset.Split)
	assert.Equal(t, "cowcheng/common-voice-zh", cfg.HuggingFace.RepoID)
	assert.True(t, cfg.HuggingFace.Private)
}

func TestParse_MissingRepoID(t *testing.T) {
	yaml := `
dataset:
  annotation_path: data/annotations.tsv
  dataframe_order: [text]
  cast_columns:
    text: str
  split: train
huggingface:
  config_name: default
`
	_, err := Parse([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repo_id")
}

func TestParse_UnknownCastType(t *testing.T) {
	yaml := `
dataset:
  annotation_path: data/annotations.tsv
  dataframe_order: [text]
  cast_columns:
    text: tensor
  split: train
huggingface:
  repo_id: user/ds
  config_name: default
`
	_, err := Parse([]byte(yaml))
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "tensor")
}

func TestParse_OrderWithoutCast(t *testing.T) {
	yaml := `
dataset:
  annotation_path: data/annotations.tsv
  dataframe_order: [audio, transcript, speaker]
  cast_columns:
    audio: audio
  split: train
huggingface:
  repo_id: user/ds
  config_name: default
`
	_, err := Parse([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speaker")
	assert.Contains(t, err.Error(), "transcript")
}

func TestParse_SchemaRejectsWrongTypes(t *testing.T) {
	yaml := `
dataset:
  annotation_path: data/annotations.tsv
  dataframe_order: text
  cast_columns:
    text: str
  split: train
huggingface:
  repo_id: user/ds
  config_name: default
`
	_, err := Parse([]byte(yaml))
	require.Error(t, err)
}

func TestParse_RepoIDWithoutNamespace(t *testing.T) {
	yaml := `
dataset:
  annotation_path: data/annotations.tsv
  dataframe_order: [text]
  cast_columns:
    text: str
  split: train
huggingface:
  repo_id: just-a-name
  config_name: default
`
	_, err := Parse([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace/name")
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.HuggingFace.ConfigName)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestHubConfig_Defaults(t *testing.T) {
	cfg := &HubConfig{}
	assert.Equal(t, "main", cfg.GetRevision())

	size, err := cfg.GetMaxShardSize()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<30), size)

	assert.Equal(t, DefaultRequestsPerSecond, cfg.GetRequestsPerSecond())
}

func TestHubConfig_RequestsPerSecond(t *testing.T) {
	cfg := &HubConfig{RequestsPerSecond: 2.5}
	assert.Equal(t, 2.5, cfg.GetRequestsPerSecond())
}

func TestParse_RejectsNegativeRequestsPerSecond(t *testing.T) {
	yaml := `
dataset:
  annotation_path: data/annotations.tsv
  dataframe_order: [text]
  cast_columns:
    text: str
  split: train
huggingface:
  repo_id: user/ds
  config_name: default
  requests_per_second: -4
`
	_, err := Parse([]byte(yaml))
	require.Error(t, err)
}

func TestHubConfig_TokenFallsBackToEnv(t *testing.T) {
	t.Setenv("HF_TOKEN", "hf_env_token")

	cfg := &HubConfig{}
	assert.Equal(t, "hf_env_token", cfg.GetToken())

	cfg.Token = "hf_config_token"
	assert.Equal(t, "hf_config_token", cfg.GetToken())
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1GB", 1 << 30, false},
		{"500MB", 500 << 20, false},
		{"64KB", 64 << 10, false},
		{"128B", 128, false},
		{"10 MB", 10 << 20, false},
		{"", 0, true},
		{"MB", 0, true},
		{"-5MB", 0, true},
		{"tenMB", 0, true},
		{"2TB", 0, true},
		{"1.5GB", 0, true},
		{"1 024 MB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
