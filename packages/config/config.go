package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CastTypes lists the supported cast type tags for annotation columns.
var CastTypes = []string{"str", "audio", "image", "video"}

// DatasetConfig describes the annotation table and how to reshape it.
type DatasetConfig struct {
	AnnotationPath string            `yaml:"annotation_path"`
	DataframeOrder []string          `yaml:"dataframe_order"`
	CastColumns    map[string]string `yaml:"cast_columns"`
	Split          string            `yaml:"split"`
}

// HubConfig describes the target repository on the Hugging Face Hub.
type HubConfig struct {
	RepoID        string `yaml:"repo_id"`
	ConfigName    string `yaml:"config_name"`
	CommitMessage string `yaml:"commit_message"`
	Private       bool   `yaml:"private"`
	Revision      string `yaml:"revision"`
	Token         string `yaml:"token,omitempty"`
	Endpoint      string `yaml:"endpoint,omitempty"`
	MaxShardSize  string `yaml:"max_shard_size,omitempty"`

	// RequestsPerSecond caps calls to the Hub API, zero meaning the
	// default. LFS uploads to the storage backend are not limited.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
}

// Config is the root configuration for a push run.
type Config struct {
	Dataset     DatasetConfig `yaml:"dataset"`
	HuggingFace HubConfig     `yaml:"huggingface"`
}

// ValidationError reports a missing or invalid configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// GetRevision returns the target revision, defaulting to main.
func (c *HubConfig) GetRevision() string {
	if c.Revision == "" {
		return "main"
	}
	return c.Revision
}

// GetToken returns the access token, falling back to the HF_TOKEN
// environment variable when the config does not carry one.
func (c *HubConfig) GetToken() string {
	if c.Token != "" {
		return os.ExpandEnv(c.Token)
	}
	return os.Getenv("HF_TOKEN")
}

// DefaultRequestsPerSecond is the Hub API rate limit applied when the
// configuration does not set one.
const DefaultRequestsPerSecond = 8.0

// GetRequestsPerSecond returns the Hub API rate limit.
func (c *HubConfig) GetRequestsPerSecond() float64 {
	if c.RequestsPerSecond <= 0 {
		return DefaultRequestsPerSecond
	}
	return c.RequestsPerSecond
}

// GetMaxShardSize returns the shard byte budget, defaulting to 1GB.
func (c *HubConfig) GetMaxShardSize() (int64, error) {
	s := c.MaxShardSize
	if s == "" {
		s = "1GB"
	}
	return ParseByteSize(s)
}

// ParseByteSize parses a human-readable size such as "1GB" or "500MB".
func ParseByteSize(s string) (int64, error) {
	units := []struct {
		suffix string
		factor int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, u := range units {
		if !strings.HasSuffix(upper, u.suffix) {
			continue
		}
		digits := strings.TrimSpace(strings.TrimSuffix(upper, u.suffix))
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid size %q", s)
		}
		return n * u.factor, nil
	}
	return 0, fmt.Errorf("invalid size %q (expected e.g. 500MB, 1GB)", s)
}

// Load reads and validates the YAML configuration at path. Validation
// happens before any annotation or media file is touched.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a raw YAML configuration document.
func Parse(data []byte) (*Config, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the structural invariants the schema cannot express.
func (c *Config) Validate() error {
	if c.Dataset.AnnotationPath == "" {
		return &ValidationError{Field: "dataset.annotation_path", Reason: "required"}
	}
	if len(c.Dataset.DataframeOrder) == 0 {
		return &ValidationError{Field: "dataset.dataframe_order", Reason: "must list at least one column"}
	}
	if c.Dataset.Split == "" {
		return &ValidationError{Field: "dataset.split", Reason: "required"}
	}
	if c.HuggingFace.RepoID == "" {
		return &ValidationError{Field: "huggingface.repo_id", Reason: "required"}
	}
	if !strings.Contains(c.HuggingFace.RepoID, "/") {
		return &ValidationError{Field: "huggingface.repo_id", Reason: "must be of the form namespace/name"}
	}
	if c.HuggingFace.ConfigName == "" {
		return &ValidationError{Field: "huggingface.config_name", Reason: "required"}
	}

	for column, castType := range c.Dataset.CastColumns {
		if !isCastType(castType) {
			return &ValidationError{
				Field:  "dataset.cast_columns." + column,
				Reason: fmt.Sprintf("unknown cast type %q (supported: %s)", castType, strings.Join(CastTypes, ", ")),
			}
		}
	}

	// Every ordered column needs a cast entry so the transform is total.
	var missing []string
	for _, column := range c.Dataset.DataframeOrder {
		if _, ok := c.Dataset.CastColumns[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{
			Field:  "dataset.cast_columns",
			Reason: "missing cast types for columns: " + strings.Join(missing, ", "),
		}
	}

	if c.HuggingFace.MaxShardSize != "" {
		if _, err := ParseByteSize(c.HuggingFace.MaxShardSize); err != nil {
			return &ValidationError{Field: "huggingface.max_shard_size", Reason: err.Error()}
		}
	}

	return nil
}

func isCastType(t string) bool {
	for _, known := range CastTypes {
		if t == known {
			return true
		}
	}
	return false
}
