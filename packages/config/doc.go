// Package config handles configuration loading and validation for hfdsb.
//
// It provides functionality for:
//   - Loading the builder configuration from a YAML file
//   - Structural validation (required keys, known cast types)
//   - JSON Schema validation of the raw document
package config
