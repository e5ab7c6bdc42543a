// Package table implements the in-memory annotation table: delimited
// file loading, column reordering, and per-column type casting.
package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Media holds the loaded content of a media cell (audio, image, video).
// Path keeps the original file name so consumers can recover extensions.
type Media struct {
	Path  string `json:"path"`
	Bytes []byte `json:"bytes"`
}

// Value is a single table cell. Cells start as plain strings; a media
// cast replaces the cell content with loaded bytes.
type Value struct {
	Str   string
	Media *Media
}

// MarshalJSON encodes a cast cell the way the Hub's Audio/Image features
// do: plain strings stay strings, media cells become {bytes, path} with
// base64-encoded content.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Media != nil {
		return json.Marshal(v.Media)
	}
	return json.Marshal(v.Str)
}

// Table is an ordered set of named columns with row-major cells.
type Table struct {
	Columns []string
	Rows    [][]Value
}

// ColumnError reports an operation against a column that does not exist.
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q not found in annotation table", e.Column)
}

// CastError reports a media cast that could not load its referenced file.
type CastError struct {
	Column string
	Path   string
	Err    error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("failed to cast column %q: cannot read %q: %v", e.Column, e.Path, e.Err)
}

func (e *CastError) Unwrap() error { return e.Err }

// Read parses a delimited annotation file into a Table. Files with a
// .tsv extension are tab-separated, everything else is comma-separated.
// The first row is the header.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		reader.Comma = '\t'
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse annotation file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("annotation file %s is empty", path)
	}

	t := &Table{Columns: records[0]}
	for _, record := range records[1:] {
		row := make([]Value, len(record))
		for i, cell := range record {
			row[i] = Value{Str: cell}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// ColumnIndex returns the position of a named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Select returns a new table whose columns are exactly order, in that
// order. Columns not listed are dropped; a listed column missing from
// the table is an error.
func (t *Table) Select(order []string) (*Table, error) {
	indices := make([]int, len(order))
	for i, name := range order {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return nil, &ColumnError{Column: name}
		}
		indices[i] = idx
	}

	out := &Table{Columns: append([]string(nil), order...)}
	for _, row := range t.Rows {
		selected := make([]Value, len(indices))
		for i, idx := range indices {
			selected[i] = row[idx]
		}
		out.Rows = append(out.Rows, selected)
	}
	return out, nil
}

// Cast applies per-column type coercion in place. "str" is a passthrough;
// "audio", "image" and "video" treat cell values as file paths and load
// their content. Relative paths resolve against baseDir.
func (t *Table) Cast(casts map[string]string, baseDir string) error {
	for column, castType := range casts {
		if castType == "str" {
			continue
		}
		idx := t.ColumnIndex(column)
		if idx < 0 {
			// Columns dropped by the reorder keep their cast entries;
			// there is nothing to do for them.
			continue
		}
		for _, row := range t.Rows {
			cell := row[idx].Str
			resolved := cell
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(baseDir, resolved)
			}
			data, err := os.ReadFile(resolved)
			if err != nil {
				return &CastError{Column: column, Path: cell, Err: err}
			}
			row[idx] = Value{Media: &Media{Path: filepath.Base(cell), Bytes: data}}
		}
	}
	return nil
}
