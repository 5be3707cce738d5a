// Package storage persists host data and plugin settings in JSONL and SQLite formats.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matsen/cslcite/internal/access"
	"github.com/matsen/cslcite/internal/reference"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
// Submissions embed all their publications, so lines can be long.
const MaxJSONLLineCapacity = 1024 * 1024

// Line types in a host-data JSONL file.
const (
	TypeContext    = "context"
	TypeSubmission = "submission"
	TypeIssue      = "issue"
	TypeSection    = "section"
	TypeAssignment = "assignment"
	TypeSetting    = "setting"
)

// envelope is one JSONL line: {"type": "...", "data": {...}}.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SettingRow is one row of the host's generic plugin settings table.
type SettingRow struct {
	ContextID int64           `json:"context_id"`
	Name      string          `json:"name"`
	Value     json.RawMessage `json:"value"`
}

// Dataset is the full content of a host-data JSONL file.
type Dataset struct {
	Contexts    []reference.Context
	Submissions []reference.Submission
	Issues      []reference.Issue
	Sections    []reference.Section
	Assignments []access.Assignment
	Settings    []SettingRow
}

// Len returns the number of entries in the dataset.
func (d *Dataset) Len() int {
	return len(d.Contexts) + len(d.Submissions) + len(d.Issues) +
		len(d.Sections) + len(d.Assignments) + len(d.Settings)
}

// ReadAll reads a host-data JSONL file. A missing file yields an empty dataset.
func ReadAll(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Dataset{}, nil
		}
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads JSONL entries from r.
func Decode(r io.Reader) (*Dataset, error) {
	ds := &Dataset{}
	scanner := bufio.NewScanner(r)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		if err := ds.add(env); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}

	return ds, nil
}

func (d *Dataset) add(env envelope) error {
	switch env.Type {
	case TypeContext:
		var v reference.Context
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		d.Contexts = append(d.Contexts, v)
	case TypeSubmission:
		var v reference.Submission
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		d.Submissions = append(d.Submissions, v)
	case TypeIssue:
		var v reference.Issue
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		d.Issues = append(d.Issues, v)
	case TypeSection:
		var v reference.Section
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		d.Sections = append(d.Sections, v)
	case TypeAssignment:
		var v access.Assignment
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		d.Assignments = append(d.Assignments, v)
	case TypeSetting:
		var v SettingRow
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		d.Settings = append(d.Settings, v)
	default:
		return fmt.Errorf("unknown entry type %q", env.Type)
	}
	return nil
}

// Append adds one entry to the end of a JSONL file.
func Append(path, typ string, v any) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening data file for append: %w", err)
	}
	defer f.Close()

	return writeEntry(f, typ, v)
}

// WriteAll writes the dataset to a JSONL file, replacing existing content.
func WriteAll(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating data file: %w", err)
	}
	defer f.Close()

	for _, v := range ds.Contexts {
		if err := writeEntry(f, TypeContext, v); err != nil {
			return err
		}
	}
	for _, v := range ds.Sections {
		if err := writeEntry(f, TypeSection, v); err != nil {
			return err
		}
	}
	for _, v := range ds.Issues {
		if err := writeEntry(f, TypeIssue, v); err != nil {
			return err
		}
	}
	for _, v := range ds.Submissions {
		if err := writeEntry(f, TypeSubmission, v); err != nil {
			return err
		}
	}
	for _, v := range ds.Assignments {
		if err := writeEntry(f, TypeAssignment, v); err != nil {
			return err
		}
	}
	for _, v := range ds.Settings {
		if err := writeEntry(f, TypeSetting, v); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(w io.Writer, typ string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", typ, err)
	}
	line, err := json.Marshal(envelope{Type: typ, Data: data})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", typ, err)
	}
	if _, err := w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing %s: %w", typ, err)
	}
	return nil
}
