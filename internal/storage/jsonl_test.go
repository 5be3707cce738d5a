package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/cslcite/internal/access"
	"github.com/matsen/cslcite/internal/reference"
)

func TestReadAll_NonExistentFile(t *testing.T) {
	ds, err := ReadAll("/nonexistent/path/data.jsonl")
	if err != nil {
		t.Fatalf("ReadAll() error = %v (should return empty dataset for nonexistent file)", err)
	}
	if ds.Len() != 0 {
		t.Errorf("ReadAll() returned %d entries, want 0", ds.Len())
	}
}

func TestReadAll_Fixture(t *testing.T) {
	ds, err := ReadAll(hostData)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(ds.Contexts) != 2 || len(ds.Submissions) != 3 || len(ds.Issues) != 2 ||
		len(ds.Sections) != 2 || len(ds.Assignments) != 1 || len(ds.Settings) != 3 {
		t.Errorf("ReadAll() = %d contexts, %d submissions, %d issues, %d sections, %d assignments, %d settings",
			len(ds.Contexts), len(ds.Submissions), len(ds.Issues), len(ds.Sections), len(ds.Assignments), len(ds.Settings))
	}

	pub := ds.Submissions[0].CurrentPublication()
	if pub == nil || pub.Authors[1].Role != reference.RoleTranslator {
		t.Errorf("current publication = %+v", pub)
	}
	book := ds.Submissions[2].CurrentPublication()
	if c := book.Chapter(3); c == nil || c.Authors[0].Role != reference.RoleChapterAuthor {
		t.Errorf("chapter = %+v", c)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad json", "{not json}\n", "line 1"},
		{"unknown type", `{"type":"user","data":{}}` + "\n", `unknown entry type "user"`},
		{"bad payload", "\n" + `{"type":"issue","data":{"id":"x"}}` + "\n", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Decode() error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Decode() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestWriteAllRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	ds := &Dataset{
		Contexts:    []reference.Context{{ID: 1, Path: "jex"}},
		Issues:      []reference.Issue{{ID: 2, Published: true}},
		Assignments: []access.Assignment{{SubmissionID: 3, UserID: 4, Role: access.RoleAssistant}},
		Settings:    []SettingRow{{ContextID: 1, Name: "publisherLocation", Value: json.RawMessage(`"Here"`)}},
	}
	if err := WriteAll(path, ds); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := Append(path, TypeSection, reference.Section{ID: 9}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if got.Len() != 5 {
		t.Errorf("ReadAll() len = %d, want 5", got.Len())
	}
	if got.Sections[0].ID != 9 || got.Assignments[0].Role != access.RoleAssistant {
		t.Errorf("ReadAll() = %+v", got)
	}
	if string(got.Settings[0].Value) != `"Here"` {
		t.Errorf("setting value = %s", got.Settings[0].Value)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), `{"type":"context","data":{`) {
		t.Errorf("file starts with %q", string(data)[:30])
	}
}
