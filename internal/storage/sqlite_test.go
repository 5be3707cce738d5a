package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/matsen/cslcite/internal/access"
	"github.com/matsen/cslcite/internal/reference"
	"github.com/matsen/cslcite/internal/settings"
)

const hostData = "../../testdata/hostdata.jsonl"

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRebuildFromJSONL(t *testing.T) {
	db := openTestDB(t)

	count, err := db.RebuildFromJSONL(hostData)
	if err != nil {
		t.Fatalf("RebuildFromJSONL() error = %v", err)
	}
	if count != 13 {
		t.Errorf("RebuildFromJSONL() count = %d, want 13", count)
	}

	counts, err := db.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	want := map[string]int{"contexts": 2, "submissions": 3, "issues": 2, "sections": 2}
	for table, n := range want {
		if counts[table] != n {
			t.Errorf("Counts()[%s] = %d, want %d", table, counts[table], n)
		}
	}

	// Rebuilding again replaces rather than duplicates
	if _, err := db.RebuildFromJSONL(hostData); err != nil {
		t.Fatalf("second RebuildFromJSONL() error = %v", err)
	}
	counts, _ = db.Counts(context.Background())
	if counts["submissions"] != 3 {
		t.Errorf("after rebuild submissions = %d, want 3", counts["submissions"])
	}
}

func TestHostDataLookups(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.RebuildFromJSONL(hostData); err != nil {
		t.Fatalf("RebuildFromJSONL() error = %v", err)
	}
	ctx := context.Background()

	c, err := db.ContextByPath(ctx, "jex")
	if err != nil {
		t.Fatalf("ContextByPath() error = %v", err)
	}
	if c.ID != 1 || c.LocalizedName("fr") != "Journal des Exemples" {
		t.Errorf("ContextByPath() = %+v", c)
	}

	sub, err := db.Submission(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Submission() error = %v", err)
	}
	if len(sub.Publications) != 2 || sub.CurrentPublication().Pages != "10-20" {
		t.Errorf("Submission() = %+v", sub)
	}

	// Submission of another context
	if _, err := db.Submission(ctx, 2, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("Submission(other context) error = %v, want ErrNotFound", err)
	}

	issue, err := db.Issue(ctx, 1)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !issue.Published || issue.Volume != "4" {
		t.Errorf("Issue() = %+v", issue)
	}

	series, err := db.Section(ctx, 2)
	if err != nil {
		t.Fatalf("Section() error = %v", err)
	}
	if series.LocalizedFullTitle("en", "en") != "Graph Theory: Methods" {
		t.Errorf("Section() title = %q", series.LocalizedFullTitle("en", "en"))
	}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"context path", func() error { _, err := db.ContextByPath(ctx, "nope"); return err }},
		{"context id", func() error { _, err := db.Context(ctx, 99); return err }},
		{"issue", func() error { _, err := db.Issue(ctx, 99); return err }},
		{"section", func() error { _, err := db.Section(ctx, 99); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrNotFound) {
				t.Errorf("error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSubmissions(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.RebuildFromJSONL(hostData); err != nil {
		t.Fatalf("RebuildFromJSONL() error = %v", err)
	}

	tests := []struct {
		contextID int64
		want      []int64
	}{
		{1, []int64{10, 11}},
		{2, []int64{20}},
		{99, nil},
	}
	for _, tt := range tests {
		subs, err := db.Submissions(context.Background(), tt.contextID)
		if err != nil {
			t.Fatalf("Submissions(%d) error = %v", tt.contextID, err)
		}
		var got []int64
		for _, s := range subs {
			got = append(got, s.ID)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("Submissions(%d) = %v, want %v", tt.contextID, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Submissions(%d)[%d] = %d, want %d", tt.contextID, i, got[i], tt.want[i])
			}
		}
	}
}

func TestPutAndList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, c := range []reference.Context{{ID: 2, Path: "b"}, {ID: 1, Path: "a"}} {
		if err := db.PutContext(ctx, c); err != nil {
			t.Fatalf("PutContext() error = %v", err)
		}
	}
	got, err := db.Contexts(ctx)
	if err != nil {
		t.Fatalf("Contexts() error = %v", err)
	}
	if len(got) != 2 || got[0].Path != "a" || got[1].Path != "b" {
		t.Errorf("Contexts() = %+v", got)
	}

	// Replace keeps a single row
	if err := db.PutIssue(ctx, reference.Issue{ID: 5, Volume: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := db.PutIssue(ctx, reference.Issue{ID: 5, Volume: "2"}); err != nil {
		t.Fatal(err)
	}
	issue, err := db.Issue(ctx, 5)
	if err != nil || issue.Volume != "2" {
		t.Errorf("Issue() = %+v, %v", issue, err)
	}
}

func TestAssignments(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.RebuildFromJSONL(hostData); err != nil {
		t.Fatalf("RebuildFromJSONL() error = %v", err)
	}
	ctx := context.Background()

	a := access.Assignment{SubmissionID: 11, UserID: 7, Role: access.RoleAssistant}
	if err := db.AddAssignment(ctx, a); err != nil {
		t.Fatalf("AddAssignment() error = %v", err)
	}
	if err := db.AddAssignment(ctx, a); err != nil {
		t.Fatalf("AddAssignment() duplicate error = %v", err)
	}

	got, err := db.Assignments(ctx, 11)
	if err != nil {
		t.Fatalf("Assignments() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Assignments() = %+v, want 2", got)
	}
	if got[0].UserID != 3 || got[0].Role != access.RoleSubEditor {
		t.Errorf("Assignments()[0] = %+v", got[0])
	}

	none, err := db.Assignments(ctx, 10)
	if err != nil || len(none) != 0 {
		t.Errorf("Assignments(10) = %+v, %v", none, err)
	}
}

func TestSettingsStore(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.RebuildFromJSONL(hostData); err != nil {
		t.Fatalf("RebuildFromJSONL() error = %v", err)
	}
	ctx := context.Background()

	s, err := db.Load(ctx, 1)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.PublisherLocation != "Vancouver" {
		t.Errorf("PublisherLocation = %q", s.PublisherLocation)
	}
	if len(s.EnabledCitationStyles) != 3 || s.EnabledCitationStyles[1] != "ieee" {
		t.Errorf("EnabledCitationStyles = %v", s.EnabledCitationStyles)
	}
	if s.EnabledCitationDownloads != nil {
		t.Errorf("EnabledCitationDownloads = %v, want nil (not configured)", s.EnabledCitationDownloads)
	}

	update := settings.Settings{
		PrimaryCitationStyle:     "ieee",
		EnabledCitationDownloads: []string{},
	}
	if err := db.Save(ctx, 1, update); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s, err = db.Load(ctx, 1)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.PrimaryCitationStyle != "ieee" || s.PublisherLocation != "" {
		t.Errorf("Load() after Save = %+v", s)
	}
	if s.EnabledCitationStyles != nil {
		t.Errorf("EnabledCitationStyles = %v, want nil after unset", s.EnabledCitationStyles)
	}
	if s.EnabledCitationDownloads == nil || len(s.EnabledCitationDownloads) != 0 {
		t.Errorf("EnabledCitationDownloads = %#v, want empty non-nil", s.EnabledCitationDownloads)
	}

	other, err := db.Load(ctx, 2)
	if err != nil {
		t.Fatalf("Load(2) error = %v", err)
	}
	if other.PrimaryCitationStyle != "" || other.EnabledCitationStyles != nil {
		t.Errorf("Load(2) = %+v, want zero settings", other)
	}
}

func TestDeleteLegacyGroupSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	ctx := context.Background()

	for _, key := range settings.LegacyGroupKeys {
		if err := putSetting(ctx, db.db, 1, key, "[1]"); err != nil {
			t.Fatal(err)
		}
	}
	if err := putSetting(ctx, db.db, 1, settings.KeyPublisherLocation, `"Here"`); err != nil {
		t.Fatal(err)
	}

	n, err := db.DeleteLegacyGroupSettings(ctx)
	if err != nil {
		t.Fatalf("DeleteLegacyGroupSettings() error = %v", err)
	}
	if n != int64(len(settings.LegacyGroupKeys)) {
		t.Errorf("DeleteLegacyGroupSettings() = %d, want %d", n, len(settings.LegacyGroupKeys))
	}

	// Reopening runs the cleanup too
	if err := putSetting(ctx, db.db, 2, "groupEditor", "[2]"); err != nil {
		t.Fatal(err)
	}
	db.Close()
	db, err = OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM plugin_settings").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("plugin_settings rows = %d, want 1", count)
	}
}

func TestRebuildDropsLegacySettings(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.RebuildFromJSONL(hostData); err != nil {
		t.Fatalf("RebuildFromJSONL() error = %v", err)
	}

	var count int
	err := db.db.QueryRow("SELECT COUNT(*) FROM plugin_settings WHERE setting_name = 'groupAuthor'").Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("groupAuthor rows = %d, want 0", count)
	}
}

func TestDatasetExport(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.RebuildFromJSONL(hostData); err != nil {
		t.Fatalf("RebuildFromJSONL() error = %v", err)
	}

	ds, err := db.Dataset(context.Background())
	if err != nil {
		t.Fatalf("Dataset() error = %v", err)
	}
	// The legacy groupAuthor setting is dropped on rebuild.
	if ds.Len() != 12 {
		t.Errorf("Dataset().Len() = %d, want 12", ds.Len())
	}
	if len(ds.Contexts) != 2 || ds.Contexts[0].Path != "jex" {
		t.Errorf("Contexts = %+v", ds.Contexts)
	}
	if len(ds.Assignments) != 1 || ds.Assignments[0].Role != access.RoleSubEditor {
		t.Errorf("Assignments = %+v", ds.Assignments)
	}

	path := filepath.Join(t.TempDir(), "export.jsonl")
	if err := WriteAll(path, ds); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	other := openTestDB(t)
	count, err := other.RebuildFromJSONL(path)
	if err != nil {
		t.Fatalf("RebuildFromJSONL(export) error = %v", err)
	}
	if count != 12 {
		t.Errorf("RebuildFromJSONL(export) count = %d, want 12", count)
	}
	sub, err := other.Submission(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Submission() error = %v", err)
	}
	if len(sub.Publications) != 2 {
		t.Errorf("len(Publications) = %d, want 2", len(sub.Publications))
	}
	s, err := other.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.PublisherLocation != "Vancouver" {
		t.Errorf("PublisherLocation = %q, want Vancouver", s.PublisherLocation)
	}
}
