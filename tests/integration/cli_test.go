// Package integration provides integration tests for cslcite commands.
package integration

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	binary     string
	binaryOnce sync.Once
	binaryErr  error
)

// getBinary builds the cslcite binary once and returns its path.
func getBinary(t *testing.T) string {
	t.Helper()
	binaryOnce.Do(func() {
		// Get module root directory
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			binaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "cslcite-test-*")
		if err != nil {
			binaryErr = err
			return
		}
		binary = filepath.Join(tmpDir, "cslcite")

		cmd := exec.Command("go", "build", "-o", binary, "./cmd/cslcite")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			binaryErr = &buildError{output: string(output), err: err}
			return
		}
	})
	if binaryErr != nil {
		t.Fatalf("failed to build cslcite: %v", binaryErr)
	}
	return binary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

// fixture returns the path of the shared host-data fixture.
func fixture(t *testing.T) string {
	t.Helper()
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filepath.Dir(filepath.Dir(filename))), "testdata", "hostdata.jsonl")
}

// setupWorkspace creates a config directory for XDG_CONFIG_HOME with a journal
// configuration and a database imported from the fixture.
func setupWorkspace(t *testing.T, application string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configDir := filepath.Join(tmpDir, "config", "cslcite")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	cfg := "application: " + application + "\n" +
		"base_url: https://example.org\n" +
		"db_path: " + filepath.Join(tmpDir, "cslcite.db") + "\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	if out, err := run(t, tmpDir, "import", fixture(t)); err != nil {
		t.Fatalf("import failed: %v\nOutput: %s", err, out)
	}
	return tmpDir
}

// run executes cslcite in dir with XDG_CONFIG_HOME pointing at the workspace config.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getBinary(t), args...)
	cmd.Dir = dir
	env := []string{}
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "CSLCITE_") && !strings.HasPrefix(kv, "XDG_CONFIG_HOME=") {
			env = append(env, kv)
		}
	}
	cmd.Env = append(env, "XDG_CONFIG_HOME="+filepath.Join(dir, "config"))
	output, err := cmd.Output()
	return string(output), err
}

func exitCode(err error) int {
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return -1
}

func TestImport(t *testing.T) {
	dir := setupWorkspace(t, "journal")

	out, err := run(t, dir, "import", fixture(t))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var result struct {
		Status  string         `json:"status"`
		Entries int            `json:"entries"`
		Tables  map[string]int `json:"tables"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if result.Status != "imported" || result.Entries != 13 {
		t.Errorf("result = %+v", result)
	}
	if result.Tables["submissions"] != 3 {
		t.Errorf("submissions = %d, want 3", result.Tables["submissions"])
	}
}

func TestCite(t *testing.T) {
	dir := setupWorkspace(t, "journal")

	out, err := run(t, dir, "cite", "jex", "10", "--style", "apa")
	if err != nil {
		t.Fatalf("cite failed: %v\nOutput: %s", err, out)
	}
	var result struct {
		Style    string `json:"style"`
		Citation string `json:"citation"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if !strings.Contains(result.Citation, `<a href="https://doi.org/10.1234/jex.10">`) {
		t.Errorf("citation lacks DOI link: %s", result.Citation)
	}

	// Primary style when none is given, plain text with --human
	out, err = run(t, dir, "cite", "jex", "10", "--human")
	if err != nil {
		t.Fatalf("cite --human failed: %v", err)
	}
	if strings.Contains(out, "<") || !strings.Contains(out, "Smith") {
		t.Errorf("human citation = %q", out)
	}
}

func TestCiteNotFound(t *testing.T) {
	dir := setupWorkspace(t, "journal")

	tests := [][]string{
		{"cite", "nope", "10"},
		{"cite", "jex", "99"},
		{"cite", "jex", "10", "--publication", "999"},
	}
	for _, args := range tests {
		_, err := run(t, dir, args...)
		if code := exitCode(err); code != 4 {
			t.Errorf("%v exit code = %d, want 4", args, code)
		}
	}
}

func TestRecord(t *testing.T) {
	dir := setupWorkspace(t, "journal")

	out, err := run(t, dir, "record", "jex", "10")
	if err != nil {
		t.Fatalf("record failed: %v\nOutput: %s", err, out)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if rec["type"] != "article-journal" {
		t.Errorf("type = %v, want article-journal", rec["type"])
	}
	if rec["container-title"] != "Journal of Examples" {
		t.Errorf("container-title = %v", rec["container-title"])
	}
	if rec["publisher-place"] != "Vancouver" {
		t.Errorf("publisher-place = %v", rec["publisher-place"])
	}
	if _, ok := rec["original-date"]; !ok {
		t.Error("original-date missing for a submission with two published versions")
	}
}

func TestDownload(t *testing.T) {
	dir := setupWorkspace(t, "journal")

	out, err := run(t, dir, "download", "jex", "10")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if !strings.HasPrefix(out, "TY  - JOUR\n") {
		t.Errorf("RIS body = %q", out)
	}

	out, err = run(t, dir, "download", "jex", "10", "--format", "bibtex", "-o", ".")
	if err != nil {
		t.Fatalf("download -o failed: %v\nOutput: %s", err, out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Sampling bipartite graphs.bib"))
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if !strings.HasPrefix(string(data), "@article{Smith2021,") {
		t.Errorf("BibTeX body = %q", data)
	}

	_, err = run(t, dir, "download", "jex", "10", "--format", "nope")
	if code := exitCode(err); code != 4 {
		t.Errorf("unknown format exit code = %d, want 4", code)
	}
}

func TestDownloadAppend(t *testing.T) {
	dir := setupWorkspace(t, "journal")
	bib := filepath.Join(dir, "refs.bib")

	for i, want := range []string{"appended", "skipped"} {
		out, err := run(t, dir, "download", "jex", "10", "--append", bib)
		if err != nil {
			t.Fatalf("append %d failed: %v\nOutput: %s", i, err, out)
		}
		var result struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
		}
		if result.Status != want {
			t.Errorf("append %d status = %q, want %q", i, result.Status, want)
		}
	}

	data, _ := os.ReadFile(bib)
	if n := strings.Count(string(data), "@article{"); n != 1 {
		t.Errorf("refs.bib has %d entries, want 1", n)
	}
}

func TestSettings(t *testing.T) {
	dir := setupWorkspace(t, "journal")

	out, err := run(t, dir, "settings", "set", "jex", "--primary", "ieee", "--downloads", "none")
	if err != nil {
		t.Fatalf("settings set failed: %v\nOutput: %s", err, out)
	}

	out, err = run(t, dir, "settings", "get", "jex")
	if err != nil {
		t.Fatalf("settings get failed: %v", err)
	}
	var s struct {
		Primary   string   `json:"primaryCitationStyle"`
		Styles    []string `json:"enabledCitationStyles"`
		Downloads []string `json:"enabledCitationDownloads"`
	}
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if s.Primary != "ieee" {
		t.Errorf("primary = %q, want ieee", s.Primary)
	}
	if s.Downloads == nil || len(s.Downloads) != 0 {
		t.Errorf("downloads = %#v, want empty list", s.Downloads)
	}
	if len(s.Styles) != 3 {
		t.Errorf("styles = %v, want the imported three", s.Styles)
	}

	_, err = run(t, dir, "settings", "set", "jex", "--primary", "nope")
	if code := exitCode(err); code != 3 {
		t.Errorf("invalid primary exit code = %d, want 3", code)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := setupWorkspace(t, "journal")
	path := filepath.Join(dir, "export.jsonl")

	if out, err := run(t, dir, "assign", "10", "7", "assistant"); err != nil {
		t.Fatalf("assign failed: %v\nOutput: %s", err, out)
	}
	if out, err := run(t, dir, "export", path); err != nil {
		t.Fatalf("export failed: %v\nOutput: %s", err, out)
	}
	out, err := run(t, dir, "import", path)
	if err != nil {
		t.Fatalf("import failed: %v\nOutput: %s", err, out)
	}
	var result struct {
		Entries int `json:"entries"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	// 13 fixture entries, less the legacy setting, plus the new assignment
	if result.Entries != 13 {
		t.Errorf("entries = %d, want 13", result.Entries)
	}
}

func TestMonographChapter(t *testing.T) {
	dir := setupWorkspace(t, "monograph")

	out, err := run(t, dir, "record", "press", "20", "--chapter", "30")
	if err != nil {
		t.Fatalf("record failed: %v\nOutput: %s", err, out)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if rec["type"] != "chapter" {
		t.Errorf("type = %v, want chapter", rec["type"])
	}
	if rec["URL"] != "https://example.org/press/catalog/book/collected-graphs/chapter/3" {
		t.Errorf("URL = %v", rec["URL"])
	}
}

func TestLocale(t *testing.T) {
	dir := setupWorkspace(t, "journal")

	out, err := run(t, dir, "locale", "pt_BR")
	if err != nil {
		t.Fatalf("locale failed: %v", err)
	}
	var result struct {
		Resolved string `json:"resolved"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if result.Resolved == "" {
		t.Error("resolved locale is empty")
	}
}

func TestPasswd(t *testing.T) {
	cmd := exec.Command(getBinary(t), "passwd", "--cost", "4", "--human")
	cmd.Stdin = strings.NewReader("secret\n")
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("passwd failed: %v", err)
	}
	if !strings.HasPrefix(string(out), "$2a$04$") {
		t.Errorf("hash = %q", out)
	}
}

func TestBibTeXList(t *testing.T) {
	dir := setupWorkspace(t, "journal")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"published only", []string{"bibtex", "jex"}, 1},
		{"all submissions", []string{"bibtex", "jex", "--all"}, 2},
		{"explicit ids", []string{"bibtex", "jex", "10", "11"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, dir, tt.args...)
			if err != nil {
				t.Fatalf("bibtex failed: %v\nOutput: %s", err, out)
			}
			if n := strings.Count(out, "@article{"); n != tt.want {
				t.Errorf("got %d entries, want %d:\n%s", n, tt.want, out)
			}
		})
	}

	out, _ := run(t, dir, "bibtex", "jex")
	if !strings.Contains(out, "@article{Smith2021,") {
		t.Errorf("missing Smith2021 entry:\n%s", out)
	}

	_, err := run(t, dir, "bibtex", "jex", "20")
	if code := exitCode(err); code != 4 {
		t.Errorf("submission of another context exit code = %d, want 4", code)
	}
}
