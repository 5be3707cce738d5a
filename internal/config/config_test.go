package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matsen/cslcite/internal/access"
	"github.com/matsen/cslcite/internal/citation"
	"github.com/matsen/cslcite/internal/hooks"
	"github.com/matsen/cslcite/internal/style"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvApplication, EnvListenAddr, EnvBaseURL, EnvDBPath,
		EnvDefaultLocale, EnvStylesDir, EnvLocalesDir} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFile)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := DefaultPath(), "/custom/config/cslcite/config.yml"; got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
	if got, want := DefaultDBPath(), "/custom/config/cslcite/cslcite.db"; got != want {
		t.Errorf("DefaultDBPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := DefaultPath(), filepath.Join(home, ".config", "cslcite", "config.yml"); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestLoad_NotFound(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Application != citation.Journal {
		t.Errorf("Application = %q, want journal", cfg.Application)
	}
	if cfg.DefaultLocale != "en-US" {
		t.Errorf("DefaultLocale = %q, want en-US", cfg.DefaultLocale)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
}

func TestLoad_Valid(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
application: omp
base_url: https://press.example.org
db_path: ~/cslcite/press.db
default_locale: fr-CA
rate_limit:
  rps: 5
  burst: 10
users:
  - id: 1
    name: admin
    password_hash: $2a$10$abc
    roles: [manager]
styles:
  - id: house
    title: House Style
    enabled: true
    style_file: ~/styles/house.csl
downloads:
  - id: endnote
    title: EndNote
    enabled: true
    template: ris
    file_extension: enw
    content_type: application/x-endnote-refer
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Application != citation.Monograph {
		t.Errorf("Application = %q, want monograph", cfg.Application)
	}
	if cfg.BaseURL != "https://press.example.org" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want default", cfg.ListenAddr)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "cslcite/press.db"); cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
	if want := filepath.Join(home, "styles/house.csl"); cfg.Styles[0].StyleFile != want {
		t.Errorf("StyleFile = %q, want %q", cfg.Styles[0].StyleFile, want)
	}
	if cfg.RateLimit.RPS != 5 || cfg.RateLimit.Burst != 10 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	u, ok := cfg.User("admin")
	if !ok || u.ID != 1 || !u.AccessUser().Has(access.RoleManager) {
		t.Errorf("User(admin) = %+v, %v", u, ok)
	}
	if _, ok := cfg.User("nobody"); ok {
		t.Error("User(nobody) found")
	}
	if cfg.Downloads[0].FileExtension != "enw" {
		t.Errorf("Downloads[0] = %+v", cfg.Downloads[0])
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "application: [journal")
	if _, err := Load(path); err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "application: journal\nlisten_addr: :9000\n")
	t.Setenv(EnvApplication, "preprint")
	t.Setenv(EnvListenAddr, ":7000")
	t.Setenv(EnvDefaultLocale, "de-DE")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Application != citation.Preprint {
		t.Errorf("Application = %q, want preprint", cfg.Application)
	}
	if cfg.ListenAddr != ":7000" {
		t.Errorf("ListenAddr = %q, want :7000", cfg.ListenAddr)
	}
	if cfg.DefaultLocale != "de-DE" {
		t.Errorf("DefaultLocale = %q, want de-DE", cfg.DefaultLocale)
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("CSLCITE_BASE_URL=https://env.example.org\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv(EnvBaseURL) })
	os.Unsetenv(EnvBaseURL)

	LoadEnv(envFile)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "https://env.example.org" {
		t.Errorf("BaseURL = %q, want value from .env", cfg.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "file.txt")
	if err := os.WriteFile(tmpFile, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"legacy application name", func(c *Config) { c.Application = "ops" }, false},
		{"unknown application", func(c *Config) { c.Application = "blog" }, true},
		{"negative rps", func(c *Config) { c.RateLimit.RPS = -1 }, true},
		{"negative burst", func(c *Config) { c.RateLimit.Burst = -1 }, true},
		{"styles dir exists", func(c *Config) { c.StylesDir = tmpDir }, false},
		{"styles dir missing", func(c *Config) { c.StylesDir = "/nonexistent/path" }, true},
		{"locales dir is file", func(c *Config) { c.LocalesDir = tmpFile }, true},
		{"duplicate user", func(c *Config) {
			c.Users = []User{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}}
		}, true},
		{"unknown role", func(c *Config) {
			c.Users = []User{{ID: 1, Name: "a", Roles: []access.Role{"janitor"}}}
		}, true},
		{"style without id", func(c *Config) { c.Styles = []style.Config{{Title: "x"}} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", ConfigFile)

	cfg := Default()
	cfg.Application = citation.Preprint
	cfg.Users = []User{{ID: 7, Name: "ed", PasswordHash: "$2a$10$x", Roles: []access.Role{access.RoleSubEditor}}}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Application != citation.Preprint {
		t.Errorf("Application = %q, want preprint", loaded.Application)
	}
	if len(loaded.Users) != 1 || loaded.Users[0].Roles[0] != access.RoleSubEditor {
		t.Errorf("Users = %+v", loaded.Users)
	}
}

func TestRegisterCatalog(t *testing.T) {
	cfg := Default()
	cfg.Styles = []style.Config{
		{ID: "apa", Title: "APA (house)", IsEnabled: true, StyleFile: "/styles/apa.csl"},
		{ID: "house", Title: "House", IsEnabled: true},
	}
	cfg.Downloads = []style.Config{{ID: "endnote", Title: "EndNote", Template: style.TemplateRIS, FileExtension: "enw"}}

	h := hooks.NewRegistry()
	cfg.RegisterCatalog(h)
	reg := style.NewRegistry(h, nil)

	apa, err := reg.Resolve("apa")
	if err != nil {
		t.Fatalf("Resolve(apa) error = %v", err)
	}
	if apa.StyleFile != "/styles/apa.csl" {
		t.Errorf("apa.StyleFile = %q, want override", apa.StyleFile)
	}
	styles := reg.Styles()
	if last := styles[len(styles)-1]; last.ID != "house" {
		t.Errorf("last style = %q, want house", last.ID)
	}
	if _, err := reg.Resolve("endnote"); err != nil {
		t.Errorf("Resolve(endnote) error = %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"~/styles", filepath.Join(home, "styles")},
		{"~", home},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := ExpandPath(tt.path); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
