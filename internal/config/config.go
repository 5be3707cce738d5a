// Package config loads the cslcite configuration file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/matsen/cslcite/internal/access"
	"github.com/matsen/cslcite/internal/citation"
	"github.com/matsen/cslcite/internal/hooks"
	"github.com/matsen/cslcite/internal/locale"
	"github.com/matsen/cslcite/internal/style"
)

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "cslcite"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// DBFile is the default database file name, next to the config file.
	DBFile = "cslcite.db"

	DefaultListenAddr = "127.0.0.1:8080"
	DefaultBaseURL    = "http://localhost:8080"
)

// ErrInvalid indicates a configuration value failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the contents of config.yml.
type Config struct {
	Application   citation.Application `yaml:"application"`
	BaseURL       string               `yaml:"base_url,omitempty"`
	ListenAddr    string               `yaml:"listen_addr,omitempty"`
	DBPath        string               `yaml:"db_path,omitempty"`
	StylesDir     string               `yaml:"styles_dir,omitempty"`  // CSL files overriding built-in styles
	LocalesDir    string               `yaml:"locales_dir,omitempty"` // locales-*.xml overriding built-in locales
	DefaultLocale string               `yaml:"default_locale,omitempty"`
	RateLimit     RateLimit            `yaml:"rate_limit,omitempty"`
	Users         []User               `yaml:"users,omitempty"`
	Styles        []style.Config       `yaml:"styles,omitempty"`
	Downloads     []style.Config       `yaml:"downloads,omitempty"`
}

// RateLimit bounds requests per client address. Zero RPS disables limiting.
type RateLimit struct {
	RPS   float64 `yaml:"rps,omitempty"`
	Burst int     `yaml:"burst,omitempty"`
}

// User is an account allowed to authenticate against the HTTP server.
type User struct {
	ID           int64         `yaml:"id"`
	Name         string        `yaml:"name"`
	PasswordHash string        `yaml:"password_hash"` // bcrypt
	Roles        []access.Role `yaml:"roles,omitempty"`
}

// AccessUser returns the access-control view of the account.
func (u User) AccessUser() *access.User {
	return &access.User{ID: u.ID, Name: u.Name, Roles: slices.Clone(u.Roles)}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Application:   citation.Journal,
		BaseURL:       DefaultBaseURL,
		ListenAddr:    DefaultListenAddr,
		DBPath:        DefaultDBPath(),
		DefaultLocale: locale.DefaultLocale,
	}
}

// Dir returns the configuration directory.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/cslcite.
func Dir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir)
}

// DefaultPath returns the path to config.yml.
func DefaultPath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, ConfigFile)
}

// DefaultDBPath returns the database path used when db_path is unset.
func DefaultDBPath() string {
	dir := Dir()
	if dir == "" {
		return DBFile
	}
	return filepath.Join(dir, DBFile)
}

// Load reads the configuration at path, or DefaultPath when path is empty.
// A missing file yields defaults. Environment overrides are applied and the
// result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandPath(path))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML, creating the directory.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) expandPaths() {
	c.DBPath = ExpandPath(c.DBPath)
	c.StylesDir = ExpandPath(c.StylesDir)
	c.LocalesDir = ExpandPath(c.LocalesDir)
	for i := range c.Styles {
		c.Styles[i].StyleFile = ExpandPath(c.Styles[i].StyleFile)
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	app, err := citation.ParseApplication(string(c.Application))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	c.Application = app

	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalid)
	}
	if err := ValidateDir(c.StylesDir); err != nil {
		return fmt.Errorf("%w: styles_dir: %w", ErrInvalid, err)
	}
	if err := ValidateDir(c.LocalesDir); err != nil {
		return fmt.Errorf("%w: locales_dir: %w", ErrInvalid, err)
	}

	seen := make(map[int64]bool, len(c.Users))
	for _, u := range c.Users {
		if seen[u.ID] {
			return fmt.Errorf("%w: duplicate user id %d", ErrInvalid, u.ID)
		}
		seen[u.ID] = true
		for _, r := range u.Roles {
			if !r.Valid() {
				return fmt.Errorf("%w: user %d has unknown role %q", ErrInvalid, u.ID, r)
			}
		}
	}

	for _, s := range append(slices.Clone(c.Styles), c.Downloads...) {
		if s.ID == "" {
			return fmt.Errorf("%w: catalog entry without id", ErrInvalid)
		}
	}
	return nil
}

// User returns the account with the given name.
func (c *Config) User(name string) (User, bool) {
	for _, u := range c.Users {
		if u.Name == name {
			return u, true
		}
	}
	return User{}, false
}

// RegisterCatalog registers the configured styles and downloads as catalog
// extensions. An entry whose id is already in the catalog replaces it.
func (c *Config) RegisterCatalog(h *hooks.Registry) {
	if len(c.Styles) > 0 {
		hooks.Register(h, style.StyleDefaults, style.CatalogHook(extend(c.Styles)))
	}
	if len(c.Downloads) > 0 {
		hooks.Register(h, style.DownloadDefaults, style.CatalogHook(extend(c.Downloads)))
	}
}

func extend(extra []style.Config) style.CatalogFunc {
	return func(entries []style.Config) []style.Config {
		for _, e := range extra {
			i := slices.IndexFunc(entries, func(c style.Config) bool { return c.ID == e.ID })
			if i >= 0 {
				entries[i] = e
				continue
			}
			entries = append(entries, e)
		}
		return entries
	}
}

// ValidateDir checks that a configured directory exists.
func ValidateDir(path string) error {
	if path == "" {
		return nil // Empty means built-in assets
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
