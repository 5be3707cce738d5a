package config

import (
	"github.com/joho/godotenv"

	"github.com/matsen/cslcite/internal/citation"
)

// Environment variables overriding file values.
const (
	EnvApplication   = "CSLCITE_APPLICATION"
	EnvListenAddr    = "CSLCITE_LISTEN_ADDR"
	EnvBaseURL       = "CSLCITE_BASE_URL"
	EnvDBPath        = "CSLCITE_DB_PATH"
	EnvDefaultLocale = "CSLCITE_DEFAULT_LOCALE"
	EnvStylesDir     = "CSLCITE_STYLES_DIR"
	EnvLocalesDir    = "CSLCITE_LOCALES_DIR"
)

// LoadEnv loads variables from .env files into the process environment.
// Variables already set are kept, and missing files are ignored.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	if v := getenv(EnvApplication); v != "" {
		c.Application = citation.Application(v)
	}
	set(&c.ListenAddr, EnvListenAddr)
	set(&c.BaseURL, EnvBaseURL)
	set(&c.DBPath, EnvDBPath)
	set(&c.DefaultLocale, EnvDefaultLocale)
	set(&c.StylesDir, EnvStylesDir)
	set(&c.LocalesDir, EnvLocalesDir)
}
