// Package main provides the cslcite CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/cslcite/internal/assets"
	"github.com/matsen/cslcite/internal/citeproc"
	"github.com/matsen/cslcite/internal/config"
	"github.com/matsen/cslcite/internal/export"
	"github.com/matsen/cslcite/internal/hooks"
	"github.com/matsen/cslcite/internal/mapper"
	"github.com/matsen/cslcite/internal/storage"
	"github.com/matsen/cslcite/internal/style"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	configPath  string
	dbPath      string
	verbose     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cslcite",
	Short: "Citation Style Language citations for scholarly publications",
	Long: `cslcite formats citations of journal articles, preprints, books and
chapters with CSL styles, and packages them as RIS or BibTeX downloads.

Host data (contexts, submissions, issues, sections) is imported from JSONL into
a SQLite database. The same database holds per-context plugin settings.
All commands output JSON by default; use --human for text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/cslcite/config.yml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides db_path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.Version = Version
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if dbPath != "" {
		cfg.DBPath = config.ExpandPath(dbPath)
	}
	return cfg
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(cfg *config.Config) *storage.DB {
	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// newLogger returns a development logger with --verbose and a no-op logger otherwise.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		exitWithError(ExitError, "creating logger: %v", err)
	}
	return logger
}

// app bundles the collaborators built from configuration.
type app struct {
	cfg    *config.Config
	db     *storage.DB
	hooks  *hooks.Registry
	styles *style.Registry
	mapper *mapper.Mapper
	logger *zap.Logger
}

// mustBuildApp wires storage, the style registry and the mapper. reg may be nil.
func mustBuildApp(cfg *config.Config, db *storage.DB, logger *zap.Logger, reg prometheus.Registerer) *app {
	h := hooks.NewRegistry()
	cfg.RegisterCatalog(h)
	styles := style.NewRegistry(h, db)

	locales := assets.WithDir(cfg.LocalesDir, assets.Locales())
	tmpls, err := export.Load(assets.Templates())
	if err != nil {
		exitWithError(ExitError, "loading download templates: %v", err)
	}

	var metrics *mapper.Metrics
	if reg != nil {
		metrics = mapper.NewMetrics(reg)
	}

	m := mapper.New(mapper.Config{
		Application:   cfg.Application,
		BaseURL:       cfg.BaseURL,
		DefaultLocale: cfg.DefaultLocale,
	}, mapper.Deps{
		Repository: db,
		Settings:   db,
		Styles:     styles,
		Processor:  citeproc.NewEngine(locales),
		Templates:  tmpls,
		StyleFiles: assets.WithDir(cfg.StylesDir, assets.Styles()),
		Locales:    locales,
		Hooks:      h,
		Metrics:    metrics,
		Logger:     logger,
	})

	return &app{cfg: cfg, db: db, hooks: h, styles: styles, mapper: m, logger: logger}
}
