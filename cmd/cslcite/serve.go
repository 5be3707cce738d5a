package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/cslcite/internal/access"
	"github.com/matsen/cslcite/internal/server"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides listen_addr)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve citations over HTTP",
	Long: `Serve citations, downloads and settings over HTTP.

Routes (under /<context>/citationstylelanguage):
  GET  get/<style>?submissionId=&publicationId=&issueId=&chapterId=&return=json
  GET  download/<format>?submissionId=...
  GET  block?submissionId=...
  GET  styles
  GET  settings           (managers)
  POST settings           (managers)

Metrics are served at /metrics. Users from the config file authenticate with
HTTP basic auth.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}

	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		exitWithError(ExitError, "creating logger: %v", err)
	}
	defer logger.Sync()

	db := mustOpenDatabase(cfg)
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a := mustBuildApp(cfg, db, logger, reg)

	srv := server.New(a.mapper, a.styles, db, db, access.NewPolicy(cfg.Application, db),
		server.WithLogger(logger),
		server.WithUsers(cfg.Users),
		server.WithRateLimit(cfg.RateLimit),
		server.WithMetrics(reg),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting cslcite",
		zap.String("version", Version),
		zap.String("application", string(cfg.Application)),
		zap.String("db", cfg.DBPath),
		zap.Int("users", len(cfg.Users)),
	)
	if err := srv.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		logger.Error("Server failed", zap.Error(err))
		return err
	}
	return nil
}
