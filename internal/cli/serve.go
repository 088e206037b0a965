package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/fracheck/internal/cache"
	"github.com/ppiankov/fracheck/internal/extract"
	"github.com/ppiankov/fracheck/internal/logger"
	"github.com/ppiankov/fracheck/internal/server"
	"github.com/ppiankov/fracheck/internal/store"
	"github.com/ppiankov/fracheck/internal/validate"
)

var (
	serveAddr string
	noCache   bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP validation service",
	Long: `Serve exposes validation, revalidation, duplicate detection, extraction
and claim history over HTTP:

  POST /api/v1/validate              validate a FeatureCollection
  POST /api/v1/revalidate            apply corrections to a processed claim
  POST /api/v1/duplicates            compare claims pairwise
  POST /api/v1/extract               extract claims from OCR text or HTML
  POST /api/v1/claims                save a claim version
  GET  /api/v1/claims/:id            latest version of a claim
  GET  /api/v1/claims/:id/versions   version history
  GET  /healthz, /metrics

Example:
  fracheck serve --addr :8080
  FRACHECK_STORE_PATH=claims.db fracheck serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the validation result cache")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.L()

	p, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}
	detector := newDetector(cfg, log)

	deps := server.Deps{
		Pipeline:  p,
		Detector:  detector,
		Extractor: extract.NewClaimExtractor(),
		Checker:   validate.NewClaimChecker(detector, validate.IndiaRegion),
		Logger:    log,
	}
	if !noCache {
		deps.Cache = cache.New(cfg.Cache)
	}
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		deps.Store = st
		log.Info("claim store opened", "path", cfg.Store.Path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg.Server, deps).Run(ctx)
}
