package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rxguardian/internal/analysis"
	"rxguardian/internal/api"
	"rxguardian/internal/logger"
	"rxguardian/internal/ratelimit"
	"rxguardian/internal/report"
	"rxguardian/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prescription analysis HTTP service",
	Long: `Start the HTTP service exposing:

  POST /analyze          analyze {"prescription": "..."}
  POST /download         render {"analysis": [...]} as a PDF report
  POST /analyze/upload   OCR an image or PDF prescription, then analyze it
  GET  /health           liveness and rate limit usage

The upload route is only available when Google Cloud credentials are configured.

Required environment variables:
  OPENAI_API_KEY - API key of the model provider`,
	Example: `  # Listen on the default address (:5000)
  rxguardian serve

  # Pick the first available model from OPENAI_MODEL_CANDIDATES
  rxguardian serve --probe-models --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: HTTP_ADDR or :5000)")
	serveCmd.Flags().Bool("probe-models", false, "Select the first available model from OPENAI_MODEL_CANDIDATES at startup")
	serveCmd.Flags().Bool("no-ocr", false, "Do not register the upload route even if credentials are configured")
	serveCmd.Flags().Int("shutdown-timeout", 15, "Graceful shutdown timeout in seconds")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	addr, _ := cmd.Flags().GetString("addr")
	probe, _ := cmd.Flags().GetBool("probe-models")
	noOCR, _ := cmd.Flags().GetBool("no-ocr")
	shutdownSecs, _ := cmd.Flags().GetInt("shutdown-timeout")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := createLLMClient(ctx, cfg, probe, log)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(cfg.RateLimitPerMinute, cfg.RateLimitPerDay)
	deps := api.Deps{
		Analyzer:     analysis.NewService(client, limiter, cfg.GetAnalysisConfig()),
		Renderer:     report.NewRenderer(report.Options{Compress: true}),
		Limiter:      limiter,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}

	if cfg.OCREnabled() && !noOCR {
		reader, err := createOCRReader(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := reader.Close(); closeErr != nil {
				log.Warn().Err(closeErr).Msg("Failed to close OCR reader")
			}
		}()
		deps.Reader = reader
	} else {
		log.Info().Msg("OCR not configured, upload route disabled")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           router.NewRouter(router.Options{API: deps}),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.LLMTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("model", client.Model()).
			Int("per_minute", cfg.RateLimitPerMinute).
			Int("per_day", cfg.RateLimitPerDay).
			Bool("ocr", deps.Reader != nil).
			Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.Error().Err(err).Msg("HTTP server failed")
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownSecs)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("HTTP server stopped")
	return nil
}
