package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"rxguardian/internal/analysis"
	"rxguardian/internal/config"
	"rxguardian/internal/llm"
	"rxguardian/internal/ocr"
	"rxguardian/internal/ratelimit"
	"rxguardian/internal/report"
	"rxguardian/pkg/models"
)

// loadConfig reads the environment configuration for a command.
func loadConfig(log zerolog.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return nil, err
	}
	return cfg, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// createLLMClient builds the model client, optionally probing for the first
// available candidate model.
func createLLMClient(ctx context.Context, cfg *config.Config, probe bool, log zerolog.Logger) (*llm.OpenAIClient, error) {
	if err := cfg.RequireLLM(); err != nil {
		log.Error().Err(err).Msg("Model provider credentials not configured")
		return nil, fmt.Errorf("%w. Set it in the environment or in a .env file", err)
	}

	client, err := llm.NewOpenAIClient(cfg.GetLLMConfig())
	if err != nil {
		return nil, err
	}

	if probe {
		model, err := client.SelectModel(ctx, cfg.ModelCandidates)
		if err != nil {
			log.Error().
				Err(err).
				Strs("candidates", cfg.ModelCandidates).
				Msg("No usable model found")
			return nil, fmt.Errorf("model selection failed: %w", err)
		}
		log.Info().Str("model", model).Msg("Selected model")
	}
	return client, nil
}

// createAnalysisService wires the analysis pipeline for one-shot commands.
func createAnalysisService(cfg *config.Config, completer llm.Completer) *analysis.Service {
	limiter := ratelimit.New(cfg.RateLimitPerMinute, cfg.RateLimitPerDay)
	return analysis.NewService(completer, limiter, cfg.GetAnalysisConfig())
}

// createOCRReader creates the Vision reader, explaining how to configure
// credentials when none are found.
func createOCRReader(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*ocr.VisionReader, error) {
	if !cfg.OCREnabled() {
		log.Warn().Msg("Google Cloud credentials not configured, trying application default credentials")
	}

	reader, err := ocr.NewVisionReader(ctx)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
				"1. GOOGLE_APPLICATION_CREDENTIALS with the path to a service account JSON file\n" +
				"2. GOOGLE_CREDENTIALS with the inline JSON credentials\n" +
				"3. Application default credentials (gcloud auth application-default login)")
		}
		log.Error().Err(err).Msg("Failed to create OCR reader")
		return nil, fmt.Errorf("failed to create OCR reader: %w", err)
	}
	return reader, nil
}

// readTextInput returns the prescription from the arguments, a file or stdin,
// in that order of preference.
func readTextInput(args []string, filePath string, stdin io.Reader) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case filePath != "":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read prescription file: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read prescription from stdin: %w", err)
		}
		return string(data), nil
	}
}

// encodeResults renders records as an indented analysis document or as a PDF report.
func encodeResults(records []models.MedicationRecord, sourceText string, asPDF bool) ([]byte, error) {
	if asPDF {
		var buf bytes.Buffer
		if err := report.Render(&buf, records); err != nil {
			return nil, fmt.Errorf("failed to render PDF report: %w", err)
		}
		return buf.Bytes(), nil
	}

	data, err := json.MarshalIndent(analysis.Document{Analysis: records, SourceText: sourceText}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to create JSON output: %w", err)
	}
	return append(data, '\n'), nil
}

// writeOutput writes data to outputPath, or to stdout when it is empty.
func writeOutput(data []byte, outputPath string, log zerolog.Logger) error {
	if outputPath == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(data)).
		Msg("Results written to file")
	return nil
}

func secondsDuration(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}
