package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rxguardian/internal/logger"
	"rxguardian/internal/ocr"
)

var scanCmd = &cobra.Command{
	Use:   "scan [image-or-pdf]",
	Short: "Read a prescription image or PDF with OCR and analyze it",
	Long: `Recognize the text of a prescription photo or scan with the Google Cloud
Vision API, then analyze it with the language model.

Supported formats are PNG, JPEG, GIF, WebP, BMP, TIFF and PDF, up to 20MB and
5 pages. Use --text-only to print the recognized text without analyzing it.

Required environment variables:
  OPENAI_API_KEY - API key of the model provider (not needed with --text-only)
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Example: `  # Analyze a photographed prescription
  rxguardian scan rx.jpg

  # Produce a PDF report directly
  rxguardian scan rx.pdf --pdf -o report.pdf

  # Only run OCR
  rxguardian scan rx.png --text-only`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	scanCmd.Flags().Bool("pdf", false, "Render a PDF report instead of JSON")
	scanCmd.Flags().Bool("text-only", false, "Print the recognized text and stop")
	scanCmd.Flags().Bool("probe-models", false, "Select the first available model from OPENAI_MODEL_CANDIDATES")
	scanCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("scan")

	outputPath, _ := cmd.Flags().GetString("output")
	asPDF, _ := cmd.Flags().GetBool("pdf")
	textOnly, _ := cmd.Flags().GetBool("text-only")
	probe, _ := cmd.Flags().GetBool("probe-models")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	path := args[0]
	log.Info().
		Str("file", path).
		Bool("text_only", textOnly).
		Int("timeout", timeoutSecs).
		Msg("Starting prescription scan")

	if err := validateScanFile(path, log); err != nil {
		return err
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if !textOnly {
		// fail before spending an OCR call
		if err := cfg.RequireLLM(); err != nil {
			return fmt.Errorf("%w. Set it in the environment or in a .env file", err)
		}
	}

	ctx, cancel := createContextWithTimeout(secondsDuration(timeoutSecs), log)
	defer cancel()

	reader, err := createOCRReader(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR reader")
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to open file")
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close file")
		}
	}()

	scanned, err := reader.Read(ctx, f)
	if err != nil {
		return handleOCRError(err, log)
	}

	if textOnly {
		return writeOutput([]byte(scanned.Text), outputPath, log)
	}

	client, err := createLLMClient(ctx, cfg, probe, log)
	if err != nil {
		return err
	}

	res := createAnalysisService(cfg, client).AnalyzeResult(ctx, scanned.Text)
	if res.Err != nil {
		log.Warn().
			Str("analysis_id", res.ID).
			Str("kind", res.Err.Kind.String()).
			Err(res.Err).
			Msg("Analysis failed")
	}

	data, err := encodeResults(res.Records, scanned.Text, asPDF)
	if err != nil {
		return err
	}
	return writeOutput(data, outputPath, log)
}

// validateScanFile checks that path is a non-empty regular file within the OCR size limit.
func validateScanFile(path string, log zerolog.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("file", path).Msg("File not found")
			return fmt.Errorf("file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().Str("file", path).Msg("Permission denied accessing file")
			return fmt.Errorf("permission denied accessing file: %s", path)
		}
		return fmt.Errorf("error accessing file: %w", err)
	}

	switch {
	case !info.Mode().IsRegular():
		return fmt.Errorf("path is not a regular file: %s", path)
	case info.Size() == 0:
		return fmt.Errorf("file is empty: %s", path)
	case info.Size() > ocr.MaxFileSizeBytes:
		log.Error().
			Str("file", path).
			Int64("size", info.Size()).
			Int64("max_size", ocr.MaxFileSizeBytes).
			Msg("File exceeds maximum size limit")
		return fmt.Errorf("file too large (%d bytes). Maximum size is %d bytes (20MB)", info.Size(), ocr.MaxFileSizeBytes)
	}
	return nil
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrFileTooLarge):
		return fmt.Errorf("file is too large (maximum 20MB). Try compressing the image or splitting the PDF")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages (maximum 5 pages). Try splitting into smaller files")
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported file format. Use a PNG, JPEG, GIF, WebP, BMP, TIFF or PDF file")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the prescription. Try a sharper photo or scan")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Check GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS and that the service account has the 'Cloud Vision API User' role: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Please ensure your Google Cloud service account has the 'Cloud Vision API User' role")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "quota"):
		return fmt.Errorf("Google Cloud Vision API quota exceeded. Check your project quotas in the Google Cloud Console")
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}
