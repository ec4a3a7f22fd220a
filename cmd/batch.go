package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rxguardian/internal/batch"
	"rxguardian/internal/logger"
	"rxguardian/internal/sheets"
	"rxguardian/pkg/services"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Analyze every prescription in a folder",
	Long: `Analyze all prescription text files (.txt) in a folder with a pool of
parallel workers. With --scans, images and PDFs are read with OCR first.

Each analysis is written as <name>.analysis.json into --out-dir. With --export,
every successful analysis is also appended to the Google Sheet.

All workers share one rate limiter (RATE_LIMIT_PER_MINUTE / RATE_LIMIT_PER_DAY);
files beyond the limit are reported as errors.

Required environment variables:
  OPENAI_API_KEY - API key of the model provider

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 4)`,
	Example: `  # Analyze all text prescriptions
  rxguardian batch ./prescriptions --out-dir ./analyses

  # Include scans and export the results
  rxguardian batch ./prescriptions --scans --export`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("out-dir", "", "Directory for the analysis JSON files (default: next to each input)")
	batchCmd.Flags().Int("workers", 0, "Number of parallel workers (default: BATCH_WORKERS)")
	batchCmd.Flags().Bool("scans", false, "Also process images and PDFs with OCR")
	batchCmd.Flags().Bool("export", false, "Append successful analyses to GOOGLE_SHEET_URL")
	batchCmd.Flags().Bool("verbose", false, "Show detailed processing information")
	batchCmd.Flags().Int("timeout", 1800, "Processing timeout in seconds")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	folderPath := args[0]
	outDir, _ := cmd.Flags().GetString("out-dir")
	workers, _ := cmd.Flags().GetInt("workers")
	withScans, _ := cmd.Flags().GetBool("scans")
	export, _ := cmd.Flags().GetBool("export")
	verbose, _ := cmd.Flags().GetBool("verbose")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = cfg.BatchWorkers
	}
	if export && cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required with --export")
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	files, err := batch.FindFiles(folderPath, withScans)
	if err != nil {
		return fmt.Errorf("failed to find prescription files: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "No prescription files found in folder.")
		return nil
	}

	log.Info().
		Str("folder", folderPath).
		Int("files", len(files)).
		Int("workers", workers).
		Bool("scans", withScans).
		Bool("export", export).
		Msg("Starting batch analysis")

	ctx, cancel := createContextWithTimeout(secondsDuration(timeoutSecs), log)
	defer cancel()

	client, err := createLLMClient(ctx, cfg, false, log)
	if err != nil {
		return err
	}

	var reader services.PrescriptionReader
	if withScans {
		vr, err := createOCRReader(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer vr.Close()
		reader = vr
	}

	runner := batch.NewRunner(createAnalysisService(cfg, client), reader, workers)
	runner.Progress = func(done, total int, o batch.Outcome) {
		line := fmt.Sprintf("[%d/%d] %s - %s", done, total, filepath.Base(o.Path), o.Status())
		switch {
		case o.Err != nil:
			line += " (" + o.Err.Error() + ")"
		case o.Result.Err != nil:
			line += " (" + o.Result.Err.Reasoning() + ")"
		case verbose:
			line += fmt.Sprintf(" (%d medication(s))", len(o.Result.Records))
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintf(out, "Analyzing %d prescription(s) with %d worker(s)...\n\n", len(files), workers)
	outcomes := runner.Run(ctx, files)

	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		data, err := encodeResults(o.Result.Records, o.SourceText, false)
		if err != nil {
			return err
		}
		if err := writeOutput(data, analysisPath(o.Path, outDir), log); err != nil {
			return err
		}
	}

	summary := batch.Summarize(outcomes)
	fmt.Fprintf(out, "\nSucceeded: %d\n", summary.Success)
	if summary.Warning > 0 {
		fmt.Fprintf(out, "Overdose flagged: %d\n", summary.Warning)
	}
	if summary.Error > 0 {
		fmt.Fprintf(out, "Failed: %d\n", summary.Error)
	}

	if export {
		svc, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL, cfg.GoogleSheetWorksheet)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		rows, err := batch.Export(ctx, svc, outcomes)
		if err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}
		fmt.Fprintf(out, "Rows added to %q: %d\n", cfg.GoogleSheetWorksheet, rows)
	}

	log.Info().
		Int("total", len(files)).
		Int("success", summary.Success).
		Int("warnings", summary.Warning).
		Int("errors", summary.Error).
		Msg("Batch analysis completed")
	return nil
}

// analysisPath returns where the analysis of input is written.
func analysisPath(input, outDir string) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".analysis.json"
	if outDir == "" {
		return filepath.Join(filepath.Dir(input), name)
	}
	return filepath.Join(outDir, name)
}
