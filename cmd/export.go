package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rxguardian/internal/analysis"
	"rxguardian/internal/logger"
	"rxguardian/internal/sheets"
)

var exportCmd = &cobra.Command{
	Use:   "export [analysis.json]",
	Short: "Append a saved analysis to a Google Sheet",
	Long: `Append one row per medication of an analysis document to a Google Sheet.

The worksheet is created with a header row when missing. Every exported row
carries the analysis id, so several analyses can share one worksheet.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Spreadsheet URL (or pass --sheet-url)`,
	Example: `  rxguardian export analysis.json

  rxguardian export analysis.json --sheet-url https://docs.google.com/spreadsheets/d/ID/edit --worksheet Clinic`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("sheet-url", "", "Spreadsheet URL (default: GOOGLE_SHEET_URL)")
	exportCmd.Flags().String("worksheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET or Analyses)")
	exportCmd.Flags().String("id", "", "Analysis id written to every row (default: random UUID)")
	exportCmd.Flags().Int("timeout", 60, "Timeout in seconds")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")

	sheetURL, _ := cmd.Flags().GetString("sheet-url")
	worksheet, _ := cmd.Flags().GetString("worksheet")
	analysisID, _ := cmd.Flags().GetString("id")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if sheetURL == "" {
		sheetURL = cfg.GoogleSheetURL
	}
	if sheetURL == "" {
		return fmt.Errorf("no spreadsheet configured: set GOOGLE_SHEET_URL or pass --sheet-url")
	}
	if worksheet == "" {
		worksheet = cfg.GoogleSheetWorksheet
	}
	if analysisID == "" {
		analysisID = uuid.NewString()
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read analysis file: %w", err)
	}
	records, err := analysis.DecodeDocument(data)
	if err != nil {
		log.Error().Err(err).Str("file", args[0]).Msg("Invalid analysis document")
		return err
	}

	ctx, cancel := createContextWithTimeout(secondsDuration(timeoutSecs), log)
	defer cancel()

	svc, err := sheets.NewSheetsService(ctx, sheetURL, worksheet)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to Google Sheets")
		return err
	}

	rows, err := svc.ExportAnalysis(ctx, analysisID, records)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d row(s) to worksheet %q (analysis %s)\n", rows, worksheet, analysisID)
	return nil
}
