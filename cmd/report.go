package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rxguardian/internal/analysis"
	"rxguardian/internal/logger"
)

var reportCmd = &cobra.Command{
	Use:   "report [analysis.json]",
	Short: "Render a saved analysis as a PDF report",
	Long: `Render an analysis document as a PDF report.

The input is either the JSON returned by POST /analyze and "rxguardian analyze"
({"analysis": [...]}) or a bare array of medication records. It is validated
against the analysis schema before rendering. No model call is made.`,
	Example: `  # Render to report.pdf next to the input
  rxguardian report analysis.json

  # Choose the output path
  rxguardian report analysis.json -o /tmp/rx.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("output", "o", "", "Output PDF path (default: input name with .pdf)")
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("report")

	inputPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, ".json") + ".pdf"
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Error().Err(err).Str("file", inputPath).Msg("Failed to read analysis file")
		return fmt.Errorf("failed to read analysis file: %w", err)
	}

	records, err := analysis.DecodeDocument(data)
	if err != nil {
		log.Error().Err(err).Str("file", inputPath).Msg("Invalid analysis document")
		return err
	}

	pdf, err := encodeResults(records, "", true)
	if err != nil {
		return err
	}

	log.Info().
		Str("file", inputPath).
		Int("medications", len(records)).
		Msg("Report rendered")
	return writeOutput(pdf, outputPath, log)
}
