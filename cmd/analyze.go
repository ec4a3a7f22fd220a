package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rxguardian/internal/logger"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [prescription text]",
	Short: "Analyze a prescription with the language model",
	Long: `Analyze a free-text prescription and print the normalized medication
records as JSON, or render them as a PDF report with --pdf.

The prescription is taken from the arguments, from --file, or from stdin.
Failures (rate limit, model errors, unparseable answers) are reported as a
single record, as the HTTP service does; use --strict to exit non-zero instead.

Required environment variables:
  OPENAI_API_KEY - API key of the model provider`,
	Example: `  # Analyze text given on the command line
  rxguardian analyze "Paracetamol 500mg twice daily for 5 days"

  # Read the prescription from a file and write a PDF report
  rxguardian analyze --file rx.txt --pdf -o report.pdf

  # Read from stdin
  cat rx.txt | rxguardian analyze`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("file", "f", "", "Read the prescription from a file")
	analyzeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().Bool("pdf", false, "Render a PDF report instead of JSON")
	analyzeCmd.Flags().Bool("probe-models", false, "Select the first available model from OPENAI_MODEL_CANDIDATES")
	analyzeCmd.Flags().Bool("strict", false, "Exit with an error when the analysis failed")
	analyzeCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("analyze")

	filePath, _ := cmd.Flags().GetString("file")
	outputPath, _ := cmd.Flags().GetString("output")
	asPDF, _ := cmd.Flags().GetBool("pdf")
	probe, _ := cmd.Flags().GetBool("probe-models")
	strict, _ := cmd.Flags().GetBool("strict")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	text, err := readTextInput(args, filePath, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(secondsDuration(timeoutSecs), log)
	defer cancel()

	client, err := createLLMClient(ctx, cfg, probe, log)
	if err != nil {
		return err
	}

	res := createAnalysisService(cfg, client).AnalyzeResult(ctx, text)
	if res.Err != nil {
		log.Warn().
			Str("analysis_id", res.ID).
			Str("kind", res.Err.Kind.String()).
			Str("failed_at", string(res.FailedAt)).
			Err(res.Err).
			Msg("Analysis failed")
		if strict {
			return fmt.Errorf("analysis failed: %s", res.Err.Reasoning())
		}
	}

	data, err := encodeResults(res.Records, "", asPDF)
	if err != nil {
		return err
	}
	return writeOutput(data, outputPath, log)
}
