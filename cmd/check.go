package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rxguardian/internal/logger"
)

const pingPrompt = `Reply with the single word OK.`

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify model provider credentials and model availability",
	Long: `Check that OPENAI_API_KEY is set, list the models visible to it, pick the
first available one from OPENAI_MODEL_CANDIDATES and send it a trivial prompt.

Exits non-zero when any step fails.`,
	Example: `  rxguardian check

  # Only probe the model list
  rxguardian check --no-ping`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Bool("no-ping", false, "Skip the round-trip prompt")
	checkCmd.Flags().Int("timeout", 60, "Timeout in seconds")
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("check")

	noPing, _ := cmd.Flags().GetBool("no-ping")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(secondsDuration(timeoutSecs), log)
	defer cancel()

	client, err := createLLMClient(ctx, cfg, true, log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Credentials: ok\n")
	fmt.Fprintf(out, "Model:       %s\n", client.Model())

	if noPing {
		return nil
	}

	reply, err := client.Complete(ctx, pingPrompt)
	if err != nil {
		log.Error().Err(err).Str("model", client.Model()).Msg("Round-trip prompt failed")
		return fmt.Errorf("round-trip prompt failed: %w", err)
	}
	fmt.Fprintf(out, "Round trip:  ok (%q)\n", strings.TrimSpace(reply))
	return nil
}
