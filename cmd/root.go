package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rxguardian/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "rxguardian",
	Short: "RxGuardian - prescription analysis service and CLI",
	Long: `RxGuardian analyzes free-text prescriptions with a language model,
flags potential overdoses and suggests cheaper alternatives.

Run "rxguardian serve" to start the HTTP service, or use the analyze,
scan, report and export commands from the shell.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
