package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fluestern",
		Short:   "Companion for the Flüstern voice dictation pipeline",
		Long:    "Browse and correct dictation history, tail the debug log and edit the .env configuration.",
		Version: version,
		RunE:    runTUI,

		SilenceUsage: true,
	}

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(newPromptContextCmd())
	rootCmd.AddCommand(newCorrectionsCmd())
	rootCmd.AddCommand(newMCPCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
