package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/llmdiscovery/engine/internal/diag"
)

var flagVerbose bool

// rootCmd is the base command for the discovery engine's compiler and
// validator CLI.
var rootCmd = &cobra.Command{
	Use:   "llmdisc",
	Short: "Universal LLM discovery engine compiler and validator",
	Long: `llmdisc compiles declarative provider configuration into an
immutable runtime bundle, and validates a source config tree or a
compiled bundle against the engine's build-time checks.`,
	PersistentPreRunE: initializeGlobals,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "increase output verbosity (env: LLMDISC_VERBOSE)")

	rootCmd.AddCommand(newCompileCmd())
	rootCmd.AddCommand(newValidateCmd())
}

func initializeGlobals(_ *cobra.Command, _ []string) error {
	diag.Setup(diag.Config{Verbose: getVerbose()})
	return nil
}

// getVerbose resolves --verbose against its environment fallback,
// matching the CLI's flag-then-env-then-default precedence.
func getVerbose() bool {
	if flagVerbose {
		return true
	}
	return os.Getenv("LLMDISC_VERBOSE") == "true"
}
