package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/llmdiscovery/engine/internal/clierrors"
	"github.com/llmdiscovery/engine/internal/compiler"
	"github.com/llmdiscovery/engine/internal/diag"
)

var (
	compileSourceDirFlag       string
	compileOutputDirFlag       string
	compileProviderFlag        string
	compileValidatePerformance bool
	compileProductionFlag      bool
	compileOptimizeSizeFlag    bool
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile provider source config into a runtime bundle",
		Long: `compile loads the declarative per-provider YAML source tree,
validates it, compiles signature indices and extraction plans, and writes
an immutable bundle plus a metadata sidecar to --output-dir.

Examples:
  llmdisc compile --source-dir ./providers --output-dir ./bundle
  llmdisc compile --source-dir ./providers --output-dir ./bundle --provider openai
  llmdisc compile --source-dir ./providers --output-dir ./bundle --validate-performance`,
		RunE: runCompile,
	}

	cmd.Flags().StringVar(&compileSourceDirFlag, "source-dir", getEnvDefault("LLMDISC_SOURCE_DIR", "."), "source config root (env: LLMDISC_SOURCE_DIR)")
	cmd.Flags().StringVar(&compileOutputDirFlag, "output-dir", getEnvDefault("LLMDISC_OUTPUT_DIR", "./bundle"), "directory to write the compiled bundle into (env: LLMDISC_OUTPUT_DIR)")
	cmd.Flags().StringVar(&compileProviderFlag, "provider", "", "compile a single provider only (default: every complete provider)")
	cmd.Flags().BoolVar(&compileValidatePerformance, "validate-performance", false, "run the performance-baseline check against the freshly compiled bundle")
	cmd.Flags().BoolVar(&compileProductionFlag, "production", false, "informational: recorded in build metadata, does not alter compilation")
	cmd.Flags().BoolVar(&compileOptimizeSizeFlag, "optimize-size", false, "informational: recorded in build metadata, does not alter compilation")

	return cmd
}

func runCompile(_ *cobra.Command, _ []string) error {
	result, err := compiler.Compile(compiler.Options{
		SourceDir:           compileSourceDirFlag,
		OutputDir:           compileOutputDirFlag,
		Provider:            compileProviderFlag,
		ValidatePerformance: compileValidatePerformance,
		Production:          compileProductionFlag,
		OptimizeSize:        compileOptimizeSizeFlag,
		Sink:                diag.RootSink(),
	})
	if err != nil {
		return clierrors.NewExitError(clierrors.ExitGeneralError, err)
	}

	diag.Println(fmt.Sprintf("compiled %d provider(s), %d pattern(s) in %s",
		result.ProvidersCount, result.PatternsCount, result.Elapsed))

	if compileValidatePerformance {
		if err := runPerformanceCheck(compileOutputDirFlag); err != nil {
			return clierrors.NewExitError(clierrors.ExitGeneralError, err)
		}
	}

	return nil
}

// getEnvDefault reads an environment variable fallback for a flag default,
// completing the flag > env > default precedence chain (there is no config
// file layer): cobra's own default kicks in only once the environment has
// also been checked.
func getEnvDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}
