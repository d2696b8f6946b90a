package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/llmdiscovery/engine/internal/bundle"
	"github.com/llmdiscovery/engine/internal/clierrors"
	"github.com/llmdiscovery/engine/internal/diag"
	"github.com/llmdiscovery/engine/internal/sourceconfig"
	"github.com/llmdiscovery/engine/internal/validation"
)

var (
	validateSourceDirFlag string
	validateBundleDirFlag string
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the engine's build-time validation checks",
	}

	cmd.PersistentFlags().StringVar(&validateSourceDirFlag, "source-dir", ".", "source config root, for the schema and collision checks")
	cmd.PersistentFlags().StringVar(&validateBundleDirFlag, "bundle-dir", "./bundle", "compiled bundle directory, for the integrity and performance checks")

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Check source config YAML against the version/dsl_type/signature-field schema",
		RunE:  runValidateSchema,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "collisions",
		Short: "Check for signature field-sets shared by two or more providers",
		RunE:  runValidateCollisions,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "bundle",
		Short: "Check a compiled bundle's structural and cross-reference integrity",
		RunE:  runValidateBundle,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "performance",
		Short: "Time the detection and load micro-benchmarks against a bundle's recorded baselines",
		RunE:  runValidatePerformance,
	})

	return cmd
}

func runValidateSchema(_ *cobra.Command, _ []string) error {
	tree, err := sourceconfig.Load(sourceconfig.LoadOptions{SourceDir: validateSourceDirFlag, Sink: diag.RootSink()})
	if err != nil {
		return clierrors.NewExitError(clierrors.ExitGeneralError, err)
	}
	return reportResult(validation.CheckYAMLSchema(tree))
}

func runValidateCollisions(_ *cobra.Command, _ []string) error {
	tree, err := sourceconfig.Load(sourceconfig.LoadOptions{SourceDir: validateSourceDirFlag, Sink: diag.RootSink()})
	if err != nil {
		return clierrors.NewExitError(clierrors.ExitGeneralError, err)
	}
	return reportResult(validation.CheckSignatureCollisions(tree))
}

func runValidateBundle(_ *cobra.Command, _ []string) error {
	b, err := bundle.ReadFile(validateBundleDirFlag)
	if err != nil {
		return clierrors.NewExitError(clierrors.ExitGeneralError, err)
	}
	return reportResult(validation.CheckBundleIntegrity(b))
}

func runValidatePerformance(_ *cobra.Command, _ []string) error {
	return runPerformanceCheck(validateBundleDirFlag)
}

// runPerformanceCheck loads bundleDir's baselines straight from the
// compiled bundle's own validation_rules, so a bundle validates its own
// recorded expectations rather than requiring a second source of truth.
func runPerformanceCheck(bundleDir string) error {
	b, err := bundle.ReadFile(bundleDir)
	if err != nil {
		return clierrors.NewExitError(clierrors.ExitGeneralError, err)
	}

	baselines := make(validation.Baselines, len(b.ValidationRules.PerformanceBaselines))
	for name, seconds := range b.ValidationRules.PerformanceBaselines {
		baselines[name] = time.Duration(seconds * float64(time.Second))
	}

	result := validation.CheckPerformanceBaselines(bundleDir, baselines)
	return reportResult(result)
}

func reportResult(result *validation.Result) error {
	for _, d := range result.Diagnostics {
		diag.Details(d)
	}
	if !result.OK {
		return clierrors.NewExitError(clierrors.ExitGeneralError, fmt.Errorf("validation failed: %d diagnostic(s)", len(result.Diagnostics)))
	}
	diag.Println("validation passed")
	return nil
}

