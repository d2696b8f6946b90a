// Package compiler implements the build-time pipeline (spec §4.1): it loads
// declarative per-provider YAML configuration, validates it, compiles
// signature indices and tagged extraction plans, and writes an immutable
// compiled bundle plus a metadata sidecar.
package compiler

import (
	"fmt"
	"time"

	"github.com/llmdiscovery/engine/internal/bundle"
	"github.com/llmdiscovery/engine/internal/diag"
	"github.com/llmdiscovery/engine/internal/sourceconfig"
)

// CompilerVersion is recorded in every bundle's build metadata.
const CompilerVersion = "llmdisc-compiler/1.0"

// Options configures a single Compile invocation, mirroring the compiler
// CLI's flags (spec §6.4).
type Options struct {
	SourceDir        string
	OutputDir        string
	Provider         string // empty: compile every complete provider
	ValidatePerformance bool
	Production       bool // informational only, recorded in build metadata
	OptimizeSize     bool // informational only, recorded in build metadata
	Sink             *diag.Sink
}

// Result summarizes a completed compilation for the CLI's stdout success
// summary (spec §6.4).
type Result struct {
	Bundle         *bundle.Bundle
	ProvidersCount int
	PatternsCount  int
	Elapsed        time.Duration
}

// Compile runs the full build-time pipeline and, unless opts.OutputDir is
// empty, writes the bundle and its metadata sidecar atomically.
func Compile(opts Options) (*Result, error) {
	start := time.Now()
	sink := opts.Sink

	tree, err := sourceconfig.Load(sourceconfig.LoadOptions{
		SourceDir: opts.SourceDir,
		Provider:  opts.Provider,
		Sink:      sink,
	})
	if err != nil {
		return nil, err
	}

	forwardIndex, invertedIndex := compileSignatures(tree, sink)
	extractionPlans := compileExtractionPlans(tree)
	navigationRules := compileNavigationRules(tree)
	fieldMappings := compileFieldMappingsRegistry(tree)
	transformRegistry := compileTransformRegistry(tree)

	patternsCount := 0
	for _, sigs := range forwardIndex {
		patternsCount += len(sigs)
	}

	b := &bundle.Bundle{
		ProviderSignatures:  forwardIndex,
		SignatureToProvider: invertedIndex,
		ExtractionFunctions: extractionPlans,
		NavigationRules:     navigationRules,
		FieldMappings:       fieldMappings,
		TransformRegistry:   transformRegistry,
		ValidationRules:     compileValidationRules(tree),
		BuildMetadata: bundle.BuildMetadata{
			Version:         "1.0",
			BuildTimestamp:  time.Now().Unix(),
			ProvidersCount:  len(tree.ProviderOrder),
			PatternsCount:   patternsCount,
			SourceHash:      bundle.ContentHash(tree.RawFiles),
			CompilerVersion: CompilerVersion,
			Flags:           buildFlags(opts),
		},
	}

	if err := selfCheck(b, tree); err != nil {
		return nil, err
	}

	if opts.OutputDir != "" {
		if err := bundle.WriteAtomic(opts.OutputDir, b); err != nil {
			return nil, fmt.Errorf("writing compiled bundle: %w", err)
		}
	}

	return &Result{
		Bundle:         b,
		ProvidersCount: len(tree.ProviderOrder),
		PatternsCount:  patternsCount,
		Elapsed:        time.Since(start),
	}, nil
}

func buildFlags(opts Options) map[string]string {
	flags := map[string]string{}
	if opts.Production {
		flags["production"] = "true"
	}
	if opts.OptimizeSize {
		flags["optimize_size"] = "true"
	}
	if len(flags) == 0 {
		return nil
	}
	return flags
}

func compileNavigationRules(tree *sourceconfig.SourceTree) map[string]map[string]bundle.NavigationRef {
	out := make(map[string]map[string]bundle.NavigationRef, len(tree.ProviderOrder))
	for _, name := range tree.ProviderOrder {
		cfg := tree.Providers[name]
		rules := make(map[string]bundle.NavigationRef, len(cfg.NavigationRules.Rules))
		for ruleName, r := range cfg.NavigationRules.Rules {
			rules[ruleName] = bundle.NavigationRef{
				SourceField:      r.SourceField,
				ExtractionMethod: string(r.ExtractionMethod),
				FallbackValue:    r.FallbackValue,
			}
		}
		out[name] = rules
	}
	return out
}

func compileFieldMappingsRegistry(tree *sourceconfig.SourceTree) map[string]bundle.FieldMappingSpec {
	out := make(map[string]bundle.FieldMappingSpec, len(tree.ProviderOrder))
	for _, name := range tree.ProviderOrder {
		cfg := tree.Providers[name]
		out[name] = bundle.FieldMappingSpec{
			Inputs:   flattenFieldMapping(cfg.FieldMappings.Inputs),
			Outputs:  flattenFieldMapping(cfg.FieldMappings.Outputs),
			Config:   flattenFieldMapping(cfg.FieldMappings.Config),
			Metadata: flattenFieldMapping(cfg.FieldMappings.Metadata),
		}
	}
	return out
}

func flattenFieldMapping(m map[string]sourceconfig.FieldMapping) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.SourceRule
	}
	return out
}

func compileTransformRegistry(tree *sourceconfig.SourceTree) map[string]map[string]bundle.TransformSpec {
	out := make(map[string]map[string]bundle.TransformSpec, len(tree.ProviderOrder))
	for _, name := range tree.ProviderOrder {
		cfg := tree.Providers[name]
		providerTransforms := make(map[string]bundle.TransformSpec, len(cfg.Transforms.Transforms))
		for transformName, t := range cfg.Transforms.Transforms {
			providerTransforms[transformName] = bundle.TransformSpec{
				Implementation: t.Implementation,
				Parameters:     t.Parameters,
			}
		}
		out[name] = providerTransforms
	}
	return out
}

func compileValidationRules(tree *sourceconfig.SourceTree) bundle.ValidationRules {
	vr := tree.Shared.ValidationRules

	wildcardThreshold := vr.WildcardOverlapThreshold
	if wildcardThreshold == 0 {
		wildcardThreshold = bundle.DefaultWildcardOverlapThreshold
	}
	valueThreshold := vr.ValueScoreThreshold
	if valueThreshold == 0 {
		valueThreshold = bundle.DefaultValueScoreThreshold
	}

	return bundle.ValidationRules{
		WildcardOverlapThreshold: wildcardThreshold,
		ValueScoreThreshold:      valueThreshold,
		PerformanceBaselines:     vr.PerformanceBaselines,
	}
}
