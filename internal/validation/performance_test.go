package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/llmdiscovery/engine/internal/bundle"
)

func writeTestBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	b := &bundle.Bundle{
		ProviderSignatures: map[string][]bundle.Signature{
			"openai": {{PatternName: "direct_otel_openai", Fields: []string{"gen_ai.request.model"}, Confidence: 0.9}},
		},
		SignatureToProvider: []bundle.InvertedEntry{
			{Fields: []string{"gen_ai.request.model"}, PatternName: "direct_otel_openai", Confidence: 0.9},
		},
		ExtractionFunctions: map[string]bundle.ExtractionPlanSpec{"openai": {Provider: "openai"}},
		FieldMappings:       map[string]bundle.FieldMappingSpec{"openai": {}},
		TransformRegistry:   map[string]map[string]bundle.TransformSpec{"openai": {}},
		BuildMetadata:       bundle.BuildMetadata{Version: "1.0"},
	}

	require.NoError(t, bundle.WriteAtomic(dir, b))
	return dir
}

func TestCheckPerformanceBaselinesPassesWithGenerousBaselines(t *testing.T) {
	dir := writeTestBundle(t)

	baselines := Baselines{
		BaselineBundleLoad:   time.Second,
		BaselineExactMatch:   time.Second,
		BaselineSubsetMatch:  time.Second,
		BaselineMetadataRead: time.Second,
	}

	result := CheckPerformanceBaselines(dir, baselines)

	require.True(t, result.OK, "diagnostics: %v", result.Diagnostics)
}

func TestCheckPerformanceBaselinesFailsWithZeroBudget(t *testing.T) {
	dir := writeTestBundle(t)

	baselines := Baselines{BaselineBundleLoad: 0}

	result := CheckPerformanceBaselines(dir, baselines)

	require.False(t, result.OK)
}

func TestCheckPerformanceBaselinesMissingBundleFails(t *testing.T) {
	result := CheckPerformanceBaselines(t.TempDir(), Baselines{})

	require.False(t, result.OK)
}
