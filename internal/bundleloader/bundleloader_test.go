package bundleloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmdiscovery/engine/internal/bundle"
)

func validBundle() *bundle.Bundle {
	return &bundle.Bundle{
		ProviderSignatures: map[string][]bundle.Signature{
			"openai": {{PatternName: "direct_otel_openai", Fields: []string{"gen_ai.request.model", "gen_ai.system"}, Confidence: 0.9}},
		},
		SignatureToProvider: []bundle.InvertedEntry{
			{Fields: []string{"gen_ai.request.model", "gen_ai.system"}, PatternName: "direct_otel_openai", Confidence: 0.9},
		},
		ExtractionFunctions: map[string]bundle.ExtractionPlanSpec{
			"openai": {Provider: "openai"},
		},
		FieldMappings: map[string]bundle.FieldMappingSpec{
			"openai": {Metadata: map[string]string{"provider": "static_openai"}},
		},
	}
}

func TestFromBundleAcceptsValidBundle(t *testing.T) {
	loader, err := FromBundle("test", validBundle(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai"}, loader.SupportedProviders())
}

func TestFromBundleRejectsMissingExtractionPlan(t *testing.T) {
	b := validBundle()
	delete(b.ExtractionFunctions, "openai")

	_, err := FromBundle("test", b, nil)
	assert.Error(t, err)
}

func TestFromBundleRejectsOutOfRangeConfidence(t *testing.T) {
	b := validBundle()
	b.SignatureToProvider[0].Confidence = 1.5

	_, err := FromBundle("test", b, nil)
	assert.Error(t, err)
}

func TestFromBundleRebuildsMissingInvertedIndex(t *testing.T) {
	b := validBundle()
	b.SignatureToProvider = nil

	loader, err := FromBundle("test", b, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, loader.Bundle().SignatureToProvider)
	assert.Equal(t, 0.9, loader.Bundle().SignatureToProvider[0].Confidence)
}

func TestGetExtractionPlanCachesResult(t *testing.T) {
	loader, err := FromBundle("test", validBundle(), nil)
	require.NoError(t, err)

	first, ok := loader.GetExtractionPlan("openai")
	require.True(t, ok)
	second, ok := loader.GetExtractionPlan("openai")
	require.True(t, ok)
	assert.Same(t, first, second)
}

func TestGetExtractionPlanUnknownProvider(t *testing.T) {
	loader, err := FromBundle("test", validBundle(), nil)
	require.NoError(t, err)

	_, ok := loader.GetExtractionPlan("does-not-exist")
	assert.False(t, ok)
}
