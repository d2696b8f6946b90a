package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmdiscovery/engine/internal/bundle"
	"github.com/llmdiscovery/engine/internal/bundleloader"
	"github.com/llmdiscovery/engine/internal/transform"
)

func testBundle() *bundle.Bundle {
	return &bundle.Bundle{
		ProviderSignatures: map[string][]bundle.Signature{
			"openai": {{PatternName: "direct_otel_openai", Fields: []string{"gen_ai.request.model"}, Confidence: 0.9}},
		},
		SignatureToProvider: []bundle.InvertedEntry{
			{Fields: []string{"gen_ai.request.model"}, PatternName: "direct_otel_openai", Confidence: 0.9},
		},
		ExtractionFunctions: map[string]bundle.ExtractionPlanSpec{
			"openai": {
				Provider: "openai",
				Outputs: []bundle.FieldInstruction{
					{
						TargetField: "model",
						Instruction: bundle.Instruction{
							Kind: bundle.InstrDirectNavigation,
							Navigation: &bundle.NavigationRef{
								SourceField:      "gen_ai.request.model",
								ExtractionMethod: "direct_copy",
							},
						},
					},
				},
			},
		},
		NavigationRules: map[string]map[string]bundle.NavigationRef{
			"openai": {
				"model_rule": {SourceField: "gen_ai.request.model", ExtractionMethod: "direct_copy"},
			},
		},
		FieldMappings: map[string]bundle.FieldMappingSpec{
			"openai": {Outputs: map[string]string{"model": "model_rule"}},
		},
		TransformRegistry: map[string]map[string]bundle.TransformSpec{},
		ValidationRules: bundle.ValidationRules{
			WildcardOverlapThreshold: bundle.DefaultWildcardOverlapThreshold,
			ValueScoreThreshold:      bundle.DefaultValueScoreThreshold,
		},
		BuildMetadata: bundle.BuildMetadata{Version: "1.0", ProvidersCount: 1, PatternsCount: 1},
	}
}

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	loader, err := bundleloader.FromBundle("test", testBundle(), nil)
	require.NoError(t, err)
	return New(loader, transform.NewRegistry(), nil)
}

func TestProcessDetectedProviderExtractsFields(t *testing.T) {
	p := newTestProcessor(t)

	ev := p.Process(map[string]any{"gen_ai.request.model": "gpt-4"})

	assert.Equal(t, "gpt-4", ev.Outputs["model"])
	assert.Equal(t, "openai", ev.Metadata["provider"])
	assert.Equal(t, "signature_based", ev.Metadata["detection_method"])
}

func TestProcessUnknownProviderFallsBack(t *testing.T) {
	p := newTestProcessor(t)

	ev := p.Process(map[string]any{"foo.bar": "baz"})

	assert.Equal(t, "unknown", ev.Metadata["provider"])
	assert.Equal(t, "fallback_heuristic", ev.Metadata["detection_method"])
}

func TestProcessNonMapAttributesYieldsEmptyFallback(t *testing.T) {
	p := newTestProcessor(t)

	ev := p.Process("not a map")

	assert.Equal(t, "unknown", ev.Metadata["provider"])
	assert.Empty(t, ev.Inputs)
}

func TestDetectReturnsInstrumentorAndProvider(t *testing.T) {
	p := newTestProcessor(t)

	instrumentor, provider := p.Detect(map[string]any{"gen_ai.request.model": "gpt-4"})

	assert.Equal(t, "direct_otel", instrumentor)
	assert.Equal(t, "openai", provider)
}

func TestValidateAttributesSubsetTest(t *testing.T) {
	p := newTestProcessor(t)

	assert.True(t, p.ValidateAttributes(map[string]any{"gen_ai.request.model": "gpt-4", "extra": 1}, "openai"))
	assert.False(t, p.ValidateAttributes(map[string]any{"unrelated": 1}, "openai"))
	assert.False(t, p.ValidateAttributes(map[string]any{"gen_ai.request.model": "gpt-4"}, "nonexistent"))
}

func TestGetSupportedProviders(t *testing.T) {
	p := newTestProcessor(t)

	assert.Equal(t, []string{"openai"}, p.GetSupportedProviders())
}

func TestGetBundleMetadata(t *testing.T) {
	p := newTestProcessor(t)

	assert.Equal(t, "1.0", p.GetBundleMetadata().Version)
}

func TestStatsTrackProcessCalls(t *testing.T) {
	p := newTestProcessor(t)

	p.Process(map[string]any{"gen_ai.request.model": "gpt-4"})
	p.Process(map[string]any{"foo.bar": "baz"})

	snap := p.Stats()
	assert.EqualValues(t, 2, snap.TotalProcessed)
	assert.EqualValues(t, 1, snap.FallbackUsage)

	p.ResetStats()
	assert.Zero(t, p.Stats().TotalProcessed)
}
