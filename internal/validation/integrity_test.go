package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/llmdiscovery/engine/internal/bundle"
)

func validBundle() *bundle.Bundle {
	return &bundle.Bundle{
		ProviderSignatures: map[string][]bundle.Signature{
			"openai": {{PatternName: "direct_otel_openai", Fields: []string{"a", "b"}, Confidence: 0.9}},
		},
		SignatureToProvider: []bundle.InvertedEntry{
			{Fields: []string{"a", "b"}, PatternName: "direct_otel_openai", Confidence: 0.9},
		},
		ExtractionFunctions: map[string]bundle.ExtractionPlanSpec{"openai": {Provider: "openai"}},
		FieldMappings:       map[string]bundle.FieldMappingSpec{"openai": {}},
		TransformRegistry:   map[string]map[string]bundle.TransformSpec{"openai": {}},
	}
}

func TestCheckBundleIntegrityValid(t *testing.T) {
	result := CheckBundleIntegrity(validBundle())

	assert.True(t, result.OK)
}

func TestCheckBundleIntegrityMissingExtractionPlan(t *testing.T) {
	b := validBundle()
	delete(b.ExtractionFunctions, "openai")

	result := CheckBundleIntegrity(b)

	assert.False(t, result.OK)
}

func TestCheckBundleIntegrityConfidenceOutOfRange(t *testing.T) {
	b := validBundle()
	b.SignatureToProvider[0].Confidence = 1.5

	result := CheckBundleIntegrity(b)

	assert.False(t, result.OK)
}

func TestCheckBundleIntegrityUnregisteredProviderReference(t *testing.T) {
	b := validBundle()
	b.SignatureToProvider = append(b.SignatureToProvider, bundle.InvertedEntry{
		Fields: []string{"x"}, PatternName: "direct_otel_unknownvendor", Confidence: 0.9,
	})

	result := CheckBundleIntegrity(b)

	assert.False(t, result.OK)
}
