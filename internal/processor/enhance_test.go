package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/llmdiscovery/engine/pkg/event"
)

func TestEnhanceCoercesNilSectionsToEmptyMaps(t *testing.T) {
	ev := enhance(map[string]map[string]any{}, "openai")

	assert.NotNil(t, ev.Inputs)
	assert.NotNil(t, ev.Outputs)
	assert.NotNil(t, ev.Config)
	assert.NotNil(t, ev.Metadata)
}

func TestEnhanceDefaultsProviderWhenAbsent(t *testing.T) {
	ev := enhance(map[string]map[string]any{"metadata": {}}, "anthropic")

	assert.Equal(t, "anthropic", ev.Metadata["provider"])
}

func TestEnhanceDoesNotOverrideExplicitProvider(t *testing.T) {
	ev := enhance(map[string]map[string]any{"metadata": {"provider": "custom"}}, "anthropic")

	assert.Equal(t, "custom", ev.Metadata["provider"])
}

func TestEnhanceSetsSignatureBasedByDefault(t *testing.T) {
	ev := enhance(map[string]map[string]any{}, "openai")

	assert.Equal(t, event.DetectionSignatureBased, ev.Metadata["detection_method"])
	assert.Equal(t, event.ProcessingEngine, ev.Metadata["processing_engine"])
}

func TestEnhancePreservesExistingFallbackHeuristic(t *testing.T) {
	ev := enhance(map[string]map[string]any{
		"metadata": {"detection_method": event.DetectionFallbackHeuristic},
	}, "openai")

	assert.Equal(t, event.DetectionFallbackHeuristic, ev.Metadata["detection_method"])
}
