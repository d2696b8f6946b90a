package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/llmdiscovery/engine/pkg/event"
)

func TestProcessFallbackClassifiesBySubstring(t *testing.T) {
	attrs := map[string]any{
		"user.prompt":      "hello",
		"model.response":   "hi there",
		"llm.temperature":  0.7,
		"span.resource_id": "abc123",
	}

	ev := processFallback(attrs)

	assert.Equal(t, "hello", ev.Inputs["user.prompt"])
	assert.Equal(t, "hi there", ev.Outputs["model.response"])
	assert.Equal(t, 0.7, ev.Config["llm.temperature"])
	assert.Equal(t, "abc123", ev.Metadata["span.resource_id"])
	assert.Equal(t, event.UnknownProvider, ev.Metadata["provider"])
	assert.Equal(t, event.DetectionFallbackHeuristic, ev.Metadata["detection_method"])
	assert.Equal(t, event.ProcessingEngine, ev.Metadata["processing_engine"])
}

func TestProcessFallbackEmptyAttributes(t *testing.T) {
	ev := processFallback(map[string]any{})

	assert.Empty(t, ev.Inputs)
	assert.Empty(t, ev.Outputs)
	assert.Empty(t, ev.Config)
	assert.Equal(t, event.UnknownProvider, ev.Metadata["provider"])
}
