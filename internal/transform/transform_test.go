package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMessageContentFiltersAndJoins(t *testing.T) {
	extracted := map[string]any{
		"llm.input_messages": []any{
			map[string]any{"role": "system", "content": "ignored"},
			map[string]any{"role": "user", "content": "A"},
			map[string]any{"role": "user", "content": "B"},
		},
	}
	parameters := map[string]any{
		"messages_field": "llm.input_messages",
		"role_filter":    "user",
		"content_field":  "content",
		"join_multiple":  true,
		"separator":      "\n\n",
	}

	value, ok := extractMessageContent(extracted, parameters)
	require.True(t, ok)
	assert.Equal(t, "A\n\nB", value)
}

func TestExtractMessageContentWithoutJoinReturnsFirst(t *testing.T) {
	extracted := map[string]any{
		"messages": []any{
			map[string]any{"role": "user", "content": "A"},
			map[string]any{"role": "user", "content": "B"},
		},
	}

	value, ok := extractMessageContent(extracted, map[string]any{"role_filter": "user", "join_multiple": false})
	require.True(t, ok)
	assert.Equal(t, "A", value)
}

func TestExtractMessageContentMissingFieldFails(t *testing.T) {
	_, ok := extractMessageContent(map[string]any{}, map[string]any{})
	assert.False(t, ok)
}

func TestExtractMessageContentNoMatchingRoleFails(t *testing.T) {
	extracted := map[string]any{
		"messages": []any{
			map[string]any{"role": "system", "content": "ignored"},
		},
	}
	_, ok := extractMessageContent(extracted, map[string]any{"role_filter": "user"})
	assert.False(t, ok)
}

func TestSumFieldsAddsPresentNumericValues(t *testing.T) {
	extracted := map[string]any{
		"gen_ai.usage.prompt_tokens":     100,
		"gen_ai.usage.completion_tokens": 42.0,
	}
	value, ok := sumFields(extracted, map[string]any{
		"source_fields": []any{"gen_ai.usage.prompt_tokens", "gen_ai.usage.completion_tokens", "missing.field"},
	})
	require.True(t, ok)
	assert.Equal(t, 142.0, value)
}

func TestSumFieldsFailsWhenNoFieldPresent(t *testing.T) {
	_, ok := sumFields(map[string]any{}, map[string]any{"source_fields": []any{"a", "b"}})
	assert.False(t, ok)
}

func TestDetectInstrumentorFrameworkPicksSubsetMatch(t *testing.T) {
	extracted := map[string]any{
		"gen_ai.request.model": "gpt-4",
		"gen_ai.system":        "openai",
	}
	parameters := map[string]any{
		"attribute_patterns": map[string]any{
			"traceloop":     []any{"gen_ai.request.model", "gen_ai.system"},
			"openinference": []any{"llm.model_name"},
		},
	}

	value, ok := detectInstrumentorFramework(extracted, parameters)
	require.True(t, ok)
	assert.Equal(t, "traceloop", value)
}

func TestDetectInstrumentorFrameworkReturnsUnknownWhenNoMatch(t *testing.T) {
	value, ok := detectInstrumentorFramework(map[string]any{}, map[string]any{
		"attribute_patterns": map[string]any{"traceloop": []any{"gen_ai.request.model"}},
	})
	require.True(t, ok)
	assert.Equal(t, "unknown", value)
}

func TestRegistryInvokeRecoversFromPanic(t *testing.T) {
	r := NewRegistry()
	r.Register("boom", func(map[string]any, map[string]any) (any, bool) {
		panic("exploded")
	})

	value, ok := r.Invoke("boom", nil, nil)
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestRegistryInvokeUnknownNameFails(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Invoke("nope", nil, nil)
	assert.False(t, ok)
}

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []string{"extract_user_message_content", "extract_assistant_message_content", "sum_fields", "detect_instrumentor_framework"} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, "missing builtin %s", name)
	}
}
