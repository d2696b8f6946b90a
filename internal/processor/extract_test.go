package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/llmdiscovery/engine/internal/bundle"
)

type fakeInvoker struct {
	value any
	ok    bool
}

func (f fakeInvoker) Invoke(name string, extracted, parameters map[string]any) (any, bool) {
	return f.value, f.ok
}

func TestExecuteInstructionStatic(t *testing.T) {
	instr := bundle.Instruction{Kind: bundle.InstrStatic, Literal: "openai"}
	got := executeInstruction(instr, "", nil, nil, fakeInvoker{})
	assert.Equal(t, "openai", got)
}

func TestExecuteInstructionDirectNavigation(t *testing.T) {
	instr := bundle.Instruction{
		Kind: bundle.InstrDirectNavigation,
		Navigation: &bundle.NavigationRef{
			SourceField:      "gen_ai.request.model",
			ExtractionMethod: "direct_copy",
		},
	}
	attrs := map[string]any{"gen_ai.request.model": "gpt-4"}

	assert.Equal(t, "gpt-4", executeInstruction(instr, "", attrs, nil, fakeInvoker{}))
}

func TestExecuteInstructionTransformSuccess(t *testing.T) {
	instr := bundle.Instruction{
		Kind:      bundle.InstrTransform,
		Transform: &bundle.TransformRef{Implementation: "extract_user_message_content"},
		Fallback:  "",
	}

	got := executeInstruction(instr, "", nil, nil, fakeInvoker{value: "hello", ok: true})
	assert.Equal(t, "hello", got)
}

func TestExecuteInstructionTransformFailureUsesFallback(t *testing.T) {
	instr := bundle.Instruction{
		Kind:      bundle.InstrTransform,
		Transform: &bundle.TransformRef{Implementation: "sum_fields"},
		Fallback:  0,
	}

	got := executeInstruction(instr, "", nil, nil, fakeInvoker{ok: false})
	assert.Equal(t, 0, got)
}

func instrumentorRoutedInstruction() bundle.Instruction {
	return bundle.Instruction{
		Kind: bundle.InstrInstrumentorRouted,
		Routes: []bundle.InstrumentorRoute{
			{Instrumentor: "traceloop", Navigation: bundle.NavigationRef{SourceField: "gen_ai.prompt", ExtractionMethod: "direct_copy"}},
			{Instrumentor: "openinference", Navigation: bundle.NavigationRef{SourceField: "llm.prompt", ExtractionMethod: "direct_copy"}},
		},
	}
}

// The routing choice is indexed by the detected instrumentor (spec §4.1
// step 5), not by which route's raw attribute key happens to be present:
// both source fields are present here, but the detected instrumentor
// ("openinference") decides which route runs.
func TestExecuteInstructionInstrumentorRoutedMatchesDetectedInstrumentor(t *testing.T) {
	instr := instrumentorRoutedInstruction()
	attrs := map[string]any{"gen_ai.prompt": "wrong route", "llm.prompt": "hi"}

	assert.Equal(t, "hi", executeInstruction(instr, "openinference", attrs, nil, fakeInvoker{}))
}

func TestExecuteInstructionInstrumentorRoutedIgnoresOtherInstrumentorsAttribute(t *testing.T) {
	instr := instrumentorRoutedInstruction()
	attrs := map[string]any{"gen_ai.prompt": "from traceloop", "llm.prompt": "from openinference"}

	assert.Equal(t, "from traceloop", executeInstruction(instr, "traceloop", attrs, nil, fakeInvoker{}))
}

// When no route was compiled for the detected instrumentor, resolution
// falls back to the first route whose source field is actually present.
func TestExecuteInstructionInstrumentorRoutedFallsBackWhenInstrumentorUnrouted(t *testing.T) {
	instr := instrumentorRoutedInstruction()
	attrs := map[string]any{"llm.prompt": "hi"}

	assert.Equal(t, "hi", executeInstruction(instr, "direct_otel", attrs, nil, fakeInvoker{}))
}

func TestExecuteInstructionInstrumentorRoutedNoMatchIsNull(t *testing.T) {
	instr := bundle.Instruction{
		Kind: bundle.InstrInstrumentorRouted,
		Routes: []bundle.InstrumentorRoute{
			{Instrumentor: "traceloop", Navigation: bundle.NavigationRef{SourceField: "gen_ai.prompt", ExtractionMethod: "direct_copy"}},
		},
	}

	assert.Nil(t, executeInstruction(instr, "openinference", map[string]any{}, nil, fakeInvoker{}))
}

func TestBuildExtractedMapOverlaysRuleOutputsByName(t *testing.T) {
	rules := map[string]bundle.NavigationRef{
		"model_rule": {SourceField: "gen_ai.request.model", ExtractionMethod: "direct_copy"},
	}
	attrs := map[string]any{"gen_ai.request.model": "gpt-4", "other": "x"}

	extracted := buildExtractedMap(rules, attrs)

	assert.Equal(t, "x", extracted["other"])
	assert.Equal(t, "gpt-4", extracted["model_rule"])
}
