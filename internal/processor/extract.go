package processor

import "github.com/llmdiscovery/engine/internal/bundle"

// buildExtractedMap runs PASS 1 of the two-pass extractor (spec §4.4.3):
// start from a copy of the raw attributes, then execute every navigation
// rule declared for the detected provider and write its resolved value
// under the rule's own name. Downstream transforms read this map, never
// the raw attributes directly.
func buildExtractedMap(rules map[string]bundle.NavigationRef, attrs map[string]any) map[string]any {
	extracted := make(map[string]any, len(attrs)+len(rules))
	for k, v := range attrs {
		extracted[k] = v
	}
	for ruleName, ref := range rules {
		extracted[ruleName] = executeNavigation(ref, attrs)
	}
	return extracted
}

// executePlanSection runs PASS 2 (spec §4.4.3) for one section of the
// extraction plan, returning the target-field -> resolved-value map.
// instrumentor is the cascade's detected instrumentor, used to resolve
// InstrInstrumentorRouted instructions (spec §4.1 step 5).
func executePlanSection(items []bundle.FieldInstruction, instrumentor string, attrs, extracted map[string]any, registry transformInvoker) map[string]any {
	out := make(map[string]any, len(items))
	for _, fi := range items {
		out[fi.TargetField] = executeInstruction(fi.Instruction, instrumentor, attrs, extracted, registry)
	}
	return out
}

// transformInvoker is the subset of *transform.Registry the processor
// needs, named locally so this package does not import transform's
// concrete type into its exported surface.
type transformInvoker interface {
	Invoke(name string, extracted, parameters map[string]any) (any, bool)
}

func executeInstruction(instr bundle.Instruction, instrumentor string, attrs, extracted map[string]any, registry transformInvoker) any {
	switch instr.Kind {
	case bundle.InstrStatic:
		return instr.Literal

	case bundle.InstrDirectNavigation:
		if instr.Navigation == nil {
			return nil
		}
		return executeNavigation(*instr.Navigation, attrs)

	case bundle.InstrTransform:
		if instr.Transform == nil {
			return instr.Fallback
		}
		value, ok := registry.Invoke(instr.Transform.Implementation, extracted, instr.Transform.Parameters)
		if !ok {
			return instr.Fallback
		}
		return value

	case bundle.InstrInstrumentorRouted:
		return executeInstrumentorRoute(instr.Routes, instrumentor, attrs)

	default:
		return nil
	}
}

// executeInstrumentorRoute resolves an instrumentor-routed instruction by
// the detected instrumentor (spec §4.1 step 5: "the plan emits a routing
// choice indexed by the detected instrumentor at runtime"), not by
// scanning for whichever route's raw attribute key happens to be present.
// Only when no route was compiled for the detected instrumentor does it
// fall back to the first route whose source field is actually present, a
// best-effort match for an instrumentor the compiled routes don't name.
func executeInstrumentorRoute(routes []bundle.InstrumentorRoute, instrumentor string, attrs map[string]any) any {
	for _, route := range routes {
		if route.Instrumentor == instrumentor {
			return executeNavigation(route.Navigation, attrs)
		}
	}

	for _, route := range routes {
		if _, ok := attrs[route.Navigation.SourceField]; ok {
			return executeNavigation(route.Navigation, attrs)
		}
	}
	return nil
}
