package compiler

import (
	"sort"
	"strings"

	"github.com/llmdiscovery/engine/internal/bundle"
	"github.com/llmdiscovery/engine/internal/sourceconfig"
)

// knownInstrumentorPrefixes is the default canonical routing order used
// when the shared instrumentor_mappings document doesn't supply one. It
// matches the prefixes spec §4.4.1's standalone instrumentor inference
// recognizes.
var knownInstrumentorPrefixes = []string{"traceloop", "openinference", "openlit", "direct_otel"}

// compileExtractionPlans builds the per-provider, per-section, per-field
// tagged instruction list (spec §4.1 step 5).
func compileExtractionPlans(tree *sourceconfig.SourceTree) map[string]bundle.ExtractionPlanSpec {
	instrumentorOrder := instrumentorRoutingOrder(tree)

	plans := make(map[string]bundle.ExtractionPlanSpec, len(tree.ProviderOrder))
	for _, providerName := range tree.ProviderOrder {
		cfg := tree.Providers[providerName]
		plans[providerName] = compileProviderPlan(providerName, cfg, instrumentorOrder)
	}
	return plans
}

func instrumentorRoutingOrder(tree *sourceconfig.SourceTree) []string {
	seen := map[string]bool{}
	var order []string
	for _, v := range tree.Shared.InstrumentorMappings.PrefixToInstrumentor {
		if !seen[v] {
			seen[v] = true
			order = append(order, v)
		}
	}
	if len(order) == 0 {
		return append([]string(nil), knownInstrumentorPrefixes...)
	}
	sort.Strings(order)
	return order
}

func compileProviderPlan(providerName string, cfg sourceconfig.ProviderConfig, instrumentorOrder []string) bundle.ExtractionPlanSpec {
	plan := bundle.ExtractionPlanSpec{Provider: providerName}

	sections := cfg.FieldMappings.Sections()
	for _, section := range sections {
		targetFields := make([]string, 0, len(section.Map))
		for f := range section.Map {
			targetFields = append(targetFields, f)
		}
		sort.Strings(targetFields)

		items := make([]bundle.FieldInstruction, 0, len(targetFields))
		for _, target := range targetFields {
			sourceRule := section.Map[target].SourceRule
			instr := compileInstruction(sourceRule, cfg, instrumentorOrder)
			items = append(items, bundle.FieldInstruction{TargetField: target, Instruction: instr})
		}

		switch section.Name {
		case "inputs":
			plan.Inputs = items
		case "outputs":
			plan.Outputs = items
		case "config":
			plan.Config = items
		case "metadata":
			plan.Metadata = items
		}
	}

	return plan
}

const staticPrefix = "static_"

func compileInstruction(sourceRule string, cfg sourceconfig.ProviderConfig, instrumentorOrder []string) bundle.Instruction {
	if strings.HasPrefix(sourceRule, staticPrefix) {
		literal := strings.TrimPrefix(sourceRule, staticPrefix)
		return bundle.Instruction{Kind: bundle.InstrStatic, Literal: literal}
	}

	if tc, ok := cfg.Transforms.Transforms[sourceRule]; ok {
		var fallback any
		if tc.Parameters != nil {
			fallback = tc.Parameters["fallback_value"]
		}
		return bundle.Instruction{
			Kind: bundle.InstrTransform,
			Transform: &bundle.TransformRef{
				Implementation: tc.Implementation,
				Parameters:     tc.Parameters,
			},
			Fallback: fallback,
		}
	}

	if rule, ok := cfg.NavigationRules.Rules[sourceRule]; ok {
		return bundle.Instruction{
			Kind: bundle.InstrDirectNavigation,
			Navigation: &bundle.NavigationRef{
				SourceField:      rule.SourceField,
				ExtractionMethod: string(rule.ExtractionMethod),
				FallbackValue:    rule.FallbackValue,
			},
		}
	}

	if routes := compileInstrumentorRoutes(sourceRule, cfg, instrumentorOrder); len(routes) > 0 {
		return bundle.Instruction{Kind: bundle.InstrInstrumentorRouted, Routes: routes}
	}

	return bundle.Instruction{Kind: bundle.InstrNull}
}

// compileInstrumentorRoutes looks for navigation rules named
// "<instrumentor>_<baseName>" across the canonical instrumentor order,
// where baseName is sourceRule with any known instrumentor prefix
// stripped. Per spec §4.1 step 5, this covers both a source_rule that
// already carries an instrumentor prefix (not found directly — e.g. a typo
// or a provider that only defines some of the variants) and a bare base
// name with instrumentor-specific variants.
func compileInstrumentorRoutes(sourceRule string, cfg sourceconfig.ProviderConfig, instrumentorOrder []string) []bundle.InstrumentorRoute {
	baseName := sourceRule
	for _, prefix := range instrumentorOrder {
		if strings.HasPrefix(sourceRule, prefix+"_") {
			baseName = strings.TrimPrefix(sourceRule, prefix+"_")
			break
		}
	}

	var routes []bundle.InstrumentorRoute
	for _, instrumentor := range instrumentorOrder {
		candidate := instrumentor + "_" + baseName
		rule, ok := cfg.NavigationRules.Rules[candidate]
		if !ok {
			continue
		}
		routes = append(routes, bundle.InstrumentorRoute{
			Instrumentor: instrumentor,
			Navigation: bundle.NavigationRef{
				SourceField:      rule.SourceField,
				ExtractionMethod: string(rule.ExtractionMethod),
				FallbackValue:    rule.FallbackValue,
			},
		})
	}
	return routes
}
