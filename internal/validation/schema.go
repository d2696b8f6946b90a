package validation

import (
	"fmt"
	"regexp"

	"github.com/llmdiscovery/engine/internal/sourceconfig"
)

// versionPattern accepts any "1.x" or "4.x" version string (spec §4.5
// check 1).
var versionPattern = regexp.MustCompile(`^(1|4)\.\d+(\.\d+)?$`)

// CheckYAMLSchema validates every loaded document's version pattern and
// dsl_type discriminator against its expected value (spec §4.5 check 1,
// §3.1's required top-level keys).
func CheckYAMLSchema(tree *sourceconfig.SourceTree) *Result {
	result := newResult(len(tree.RawFiles))

	checkDoc := func(label, version, dslType, expectedDSLType string) {
		if !versionPattern.MatchString(version) {
			result.fail(fmt.Sprintf("%s: version %q does not match pattern 1.x or 4.x", label, version))
		}
		if dslType != expectedDSLType {
			result.fail(fmt.Sprintf("%s: dsl_type %q does not match expected %q", label, dslType, expectedDSLType))
		}
	}

	checkDoc("shared/core_schema.yaml", tree.Shared.CoreSchema.Version, tree.Shared.CoreSchema.DSLType, "core_schema")
	checkDoc("shared/instrumentor_mappings.yaml", tree.Shared.InstrumentorMappings.Version, tree.Shared.InstrumentorMappings.DSLType, "instrumentor_mappings")
	checkDoc("shared/validation_rules.yaml", tree.Shared.ValidationRules.Version, tree.Shared.ValidationRules.DSLType, "validation_rules")

	for _, name := range tree.ProviderOrder {
		cfg := tree.Providers[name]
		checkDoc(fmt.Sprintf("providers/%s/structure_patterns.yaml", name), cfg.StructurePatterns.Version, cfg.StructurePatterns.DSLType, "structure_patterns")
		checkDoc(fmt.Sprintf("providers/%s/navigation_rules.yaml", name), cfg.NavigationRules.Version, cfg.NavigationRules.DSLType, "navigation_rules")
		checkDoc(fmt.Sprintf("providers/%s/field_mappings.yaml", name), cfg.FieldMappings.Version, cfg.FieldMappings.DSLType, "field_mappings")
		checkDoc(fmt.Sprintf("providers/%s/transforms.yaml", name), cfg.Transforms.Version, cfg.Transforms.DSLType, "transforms")

		for patternName, pat := range cfg.StructurePatterns.Patterns {
			if len(pat.SignatureFields) < 2 {
				result.fail(fmt.Sprintf("providers/%s: pattern %q has fewer than 2 signature fields", name, patternName))
			}
		}
	}

	return result
}
