// Package sourceconfig defines the on-disk YAML shapes authored by humans
// for each provider (structure patterns, navigation rules, field mappings,
// transforms) and the shared cross-provider documents (core schema,
// instrumentor mappings, validation rules), plus the loader that turns a
// source directory tree into validated in-memory documents for the
// compiler to index.
package sourceconfig

// StructurePatternsDoc is the parsed form of a provider's
// structure_patterns.yaml: a named set of attribute-key signatures, each
// with a confidence weight used to resolve collisions across providers.
type StructurePatternsDoc struct {
	Version  string                     `yaml:"version"`
	Provider string                     `yaml:"provider"`
	DSLType  string                     `yaml:"dsl_type"`
	Patterns map[string]StructurePattern `yaml:"patterns"`
}

// StructurePattern describes one named signature: the set of attribute keys
// that, together, identify a provider/instrumentor combination.
type StructurePattern struct {
	SignatureFields  []string `yaml:"signature_fields"`
	ConfidenceWeight float64  `yaml:"confidence_weight"`
	OptionalFields   []string `yaml:"optional_fields,omitempty"`
	Priority         int      `yaml:"priority,omitempty"`
}

// NavigationRulesDoc is the parsed form of a provider's
// navigation_rules.yaml: named rules for pulling a value out of the raw
// attribute map.
type NavigationRulesDoc struct {
	Version  string                    `yaml:"version"`
	Provider string                    `yaml:"provider"`
	DSLType  string                    `yaml:"dsl_type"`
	Rules    map[string]NavigationRule `yaml:"rules"`
}

// ExtractionMethod names one of the three ways a navigation rule reads a
// value out of a raw attribute map.
type ExtractionMethod string

const (
	ExtractDirectCopy   ExtractionMethod = "direct_copy"
	ExtractArrayFlatten ExtractionMethod = "array_flatten"
	ExtractObjectMerge  ExtractionMethod = "object_merge"
)

// NavigationRule is one named rule: where to read from, how to read it, and
// what to substitute when the field is absent.
type NavigationRule struct {
	SourceField     string           `yaml:"source_field"`
	ExtractionMethod ExtractionMethod `yaml:"extraction_method"`
	FallbackValue   any              `yaml:"fallback_value"`
}

// FieldMappingsDoc is the parsed form of a provider's field_mappings.yaml:
// the four required sections, each mapping a target field in the
// normalized event to a named source rule.
type FieldMappingsDoc struct {
	Version  string                  `yaml:"version"`
	Provider string                  `yaml:"provider"`
	DSLType  string                  `yaml:"dsl_type"`
	Inputs   map[string]FieldMapping `yaml:"inputs"`
	Outputs  map[string]FieldMapping `yaml:"outputs"`
	Config   map[string]FieldMapping `yaml:"config"`
	Metadata map[string]FieldMapping `yaml:"metadata"`
}

// FieldMapping names the source rule that resolves a single target field.
type FieldMapping struct {
	SourceRule string `yaml:"source_rule"`
}

// Sections returns the four field-mapping sections in the canonical
// processing order: inputs, outputs, config, metadata.
func (d *FieldMappingsDoc) Sections() []struct {
	Name string
	Map  map[string]FieldMapping
} {
	return []struct {
		Name string
		Map  map[string]FieldMapping
	}{
		{"inputs", d.Inputs},
		{"outputs", d.Outputs},
		{"config", d.Config},
		{"metadata", d.Metadata},
	}
}

// TransformsDoc is the parsed form of a provider's transforms.yaml: named
// transform invocations, each naming a registry implementation and the
// YAML parameters it is called with.
type TransformsDoc struct {
	Version    string                     `yaml:"version"`
	Provider   string                     `yaml:"provider"`
	DSLType    string                     `yaml:"dsl_type"`
	Transforms map[string]TransformConfig `yaml:"transforms"`
}

// TransformConfig names one registered transform implementation and its
// parameters.
type TransformConfig struct {
	Implementation string         `yaml:"implementation"`
	Parameters     map[string]any `yaml:"parameters"`
}

// ProviderConfig bundles a single provider's four required documents.
type ProviderConfig struct {
	Provider         string
	StructurePatterns StructurePatternsDoc
	NavigationRules  NavigationRulesDoc
	FieldMappings    FieldMappingsDoc
	Transforms       TransformsDoc
}

// CoreSchemaDoc is the shared core_schema.yaml: version constraints and the
// discriminator values (`dsl_type`) expected per document kind.
type CoreSchemaDoc struct {
	Version     string            `yaml:"version"`
	DSLType     string            `yaml:"dsl_type"`
	VersionPattern string         `yaml:"version_pattern,omitempty"`
	DSLTypes    map[string]string `yaml:"dsl_types,omitempty"`
}

// InstrumentorMappingsDoc is the shared instrumentor_mappings.yaml: the
// attribute-key prefix each instrumentor is recognized by. The compiler
// uses its instrumentor names as the routing order for instrumentor-routed
// field mappings; runtime instrumentor inference uses its own compiled-in
// prefix table instead.
type InstrumentorMappingsDoc struct {
	Version      string            `yaml:"version"`
	DSLType      string            `yaml:"dsl_type"`
	PrefixToInstrumentor map[string]string `yaml:"prefix_to_instrumentor"`
}

// ValidationRulesDoc is the shared validation_rules.yaml: tunable
// thresholds for detection and validation (the wildcard overlap threshold,
// the value-based detection accept threshold, performance baselines).
type ValidationRulesDoc struct {
	Version                 string             `yaml:"version"`
	DSLType                 string             `yaml:"dsl_type"`
	WildcardOverlapThreshold float64           `yaml:"wildcard_overlap_threshold,omitempty"`
	ValueScoreThreshold      float64           `yaml:"value_score_threshold,omitempty"`
	PerformanceBaselines     map[string]float64 `yaml:"performance_baselines,omitempty"`
}

// SharedConfig bundles the three cross-provider documents.
type SharedConfig struct {
	CoreSchema           CoreSchemaDoc
	InstrumentorMappings InstrumentorMappingsDoc
	ValidationRules      ValidationRulesDoc
}

// SourceTree is everything the compiler needs: the shared documents plus
// every loaded provider, keyed by provider name.
type SourceTree struct {
	Shared    SharedConfig
	Providers map[string]ProviderConfig
	// ProviderOrder preserves directory-scan order for deterministic
	// compiler diagnostics and build-metadata counts.
	ProviderOrder []string
	// RawFiles holds the raw bytes of every YAML document read, keyed by
	// path, for the compiler's source content hash.
	RawFiles map[string][]byte
}
