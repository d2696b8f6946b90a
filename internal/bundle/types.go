// Package bundle defines the compiled, immutable runtime form of provider
// configuration (spec §3.2): signature indices for detection, tagged
// extraction-plan instructions for the two-pass extractor, and the
// per-provider registries the processor consults at runtime.
//
// A Bundle never holds executable code — every extraction step is a tagged
// instruction record interpreted by the processor, not generated code or an
// eval'd expression, per the engine's "no runtime code generation" design
// note.
package bundle

import "sort"

// Signature is one named structural pattern: the set of attribute-key
// fields that identify it, and the confidence used to resolve collisions
// against other providers' signatures.
type Signature struct {
	PatternName string   `cbor:"pattern_name"`
	Fields      []string `cbor:"fields"` // sorted, canonical
	Confidence  float64  `cbor:"confidence"`
	Priority    int      `cbor:"priority"`
}

// InvertedEntry is one entry of the signature_to_provider inverted index:
// the winning (pattern_name, confidence) for a given field-set key.
type InvertedEntry struct {
	Fields      []string `cbor:"fields"`
	PatternName string   `cbor:"pattern_name"`
	Confidence  float64  `cbor:"confidence"`
}

// InstructionKind discriminates the four extraction-plan instruction forms
// from spec §4.1 step 5.
type InstructionKind int

const (
	InstrNull InstructionKind = iota
	InstrStatic
	InstrDirectNavigation
	InstrTransform
	InstrInstrumentorRouted
)

// NavigationRef is a compiled reference to a navigation rule: where to
// read, how to read it, and the fallback to substitute on absence.
type NavigationRef struct {
	SourceField      string `cbor:"source_field"`
	ExtractionMethod string `cbor:"extraction_method"`
	FallbackValue    any    `cbor:"fallback_value"`
}

// TransformRef is a compiled reference to a transform invocation: the
// registered implementation name and the parameters copied from config.
type TransformRef struct {
	Implementation string         `cbor:"implementation"`
	Parameters     map[string]any `cbor:"parameters"`
}

// InstrumentorRoute is one alternative of an instrumentor-routed
// instruction, tried in the order compiled.
type InstrumentorRoute struct {
	Instrumentor string        `cbor:"instrumentor"`
	Navigation   NavigationRef `cbor:"navigation"`
}

// Instruction is a single tagged extraction-plan step for one target field.
// Exactly one of Literal/Navigation/Transform/Routes is meaningful,
// selected by Kind.
type Instruction struct {
	Kind        InstructionKind     `cbor:"kind"`
	Literal     any                 `cbor:"literal,omitempty"`
	Navigation  *NavigationRef      `cbor:"navigation,omitempty"`
	Transform   *TransformRef       `cbor:"transform,omitempty"`
	Routes      []InstrumentorRoute `cbor:"routes,omitempty"`
	Fallback    any                 `cbor:"fallback,omitempty"`
}

// FieldInstruction pairs a target field name with its compiled instruction.
type FieldInstruction struct {
	TargetField string      `cbor:"target_field"`
	Instruction Instruction `cbor:"instruction"`
}

// ExtractionPlanSpec is the compiled, per-provider extraction plan: the
// four sections in the fixed processing order (inputs, outputs, config,
// metadata), each an ordered list of field instructions. This is the
// bundle's on-disk form of "extraction_functions" (spec §3.2) — tagged
// instruction records rather than serialized code.
type ExtractionPlanSpec struct {
	Provider string             `cbor:"provider"`
	Inputs   []FieldInstruction `cbor:"inputs"`
	Outputs  []FieldInstruction `cbor:"outputs"`
	Config   []FieldInstruction `cbor:"config"`
	Metadata []FieldInstruction `cbor:"metadata"`
}

// Sections returns the plan's four sections in the canonical processing
// order, paired with their section name.
func (p *ExtractionPlanSpec) Sections() []struct {
	Name  string
	Items []FieldInstruction
} {
	return []struct {
		Name  string
		Items []FieldInstruction
	}{
		{"inputs", p.Inputs},
		{"outputs", p.Outputs},
		{"config", p.Config},
		{"metadata", p.Metadata},
	}
}

// FieldMappingSpec is the raw (target_field -> source_rule) mapping kept
// in the bundle for introspection and the validation suite's "every
// provider appears in field mappings" check — distinct from the compiled
// ExtractionPlanSpec that the processor actually executes.
type FieldMappingSpec struct {
	Inputs   map[string]string `cbor:"inputs"`
	Outputs  map[string]string `cbor:"outputs"`
	Config   map[string]string `cbor:"config"`
	Metadata map[string]string `cbor:"metadata"`
}

// TransformSpec is one compiled transform registration: implementation
// name plus parameters, scoped per-provider.
type TransformSpec struct {
	Implementation string         `cbor:"implementation"`
	Parameters     map[string]any `cbor:"parameters"`
}

// ValidationRules is the compiled form of the shared validation_rules.yaml:
// tunable detection thresholds and performance baselines.
type ValidationRules struct {
	WildcardOverlapThreshold float64            `cbor:"wildcard_overlap_threshold"`
	ValueScoreThreshold      float64            `cbor:"value_score_threshold"`
	PerformanceBaselines     map[string]float64 `cbor:"performance_baselines"`
}

// DefaultWildcardOverlapThreshold is the spec's compiled-in default (§4.4.1
// step 4) used when validation_rules.yaml does not override it.
const DefaultWildcardOverlapThreshold = 0.80

// DefaultValueScoreThreshold is the spec's compiled-in accept threshold
// for value-based detection (§4.4.1 step 6 / §4.4.2).
const DefaultValueScoreThreshold = 100.0

// BuildMetadata records provenance for a compiled bundle (spec §3.2,
// §6.1's metadata sidecar).
type BuildMetadata struct {
	Version         string            `cbor:"version" json:"version"`
	BuildTimestamp  int64             `cbor:"build_timestamp" json:"build_timestamp"`
	ProvidersCount  int               `cbor:"providers_count" json:"providers_count"`
	PatternsCount   int               `cbor:"patterns_count" json:"patterns_count"`
	SourceHash      string            `cbor:"source_hash" json:"source_hash"`
	CompilerVersion string            `cbor:"compiler_version" json:"compiler_version"`
	Flags           map[string]string `cbor:"flags,omitempty" json:"flags,omitempty"`
}

// Bundle is the full immutable compiled artifact consumed by the loader
// and, through it, the processor.
type Bundle struct {
	ProviderSignatures  map[string][]Signature              `cbor:"provider_signatures"`
	SignatureToProvider []InvertedEntry                     `cbor:"signature_to_provider"`
	ExtractionFunctions map[string]ExtractionPlanSpec        `cbor:"extraction_functions"`
	// NavigationRules holds every provider's declared navigation rules,
	// keyed by rule name, so the processor's PASS 1 (spec §4.4.3) can
	// execute "every navigation_rule used by the field mappings" at
	// runtime without re-parsing source YAML.
	NavigationRules   map[string]map[string]NavigationRef `cbor:"navigation_rules"`
	FieldMappings     map[string]FieldMappingSpec          `cbor:"field_mappings"`
	TransformRegistry map[string]map[string]TransformSpec  `cbor:"transform_registry"`
	ValidationRules   ValidationRules                      `cbor:"validation_rules"`
	BuildMetadata     BuildMetadata                        `cbor:"build_metadata"`
}

// SupportedProviders returns the bundle's provider names in sorted order.
func (b *Bundle) SupportedProviders() []string {
	names := make([]string, 0, len(b.ProviderSignatures))
	for name := range b.ProviderSignatures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
