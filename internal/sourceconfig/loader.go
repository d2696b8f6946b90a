package sourceconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/llmdiscovery/engine/internal/clierrors"
	"github.com/llmdiscovery/engine/internal/diag"
)

const (
	sharedDir             = "shared"
	structurePatternsFile = "structure_patterns.yaml"
	navigationRulesFile   = "navigation_rules.yaml"
	fieldMappingsFile     = "field_mappings.yaml"
	transformsFile        = "transforms.yaml"
	coreSchemaFile        = "core_schema.yaml"
	instrumentorMappingsFile = "instrumentor_mappings.yaml"
	validationRulesFile   = "validation_rules.yaml"
)

var requiredProviderFiles = []string{
	structurePatternsFile,
	navigationRulesFile,
	fieldMappingsFile,
	transformsFile,
}

// LoadOptions configures a Load call.
type LoadOptions struct {
	// SourceDir is the root containing providers/<name>/... and shared/...
	SourceDir string
	// Provider restricts loading to a single provider directory. Empty
	// means "load every complete provider directory."
	Provider string
	Sink     *diag.Sink
}

// Load reads and validates the source config tree rooted at opts.SourceDir,
// following spec §4.1 steps 1-3.
func Load(opts LoadOptions) (*SourceTree, error) {
	sink := opts.Sink
	providersRoot := filepath.Join(opts.SourceDir, "providers")
	sharedRoot := filepath.Join(opts.SourceDir, sharedDir)

	rawFiles := map[string][]byte{}

	shared, err := loadShared(sharedRoot, rawFiles)
	if err != nil {
		return nil, err
	}

	tree := &SourceTree{
		Shared:    *shared,
		Providers: map[string]ProviderConfig{},
		RawFiles:  rawFiles,
	}

	if opts.Provider != "" {
		dir := filepath.Join(providersRoot, opts.Provider)
		info, statErr := os.Stat(dir)
		if statErr != nil || !info.IsDir() {
			return nil, clierrors.NewConfigNotFoundError(
				fmt.Sprintf("provider directory %q does not exist", opts.Provider),
				dir,
				"check --provider against the providers/ directory listing",
			)
		}
		cfg, err := loadProviderDir(opts.Provider, dir, rawFiles)
		if err != nil {
			return nil, err
		}
		tree.Providers[opts.Provider] = *cfg
		tree.ProviderOrder = []string{opts.Provider}
		return tree, validateTree(tree)
	}

	entries, err := os.ReadDir(providersRoot)
	if err != nil {
		return nil, clierrors.NewConfigNotFoundError(
			"providers directory does not exist",
			providersRoot,
			"create providers/<name>/ with the four required YAML files",
		)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		dir := filepath.Join(providersRoot, name)
		if !hasAllRequiredFiles(dir) {
			sink.Warn("skipping incomplete provider directory", "provider", name, "dir", dir)
			continue
		}
		cfg, err := loadProviderDir(name, dir, rawFiles)
		if err != nil {
			return nil, err
		}
		tree.Providers[name] = *cfg
		tree.ProviderOrder = append(tree.ProviderOrder, name)
	}

	if err := validateTree(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func hasAllRequiredFiles(dir string) bool {
	for _, f := range requiredProviderFiles {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return false
		}
	}
	return true
}

func loadShared(sharedRoot string, rawFiles map[string][]byte) (*SharedConfig, error) {
	var out SharedConfig

	if err := decodeYAMLFile(filepath.Join(sharedRoot, coreSchemaFile), &out.CoreSchema, rawFiles); err != nil {
		return nil, err
	}
	if err := decodeYAMLFile(filepath.Join(sharedRoot, instrumentorMappingsFile), &out.InstrumentorMappings, rawFiles); err != nil {
		return nil, err
	}
	if err := decodeYAMLFile(filepath.Join(sharedRoot, validationRulesFile), &out.ValidationRules, rawFiles); err != nil {
		return nil, err
	}
	return &out, nil
}

func loadProviderDir(name, dir string, rawFiles map[string][]byte) (*ProviderConfig, error) {
	cfg := &ProviderConfig{Provider: name}

	if err := decodeYAMLFile(filepath.Join(dir, structurePatternsFile), &cfg.StructurePatterns, rawFiles); err != nil {
		return nil, err
	}
	if err := decodeYAMLFile(filepath.Join(dir, navigationRulesFile), &cfg.NavigationRules, rawFiles); err != nil {
		return nil, err
	}
	if err := decodeYAMLFile(filepath.Join(dir, fieldMappingsFile), &cfg.FieldMappings, rawFiles); err != nil {
		return nil, err
	}
	if err := decodeYAMLFile(filepath.Join(dir, transformsFile), &cfg.Transforms, rawFiles); err != nil {
		return nil, err
	}

	for _, doc := range []struct {
		declared string
		file     string
	}{
		{cfg.StructurePatterns.Provider, structurePatternsFile},
		{cfg.NavigationRules.Provider, navigationRulesFile},
		{cfg.FieldMappings.Provider, fieldMappingsFile},
		{cfg.Transforms.Provider, transformsFile},
	} {
		if doc.declared != name {
			return nil, clierrors.NewInvalidConfigError(
				fmt.Sprintf("declared provider %q does not match directory name %q", doc.declared, name),
				filepath.Join(dir, doc.file),
				"provider",
				"set the document's `provider` field to the containing directory name",
			)
		}
	}

	return cfg, nil
}

// decodeYAMLFile reads and parses a YAML document, recording its raw bytes
// in rawFiles (keyed by path) so the compiler can content-hash the whole
// source tree without a second read pass.
func decodeYAMLFile(path string, out any, rawFiles map[string][]byte) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return clierrors.NewConfigNotFoundError(
			fmt.Sprintf("required config file is missing: %s", filepath.Base(path)),
			path,
			"create the file or point --source-dir at a complete tree",
		)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return clierrors.NewInvalidConfigError(
			fmt.Sprintf("failed to parse YAML: %v", err),
			path,
			"",
			"check indentation and key names against the provider config shape",
		)
	}
	if rawFiles != nil {
		rawFiles[path] = data
	}
	return nil
}

// validateTree enforces the cross-document invariants of spec §3.1:
// every pattern has >=2 signature fields and a confidence_weight in
// [0.5, 1.0], and every field_mappings has all four sections with a
// metadata.provider mapping. The version and dsl_type checks are not run
// here; validation.CheckYAMLSchema performs them.
func validateTree(tree *SourceTree) error {
	for _, name := range tree.ProviderOrder {
		cfg := tree.Providers[name]

		for patternName, pat := range cfg.StructurePatterns.Patterns {
			if len(pat.SignatureFields) < 2 {
				return clierrors.NewInvalidConfigError(
					fmt.Sprintf("pattern %q has fewer than 2 signature fields", patternName),
					filepath.Join("providers", name, structurePatternsFile),
					"signature_fields",
					"every structure pattern requires at least two signature fields to disambiguate providers",
				)
			}
			if pat.ConfidenceWeight < 0.5 || pat.ConfidenceWeight > 1.0 {
				return clierrors.NewInvalidConfigError(
					fmt.Sprintf("pattern %q has confidence_weight %.2f outside [0.5, 1.0]", patternName, pat.ConfidenceWeight),
					filepath.Join("providers", name, structurePatternsFile),
					"confidence_weight",
					"confidence_weight must be in [0.5, 1.0]",
				)
			}
		}

		for _, section := range cfg.FieldMappings.Sections() {
			if section.Map == nil {
				return clierrors.NewInvalidConfigError(
					fmt.Sprintf("provider %q field_mappings is missing the %s section", name, section.Name),
					filepath.Join("providers", name, fieldMappingsFile),
					section.Name,
					"field_mappings must declare inputs, outputs, config, and metadata sections",
				)
			}
		}
		if _, ok := cfg.FieldMappings.Metadata["provider"]; !ok {
			return clierrors.NewInvalidConfigError(
				fmt.Sprintf("provider %q field_mappings.metadata is missing a \"provider\" field", name),
				filepath.Join("providers", name, fieldMappingsFile),
				"metadata.provider",
				"the metadata section must include a `provider` target field",
			)
		}
	}
	return nil
}

// knownInstrumentors mirrors internal/detect's list: instrumentor names
// that may themselves contain an underscore (e.g. "direct_otel"), tried as
// prefixes before the first-underscore split so pattern names split
// correctly.
var knownInstrumentors = []string{"direct_otel", "traceloop", "openinference", "openlit"}

// ParsePatternName splits a pattern_name into (instrumentor, provider), per
// spec §3.1. A name without an underscore is treated as unknown_{provider}.
func ParsePatternName(patternName string) (instrumentor, provider string) {
	for _, known := range knownInstrumentors {
		if strings.HasPrefix(patternName, known+"_") {
			return known, strings.TrimPrefix(patternName, known+"_")
		}
	}

	idx := strings.Index(patternName, "_")
	if idx < 0 {
		return "unknown", patternName
	}
	return patternName[:idx], patternName[idx+1:]
}
