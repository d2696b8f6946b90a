package compiler

import (
	"fmt"

	"github.com/llmdiscovery/engine/internal/bundle"
	"github.com/llmdiscovery/engine/internal/clierrors"
	"github.com/llmdiscovery/engine/internal/sourceconfig"
)

// selfCheck runs the compiler's own structural invariant check before
// writing the bundle (spec §4.1 step 7): every provider must appear in the
// signature index, the extraction plans, and the field mapping registry;
// every confidence must be in [0, 1]. This is a strict subset of
// internal/validation's bundle-integrity check, run inline so a bad
// compile never produces an artifact on disk.
func selfCheck(b *bundle.Bundle, tree *sourceconfig.SourceTree) error {
	for _, name := range tree.ProviderOrder {
		if _, ok := b.ProviderSignatures[name]; !ok {
			return clierrors.NewBundleCorruptError(
				fmt.Sprintf("provider %q is missing from the compiled signature index", name),
				"",
				"this indicates a compiler defect, not a config error — please report it",
			)
		}
		if _, ok := b.ExtractionFunctions[name]; !ok {
			return clierrors.NewBundleCorruptError(
				fmt.Sprintf("provider %q is missing from the compiled extraction plans", name),
				"",
				"this indicates a compiler defect, not a config error — please report it",
			)
		}
		if _, ok := b.FieldMappings[name]; !ok {
			return clierrors.NewBundleCorruptError(
				fmt.Sprintf("provider %q is missing from the compiled field mapping registry", name),
				"",
				"this indicates a compiler defect, not a config error — please report it",
			)
		}
	}

	for _, entry := range b.SignatureToProvider {
		if entry.Confidence < 0 || entry.Confidence > 1 {
			return clierrors.NewBundleCorruptError(
				fmt.Sprintf("pattern %q has confidence %.4f outside [0, 1]", entry.PatternName, entry.Confidence),
				"",
				"confidence_weight must be in [0.5, 1.0] in structure_patterns.yaml",
			)
		}
	}

	return nil
}
