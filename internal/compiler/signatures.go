package compiler

import (
	"sort"

	"github.com/llmdiscovery/engine/internal/bundle"
	"github.com/llmdiscovery/engine/internal/diag"
	"github.com/llmdiscovery/engine/internal/sourceconfig"
)

// compileSignatures builds the forward index (provider -> signatures) and
// the inverted index (signature key -> winning pattern), following spec
// §4.1 step 4: on collision, keep the higher-confidence entry and log both
// the kept and discarded entries.
func compileSignatures(tree *sourceconfig.SourceTree, sink *diag.Sink) (map[string][]bundle.Signature, []bundle.InvertedEntry) {
	forward := map[string][]bundle.Signature{}
	inverted := map[string]bundle.InvertedEntry{}
	// insertOrder tracks the order keys were first seen, so the emitted
	// inverted index keeps first-insertion order. On exactly equal
	// confidences the first-inserted entry is kept, because only a strictly
	// greater confidence replaces it (spec §9 open question).
	insertOrder := map[string]int{}
	order := 0

	for _, providerName := range tree.ProviderOrder {
		cfg := tree.Providers[providerName]

		patternNames := make([]string, 0, len(cfg.StructurePatterns.Patterns))
		for name := range cfg.StructurePatterns.Patterns {
			patternNames = append(patternNames, name)
		}
		sort.Strings(patternNames)

		for _, patternName := range patternNames {
			pat := cfg.StructurePatterns.Patterns[patternName]

			fields := append([]string(nil), pat.SignatureFields...)
			sort.Strings(fields)

			sig := bundle.Signature{
				PatternName: patternName,
				Fields:      fields,
				Confidence:  pat.ConfidenceWeight,
				Priority:    pat.Priority,
			}
			forward[providerName] = append(forward[providerName], sig)

			key := signatureKey(fields)
			existing, exists := inverted[key]
			if !exists {
				inverted[key] = bundle.InvertedEntry{
					Fields:      fields,
					PatternName: patternName,
					Confidence:  pat.ConfidenceWeight,
				}
				insertOrder[key] = order
				order++
				continue
			}

			if pat.ConfidenceWeight > existing.Confidence {
				sink.Info("signature collision resolved: incoming pattern wins on confidence",
					"kept", patternName, "kept_confidence", pat.ConfidenceWeight,
					"discarded", existing.PatternName, "discarded_confidence", existing.Confidence,
					"fields", fields)
				inverted[key] = bundle.InvertedEntry{
					Fields:      fields,
					PatternName: patternName,
					Confidence:  pat.ConfidenceWeight,
				}
				continue
			}

			sink.Info("signature collision resolved: existing pattern retained",
				"kept", existing.PatternName, "kept_confidence", existing.Confidence,
				"discarded", patternName, "discarded_confidence", pat.ConfidenceWeight,
				"fields", fields)
		}
	}

	keys := make([]string, 0, len(inverted))
	for k := range inverted {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return insertOrder[keys[i]] < insertOrder[keys[j]] })

	entries := make([]bundle.InvertedEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, inverted[k])
	}
	return forward, entries
}

// signatureKey builds a canonical map key for a sorted field-name slice.
func signatureKey(sortedFields []string) string {
	key := ""
	for i, f := range sortedFields {
		if i > 0 {
			key += "\x00"
		}
		key += f
	}
	return key
}
