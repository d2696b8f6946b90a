package validation

import (
	"fmt"
	"sort"

	"github.com/llmdiscovery/engine/internal/sourceconfig"
)

// collisionConfidenceWarnDelta is spec §4.5 check 2's warning threshold: a
// collision resolved by a confidence difference below this is flagged as a
// warning even though the compiler can still resolve it deterministically.
const collisionConfidenceWarnDelta = 0.05

// CheckSignatureCollisions detects structure-pattern signatures shared by
// two or more providers, reports the confidence-based resolution, and
// flags a warning (not a failure) when the winning margin is under 0.05
// (spec §4.5 check 2).
func CheckSignatureCollisions(tree *sourceconfig.SourceTree) *Result {
	result := newResult(len(tree.RawFiles))

	type entry struct {
		provider    string
		patternName string
		confidence  float64
	}
	byKey := map[string][]entry{}

	for _, providerName := range tree.ProviderOrder {
		cfg := tree.Providers[providerName]
		for patternName, pat := range cfg.StructurePatterns.Patterns {
			fields := append([]string(nil), pat.SignatureFields...)
			sort.Strings(fields)
			key := signatureKey(fields)
			byKey[key] = append(byKey[key], entry{
				provider:    providerName,
				patternName: patternName,
				confidence:  pat.ConfidenceWeight,
			})
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		entries := byKey[key]
		if len(entries) < 2 {
			continue
		}
		distinctProviders := map[string]bool{}
		for _, e := range entries {
			distinctProviders[e.provider] = true
		}
		if len(distinctProviders) < 2 {
			continue
		}

		sort.SliceStable(entries, func(i, j int) bool { return entries[i].confidence > entries[j].confidence })
		winner := entries[0]

		for _, loser := range entries[1:] {
			result.fail(fmt.Sprintf(
				"signature collision: %s/%s and %s/%s share identical fields, resolved in favor of %s/%s (confidence %.2f vs %.2f)",
				winner.provider, winner.patternName, loser.provider, loser.patternName,
				winner.provider, winner.patternName, winner.confidence, loser.confidence,
			))

			if winner.confidence-loser.confidence < collisionConfidenceWarnDelta {
				result.warn(fmt.Sprintf(
					"collision resolution margin for %s/%s vs %s/%s is %.3f, below %.2f",
					winner.provider, winner.patternName, loser.provider, loser.patternName,
					winner.confidence-loser.confidence, collisionConfidenceWarnDelta,
				))
			}
		}
	}

	return result
}

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
