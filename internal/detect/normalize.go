// Package detect implements the two-tier (instrumentor, provider)
// detection cascade of spec §4.4.1-4.4.2: key normalization, exact and
// wildcard signature matching, size-bucketed subset matching, and
// value-based scoring as the final heuristic before "unknown".
package detect

import (
	"sort"
	"strings"
)

// normalizeKey reconstructs a structural pattern from a flattened
// attribute key: the first path segment that parses as a non-negative
// integer is replaced by a terminating "*" sentinel (spec §4.4.1 step 1),
// e.g. "llm.input_messages.0.message.role" -> "llm.input_messages.*".
// Reports whether any segment was replaced.
func normalizeKey(key string) (normalized string, changed bool) {
	parts := strings.Split(key, ".")
	for i, p := range parts {
		if isNonNegativeInt(p) {
			return strings.Join(append(append([]string(nil), parts[:i]...), "*"), "."), true
		}
	}
	return key, false
}

func isNonNegativeInt(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// normalizedKeySet builds K_norm: the set of normalized keys for keys that
// had an integer segment, unioned with the keys that didn't (spec §4.4.1
// step 1).
func normalizedKeySet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		norm, changed := normalizeKey(k)
		if changed {
			out[norm] = struct{}{}
		} else {
			out[k] = struct{}{}
		}
	}
	return out
}

func keySet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// signatureKey builds the same canonical, sorted, NUL-joined key the
// compiler uses for its inverted index, so runtime exact-match lookups hit
// the same map entries the compiler produced.
func signatureKey(sortedFields []string) string {
	var b strings.Builder
	for i, f := range sortedFields {
		if i > 0 {
			b.WriteByte(0)
		}
		b.WriteString(f)
	}
	return b.String()
}

func sortedKeysOf(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
