package detect

import (
	"sort"
	"strings"

	"github.com/llmdiscovery/engine/internal/bundle"
)

// Method names which cascade step produced a detection result, kept on the
// Result for diagnostics and for the processor's per-provider statistics.
type Method string

const (
	MethodExactRaw        Method = "exact_raw"
	MethodExactNormalized  Method = "exact_normalized"
	MethodWildcard         Method = "wildcard"
	MethodSubset           Method = "subset"
	MethodValueBased       Method = "value_based"
	MethodUnknown          Method = "unknown"
)

// Result is the outcome of the two-tier detection cascade.
type Result struct {
	Instrumentor string
	Provider     string
	Method       Method
	Confidence   float64
}

// index is a precomputed view over a bundle's inverted index, built once
// per bundle (not per call) by the bundle loader.
type Index struct {
	byKey      map[string]bundle.InvertedEntry // exact lookup, canonical key
	wildcard   []bundle.InvertedEntry          // entries with any '*'-terminated field
	plain      []bundle.InvertedEntry          // entries with no wildcard field, any size
	bySizeDesc []int                           // unique plain sizes, descending
}

// BuildIndex precomputes the lookup structures Detect needs from a
// bundle's flat inverted-index entry list.
func BuildIndex(entries []bundle.InvertedEntry) *Index {
	idx := &Index{byKey: make(map[string]bundle.InvertedEntry, len(entries))}

	sizes := map[int]struct{}{}
	for _, e := range entries {
		sorted := append([]string(nil), e.Fields...)
		sort.Strings(sorted)
		idx.byKey[signatureKey(sorted)] = e

		if hasWildcardField(e.Fields) {
			idx.wildcard = append(idx.wildcard, e)
		} else {
			idx.plain = append(idx.plain, e)
			sizes[len(e.Fields)] = struct{}{}
		}
	}

	for s := range sizes {
		idx.bySizeDesc = append(idx.bySizeDesc, s)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(idx.bySizeDesc)))

	return idx
}

func hasWildcardField(fields []string) bool {
	for _, f := range fields {
		if strings.Contains(f, "*") {
			return true
		}
	}
	return false
}

// Detect runs the full two-tier cascade (spec §4.4.1-4.4.2) against a raw
// attribute map.
func Detect(attrs map[string]any, idx *Index, wildcardThreshold, valueThreshold float64) Result {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}

	rawSet := keySet(keys)
	normSet := normalizedKeySet(keys)

	// Step 2: exact match of K.
	if e, ok := exactMatch(idx, rawSet); ok {
		instr, provider := ParsePatternName(e.PatternName)
		return Result{Instrumentor: instr, Provider: provider, Method: MethodExactRaw, Confidence: e.Confidence}
	}

	// Step 3: exact match of K_norm.
	if e, ok := exactMatch(idx, normSet); ok {
		instr, provider := ParsePatternName(e.PatternName)
		return Result{Instrumentor: instr, Provider: provider, Method: MethodExactNormalized, Confidence: e.Confidence}
	}

	// Step 4: wildcard subset match.
	if e, confidence, ok := wildcardMatch(idx, normSet, wildcardThreshold); ok {
		instr, provider := ParsePatternName(e.PatternName)
		return Result{Instrumentor: instr, Provider: provider, Method: MethodWildcard, Confidence: confidence}
	}

	// Step 5: size-bucketed subset match.
	if e, confidence, ok := subsetMatch(idx, rawSet, attrs, valueThreshold); ok {
		instr, provider := ParsePatternName(e.PatternName)
		return Result{Instrumentor: instr, Provider: provider, Method: MethodSubset, Confidence: confidence}
	}

	// Step 6: value-based detection.
	if provider, score, ok := detectByValue(attrs, valueThreshold); ok {
		return Result{
			Instrumentor: InferInstrumentor(keys),
			Provider:     provider,
			Method:       MethodValueBased,
			Confidence:   score / 100.0,
		}
	}

	// Step 7: unknown.
	return Result{Instrumentor: "unknown_instrumentor", Provider: "unknown", Method: MethodUnknown}
}

func exactMatch(idx *Index, set map[string]struct{}) (bundle.InvertedEntry, bool) {
	sorted := sortedKeysOf(set)
	e, ok := idx.byKey[signatureKey(sorted)]
	return e, ok
}

// wildcardMatch computes, for every wildcard-bearing signature, the
// fraction of its fields present in normSet; keeps the highest-confidence
// signature reaching the overlap threshold.
func wildcardMatch(idx *Index, normSet map[string]struct{}, threshold float64) (bundle.InvertedEntry, float64, bool) {
	var best bundle.InvertedEntry
	bestConfidence := -1.0
	found := false

	for _, e := range idx.wildcard {
		if len(e.Fields) == 0 {
			continue
		}
		overlap := 0
		for _, f := range e.Fields {
			if _, ok := normSet[f]; ok {
				overlap++
			}
		}
		ratio := float64(overlap) / float64(len(e.Fields))
		if ratio < threshold {
			continue
		}
		adjusted := e.Confidence * ratio
		if adjusted > bestConfidence {
			bestConfidence = adjusted
			best = e
			found = true
		}
	}

	return best, bestConfidence, found
}

// subsetMatch iterates plain (non-wildcard) signature sizes largest to
// smallest; the first size bucket containing a signature that is a subset
// of rawSet wins, ties broken by value-based provider agreement then by
// confidence (spec §4.4.1 step 5).
func subsetMatch(idx *Index, rawSet map[string]struct{}, attrs map[string]any, valueThreshold float64) (bundle.InvertedEntry, float64, bool) {
	valueProvider, _, hasValueHint := detectByValue(attrs, valueThreshold)

	for _, size := range idx.bySizeDesc {
		if size > len(rawSet) {
			continue
		}

		var candidates []bundle.InvertedEntry
		for _, e := range idx.plain {
			if len(e.Fields) != size {
				continue
			}
			if isSubset(e.Fields, rawSet) {
				candidates = append(candidates, e)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			ci, cj := candidates[i], candidates[j]
			if hasValueHint {
				_, provI := ParsePatternName(ci.PatternName)
				_, provJ := ParsePatternName(cj.PatternName)
				iMatches := provI == valueProvider
				jMatches := provJ == valueProvider
				if iMatches != jMatches {
					return iMatches
				}
			}
			return ci.Confidence > cj.Confidence
		})

		return candidates[0], candidates[0].Confidence, true
	}

	return bundle.InvertedEntry{}, 0, false
}

func isSubset(fields []string, set map[string]struct{}) bool {
	for _, f := range fields {
		if _, ok := set[f]; !ok {
			return false
		}
	}
	return true
}

// knownInstrumentors lists instrumentor names that may themselves contain
// an underscore (e.g. "direct_otel"). They are tried as prefixes before the
// first-underscore split, so pattern names like "direct_otel_openai" split
// correctly instead of at the first underscore.
var knownInstrumentors = []string{"direct_otel", "traceloop", "openinference", "openlit"}

// ParsePatternName splits a pattern_name into (instrumentor, provider), per
// spec §3.1/§4.4.1. It first tries each known instrumentor name as a
// prefix (since "direct_otel" itself contains an underscore); a name
// matching none of them falls back to splitting on the
// first underscore. A name without any underscore yields ("unknown",
// pattern_name).
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

// instrumentorPrefixes maps an attribute-key prefix to the instrumentor it
// implies, used by standalone instrumentor inference (spec §4.4.1,
// paragraph after step 7).
var instrumentorPrefixes = []struct {
	prefix       string
	instrumentor string
}{
	{"gen_ai.", "traceloop"},
	{"llm.", "openinference"},
	{"openlit.", "openlit"},
	{"otel.", "direct_otel"},
	{"custom.", "direct_otel"},
}

// InferInstrumentor counts the prevalent attribute-key prefix among keys
// and returns the instrumentor it implies, or "unknown" if no prefix
// dominates.
func InferInstrumentor(keys []string) string {
	counts := map[string]int{}
	for _, k := range keys {
		for _, p := range instrumentorPrefixes {
			if strings.HasPrefix(k, p.prefix) {
				counts[p.instrumentor]++
				break
			}
		}
	}

	best := "unknown"
	bestCount := 0
	// Deterministic tie-break: iterate prefixes in their declared order so
	// the first-declared instrumentor wins ties, matching the priority
	// implicit in the prefix table's ordering (gen_ai. checked before the
	// more general llm.).
	seen := map[string]bool{}
	for _, p := range instrumentorPrefixes {
		if seen[p.instrumentor] {
			continue
		}
		seen[p.instrumentor] = true
		if counts[p.instrumentor] > bestCount {
			bestCount = counts[p.instrumentor]
			best = p.instrumentor
		}
	}
	return best
}
