package processor

import "github.com/llmdiscovery/engine/internal/bundle"

// executeNavigation resolves one navigation rule against a raw attribute
// map (spec §4.4.3): direct_copy reads source_field verbatim; array_flatten
// recursively flattens nested arrays; object_merge left-to-right merges a
// list of maps into one (a single map is returned as-is). The rule's
// fallback_value substitutes on absence or shape mismatch.
func executeNavigation(ref bundle.NavigationRef, attrs map[string]any) any {
	raw, ok := attrs[ref.SourceField]
	if !ok {
		return ref.FallbackValue
	}

	switch ref.ExtractionMethod {
	case string(directCopy):
		return raw
	case string(arrayFlatten):
		flat, ok := flattenArray(raw)
		if !ok {
			return ref.FallbackValue
		}
		return flat
	case string(objectMerge):
		merged, ok := mergeObjects(raw)
		if !ok {
			return ref.FallbackValue
		}
		return merged
	default:
		return raw
	}
}

type extractionMethod string

const (
	directCopy  extractionMethod = "direct_copy"
	arrayFlatten extractionMethod = "array_flatten"
	objectMerge  extractionMethod = "object_merge"
)

// flattenArray recursively flattens nested arrays into a single flat slice.
// A non-array input fails the conversion so the caller substitutes the
// rule's fallback.
func flattenArray(raw any) ([]any, bool) {
	items, ok := asAnySlice(raw)
	if !ok {
		return nil, false
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		if nested, ok := asAnySlice(item); ok {
			flat, _ := flattenArray(nested)
			out = append(out, flat...)
			continue
		}
		out = append(out, item)
	}
	return out, true
}

// mergeObjects left-to-right merges a list of maps into a single map. A
// bare single map is returned as-is; anything else fails the conversion.
func mergeObjects(raw any) (map[string]any, bool) {
	if m, ok := raw.(map[string]any); ok {
		return m, true
	}

	items, ok := asAnySlice(raw)
	if !ok {
		return nil, false
	}

	merged := map[string]any{}
	sawMap := false
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		sawMap = true
		for k, v := range m {
			merged[k] = v
		}
	}
	if !sawMap {
		return nil, false
	}
	return merged, true
}

func asAnySlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out, true
	default:
		return nil, false
	}
}
