// Package transform implements the process-wide transform registry (spec
// §4.3): a table of named, generic, provider-agnostic functions that the
// processor's extraction plan invokes with the extracted intermediate map
// and YAML-sourced parameters. Every registered function is total — it
// never panics or returns an error for well-typed input; the processor
// substitutes the plan's fallback literal whenever Invoke reports failure
// (the Func returned !ok, panicked, or is not registered).
package transform

import (
	"sort"
	"strings"
	"sync"
)

// Func is a registered transform implementation: given the extracted map
// (spec §4.4.3 PASS 1's output) and this invocation's YAML parameters, it
// returns a value and whether extraction succeeded. A false ok triggers
// the plan's fallback literal in the processor — this is the only
// "TransformFault" signal a transform ever produces; it never panics for
// well-typed input.
type Func func(extracted map[string]any, parameters map[string]any) (value any, ok bool)

// Registry is a named table of transform implementations. The zero value
// is usable; NewRegistry returns one for callers that want a registry not
// shared with DefaultRegistry (e.g. tests exercising a custom
// implementation set).
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Func{}}
}

// Register adds or replaces a named implementation.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs == nil {
		r.funcs = map[string]Func{}
	}
	r.funcs[name] = fn
}

// Lookup returns the named implementation, if registered.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Invoke runs the named transform, recovering from any panic inside it so
// a defective implementation can never propagate a runtime exception out
// of the processor (spec §7's TransformFault: "swallowed locally"). A
// panic or an unknown implementation name both report !ok.
func (r *Registry) Invoke(name string, extracted, parameters map[string]any) (value any, ok bool) {
	fn, found := r.Lookup(name)
	if !found {
		return nil, false
	}

	defer func() {
		if recover() != nil {
			value, ok = nil, false
		}
	}()
	return fn(extracted, parameters)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the process-wide registry, built exactly once
// with every contract named in spec §4.3.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

func registerBuiltins(r *Registry) {
	r.Register("extract_user_message_content", extractMessageContent)
	r.Register("extract_assistant_message_content", extractMessageContent)
	r.Register("sum_fields", sumFields)
	r.Register("detect_instrumentor_framework", detectInstrumentorFramework)
}

// extractMessageContent backs both extract_user_message_content and
// extract_assistant_message_content (spec §4.3): it filters an array of
// message objects under parameters["messages_field"] (defaulting to
// "messages") by role == parameters["role_filter"], collects each
// element's parameters["content_field"] (default "content"), and joins
// with parameters["separator"] if parameters["join_multiple"].
func extractMessageContent(extracted, parameters map[string]any) (any, bool) {
	messagesField := stringParam(parameters, "messages_field", "messages")
	roleFilter := stringParam(parameters, "role_filter", "")
	contentField := stringParam(parameters, "content_field", "content")
	separator := stringParam(parameters, "separator", "\n")
	joinMultiple := boolParam(parameters, "join_multiple", true)

	raw, ok := extracted[messagesField]
	if !ok {
		return nil, false
	}
	messages, ok := asSlice(raw)
	if !ok {
		return nil, false
	}

	var contents []string
	for _, m := range messages {
		obj, ok := asMap(m)
		if !ok {
			continue
		}
		if roleFilter != "" {
			role, _ := obj["role"].(string)
			if role != roleFilter {
				continue
			}
		}
		content, ok := obj[contentField]
		if !ok {
			continue
		}
		if s, ok := content.(string); ok {
			contents = append(contents, s)
		}
	}

	if len(contents) == 0 {
		return nil, false
	}
	if !joinMultiple {
		return contents[0], true
	}
	return strings.Join(contents, separator), true
}

// sumFields backs sum_fields (spec §4.3): sums numeric values found at
// parameters["source_fields"] keys of the extracted map; returns !ok
// (triggering the fallback) only if no numeric value was seen at all.
func sumFields(extracted, parameters map[string]any) (any, bool) {
	fieldsAny, _ := parameters["source_fields"]
	fields, ok := asStringSlice(fieldsAny)
	if !ok {
		return nil, false
	}

	total := 0.0
	seenAny := false
	for _, f := range fields {
		v, ok := extracted[f]
		if !ok {
			continue
		}
		n, ok := asFloat(v)
		if !ok {
			continue
		}
		seenAny = true
		total += n
	}

	if !seenAny {
		return nil, false
	}
	return total, true
}

// detectInstrumentorFramework backs detect_instrumentor_framework (spec
// §4.3): returns the instrumentor whose required attribute-key set
// (parameters["attribute_patterns"]: map<instrumentor, set<string>>) is a
// subset of the extracted map's keys; "unknown" if none matches, chosen
// deterministically by lexicographically smallest instrumentor name on
// ties.
func detectInstrumentorFramework(extracted, parameters map[string]any) (any, bool) {
	patternsAny, _ := parameters["attribute_patterns"]
	patterns, ok := patternsAny.(map[string]any)
	if !ok {
		return "unknown", true
	}

	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		required, ok := asStringSlice(patterns[name])
		if !ok || len(required) == 0 {
			continue
		}
		allPresent := true
		for _, key := range required {
			if _, ok := extracted[key]; !ok {
				allPresent = false
				break
			}
		}
		if allPresent {
			return name, true
		}
	}

	return "unknown", true
}
