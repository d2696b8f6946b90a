package processor

import (
	"strings"

	"github.com/llmdiscovery/engine/pkg/event"
)

// fallbackPatterns classifies a raw attribute key by ordered substring
// match (spec §4.4.4). The first list whose pattern matches wins; a key
// matching none falls through to metadata.
var (
	inputPatterns    = []string{"input", "prompt", "message", "query", "request"}
	outputPatterns   = []string{"output", "completion", "response", "result", "answer"}
	configPatterns   = []string{"model", "temperature", "max_token", "top_p", "parameter"}
)

// processFallback walks the raw attribute map once, classifying every key
// into one of the four sections by substring match, used when detection
// returns "unknown" (spec §4.4.4).
func processFallback(attrs map[string]any) event.Event {
	ev := event.Empty()

	for key, value := range attrs {
		lower := strings.ToLower(key)
		switch {
		case matchesAny(lower, inputPatterns):
			ev.Inputs[key] = value
		case matchesAny(lower, outputPatterns):
			ev.Outputs[key] = value
		case matchesAny(lower, configPatterns):
			ev.Config[key] = value
		default:
			ev.Metadata[key] = value
		}
	}

	ev.Metadata["provider"] = event.UnknownProvider
	ev.Metadata["detection_method"] = event.DetectionFallbackHeuristic
	ev.Metadata["processing_engine"] = event.ProcessingEngine
	ev.Metadata["processed_at"] = nowUnix()

	return ev
}

func matchesAny(key string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}
