package processor

import "github.com/llmdiscovery/engine/pkg/event"

// enhance applies spec §4.4.3's "validation and enhancement" step: coerce
// each section to a non-nil map, default metadata.provider, and stamp the
// fixed processing fields.
func enhance(sections map[string]map[string]any, provider string) event.Event {
	ev := event.Event{
		Inputs:   coerceMap(sections["inputs"]),
		Outputs:  coerceMap(sections["outputs"]),
		Config:   coerceMap(sections["config"]),
		Metadata: coerceMap(sections["metadata"]),
	}

	if _, ok := ev.Metadata["provider"]; !ok {
		ev.Metadata["provider"] = provider
	}
	ev.Metadata["processing_engine"] = event.ProcessingEngine
	if method, ok := ev.Metadata["detection_method"]; !ok || method != event.DetectionFallbackHeuristic {
		ev.Metadata["detection_method"] = event.DetectionSignatureBased
	}
	ev.Metadata["processed_at"] = nowUnix()

	return ev
}

func coerceMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
