// Package processor implements the runtime provider processor (spec §4.4):
// two-tier detection, two-pass extraction against a compiled bundle, and
// substring-based fallback classification when no provider is detected. A
// Processor is stateless apart from its concurrency-safe counters and is
// safe for concurrent use from multiple goroutines.
package processor

import (
	"time"

	"github.com/llmdiscovery/engine/internal/bundle"
	"github.com/llmdiscovery/engine/internal/bundleloader"
	"github.com/llmdiscovery/engine/internal/detect"
	"github.com/llmdiscovery/engine/internal/diag"
	"github.com/llmdiscovery/engine/internal/transform"
	"github.com/llmdiscovery/engine/pkg/event"
	"github.com/prometheus/client_golang/prometheus"
)

// Processor is the core's public runtime entry point (spec §6.3). It holds
// a reference to an immutable compiled bundle (through its loader) and the
// process-wide transform registry; both are shared by reference across
// every Processor built from the same bundle.
type Processor struct {
	loader   *bundleloader.Loader
	registry *transform.Registry
	sink     *diag.Sink
	stats    *stats
}

// New builds a Processor over an already-loaded bundle. registry may be
// nil, in which case the process-wide default registry is used.
func New(loader *bundleloader.Loader, registry *transform.Registry, sink *diag.Sink) *Processor {
	if registry == nil {
		registry = transform.DefaultRegistry()
	}
	return &Processor{
		loader:   loader,
		registry: registry,
		sink:     sink,
		stats:    newStats(),
	}
}

// Process is the main entry point (spec §6.3, §4.4.3-§4.4.4): it detects
// the instrumentor/provider, runs the two-pass extractor or the fallback
// heuristic, and returns a normalized four-section event. It never panics:
// a non-map attributes argument (UnknownAttributes, spec §7) yields an
// empty fallback event.
func (p *Processor) Process(attributes any) event.Event {
	start := time.Now()

	attrs, ok := attributes.(map[string]any)
	if !ok {
		ev := processFallback(map[string]any{})
		p.stats.recordProcessed(event.UnknownProvider, true, false, time.Since(start))
		return ev
	}

	result := p.detect(attrs)

	if result.Provider == event.UnknownProvider {
		ev := processFallback(attrs)
		p.stats.recordProcessed(event.UnknownProvider, true, false, time.Since(start))
		return ev
	}

	ev, errored := p.extract(result.Provider, result.Instrumentor, attrs)
	p.stats.recordProcessed(result.Provider, false, errored, time.Since(start))
	return ev
}

// extract runs PASS 1 and PASS 2 of the two-pass extractor for an already
// detected provider (spec §4.4.3). errored reports whether the provider
// had no compiled extraction plan, in which case the event comes from the
// fallback heuristic (metadata.provider "unknown", detection_method
// fallback_heuristic).
// instrumentor is the cascade's detected instrumentor, threaded through to
// resolve instrumentor-routed field mappings (spec §4.1 step 5): the
// routing choice is indexed by the detected instrumentor, not by which
// route's raw attribute key happens to be present.
func (p *Processor) extract(provider, instrumentor string, attrs map[string]any) (event.Event, bool) {
	b := p.loader.Bundle()

	plan, ok := p.loader.GetExtractionPlan(provider)
	if !ok {
		p.sink.Warn("no extraction plan for detected provider; falling back", "provider", provider)
		ev := processFallback(attrs)
		return ev, true
	}

	rules := b.NavigationRules[provider]
	extracted := buildExtractedMap(rules, attrs)

	sections := map[string]map[string]any{
		"inputs":   executePlanSection(plan.Inputs, instrumentor, attrs, extracted, p.registry),
		"outputs":  executePlanSection(plan.Outputs, instrumentor, attrs, extracted, p.registry),
		"config":   executePlanSection(plan.Config, instrumentor, attrs, extracted, p.registry),
		"metadata": executePlanSection(plan.Metadata, instrumentor, attrs, extracted, p.registry),
	}

	return enhance(sections, provider), false
}

// detect runs the two-tier detection cascade against the loaded bundle's
// precomputed index (spec §4.4.1-§4.4.2).
func (p *Processor) detect(attrs map[string]any) detect.Result {
	b := p.loader.Bundle()
	idx := p.loader.Index()
	return detect.Detect(attrs, idx, b.ValidationRules.WildcardOverlapThreshold, b.ValidationRules.ValueScoreThreshold)
}

// Detect exposes the detection cascade standalone (spec §6.3:
// detect(attributes) -> (instrumentor, provider)).
func (p *Processor) Detect(attributes any) (instrumentor, provider string) {
	attrs, ok := attributes.(map[string]any)
	if !ok {
		return "unknown_instrumentor", event.UnknownProvider
	}
	result := p.detect(attrs)
	return result.Instrumentor, result.Provider
}

// ValidateAttributes reports whether attrs's key set is a superset of any
// signature registered for provider (spec §6.3): an O(#signatures) subset
// test, not the full detection cascade.
func (p *Processor) ValidateAttributes(attributes any, provider string) bool {
	attrs, ok := attributes.(map[string]any)
	if !ok {
		return false
	}
	sigs, ok := p.loader.SignaturesForProvider(provider)
	if !ok {
		return false
	}

	keys := make(map[string]struct{}, len(attrs))
	for k := range attrs {
		keys[k] = struct{}{}
	}

	for _, sig := range sigs {
		if isSubsetOf(sig.Fields, keys) {
			return true
		}
	}
	return false
}

func isSubsetOf(fields []string, keys map[string]struct{}) bool {
	for _, f := range fields {
		if _, ok := keys[f]; !ok {
			return false
		}
	}
	return true
}

// GetSupportedProviders returns the loaded bundle's provider names, sorted
// (spec §6.3).
func (p *Processor) GetSupportedProviders() []string {
	return p.loader.SupportedProviders()
}

// GetBundleMetadata returns the loaded bundle's build metadata (spec §6.3).
func (p *Processor) GetBundleMetadata() bundle.BuildMetadata {
	return p.loader.Metadata()
}

// Stats returns a point-in-time snapshot of the processor's counters (spec
// §4.4.5's supplemented get_performance_stats).
func (p *Processor) Stats() Snapshot {
	return p.stats.snapshot()
}

// ResetStats clears the processor's counters (spec's supplemented
// reset_performance_stats).
func (p *Processor) ResetStats() {
	p.stats.reset()
}

// MetricsRegistry exposes this processor's prometheus registry for a host
// that wants to serve /metrics alongside Stats()'s in-process snapshot.
func (p *Processor) MetricsRegistry() *prometheus.Registry {
	return p.stats.Registry()
}
