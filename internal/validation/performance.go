package validation

import (
	"fmt"
	"time"

	"github.com/llmdiscovery/engine/internal/bundleloader"
	"github.com/llmdiscovery/engine/internal/detect"
	"github.com/llmdiscovery/engine/internal/diag"
)

// warnBand is spec §4.5 check 4's tolerance above baseline before a
// micro-benchmark is flagged as a failure.
const warnBand = 0.20

// Baselines are per-check expected durations, keyed by the names used in
// shared/validation_rules.yaml's performance_baselines map.
type Baselines map[string]time.Duration

const (
	BaselineBundleLoad    = "bundle_load"
	BaselineExactMatch    = "exact_match_detection"
	BaselineSubsetMatch   = "subset_match_detection"
	BaselineMetadataRead  = "cached_metadata_read"
)

// CheckPerformanceBaselines times the four micro-benchmarks spec §4.5
// check 4 names against bundleDir, comparing each against baselines with a
// ±20% warn band; any benchmark exceeding baseline*(1+warnBand) fails.
func CheckPerformanceBaselines(bundleDir string, baselines Baselines) *Result {
	result := newResult(1)

	loadStart := time.Now()
	loader, err := bundleloader.Load(bundleDir, diag.RootSink())
	loadElapsed := time.Since(loadStart)
	if err != nil {
		result.fail(fmt.Sprintf("bundle load failed: %v", err))
		return result
	}
	checkBenchmark(result, BaselineBundleLoad, loadElapsed, baselines)

	idx := loader.Index()
	exactAttrs := exactMatchSampleAttrs(loader)
	if exactAttrs != nil {
		exactStart := time.Now()
		detect.Detect(exactAttrs, idx, 0.80, 100.0)
		checkBenchmark(result, BaselineExactMatch, time.Since(exactStart), baselines)
	}

	subsetAttrs := subsetMatchSampleAttrs(exactAttrs)
	if subsetAttrs != nil {
		subsetStart := time.Now()
		detect.Detect(subsetAttrs, idx, 0.80, 100.0)
		checkBenchmark(result, BaselineSubsetMatch, time.Since(subsetStart), baselines)
	}

	metaStart := time.Now()
	loader.Metadata()
	checkBenchmark(result, BaselineMetadataRead, time.Since(metaStart), baselines)

	return result
}

func checkBenchmark(result *Result, name string, elapsed time.Duration, baselines Baselines) {
	baseline, ok := baselines[name]
	if !ok {
		return
	}
	limit := time.Duration(float64(baseline) * (1 + warnBand))
	if elapsed > limit {
		result.fail(fmt.Sprintf("%s took %s, exceeding baseline %s + %.0f%% warn band (%s)", name, elapsed, baseline, warnBand*100, limit))
	}
}

// exactMatchSampleAttrs builds an attribute map that reproduces one
// registered signature exactly, for timing the cascade's fastest path.
func exactMatchSampleAttrs(loader *bundleloader.Loader) map[string]any {
	for _, provider := range loader.SupportedProviders() {
		sigs, ok := loader.SignaturesForProvider(provider)
		if !ok || len(sigs) == 0 {
			continue
		}
		attrs := map[string]any{}
		for _, field := range sigs[0].Fields {
			attrs[field] = "sample"
		}
		return attrs
	}
	return nil
}

// subsetMatchSampleAttrs adds one extra key to an exact-match sample so
// detection must fall through to the subset-match step.
func subsetMatchSampleAttrs(exact map[string]any) map[string]any {
	if exact == nil {
		return nil
	}
	attrs := make(map[string]any, len(exact)+1)
	for k, v := range exact {
		attrs[k] = v
	}
	attrs["__validation_probe_extra_field"] = "sample"
	return attrs
}
