// Package bundleloader implements the runtime bundle loader (spec §4.2):
// it deserializes a compiled bundle, verifies its structural invariants,
// rebuilds a legacy (missing) inverted index when needed, and lazily
// materializes and caches each provider's extraction plan.
package bundleloader

import (
	"fmt"
	"sort"
	"sync"

	"github.com/llmdiscovery/engine/internal/bundle"
	"github.com/llmdiscovery/engine/internal/clierrors"
	"github.com/llmdiscovery/engine/internal/detect"
	"github.com/llmdiscovery/engine/internal/diag"
)

// Loader owns one compiled bundle for the process lifetime of a tracer
// instance (spec §3.4). It is safe for concurrent use: the detection
// index and bundle contents are immutable after construction; extraction
// plan materialization is guarded per-provider.
type Loader struct {
	path string
	sink *diag.Sink

	mu        sync.RWMutex
	b         *bundle.Bundle
	idx       *detect.Index
	planOnces *sync.Map // provider string -> *sync.Once
	planCache *sync.Map // provider string -> *bundle.ExtractionPlanSpec
}

// Load reads the bundle at dir (a directory containing bundle.cbor /
// bundle.meta.json) and verifies its invariants.
func Load(dir string, sink *diag.Sink) (*Loader, error) {
	b, err := bundle.ReadFile(dir)
	if err != nil {
		return nil, clierrors.NewBundleCorruptError(
			fmt.Sprintf("failed to read compiled bundle: %v", err),
			dir,
			"recompile the bundle with the compiler CLI",
		)
	}
	return FromBundle(dir, b, sink)
}

// FromBundle wraps an already-decoded bundle (used by tests and by callers
// that compile in-process without writing to disk).
func FromBundle(path string, b *bundle.Bundle, sink *diag.Sink) (*Loader, error) {
	ensureInvertedIndex(b, sink)

	if err := verifyInvariants(b); err != nil {
		return nil, err
	}

	l := &Loader{
		path:      path,
		sink:      sink,
		b:         b,
		idx:       detect.BuildIndex(b.SignatureToProvider),
		planOnces: &sync.Map{},
		planCache: &sync.Map{},
	}
	return l, nil
}

// ensureInvertedIndex rebuilds signature_to_provider from the forward
// index when it's absent (a legacy artifact), per spec §4.2: default
// confidence 0.9, deterministic insertion order (sorted provider, then
// sorted pattern name) on ties.
func ensureInvertedIndex(b *bundle.Bundle, sink *diag.Sink) {
	if len(b.SignatureToProvider) > 0 {
		return
	}
	if len(b.ProviderSignatures) == 0 {
		return
	}

	sink.Warn("bundle lacks an inverted index; rebuilding in-memory with default confidence 0.9")

	providers := make([]string, 0, len(b.ProviderSignatures))
	for p := range b.ProviderSignatures {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	seen := map[string]bool{}
	var rebuilt []bundle.InvertedEntry
	for _, provider := range providers {
		sigs := append([]bundle.Signature(nil), b.ProviderSignatures[provider]...)
		sort.Slice(sigs, func(i, j int) bool { return sigs[i].PatternName < sigs[j].PatternName })

		for _, sig := range sigs {
			fields := append([]string(nil), sig.Fields...)
			sort.Strings(fields)
			key := fmt.Sprint(fields)
			if seen[key] {
				continue
			}
			seen[key] = true

			confidence := sig.Confidence
			if confidence == 0 {
				confidence = 0.9
			}
			rebuilt = append(rebuilt, bundle.InvertedEntry{
				Fields:      fields,
				PatternName: sig.PatternName,
				Confidence:  confidence,
			})
		}
	}

	b.SignatureToProvider = rebuilt
}

// verifyInvariants checks the structural invariants spec §8's bundle
// integrity check names: every provider appears in signatures, extraction
// plans, and field mappings; every inverted entry's provider exists in the
// forward index; every confidence is in [0, 1].
func verifyInvariants(b *bundle.Bundle) error {
	for provider := range b.ProviderSignatures {
		if _, ok := b.ExtractionFunctions[provider]; !ok {
			return clierrors.NewBundleCorruptError(
				fmt.Sprintf("provider %q has signatures but no extraction plan", provider),
				"", "recompile the bundle",
			)
		}
		if _, ok := b.FieldMappings[provider]; !ok {
			return clierrors.NewBundleCorruptError(
				fmt.Sprintf("provider %q has signatures but no field mappings", provider),
				"", "recompile the bundle",
			)
		}
	}

	for _, entry := range b.SignatureToProvider {
		if entry.Confidence < 0 || entry.Confidence > 1 {
			return clierrors.NewBundleCorruptError(
				fmt.Sprintf("inverted index entry %q has confidence %.4f outside [0,1]", entry.PatternName, entry.Confidence),
				"", "recompile the bundle",
			)
		}
		_, provider := detect.ParsePatternName(entry.PatternName)
		if _, ok := b.ProviderSignatures[provider]; !ok {
			return clierrors.NewBundleCorruptError(
				fmt.Sprintf("inverted index entry %q references unknown provider %q", entry.PatternName, provider),
				"", "recompile the bundle",
			)
		}
	}

	return nil
}

// Bundle returns the loaded bundle. Callers must not mutate it.
func (l *Loader) Bundle() *bundle.Bundle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.b
}

// Index returns the precomputed detection index for the loaded bundle.
func (l *Loader) Index() *detect.Index {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.idx
}

// Metadata serves the bundle's build metadata from memory (spec §4.2: "no
// file I/O after the first load").
func (l *Loader) Metadata() bundle.BuildMetadata {
	return l.Bundle().BuildMetadata
}

// SupportedProviders returns the bundle's provider names, sorted.
func (l *Loader) SupportedProviders() []string {
	return l.Bundle().SupportedProviders()
}

// SignaturesForProvider returns the raw signature field-sets registered
// for a provider (spec's supplemented get_provider_signatures), used by
// ValidateAttributes's O(#signatures) subset test.
func (l *Loader) SignaturesForProvider(provider string) ([]bundle.Signature, bool) {
	sigs, ok := l.Bundle().ProviderSignatures[provider]
	return sigs, ok
}

// GetExtractionPlan lazily materializes and caches the extraction plan for
// provider, per spec §4.2: not built until first requested, then cached
// under an exclusive lock per provider for the loader's lifetime.
func (l *Loader) GetExtractionPlan(provider string) (*bundle.ExtractionPlanSpec, bool) {
	l.mu.RLock()
	b, onces, cache := l.b, l.planOnces, l.planCache
	l.mu.RUnlock()

	if cached, ok := cache.Load(provider); ok {
		return cached.(*bundle.ExtractionPlanSpec), true
	}

	onceAny, _ := onces.LoadOrStore(provider, &sync.Once{})
	once := onceAny.(*sync.Once)

	once.Do(func() {
		spec, ok := b.ExtractionFunctions[provider]
		if !ok {
			return
		}
		cache.Store(provider, &spec)
	})

	if cached, ok := cache.Load(provider); ok {
		return cached.(*bundle.ExtractionPlanSpec), true
	}
	_, found := b.ExtractionFunctions[provider]
	return nil, found
}

// Reload swaps in a freshly compiled bundle from path without restarting
// the host process (spec's supplemented reload_bundle, grounded in
// DevelopmentAwareBundleLoader.reload_bundle). The extraction-plan cache
// is cleared so subsequent calls re-materialize against the new bundle.
func (l *Loader) Reload(path string) error {
	b, err := bundle.ReadFile(path)
	if err != nil {
		return clierrors.NewBundleCorruptError(
			fmt.Sprintf("failed to read compiled bundle: %v", err),
			path,
			"recompile the bundle with the compiler CLI",
		)
	}
	ensureInvertedIndex(b, l.sink)
	if err := verifyInvariants(b); err != nil {
		return err
	}

	newIdx := detect.BuildIndex(b.SignatureToProvider)

	l.mu.Lock()
	l.b = b
	l.idx = newIdx
	l.path = path
	l.planOnces = &sync.Map{}
	l.planCache = &sync.Map{}
	l.mu.Unlock()

	return nil
}
