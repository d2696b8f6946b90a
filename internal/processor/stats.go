package processor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sampleRingSize bounds the number of recent processing durations kept for
// Stats()'s "sampled processing times" (spec §4.4.5). A fixed ring avoids
// unbounded growth under sustained load.
const sampleRingSize = 256

// Snapshot is a point-in-time, memory-safe read of the processor's
// counters, exposed by Processor.Stats.
type Snapshot struct {
	TotalProcessed int64
	FallbackUsage  int64
	Errors         int64
	PerProvider    map[string]int64
	// SampledDurations holds up to sampleRingSize of the most recent
	// processing durations, oldest first.
	SampledDurations []time.Duration
}

// stats holds the processor's concurrency-safe counters. Every counter is
// updated with atomic-increment semantics (spec §4.4.5): concurrent
// Process calls never lose an update or produce a torn read.
//
// Per-provider counts and sampled durations additionally feed a
// prometheus.Registry scoped to this processor instance, so a host that
// wires in a metrics exporter gets the same counters without polling
// Stats().
type stats struct {
	totalProcessed int64
	fallbackUsage  int64
	errors         int64

	providerMu sync.Mutex
	providers  map[string]int64

	ringMu   sync.Mutex
	ring     [sampleRingSize]time.Duration
	ringNext int
	ringFull bool

	registry       *prometheus.Registry
	totalCounter   prometheus.Counter
	fallbackCounter prometheus.Counter
	errorCounter   prometheus.Counter
	providerVec    *prometheus.CounterVec
	durationHist   prometheus.Histogram
}

func newStats() *stats {
	reg := prometheus.NewRegistry()

	s := &stats{
		providers: map[string]int64{},
		registry:  reg,
		totalCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llmdiscovery_processed_total",
			Help: "Total spans processed by this engine instance.",
		}),
		fallbackCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llmdiscovery_fallback_total",
			Help: "Spans processed via fallback heuristic classification.",
		}),
		errorCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llmdiscovery_errors_total",
			Help: "Processing calls that recorded an internal error.",
		}),
		providerVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llmdiscovery_provider_total",
			Help: "Spans processed per detected provider.",
		}, []string{"provider"}),
		durationHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "llmdiscovery_process_duration_seconds",
			Help:    "Wall-clock duration of Process calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(s.totalCounter, s.fallbackCounter, s.errorCounter, s.providerVec, s.durationHist)
	return s
}

// Registry exposes this processor's prometheus registry for a host that
// wants to serve /metrics.
func (s *stats) Registry() *prometheus.Registry { return s.registry }

func (s *stats) recordProcessed(provider string, fallback bool, errored bool, d time.Duration) {
	atomic.AddInt64(&s.totalProcessed, 1)
	s.totalCounter.Inc()

	if fallback {
		atomic.AddInt64(&s.fallbackUsage, 1)
		s.fallbackCounter.Inc()
	}
	if errored {
		atomic.AddInt64(&s.errors, 1)
		s.errorCounter.Inc()
	}

	s.providerMu.Lock()
	s.providers[provider]++
	s.providerMu.Unlock()
	s.providerVec.WithLabelValues(provider).Inc()

	s.durationHist.Observe(d.Seconds())
	s.sampleDuration(d)
}

func (s *stats) sampleDuration(d time.Duration) {
	s.ringMu.Lock()
	defer s.ringMu.Unlock()
	s.ring[s.ringNext] = d
	s.ringNext++
	if s.ringNext == sampleRingSize {
		s.ringNext = 0
		s.ringFull = true
	}
}

func (s *stats) snapshot() Snapshot {
	s.providerMu.Lock()
	providers := make(map[string]int64, len(s.providers))
	for k, v := range s.providers {
		providers[k] = v
	}
	s.providerMu.Unlock()

	s.ringMu.Lock()
	var sampled []time.Duration
	if s.ringFull {
		sampled = make([]time.Duration, sampleRingSize)
		copy(sampled, s.ring[s.ringNext:])
		copy(sampled[sampleRingSize-s.ringNext:], s.ring[:s.ringNext])
	} else {
		sampled = make([]time.Duration, s.ringNext)
		copy(sampled, s.ring[:s.ringNext])
	}
	s.ringMu.Unlock()

	return Snapshot{
		TotalProcessed:   atomic.LoadInt64(&s.totalProcessed),
		FallbackUsage:    atomic.LoadInt64(&s.fallbackUsage),
		Errors:           atomic.LoadInt64(&s.errors),
		PerProvider:      providers,
		SampledDurations: sampled,
	}
}

// reset clears the atomic counters and sampled-duration ring that back
// Stats()/ResetStats(). The prometheus counters stay monotonic, per
// Prometheus convention, and are unaffected — a scrape-based exporter
// should never see a counter go backwards.
func (s *stats) reset() {
	atomic.StoreInt64(&s.totalProcessed, 0)
	atomic.StoreInt64(&s.fallbackUsage, 0)
	atomic.StoreInt64(&s.errors, 0)

	s.providerMu.Lock()
	s.providers = map[string]int64{}
	s.providerMu.Unlock()

	s.ringMu.Lock()
	s.ring = [sampleRingSize]time.Duration{}
	s.ringNext = 0
	s.ringFull = false
	s.ringMu.Unlock()
}
