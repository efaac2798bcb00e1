package main

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and histograms the CLI registers against a
// prometheus.Registry, following the shape of the spoke registry's own
// observability metrics struct.
type Metrics struct {
	UnitsAnalyzed    prometheus.Counter
	AnchorsEmitted   prometheus.Counter
	EdgesEmitted     prometheus.Counter
	Diagnostics      prometheus.Counter
	// UnresolvedAny is registered but nothing in this module increments
	// it; it always reads 0.
	UnresolvedAny    prometheus.Counter
	AnalysisDuration prometheus.Histogram
}

// NewMetrics registers protoxref's metrics against registry and returns
// them. registry must be non-nil.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		UnitsAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protoxref_units_analyzed_total",
			Help: "Number of compilation units analyzed.",
		}),
		AnchorsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protoxref_anchors_emitted_total",
			Help: "Number of anchor nodes emitted.",
		}),
		EdgesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protoxref_edges_emitted_total",
			Help: "Number of reference edges emitted.",
		}),
		Diagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protoxref_diagnostics_total",
			Help: "Number of non-fatal diagnostics recorded.",
		}),
		UnresolvedAny: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protoxref_unresolved_any_total",
			Help: "Number of Any-wrapper types that failed to resolve against the descriptor pool.",
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "protoxref_analysis_duration_seconds",
			Help:    "Wall-clock time to analyze one compilation unit.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	registry.MustRegister(
		m.UnitsAnalyzed,
		m.AnchorsEmitted,
		m.EdgesEmitted,
		m.Diagnostics,
		m.UnresolvedAny,
		m.AnalysisDuration,
	)
	return m
}

// instrumentedSink wraps a Sink, counting anchors and edges as they're
// written so the underlying backend doesn't need to know about metrics
// at all.
type instrumentedSink struct {
	Sink
	metrics *Metrics
}

// Instrument wraps sink so every anchor and edge it records also
// increments metrics' counters. Pass the result to Analyze in place of
// the bare sink.
func Instrument(sink Sink, metrics *Metrics) Sink {
	if metrics == nil {
		return sink
	}
	return &instrumentedSink{Sink: sink, metrics: metrics}
}

func (s *instrumentedSink) AddAnchor(id Identity, begin, end int) {
	s.metrics.AnchorsEmitted.Inc()
	s.Sink.AddAnchor(id, begin, end)
}

func (s *instrumentedSink) AddEdge(from Identity, kind EdgeKind, to Identity) {
	s.metrics.EdgesEmitted.Inc()
	s.Sink.AddEdge(from, kind, to)
}

func (s *instrumentedSink) AddDiagnostic(fileID Identity, message string) {
	s.metrics.Diagnostics.Inc()
	s.Sink.AddDiagnostic(fileID, message)
}
