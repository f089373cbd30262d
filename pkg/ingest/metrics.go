package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ingest pipeline's instrumentation.
type Metrics struct {
	MeetingsIngested prometheus.Counter
	IngestErrors     prometheus.Counter
	MentionsRecorded prometheus.Counter
	GraphConnections prometheus.Counter
	IngestDuration   prometheus.Histogram
}

// NewMetrics creates and registers the ingest metrics. reg may be nil to
// leave them unregistered (tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MeetingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civicwatch",
			Subsystem: "ingest",
			Name:      "meetings_total",
			Help:      "Meetings ingested successfully.",
		}),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civicwatch",
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Ingest failures, fatal and degraded.",
		}),
		MentionsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civicwatch",
			Subsystem: "ingest",
			Name:      "mentions_total",
			Help:      "Entity mentions recorded.",
		}),
		GraphConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civicwatch",
			Subsystem: "ingest",
			Name:      "graph_connections_total",
			Help:      "Graph connections upserted during rebuilds.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "civicwatch",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Wall time of one meeting ingest.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.MeetingsIngested, m.IngestErrors, m.MentionsRecorded, m.GraphConnections, m.IngestDuration)
	}
	return m
}
