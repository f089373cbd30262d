package ingest

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersAllCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.MeetingsIngested.Inc()
	m.MentionsRecorded.Add(3)
	m.GraphConnections.Add(6)
	m.IngestErrors.Inc()
	m.IngestDuration.Observe(0.25)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"civicwatch_ingest_meetings_total",
		"civicwatch_ingest_errors_total",
		"civicwatch_ingest_mentions_total",
		"civicwatch_ingest_graph_connections_total",
		"civicwatch_ingest_duration_seconds",
	} {
		assert.True(t, names[want], "metric %s not gathered", want)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MeetingsIngested))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MentionsRecorded))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.GraphConnections))
}

func TestNewMetricsNilRegistererStaysUsable(t *testing.T) {
	m := NewMetrics(nil)
	m.MeetingsIngested.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MeetingsIngested))
}
