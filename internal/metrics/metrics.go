// Package metrics holds the Prometheus collectors updated by a build and
// exposed by the feed server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a candidate can be dropped between extraction and assembly.
const (
	DropUnparseable = "unparseable"
	DropMissing     = "missing"
	DropWindow      = "window"
	DropDuplicate   = "duplicate"
)

var (
	SourceRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "influxcal_source_records_total",
		Help: "Candidates extracted per source kind and category.",
	}, []string{"kind", "category"})

	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "influxcal_source_failures_total",
		Help: "Sources that contributed no records because of a transport, parse or kind error.",
	}, []string{"kind", "stage"})

	CandidatesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "influxcal_candidates_dropped_total",
		Help: "Candidates removed before assembly, by reason.",
	}, []string{"reason"})

	FeedEvents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "influxcal_feed_events",
		Help: "Events in the last published feed, by feed name.",
	}, []string{"feed"})

	LastBuild = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "influxcal_last_build_timestamp_seconds",
		Help: "Unix time of the last completed build.",
	})
)

// Dropped adds n to the dropped counter for reason.
func Dropped(reason string, n int) {
	if n <= 0 {
		return
	}
	CandidatesDropped.WithLabelValues(reason).Add(float64(n))
}

// Built records a completed build.
func Built(at time.Time, sizes map[string]int) {
	for feed, n := range sizes {
		FeedEvents.WithLabelValues(feed).Set(float64(n))
	}
	LastBuild.Set(float64(at.Unix()))
}
