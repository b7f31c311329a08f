// Package metrics holds the prometheus collectors of the viewer API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EntriesIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewer_entries_ingested_total",
		Help: "Entries reaching a terminal state, by source and outcome",
	}, []string{"source", "outcome"})
	DownloadedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viewer_downloaded_bytes_total",
		Help: "Bytes fetched by the remote URL channel",
	})
	ComposeDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "viewer_compose_duration_ms",
		Help:    "Composition pass duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"composer"})
	DiagnosticsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewer_diagnostics_total",
		Help: "Diagnostics emitted by composers, by level",
	}, []string{"composer", "level"})
)

func init() {
	prometheus.MustRegister(EntriesIngestedTotal)
	prometheus.MustRegister(DownloadedBytesTotal)
	prometheus.MustRegister(ComposeDurationMs)
	prometheus.MustRegister(DiagnosticsTotal)
}

// Handler exposes the registered collectors.
func Handler() http.Handler { return promhttp.Handler() }
