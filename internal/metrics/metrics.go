// Package metrics exposes ingestion counters through Prometheus.
//
// The ingester is a batch job, so counters live on a private registry and
// are written to a file in the text exposition format at the end of a run,
// ready for a node-exporter textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons used as the "reason" label of LinesSkipped.
const (
	ReasonParse       = "parse"
	ReasonUnknownTag  = "unknown_tag"
	ReasonPersistence = "persistence"
)

// Metrics holds the ingestion counters, labelled by stream.
type Metrics struct {
	Registry *prometheus.Registry

	Lines          *prometheus.CounterVec
	Headers        *prometheus.CounterVec
	RowsInserted   *prometheus.CounterVec
	LinesSkipped   *prometheus.CounterVec
	Chunks         *prometheus.CounterVec
	CommitFailures *prometheus.CounterVec
	BytesRead      *prometheus.CounterVec
}

// New creates the counters and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tbingest",
			Name:      "lines_total",
			Help:      "Complete lines classified.",
		}, []string{"stream"}),
		Headers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tbingest",
			Name:      "headers_total",
			Help:      "Header declarations consumed without insertion.",
		}, []string{"stream"}),
		RowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tbingest",
			Name:      "rows_inserted_total",
			Help:      "Rows in committed chunk transactions.",
		}, []string{"stream", "table"}),
		LinesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tbingest",
			Name:      "lines_skipped_total",
			Help:      "Lines or records skipped, by reason.",
		}, []string{"stream", "reason"}),
		Chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tbingest",
			Name:      "chunks_total",
			Help:      "Chunk transactions attempted.",
		}, []string{"stream"}),
		CommitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tbingest",
			Name:      "commit_failures_total",
			Help:      "Chunk transactions whose commit failed.",
		}, []string{"stream"}),
		BytesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tbingest",
			Name:      "bytes_read_total",
			Help:      "Decompressed bytes read.",
		}, []string{"stream"}),
	}

	m.Registry.MustRegister(
		m.Lines,
		m.Headers,
		m.RowsInserted,
		m.LinesSkipped,
		m.Chunks,
		m.CommitFailures,
		m.BytesRead,
	)
	return m
}

// WriteFile writes every counter to path in the Prometheus text format.
// The file is replaced atomically.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
