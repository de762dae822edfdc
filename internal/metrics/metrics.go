package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the loader's counters. A nil *Registry is valid and records nothing.
type Registry struct {
	reg                  *prometheus.Registry
	FilesLoaded          prometheus.Counter
	FilesFailed          *prometheus.CounterVec
	FilesDeadLettered    prometheus.Counter
	HeadersInserted      prometheus.Counter
	LinesInserted        prometheus.Counter
	JunctionsProvisioned prometheus.Counter
	LoadDurationSec      prometheus.Histogram
	PendingFiles         prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	loaded := prometheus.NewCounter(prometheus.CounterOpts{Name: "loader_files_loaded_total"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "loader_files_failed_total"}, []string{"kind"})
	deadLettered := prometheus.NewCounter(prometheus.CounterOpts{Name: "loader_files_dead_lettered_total"})
	headers := prometheus.NewCounter(prometheus.CounterOpts{Name: "loader_headers_inserted_total"})
	lines := prometheus.NewCounter(prometheus.CounterOpts{Name: "loader_lines_inserted_total"})
	junctions := prometheus.NewCounter(prometheus.CounterOpts{Name: "loader_junctions_provisioned_total"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "loader_file_load_seconds",
		Buckets: prometheus.DefBuckets,
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{Name: "loader_pending_files"})

	r.MustRegister(loaded, failed, deadLettered, headers, lines, junctions, duration, pending)
	return &Registry{
		reg:                  r,
		FilesLoaded:          loaded,
		FilesFailed:          failed,
		FilesDeadLettered:    deadLettered,
		HeadersInserted:      headers,
		LinesInserted:        lines,
		JunctionsProvisioned: junctions,
		LoadDurationSec:      duration,
		PendingFiles:         pending,
	}
}

// ObserveLoad records a committed file.
func (r *Registry) ObserveLoad(headers, lines, junctions int, seconds float64) {
	if r == nil {
		return
	}
	r.FilesLoaded.Inc()
	r.HeadersInserted.Add(float64(headers))
	r.LinesInserted.Add(float64(lines))
	r.JunctionsProvisioned.Add(float64(junctions))
	r.LoadDurationSec.Observe(seconds)
}

// ObserveFailure records a file whose unit of work was rolled back.
func (r *Registry) ObserveFailure(kind string) {
	if r == nil {
		return
	}
	r.FilesFailed.WithLabelValues(kind).Inc()
}

// ObserveDeadLetter records a file moved to the dead-letter directory.
func (r *Registry) ObserveDeadLetter() {
	if r == nil {
		return
	}
	r.FilesDeadLettered.Inc()
}

// SetPending records how many failed files remain in the watch directory after a tick.
func (r *Registry) SetPending(n int) {
	if r == nil {
		return
	}
	r.PendingFiles.Set(float64(n))
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
