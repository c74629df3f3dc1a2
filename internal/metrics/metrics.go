package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the segment pipeline.
type Metrics struct {
	registry              *prometheus.Registry
	segmentsProducedTotal prometheus.Counter
	segmentsPlayedTotal   prometheus.Counter
	segmentsSkippedTotal  prometheus.Counter
	fetchErrorsTotal      prometheus.Counter
	bufferSize            prometheus.Gauge
}

// New creates and registers the pipeline metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	segmentsProducedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlspiped_segments_produced_total",
		Help: "Total number of segments transformed and enqueued",
	})
	segmentsPlayedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlspiped_segments_played_total",
		Help: "Total number of segments emitted to the sink",
	})
	segmentsSkippedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlspiped_segments_skipped_total",
		Help: "Total number of scheduled segments dropped by download or transform failure",
	})
	fetchErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlspiped_fetch_errors_total",
		Help: "Total number of manifest or segment fetch failures",
	})
	bufferSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hlspiped_buffer_size",
		Help: "Current number of transformed segments awaiting playback",
	})

	registry.MustRegister(
		segmentsProducedTotal,
		segmentsPlayedTotal,
		segmentsSkippedTotal,
		fetchErrorsTotal,
		bufferSize,
	)

	return &Metrics{
		registry:              registry,
		segmentsProducedTotal: segmentsProducedTotal,
		segmentsPlayedTotal:   segmentsPlayedTotal,
		segmentsSkippedTotal:  segmentsSkippedTotal,
		fetchErrorsTotal:      fetchErrorsTotal,
		bufferSize:            bufferSize,
	}
}

// IncSegmentsProduced increments the produced segment counter.
func (m *Metrics) IncSegmentsProduced() {
	m.segmentsProducedTotal.Inc()
}

// IncSegmentsPlayed increments the played segment counter.
func (m *Metrics) IncSegmentsPlayed() {
	m.segmentsPlayedTotal.Inc()
}

// IncSegmentsSkipped increments the skipped segment counter.
func (m *Metrics) IncSegmentsSkipped() {
	m.segmentsSkippedTotal.Inc()
}

// IncFetchErrors increments the fetch error counter.
func (m *Metrics) IncFetchErrors() {
	m.fetchErrorsTotal.Inc()
}

// SetBufferSize sets the buffer occupancy gauge.
func (m *Metrics) SetBufferSize(n int) {
	m.bufferSize.Set(float64(n))
}

// Handler returns an http.Handler serving the metrics registry.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
