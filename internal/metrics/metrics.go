package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the server.
type Metrics struct {
	TurnsInFlight     prometheus.Gauge
	TurnOutcomes      *prometheus.CounterVec
	FirstAudioLatency prometheus.Histogram
	CapturedBytes     prometheus.Histogram
	TranscodeDuration prometheus.Histogram
}

// NewMetrics registers the instruments with reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TurnsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "turns_in_flight",
			Help:      "Number of assistant turns currently being served.",
		}),
		TurnOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed assistant turns by outcome.",
		}, []string{"outcome"}),
		FirstAudioLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_audio_latency_ms",
			Help:      "Latency to the first assistant audio chunk in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000, 4000, 9000},
		}),
		CapturedBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "captured_audio_bytes",
			Help:      "Raw response audio bytes kept per turn.",
			Buckets:   prometheus.ExponentialBuckets(16000, 2, 8),
		}),
		TranscodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_duration_ms",
			Help:      "Time spent encoding response audio in milliseconds.",
			Buckets:   []float64{50, 100, 200, 400, 800, 1600, 3200},
		}),
	}
}

// ObserveTurn counts a finished turn under outcome ("ok" or an error kind)
func (m *Metrics) ObserveTurn(outcome string) {
	m.TurnOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFirstAudioLatency(d time.Duration) {
	m.FirstAudioLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveCapturedBytes(n int64) {
	m.CapturedBytes.Observe(float64(n))
}

func (m *Metrics) ObserveTranscode(d time.Duration) {
	m.TranscodeDuration.Observe(float64(d.Milliseconds()))
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
