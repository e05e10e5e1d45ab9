package metric

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric groups the station's counters on a private registry.
type Metric struct {
	registry *prometheus.Registry

	polls         prometheus.Counter
	samples       prometheus.Counter
	skipped       *prometheus.CounterVec
	readErrors    prometheus.Counter
	chartPoints   prometheus.Gauge
	wsClients     prometheus.Gauge
	publishErrors prometheus.Counter
}

// New creates and registers the metrics.
func New() *Metric {
	m := &Metric{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weatherstation",
			Name:      "polls_total",
			Help:      "Serial polls, one per tick.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weatherstation",
			Name:      "samples_total",
			Help:      "Four-byte samples decoded.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weatherstation",
			Name:      "polls_skipped_total",
			Help:      "Polls that found no sample, by bytes waiting.",
		}, []string{"waiting"}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weatherstation",
			Name:      "serial_errors_total",
			Help:      "Serial read errors.",
		}),
		chartPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weatherstation",
			Name:      "chart_points",
			Help:      "Points currently held by the chart.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weatherstation",
			Name:      "ws_clients",
			Help:      "Connected dashboard clients.",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weatherstation",
			Name:      "mqtt_publish_errors_total",
			Help:      "Readings that failed to publish.",
		}),
	}
	m.registry.MustRegister(
		m.polls, m.samples, m.skipped, m.readErrors,
		m.chartPoints, m.wsClients, m.publishErrors,
	)
	return m
}

// Poll records one poll. waiting is the byte count seen when no sample
// was taken.
func (m *Metric) Poll(sampled bool, waiting int) {
	if m == nil {
		return
	}
	m.polls.Inc()
	if sampled {
		m.samples.Inc()
		return
	}
	label := strconv.Itoa(waiting)
	if waiting > 8 {
		label = "9+"
	}
	m.skipped.WithLabelValues(label).Inc()
}

func (m *Metric) ReadError() {
	if m != nil {
		m.readErrors.Inc()
	}
}

func (m *Metric) ChartPoints(n int) {
	if m != nil {
		m.chartPoints.Set(float64(n))
	}
}

func (m *Metric) WSClients(n int) {
	if m != nil {
		m.wsClients.Set(float64(n))
	}
}

func (m *Metric) PublishError() {
	if m != nil {
		m.publishErrors.Inc()
	}
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metric) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metric) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
