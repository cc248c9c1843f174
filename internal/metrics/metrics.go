package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors for one pipeline run.
type Metrics struct {
	registry *prometheus.Registry

	LinesRead     prometheus.Counter
	LinesRejected prometheus.Counter
	Records       *prometheus.CounterVec
	Bytes         prometheus.Counter
	Reports       *prometheus.CounterVec
}

// New creates a Metrics with its own registry, so that several pipelines
// (tests included) never collide on the default registerer.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logstats_lines_read_total",
			Help: "Total number of raw lines received from the input",
		}),
		LinesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logstats_lines_rejected_total",
			Help: "Total number of lines that did not match the access-log grammar",
		}),
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logstats_records_total",
				Help: "Total number of accepted records by status code",
			},
			[]string{"status"},
		),
		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logstats_bytes_total",
			Help: "Sum of the byte sizes of accepted records",
		}),
		Reports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logstats_reports_total",
				Help: "Total number of reports written, by kind",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		m.LinesRead,
		m.LinesRejected,
		m.Records,
		m.Bytes,
		m.Reports,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordLine counts one raw line and whether it was accepted.
func (m *Metrics) RecordLine(accepted bool) {
	if m == nil {
		return
	}
	m.LinesRead.Inc()
	if !accepted {
		m.LinesRejected.Inc()
	}
}

// RecordAccepted counts one accepted record.
func (m *Metrics) RecordAccepted(status int, bytes int64) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(strconv.Itoa(status)).Inc()
	m.Bytes.Add(float64(bytes))
}

// RecordReport counts one written report.
func (m *Metrics) RecordReport(kind string) {
	if m == nil {
		return
	}
	m.Reports.WithLabelValues(kind).Inc()
}
