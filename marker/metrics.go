package marker

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts handled and dropped records and tracks live markers.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	records *prometheus.CounterVec
	dropped *prometheus.CounterVec
	live    *prometheus.GaugeVec
}

// NewMetrics creates the session metrics and registers them with reg.
// It returns nil when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visualizer",
			Subsystem: "marker",
			Name:      "records_total",
			Help:      "Update records received, by message tag",
		}, []string{"tag"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visualizer",
			Subsystem: "marker",
			Name:      "records_dropped_total",
			Help:      "Update records dropped without a state change, by reason",
		}, []string{"reason"}),
		live: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "visualizer",
			Subsystem: "marker",
			Name:      "live_markers",
			Help:      "Markers currently on the map, by registry",
		}, []string{"registry"}),
	}
	reg.MustRegister(m.records, m.dropped, m.live)
	return m
}

func (m *Metrics) record(tag string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(tag).Inc()
}

func (m *Metrics) drop(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) setLive(objects, events int) {
	if m == nil {
		return
	}
	m.live.WithLabelValues("objects").Set(float64(objects))
	m.live.WithLabelValues("events").Set(float64(events))
}
